package matcher

import (
	"sort"

	"ndt-connect/internal/models"
)

// RankProviders applies the hard filters, scores the survivors and returns them
// sorted by descending score. Providers with equal scores keep their input order.
// The input slice and its providers are never modified.
func RankProviders(providers []*models.Provider, filters models.FilterCriteria, weights models.RecommendationWeights) []models.ScoredProvider {
	f := filters.Normalize()

	candidates := Prefilter(providers, f)

	ranked := make([]models.ScoredProvider, 0, len(candidates))
	for _, p := range candidates {
		score, reasons := Score(p, f, weights)
		ranked = append(ranked, models.ScoredProvider{
			Provider:            *p,
			RecommendationScore: score,
			MatchReasons:        reasons,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RecommendationScore > ranked[j].RecommendationScore
	})

	return ranked
}

// Prefilter drops providers that fail any hard filter. Sentinel values
// ("all", empty strings, zero rating) keep every candidate.
func Prefilter(providers []*models.Provider, filters models.FilterCriteria) []*models.Provider {
	f := filters.Normalize()
	kept := make([]*models.Provider, 0, len(providers))

	for _, p := range providers {
		if p == nil {
			continue
		}
		if passesFilters(p, f) {
			kept = append(kept, p)
		}
	}

	return kept
}

func passesFilters(p *models.Provider, f models.FilterCriteria) bool {
	if f.ServiceSelected() && !p.OffersService(f.SelectedService) {
		return false
	}
	if f.Location != "" && !p.LocatedIn(f.Location) {
		return false
	}
	if f.Specialization != "" && !p.Specializes(f.Specialization) {
		return false
	}
	if f.MinRating > 0 && p.Rating < f.MinRating {
		return false
	}
	return f.Verified.Accepts(p.Verified)
}

// TopN returns at most limit providers from a ranked list. A non-positive limit keeps all.
func TopN(ranked []models.ScoredProvider, limit int) []models.ScoredProvider {
	if limit <= 0 || len(ranked) <= limit {
		return ranked
	}
	return ranked[:limit]
}
