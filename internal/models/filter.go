package models

import (
	"strings"
)

// AllServices is the sentinel selectedService value that disables service filtering.
const AllServices = "all"

// VerifiedFilter restricts results by profile verification.
type VerifiedFilter string

const (
	VerifiedAll        VerifiedFilter = "all"
	VerifiedOnly       VerifiedFilter = "verified"
	VerifiedUnverified VerifiedFilter = "unverified"
)

// IsValid checks if the verified filter is a known value. Empty is treated as "all".
func (v VerifiedFilter) IsValid() bool {
	switch v {
	case "", VerifiedAll, VerifiedOnly, VerifiedUnverified:
		return true
	}
	return false
}

// Accepts reports whether a provider with the given verification flag passes the filter.
func (v VerifiedFilter) Accepts(verified bool) bool {
	switch v {
	case VerifiedOnly:
		return verified
	case VerifiedUnverified:
		return !verified
	default:
		return true
	}
}

// FilterCriteria are the client-supplied search filters.
type FilterCriteria struct {
	SelectedService string         `json:"selected_service"`
	Location        string         `json:"location"`
	Specialization  string         `json:"specialization"`
	MinRating       float64        `json:"min_rating"`
	MaxBudget       float64        `json:"max_budget"`
	Verified        VerifiedFilter `json:"verified"`
}

// ServiceSelected reports whether a specific service (not "all") was requested.
func (f FilterCriteria) ServiceSelected() bool {
	s := strings.TrimSpace(f.SelectedService)
	return s != "" && !strings.EqualFold(s, AllServices)
}

// Normalize trims free-text fields and folds sentinel values.
func (f FilterCriteria) Normalize() FilterCriteria {
	out := f
	out.SelectedService = strings.TrimSpace(f.SelectedService)
	if strings.EqualFold(out.SelectedService, AllServices) {
		out.SelectedService = ""
	}
	out.Location = strings.TrimSpace(f.Location)
	out.Specialization = strings.TrimSpace(f.Specialization)
	out.Verified = VerifiedFilter(strings.ToLower(strings.TrimSpace(string(f.Verified))))
	if out.Verified == "" {
		out.Verified = VerifiedAll
	}
	return out
}

// Validate rejects filter values outside their documented ranges.
func (f FilterCriteria) Validate() error {
	if f.MinRating < 0 || f.MinRating > 5 {
		return ErrInvalidMinRating
	}
	if f.MaxBudget < 0 {
		return ErrInvalidBudget
	}
	if !f.Verified.IsValid() {
		return ErrInvalidVerifiedFilter
	}
	return nil
}

// Dimension is one scoring dimension of the recommendation table.
type Dimension string

const (
	DimensionRating         Dimension = "rating"
	DimensionPrice          Dimension = "price"
	DimensionLocation       Dimension = "location"
	DimensionExperience     Dimension = "experience"
	DimensionCertifications Dimension = "certifications"
)

// Dimensions returns every scoring dimension in table order.
func Dimensions() []Dimension {
	return []Dimension{
		DimensionRating,
		DimensionPrice,
		DimensionLocation,
		DimensionCertifications,
		DimensionExperience,
	}
}

// IsValid checks if the dimension is part of the scoring table.
func (d Dimension) IsValid() bool {
	for _, valid := range Dimensions() {
		if d == valid {
			return true
		}
	}
	return false
}

// RecommendationWeights holds the "prioritize" toggles. A toggle only switches a
// dimension on or off; point allocations are fixed.
type RecommendationWeights struct {
	PrioritizeRating         bool `json:"prioritize_rating"`
	PrioritizePrice          bool `json:"prioritize_price"`
	PrioritizeLocation       bool `json:"prioritize_location"`
	PrioritizeExperience     bool `json:"prioritize_experience"`
	PrioritizeCertifications bool `json:"prioritize_certifications"`
}

// DefaultWeights turns every dimension on.
func DefaultWeights() RecommendationWeights {
	return RecommendationWeights{
		PrioritizeRating:         true,
		PrioritizePrice:          true,
		PrioritizeLocation:       true,
		PrioritizeExperience:     true,
		PrioritizeCertifications: true,
	}
}

// WeightsFor builds a toggle set with exactly the given dimensions switched on.
func WeightsFor(dims ...Dimension) RecommendationWeights {
	var w RecommendationWeights
	for _, d := range dims {
		switch d {
		case DimensionRating:
			w.PrioritizeRating = true
		case DimensionPrice:
			w.PrioritizePrice = true
		case DimensionLocation:
			w.PrioritizeLocation = true
		case DimensionExperience:
			w.PrioritizeExperience = true
		case DimensionCertifications:
			w.PrioritizeCertifications = true
		}
	}
	return w
}

// Enabled reports whether a dimension is toggled on.
func (w RecommendationWeights) Enabled(d Dimension) bool {
	switch d {
	case DimensionRating:
		return w.PrioritizeRating
	case DimensionPrice:
		return w.PrioritizePrice
	case DimensionLocation:
		return w.PrioritizeLocation
	case DimensionExperience:
		return w.PrioritizeExperience
	case DimensionCertifications:
		return w.PrioritizeCertifications
	}
	return false
}

// ScoredProvider is a provider annotated with its recommendation score.
type ScoredProvider struct {
	Provider
	RecommendationScore float64  `json:"recommendation_score"`
	MatchReasons        []string `json:"match_reasons"`
}
