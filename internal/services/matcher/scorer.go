// Package matcher ranks NDT providers against client search filters.
package matcher

import (
	"math"

	"ndt-connect/internal/models"
)

// Point caps per scoring dimension.
const (
	RatingPoints         = 30.0
	PricePoints          = 25.0
	LocationPoints       = 20.0
	CertificationPoints  = 15.0
	SpecializationPoints = 10.0

	pointsPerStar        = RatingPoints / 5
	pointsPerCertificate = 3.0
)

// Match reason labels.
const (
	ReasonHighRated        = "High rated"
	ReasonWellCertified    = "Well certified"
	ReasonLocalProvider    = "Local provider"
	ReasonVerifiedProfile  = "Verified profile"
	ReasonOffersService    = "Offers requested service"
	highRatingThreshold    = 4.0
	wellCertifiedThreshold = 3
)

// Breakdown records the points earned and the cap counted for each active dimension.
type Breakdown struct {
	Points   map[models.Dimension]float64
	MaxScore float64
	Earned   float64
}

// Score computes the 0-100 recommendation score of a provider and its match reasons.
//
// Only toggled dimensions count toward the denominator. Location and specialization
// are additionally left out when their filter is empty, and price is left out unless a
// specific service is selected. Rating and certifications always count when toggled.
func Score(p *models.Provider, filters models.FilterCriteria, weights models.RecommendationWeights) (float64, []string) {
	b := ScoreBreakdown(p, filters, weights)
	return b.Percent(), Reasons(p, filters)
}

// ScoreBreakdown exposes the per-dimension points behind Score.
func ScoreBreakdown(p *models.Provider, filters models.FilterCriteria, weights models.RecommendationWeights) Breakdown {
	f := filters.Normalize()
	b := Breakdown{Points: make(map[models.Dimension]float64)}

	add := func(d models.Dimension, points, max float64) {
		b.Points[d] = points
		b.Earned += points
		b.MaxScore += max
	}

	if weights.PrioritizeRating {
		add(models.DimensionRating, clamp(p.Rating, 0, 5)*pointsPerStar, RatingPoints)
	}

	if weights.PrioritizePrice && f.ServiceSelected() && f.MaxBudget > 0 {
		points := 0.0
		if offering, ok := p.FindService(f.SelectedService); ok {
			points = math.Max(0, PricePoints-(offering.Charge/f.MaxBudget)*PricePoints)
			points = math.Min(points, PricePoints)
		}
		add(models.DimensionPrice, points, PricePoints)
	}

	if weights.PrioritizeLocation && f.Location != "" {
		points := 0.0
		if p.LocatedIn(f.Location) {
			points = LocationPoints
		}
		add(models.DimensionLocation, points, LocationPoints)
	}

	if weights.PrioritizeCertifications {
		points := math.Min(CertificationPoints, float64(len(p.Certificates))*pointsPerCertificate)
		add(models.DimensionCertifications, points, CertificationPoints)
	}

	if weights.PrioritizeExperience && f.Specialization != "" {
		points := 0.0
		if p.Specializes(f.Specialization) {
			points = SpecializationPoints
		}
		add(models.DimensionExperience, points, SpecializationPoints)
	}

	return b
}

// Percent normalizes earned points against the active caps.
func (b Breakdown) Percent() float64 {
	if b.MaxScore <= 0 {
		return 0
	}
	return clamp(b.Earned/b.MaxScore*100, 0, 100)
}

// Reasons lists the absolute facts that make a provider a good fit.
// They do not depend on the weight toggles.
func Reasons(p *models.Provider, filters models.FilterCriteria) []string {
	f := filters.Normalize()
	reasons := make([]string, 0, 5)

	if p.Rating >= highRatingThreshold {
		reasons = append(reasons, ReasonHighRated)
	}
	if len(p.Certificates) >= wellCertifiedThreshold {
		reasons = append(reasons, ReasonWellCertified)
	}
	if p.LocatedIn(f.Location) {
		reasons = append(reasons, ReasonLocalProvider)
	}
	if p.Verified {
		reasons = append(reasons, ReasonVerifiedProfile)
	}
	if f.ServiceSelected() && p.OffersService(f.SelectedService) {
		reasons = append(reasons, ReasonOffersService)
	}

	return reasons
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
