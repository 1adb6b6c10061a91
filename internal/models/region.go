package models

import (
	"strings"
)

// Region is an entry of the per-region charge table shown on the pricing pages.
type Region struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Currency string   `json:"currency"`
	Charge   float64  `json:"charge"`
	Aliases  []string `json:"-"`
}

var regions = []Region{
	{Code: "AE", Name: "United Arab Emirates", Currency: "AED", Charge: 550, Aliases: []string{"uae", "dubai", "abu dhabi", "sharjah"}},
	{Code: "SA", Name: "Saudi Arabia", Currency: "SAR", Charge: 560, Aliases: []string{"ksa", "riyadh", "jeddah", "dammam"}},
	{Code: "QA", Name: "Qatar", Currency: "QAR", Charge: 545, Aliases: []string{"doha"}},
	{Code: "IN", Name: "India", Currency: "INR", Charge: 12500, Aliases: []string{"mumbai", "delhi", "chennai", "bangalore"}},
	{Code: "GB", Name: "United Kingdom", Currency: "GBP", Charge: 120, Aliases: []string{"uk", "england", "london", "aberdeen"}},
	{Code: "EU", Name: "European Union", Currency: "EUR", Charge: 140, Aliases: []string{"europe", "germany", "netherlands", "france"}},
	{Code: "US", Name: "United States", Currency: "USD", Charge: 150, Aliases: []string{"usa", "houston", "texas"}},
}

// Regions returns a copy of the region charge table.
func Regions() []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	return out
}

// DefaultRegion is used when a location cannot be resolved.
func DefaultRegion() Region {
	for _, r := range regions {
		if r.Code == "US" {
			return r
		}
	}
	return regions[len(regions)-1]
}

// LookupRegion resolves a free-text location ("Jebel Ali, Dubai") to a region by
// region code, name or alias, ignoring case.
func LookupRegion(location string) (Region, bool) {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return Region{}, false
	}

	for _, r := range regions {
		if loc == strings.ToLower(r.Code) || strings.Contains(loc, strings.ToLower(r.Name)) {
			return r, true
		}
	}
	for _, r := range regions {
		for _, alias := range r.Aliases {
			if strings.Contains(loc, alias) {
				return r, true
			}
		}
	}
	return Region{}, false
}

// CurrencyFor returns the currency code for a location, falling back to the default region.
func CurrencyFor(location string) string {
	if r, ok := LookupRegion(location); ok {
		return r.Currency
	}
	return DefaultRegion().Currency
}
