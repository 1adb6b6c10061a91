package models

import (
	"errors"
	"math"
	"strings"
)

// Common errors
var (
	ErrEmptyUserID        = errors.New("user_id cannot be empty")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidUserType    = errors.New("user_type must be provider or inspector")
	ErrInvalidRating      = errors.New("rating must be between 0 and 5")
	ErrInvalidCharge      = errors.New("service charge must be a non-negative number")
	ErrEmptyServiceID     = errors.New("service_id cannot be empty")
	ErrEmptyCompanyName   = errors.New("company_name cannot be empty")
	ErrEmptyCertificate   = errors.New("certificate name cannot be empty")
	ErrInvalidMinRating   = errors.New("min_rating must be between 0 and 5")
	ErrInvalidBudget      = errors.New("max_budget cannot be negative")
	ErrInvalidFeeSettings = errors.New("invalid fee settings")

	ErrInvalidVerifiedFilter       = errors.New("verified must be all, verified or unverified")
	ErrUnsupportedWithdrawalMethod = errors.New("unsupported withdrawal method")
	ErrInvalidWithdrawalDetails    = errors.New("invalid withdrawal details")
)

// NormalizeUserType converts common spellings to a UserType.
func NormalizeUserType(s string) UserType {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch normalized {
	case "", "provider", "service_provider", "service provider", "company":
		return UserTypeProvider
	case "inspector", "individual", "freelance_inspector":
		return UserTypeInspector
	}
	return UserType(normalized)
}

// ValidateProviderCreate validates provider creation data.
func ValidateProviderCreate(p *ProviderCreate) error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrEmptyUserID
	}

	if strings.TrimSpace(p.CompanyName) == "" {
		return ErrEmptyCompanyName
	}

	if p.Email != "" && !isValidEmail(p.Email) {
		return ErrInvalidEmail
	}

	if !p.UserType.IsValid() {
		return ErrInvalidUserType
	}

	if math.IsNaN(p.Rating) || p.Rating < 0 || p.Rating > 5 {
		return ErrInvalidRating
	}

	for _, c := range p.Certificates {
		if strings.TrimSpace(c.Name) == "" {
			return ErrEmptyCertificate
		}
	}

	for _, s := range p.Services {
		if strings.TrimSpace(s.ServiceID) == "" {
			return ErrEmptyServiceID
		}
		if !isFiniteNonNegative(s.Charge) {
			return ErrInvalidCharge
		}
	}

	return nil
}

// isValidEmail performs basic email validation.
func isValidEmail(email string) bool {
	if email == "" {
		return false
	}

	// Basic check: must contain @ and have content before and after
	atIndex := strings.Index(email, "@")
	if atIndex <= 0 || atIndex == len(email)-1 {
		return false
	}

	// Must have a dot after @
	dotIndex := strings.LastIndex(email, ".")
	if dotIndex <= atIndex+1 || dotIndex == len(email)-1 {
		return false
	}

	return true
}
