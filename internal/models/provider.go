// Package models defines the data structures for NDT Connect.
package models

import (
	"strings"
	"time"
)

// UserType distinguishes the two kinds of earning accounts on the marketplace.
type UserType string

const (
	UserTypeProvider  UserType = "provider"
	UserTypeInspector UserType = "inspector"
)

// IsValid checks if the user type is one of the known account kinds.
func (u UserType) IsValid() bool {
	return u == UserTypeProvider || u == UserTypeInspector
}

// Certificate is a qualification held by a provider (e.g. ASNT Level II UT).
type Certificate struct {
	Name             string     `json:"name"`
	IssuingAuthority string     `json:"issuing_authority"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
}

// IsExpired reports whether the certificate expired before the given instant.
func (c Certificate) IsExpired(at time.Time) bool {
	return c.ExpirationDate != nil && c.ExpirationDate.Before(at)
}

// ServiceOffering is one NDT service a provider sells, with its list price.
type ServiceOffering struct {
	ServiceID string  `json:"service_id"`
	Charge    float64 `json:"charge"`
	Currency  string  `json:"currency"`
	Unit      string  `json:"unit"`
}

// Provider is a provider profile as read from the directory.
// The matching code treats it as read-only.
type Provider struct {
	ID                    int64             `json:"id" db:"id"`
	UserID                string            `json:"user_id" db:"user_id"`
	UserType              UserType          `json:"user_type" db:"user_type"`
	CompanyName           string            `json:"company_name" db:"company_name"`
	Email                 string            `json:"email" db:"email"`
	Rating                float64           `json:"rating" db:"rating"`
	Certificates          []Certificate     `json:"certificates" db:"certificates"`
	Services              []ServiceOffering `json:"services" db:"services"`
	CompanyLocation       string            `json:"company_location" db:"company_location"`
	CompanySpecialization []string          `json:"company_specialization" db:"company_specialization"`
	Verified              bool              `json:"verified" db:"verified"`
	BatchID               string            `json:"batch_id,omitempty" db:"batch_id"`
	CreatedAt             time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at" db:"updated_at"`
	IsActive              bool              `json:"is_active" db:"is_active"`
}

// ProviderCreate represents the data needed to create or upsert a provider.
type ProviderCreate struct {
	UserID                string            `json:"user_id"`
	UserType              UserType          `json:"user_type"`
	CompanyName           string            `json:"company_name"`
	Email                 string            `json:"email"`
	Rating                float64           `json:"rating"`
	Certificates          []Certificate     `json:"certificates"`
	Services              []ServiceOffering `json:"services"`
	CompanyLocation       string            `json:"company_location"`
	CompanySpecialization []string          `json:"company_specialization"`
	Verified              bool              `json:"verified"`
	BatchID               string            `json:"batch_id,omitempty"`
}

// FindService returns the provider's offering for a service id.
func (p *Provider) FindService(serviceID string) (ServiceOffering, bool) {
	for _, s := range p.Services {
		if s.ServiceID == serviceID {
			return s, true
		}
	}
	return ServiceOffering{}, false
}

// OffersService reports whether the provider lists the given service id.
func (p *Provider) OffersService(serviceID string) bool {
	_, ok := p.FindService(serviceID)
	return ok
}

// LocatedIn reports whether the company location contains the query, ignoring case.
// An empty query never matches.
func (p *Provider) LocatedIn(query string) bool {
	if query == "" {
		return false
	}
	return containsFold(p.CompanyLocation, query)
}

// Specializes reports whether any specialization entry contains the query, ignoring case.
// An empty query never matches.
func (p *Provider) Specializes(query string) bool {
	if query == "" {
		return false
	}
	for _, s := range p.CompanySpecialization {
		if containsFold(s, query) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// ProviderSummary is the admin view of a directory entry.
type ProviderSummary struct {
	ID                  int64    `json:"id"`
	UserID              string   `json:"user_id"`
	CompanyName         string   `json:"company_name"`
	Rating              float64  `json:"rating"`
	CompanyLocation     string   `json:"company_location"`
	Specialization      []string `json:"company_specialization"`
	CertificateCount    int      `json:"certificate_count"`
	ExpiredCertificates int      `json:"expired_certificates"`
	Verified            bool     `json:"verified"`
}

// ToSummary converts a Provider to ProviderSummary, counting certificates expired at the given time.
func (p *Provider) ToSummary(at time.Time) ProviderSummary {
	expired := 0
	for _, c := range p.Certificates {
		if c.IsExpired(at) {
			expired++
		}
	}
	return ProviderSummary{
		ID:                  p.ID,
		UserID:              p.UserID,
		CompanyName:         p.CompanyName,
		Rating:              p.Rating,
		CompanyLocation:     p.CompanyLocation,
		Specialization:      p.CompanySpecialization,
		CertificateCount:    len(p.Certificates),
		ExpiredCertificates: expired,
		Verified:            p.Verified,
	}
}

// BulkInsertResult contains the results of a bulk insert operation.
type BulkInsertResult struct {
	InsertedCount int      `json:"inserted_count"`
	FailedCount   int      `json:"failed_count"`
	Errors        []string `json:"errors,omitempty"`
}
