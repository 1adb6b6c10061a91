package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// WithdrawalMethod is the payout channel used to cash out an earned balance.
type WithdrawalMethod string

const (
	WithdrawalMethodBankTransfer WithdrawalMethod = "bank_transfer"
	WithdrawalMethodPayPal       WithdrawalMethod = "paypal"
	WithdrawalMethodStripe       WithdrawalMethod = "stripe"
	WithdrawalMethodCrypto       WithdrawalMethod = "crypto"
)

// ValidWithdrawalMethods returns all supported withdrawal methods.
func ValidWithdrawalMethods() []WithdrawalMethod {
	return []WithdrawalMethod{
		WithdrawalMethodBankTransfer,
		WithdrawalMethodPayPal,
		WithdrawalMethodStripe,
		WithdrawalMethodCrypto,
	}
}

// IsValid checks if the withdrawal method is supported.
func (m WithdrawalMethod) IsValid() bool {
	for _, valid := range ValidWithdrawalMethods() {
		if m == valid {
			return true
		}
	}
	return false
}

// MethodFee is the withdrawal charge for one method: percentage (0-100) plus a fixed amount.
type MethodFee struct {
	Percentage float64 `json:"percentage"`
	Fixed      float64 `json:"fixed"`
}

// FeeSettings is the admin-managed fee configuration.
// Absent JSON fields decode to zero, which the calculators treat as "no fee".
type FeeSettings struct {
	PlatformFeePercentage    float64                        `json:"platform_fee_percentage"`
	ProcessingFeePercentage  float64                        `json:"processing_fee_percentage"`
	FixedProcessingFee       float64                        `json:"fixed_processing_fee"`
	MinimumWithdrawalAmount  float64                        `json:"minimum_withdrawal_amount"`
	WithdrawalProcessingDays int                            `json:"withdrawal_processing_days"`
	WithdrawalFees           map[WithdrawalMethod]MethodFee `json:"withdrawal_fees"`
	UpdatedAt                time.Time                      `json:"updated_at"`
	UpdatedBy                string                         `json:"updated_by,omitempty"`
}

// DefaultFeeSettings returns the platform defaults used until an admin saves settings.
func DefaultFeeSettings() *FeeSettings {
	return &FeeSettings{
		PlatformFeePercentage:    10,
		ProcessingFeePercentage:  2.9,
		FixedProcessingFee:       0.30,
		MinimumWithdrawalAmount:  50,
		WithdrawalProcessingDays: 5,
		WithdrawalFees: map[WithdrawalMethod]MethodFee{
			WithdrawalMethodBankTransfer: {Percentage: 1, Fixed: 0},
			WithdrawalMethodPayPal:       {Percentage: 2, Fixed: 0.30},
			WithdrawalMethodStripe:       {Percentage: 0.25, Fixed: 0.25},
			WithdrawalMethodCrypto:       {Percentage: 1, Fixed: 0},
		},
	}
}

// MethodFee returns the configured fee for a withdrawal method.
func (s *FeeSettings) MethodFee(method WithdrawalMethod) (MethodFee, bool) {
	if s == nil || s.WithdrawalFees == nil {
		return MethodFee{}, false
	}
	fee, ok := s.WithdrawalFees[method]
	return fee, ok
}

// EstimatedCompletion returns when a withdrawal requested at t should settle.
func (s *FeeSettings) EstimatedCompletion(t time.Time) time.Time {
	days := s.WithdrawalProcessingDays
	if days < 0 {
		days = 0
	}
	return t.AddDate(0, 0, days)
}

// ValidateFeeSettings checks an admin update before it is persisted.
func ValidateFeeSettings(s *FeeSettings) error {
	if s == nil {
		return fmt.Errorf("%w: settings are required", ErrInvalidFeeSettings)
	}

	percentages := map[string]float64{
		"platform_fee_percentage":   s.PlatformFeePercentage,
		"processing_fee_percentage": s.ProcessingFeePercentage,
	}
	for method, fee := range s.WithdrawalFees {
		if !method.IsValid() {
			return fmt.Errorf("%w: unknown withdrawal method %q", ErrInvalidFeeSettings, method)
		}
		percentages[string(method)+".percentage"] = fee.Percentage
		if !isFiniteNonNegative(fee.Fixed) {
			return fmt.Errorf("%w: %s.fixed must be a non-negative number", ErrInvalidFeeSettings, method)
		}
	}
	for name, pct := range percentages {
		if !isFiniteNonNegative(pct) || pct > 100 {
			return fmt.Errorf("%w: %s must be between 0 and 100", ErrInvalidFeeSettings, name)
		}
	}

	if !isFiniteNonNegative(s.FixedProcessingFee) {
		return fmt.Errorf("%w: fixed_processing_fee must be a non-negative number", ErrInvalidFeeSettings)
	}
	if !isFiniteNonNegative(s.MinimumWithdrawalAmount) {
		return fmt.Errorf("%w: minimum_withdrawal_amount must be a non-negative number", ErrInvalidFeeSettings)
	}
	if s.WithdrawalProcessingDays < 0 {
		return fmt.Errorf("%w: withdrawal_processing_days cannot be negative", ErrInvalidFeeSettings)
	}

	return nil
}

// ParseFeeSettings decodes a settings document as served by the settings endpoint.
func ParseFeeSettings(data []byte) (*FeeSettings, error) {
	var s FeeSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeeSettings, err)
	}
	return &s, nil
}

func isFiniteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
