// Package fees computes platform, processing and withdrawal fee breakdowns.
//
// Every function here is pure: settings are passed in explicitly, nothing is
// logged and no rounding happens. Callers round with FeeBreakdown.Rounded when
// presenting amounts.
package fees

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"ndt-connect/internal/models"
)

// Calculator errors
var (
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrUnknownMethod     = errors.New("unknown withdrawal method")
	ErrMalformedSettings = errors.New("malformed fee settings")
	ErrUnknownUserType   = errors.New("unknown user type")
)

// FeeBreakdown is the result of a fee computation.
type FeeBreakdown struct {
	Amount           float64                 `json:"amount"`
	UserType         models.UserType         `json:"user_type"`
	PlatformFee      float64                 `json:"platform_fee"`
	ProcessingFee    float64                 `json:"processing_fee"`
	Earnings         float64                 `json:"earnings"`
	WithdrawalMethod models.WithdrawalMethod `json:"withdrawal_method,omitempty"`
	WithdrawalFee    float64                 `json:"withdrawal_fee"`
	NetAmount        float64                 `json:"net_amount"`
}

// HasWithdrawal reports whether a withdrawal method was part of the computation.
func (b FeeBreakdown) HasWithdrawal() bool {
	return b.WithdrawalMethod != ""
}

// TotalFees is everything deducted from the gross amount.
func (b FeeBreakdown) TotalFees() float64 {
	return b.PlatformFee + b.ProcessingFee + b.WithdrawalFee
}

// Rounded returns a copy with every money field rounded to two decimals,
// half away from zero.
func (b FeeBreakdown) Rounded() FeeBreakdown {
	out := b
	out.Amount = round2(b.Amount)
	out.PlatformFee = round2(b.PlatformFee)
	out.ProcessingFee = round2(b.ProcessingFee)
	out.Earnings = round2(b.Earnings)
	out.WithdrawalFee = round2(b.WithdrawalFee)
	out.NetAmount = round2(b.NetAmount)
	return out
}

// WithdrawalQuote is the fee charged on a payout of an already-earned balance.
type WithdrawalQuote struct {
	Amount        float64                 `json:"amount"`
	Method        models.WithdrawalMethod `json:"withdrawal_method"`
	WithdrawalFee float64                 `json:"withdrawal_fee"`
	NetAmount     float64                 `json:"net_amount"`
}

// Rounded returns a copy with money fields rounded to two decimals.
func (q WithdrawalQuote) Rounded() WithdrawalQuote {
	out := q
	out.Amount = round2(q.Amount)
	out.WithdrawalFee = round2(q.WithdrawalFee)
	out.NetAmount = round2(q.NetAmount)
	return out
}

// ComputeFees splits a gross payment into platform fee, processing fee and earnings.
// When method is non-empty the withdrawal fee is applied to the earnings as well.
func ComputeFees(amount float64, userType models.UserType, method models.WithdrawalMethod, settings *models.FeeSettings) (FeeBreakdown, error) {
	if err := checkAmount(amount); err != nil {
		return FeeBreakdown{}, err
	}
	if userType == "" {
		userType = models.UserTypeProvider
	}
	if !userType.IsValid() {
		return FeeBreakdown{}, fmt.Errorf("%w: %q", ErrUnknownUserType, userType)
	}
	if err := checkSettings(settings); err != nil {
		return FeeBreakdown{}, err
	}

	platformFee := amount * (settings.PlatformFeePercentage / 100)
	processingFee := amount*(settings.ProcessingFeePercentage/100) + settings.FixedProcessingFee
	earnings := amount - platformFee - processingFee

	breakdown := FeeBreakdown{
		Amount:        amount,
		UserType:      userType,
		PlatformFee:   platformFee,
		ProcessingFee: processingFee,
		Earnings:      earnings,
		NetAmount:     earnings,
	}

	if method == "" {
		return breakdown, nil
	}

	fee, err := lookupMethodFee(method, settings)
	if err != nil {
		return FeeBreakdown{}, err
	}

	withdrawalFee := earnings*(fee.Percentage/100) + fee.Fixed
	breakdown.WithdrawalMethod = method
	breakdown.WithdrawalFee = withdrawalFee
	breakdown.NetAmount = earnings - withdrawalFee

	return breakdown, nil
}

// QuoteWithdrawal computes the withdrawal fee on an amount the provider has already earned.
// Platform and processing fees were taken when the amount was earned and are not reapplied.
func QuoteWithdrawal(amount float64, method models.WithdrawalMethod, settings *models.FeeSettings) (WithdrawalQuote, error) {
	if err := checkAmount(amount); err != nil {
		return WithdrawalQuote{}, err
	}
	if err := checkSettings(settings); err != nil {
		return WithdrawalQuote{}, err
	}

	fee, err := lookupMethodFee(method, settings)
	if err != nil {
		return WithdrawalQuote{}, err
	}

	withdrawalFee := amount*(fee.Percentage/100) + fee.Fixed
	return WithdrawalQuote{
		Amount:        amount,
		Method:        method,
		WithdrawalFee: withdrawalFee,
		NetAmount:     amount - withdrawalFee,
	}, nil
}

func checkAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidAmount, amount)
	}
	return nil
}

// checkSettings rejects settings that cannot be safely defaulted. Zero values are fine.
func checkSettings(s *models.FeeSettings) error {
	if s == nil {
		return fmt.Errorf("%w: settings are required", ErrMalformedSettings)
	}

	fields := map[string]float64{
		"platform_fee_percentage":   s.PlatformFeePercentage,
		"processing_fee_percentage": s.ProcessingFeePercentage,
		"fixed_processing_fee":      s.FixedProcessingFee,
	}
	for name, v := range fields {
		if !usable(v) {
			return fmt.Errorf("%w: %s is %v", ErrMalformedSettings, name, v)
		}
	}
	return nil
}

func lookupMethodFee(method models.WithdrawalMethod, settings *models.FeeSettings) (models.MethodFee, error) {
	if !method.IsValid() {
		return models.MethodFee{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	fee, ok := settings.MethodFee(method)
	if !ok {
		return models.MethodFee{}, fmt.Errorf("%w: %q has no fee configured", ErrUnknownMethod, method)
	}
	if !usable(fee.Percentage) || !usable(fee.Fixed) {
		return models.MethodFee{}, fmt.Errorf("%w: %s fee is %+v", ErrMalformedSettings, method, fee)
	}
	return fee, nil
}

func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
