package models

import (
	"fmt"
	"strings"
	"time"
)

// WithdrawalStatus represents the administrative status of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
	WithdrawalStatusCancelled  WithdrawalStatus = "cancelled"
)

// IsValid checks if the status is a known value.
func (s WithdrawalStatus) IsValid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusProcessing, WithdrawalStatusCompleted,
		WithdrawalStatusFailed, WithdrawalStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusCompleted || s == WithdrawalStatusFailed || s == WithdrawalStatusCancelled
}

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalStatusPending:    {WithdrawalStatusProcessing, WithdrawalStatusCancelled, WithdrawalStatusFailed},
	WithdrawalStatusProcessing: {WithdrawalStatusCompleted, WithdrawalStatusFailed},
}

// CanTransitionTo reports whether an admin may move a request from s to next.
// Terminal requests never move again.
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	if s.IsTerminal() {
		return false
	}
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// WithdrawalDetails is the method-specific payout destination.
// Only the fields relevant to the chosen method are required.
type WithdrawalDetails struct {
	AccountHolder   string `json:"account_holder,omitempty"`
	AccountNumber   string `json:"account_number,omitempty"`
	BankName        string `json:"bank_name,omitempty"`
	IBAN            string `json:"iban,omitempty"`
	SwiftCode       string `json:"swift_code,omitempty"`
	PayPalEmail     string `json:"paypal_email,omitempty"`
	StripeAccountID string `json:"stripe_account_id,omitempty"`
	WalletAddress   string `json:"wallet_address,omitempty"`
	Network         string `json:"network,omitempty"`
}

// WithdrawalRequest is a persisted payout request.
type WithdrawalRequest struct {
	ID                  string            `json:"id" db:"id"`
	ProviderID          int64             `json:"provider_id" db:"provider_id"`
	UserType            UserType          `json:"user_type" db:"user_type"`
	Amount              float64           `json:"amount" db:"amount"`
	WithdrawalFee       float64           `json:"withdrawal_fee" db:"withdrawal_fee"`
	NetAmount           float64           `json:"net_amount" db:"net_amount"`
	Currency            string            `json:"currency" db:"currency"`
	Method              WithdrawalMethod  `json:"withdrawal_method" db:"withdrawal_method"`
	Details             WithdrawalDetails `json:"details" db:"details"`
	Status              WithdrawalStatus  `json:"status" db:"status"`
	Note                string            `json:"note,omitempty" db:"note"`
	EstimatedCompletion time.Time         `json:"estimated_completion" db:"estimated_completion"`
	CreatedAt           time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at" db:"updated_at"`
}

// WithdrawalCreate is the payload a provider submits to request a payout.
type WithdrawalCreate struct {
	Amount   float64           `json:"amount"`
	UserType UserType          `json:"user_type"`
	Currency string            `json:"currency"`
	Method   WithdrawalMethod  `json:"withdrawal_method"`
	Details  WithdrawalDetails `json:"details"`
}

// ValidateWithdrawalDetails checks that the destination fields for the method are present.
func ValidateWithdrawalDetails(method WithdrawalMethod, d WithdrawalDetails) error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	switch method {
	case WithdrawalMethodBankTransfer:
		require("account_holder", d.AccountHolder)
		require("account_number", d.AccountNumber)
		require("bank_name", d.BankName)
	case WithdrawalMethodPayPal:
		require("paypal_email", d.PayPalEmail)
		if len(missing) == 0 && !isValidEmail(d.PayPalEmail) {
			return fmt.Errorf("%w: paypal_email is not a valid address", ErrInvalidWithdrawalDetails)
		}
	case WithdrawalMethodStripe:
		require("stripe_account_id", d.StripeAccountID)
	case WithdrawalMethodCrypto:
		require("wallet_address", d.WalletAddress)
		require("network", d.Network)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedWithdrawalMethod, method)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidWithdrawalDetails, strings.Join(missing, ", "))
	}
	return nil
}
