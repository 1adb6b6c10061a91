// Package payout manages provider withdrawal requests and their administrative lifecycle.
package payout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ndt-connect/internal/metrics"
	"ndt-connect/internal/models"
	"ndt-connect/internal/services/database"
	"ndt-connect/internal/services/fees"
)

// Payout errors
var (
	ErrBelowMinimumWithdrawal  = errors.New("amount is below the minimum withdrawal")
	ErrInvalidStatusTransition = errors.New("invalid withdrawal status transition")
	ErrInvalidStatus           = errors.New("unknown withdrawal status")
	ErrWithdrawalNotFound      = errors.New("withdrawal request not found")
	ErrProviderNotFound        = errors.New("provider not found")
)

// WithdrawalStore persists withdrawal requests.
type WithdrawalStore interface {
	Create(ctx context.Context, w *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	List(ctx context.Context, filter database.WithdrawalFilter) ([]*models.WithdrawalRequest, error)
	UpdateStatus(ctx context.Context, id string, from, to models.WithdrawalStatus, note string) (*models.WithdrawalRequest, error)
}

// SettingsStore supplies the current fee settings.
type SettingsStore interface {
	Get(ctx context.Context) (*models.FeeSettings, error)
}

// ProviderLookup resolves the provider requesting a payout.
type ProviderLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Provider, error)
}

// Notifier emails providers about their withdrawals.
type Notifier interface {
	WithdrawalRequested(ctx context.Context, to string, w *models.WithdrawalRequest) error
	WithdrawalStatusChanged(ctx context.Context, to string, w *models.WithdrawalRequest) error
}

// Service handles withdrawal requests.
type Service struct {
	withdrawals WithdrawalStore
	settings    SettingsStore
	providers   ProviderLookup
	notifier    Notifier
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a payout service. The notifier may be nil to disable emails.
func NewService(withdrawals WithdrawalStore, settings SettingsStore, providers ProviderLookup, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		withdrawals: withdrawals,
		settings:    settings,
		providers:   providers,
		notifier:    notifier,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Request creates a pending withdrawal for a provider's earned balance.
// The minimum withdrawal amount is enforced before any fee is computed.
func (s *Service) Request(ctx context.Context, providerID int64, req models.WithdrawalCreate) (*models.WithdrawalRequest, error) {
	provider, err := s.providers.GetByID(ctx, providerID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrProviderNotFound, providerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load provider: %w", err)
	}

	if err := models.ValidateWithdrawalDetails(req.Method, req.Details); err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee settings: %w", err)
	}

	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return nil, fmt.Errorf("%w: got %v", fees.ErrInvalidAmount, req.Amount)
	}
	if req.Amount < settings.MinimumWithdrawalAmount {
		return nil, fmt.Errorf("%w: %.2f < %.2f", ErrBelowMinimumWithdrawal, req.Amount, settings.MinimumWithdrawalAmount)
	}

	quote, err := fees.QuoteWithdrawal(req.Amount, req.Method, settings)
	if err != nil {
		return nil, err
	}
	quote = quote.Rounded()

	userType := provider.UserType
	if userType == "" {
		userType = models.NormalizeUserType(string(req.UserType))
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = models.CurrencyFor(provider.CompanyLocation)
	}

	now := s.now()
	withdrawal := &models.WithdrawalRequest{
		ID:                  uuid.New().String(),
		ProviderID:          provider.ID,
		UserType:            userType,
		Amount:              quote.Amount,
		WithdrawalFee:       quote.WithdrawalFee,
		NetAmount:           quote.NetAmount,
		Currency:            currency,
		Method:              req.Method,
		Details:             req.Details,
		Status:              models.WithdrawalStatusPending,
		EstimatedCompletion: settings.EstimatedCompletion(now),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.withdrawals.Create(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to save withdrawal request: %w", err)
	}

	metrics.WithdrawalsRequested.WithLabelValues(string(req.Method)).Inc()
	s.logger.Info("Withdrawal requested",
		zap.String("withdrawal_id", withdrawal.ID),
		zap.Int64("provider_id", provider.ID),
		zap.String("method", string(req.Method)),
		zap.Float64("amount", withdrawal.Amount),
		zap.Float64("net_amount", withdrawal.NetAmount),
	)

	if s.notifier != nil {
		if err := s.notifier.WithdrawalRequested(ctx, provider.Email, withdrawal); err != nil {
			s.logger.Warn("Failed to send withdrawal confirmation",
				zap.String("withdrawal_id", withdrawal.ID),
				zap.Error(err),
			)
		}
	}

	return withdrawal, nil
}

// UpdateStatus applies an administrative status change.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.WithdrawalStatus, note string) (*models.WithdrawalRequest, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !current.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, status)
	}

	updated, err := s.withdrawals.UpdateStatus(ctx, id, current.Status, status, note)
	if errors.Is(err, database.ErrStatusConflict) {
		return nil, fmt.Errorf("%w: %s changed while updating", ErrInvalidStatusTransition, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update withdrawal status: %w", err)
	}

	metrics.WithdrawalStatusChanges.WithLabelValues(string(status)).Inc()
	s.logger.Info("Withdrawal status changed",
		zap.String("withdrawal_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)),
	)

	s.notifyStatus(ctx, updated)

	return updated, nil
}

// Get returns one withdrawal request.
func (s *Service) Get(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWithdrawalNotFound, id)
	}

	w, err := s.withdrawals.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWithdrawalNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load withdrawal request: %w", err)
	}
	return w, nil
}

// List returns a provider's withdrawal history, newest first. A zero providerID lists all requests.
func (s *Service) List(ctx context.Context, providerID int64, status models.WithdrawalStatus) ([]*models.WithdrawalRequest, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.withdrawals.List(ctx, database.WithdrawalFilter{ProviderID: providerID, Status: status})
}

func (s *Service) notifyStatus(ctx context.Context, w *models.WithdrawalRequest) {
	if s.notifier == nil {
		return
	}

	provider, err := s.providers.GetByID(ctx, w.ProviderID)
	if err != nil {
		s.logger.Warn("Failed to load provider for status email", zap.Int64("provider_id", w.ProviderID), zap.Error(err))
		return
	}

	if err := s.notifier.WithdrawalStatusChanged(ctx, provider.Email, w); err != nil {
		s.logger.Warn("Failed to send withdrawal status email",
			zap.String("withdrawal_id", w.ID),
			zap.Error(err),
		)
	}
}
