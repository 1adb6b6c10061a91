package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ndt-connect/internal/models"
)

// settingsRowID is the primary key of the single fee settings row.
const settingsRowID = 1

// SettingsRepository persists the admin-managed fee configuration.
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored fee settings, or the platform defaults when none were saved yet.
func (r *SettingsRepository) Get(ctx context.Context) (*models.FeeSettings, error) {
	query := `
		SELECT platform_fee_percentage, processing_fee_percentage, fixed_processing_fee,
			minimum_withdrawal_amount, withdrawal_processing_days, withdrawal_fees,
			updated_at, COALESCE(updated_by, '')
		FROM fee_settings
		WHERE id = $1`

	var s models.FeeSettings
	var withdrawalFees []byte

	err := r.db.QueryRow(ctx, query, settingsRowID).Scan(
		&s.PlatformFeePercentage,
		&s.ProcessingFeePercentage,
		&s.FixedProcessingFee,
		&s.MinimumWithdrawalAmount,
		&s.WithdrawalProcessingDays,
		&withdrawalFees,
		&s.UpdatedAt,
		&s.UpdatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultFeeSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fee settings: %w", err)
	}

	if err := unmarshalColumn(withdrawalFees, &s.WithdrawalFees); err != nil {
		return nil, fmt.Errorf("failed to decode withdrawal fees: %w", err)
	}

	return &s, nil
}

// Update validates and stores a new fee configuration, replacing the previous one.
func (r *SettingsRepository) Update(ctx context.Context, s *models.FeeSettings, updatedBy string) (*models.FeeSettings, error) {
	if err := models.ValidateFeeSettings(s); err != nil {
		return nil, err
	}

	withdrawalFees, err := json.Marshal(s.WithdrawalFees)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal withdrawal fees: %w", err)
	}

	saved := *s
	saved.UpdatedAt = time.Now().UTC()
	saved.UpdatedBy = updatedBy

	query := `
		INSERT INTO fee_settings (
			id, platform_fee_percentage, processing_fee_percentage, fixed_processing_fee,
			minimum_withdrawal_amount, withdrawal_processing_days, withdrawal_fees, updated_at, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			platform_fee_percentage = EXCLUDED.platform_fee_percentage,
			processing_fee_percentage = EXCLUDED.processing_fee_percentage,
			fixed_processing_fee = EXCLUDED.fixed_processing_fee,
			minimum_withdrawal_amount = EXCLUDED.minimum_withdrawal_amount,
			withdrawal_processing_days = EXCLUDED.withdrawal_processing_days,
			withdrawal_fees = EXCLUDED.withdrawal_fees,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by`

	_, err = r.db.Exec(ctx, query,
		settingsRowID,
		saved.PlatformFeePercentage,
		saved.ProcessingFeePercentage,
		saved.FixedProcessingFee,
		saved.MinimumWithdrawalAmount,
		saved.WithdrawalProcessingDays,
		string(withdrawalFees),
		saved.UpdatedAt,
		saved.UpdatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update fee settings: %w", err)
	}

	return &saved, nil
}
