package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"ndt-connect/internal/models"
)

// ErrStatusConflict is returned when a withdrawal changed status concurrently.
var ErrStatusConflict = errors.New("withdrawal status changed concurrently")

const withdrawalColumns = `id, provider_id, user_type, amount, withdrawal_fee, net_amount, currency,
	withdrawal_method, details, status, COALESCE(note, ''), estimated_completion, created_at, updated_at`

// WithdrawalFilter narrows a withdrawal listing. Zero values match everything.
type WithdrawalFilter struct {
	ProviderID int64
	Status     models.WithdrawalStatus
	Limit      int
}

// WithdrawalRepository handles withdrawal request database operations.
type WithdrawalRepository struct {
	db *DB
}

// NewWithdrawalRepository creates a new withdrawal repository.
func NewWithdrawalRepository(db *DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create stores a new withdrawal request. The caller assigns the id and timestamps.
func (r *WithdrawalRepository) Create(ctx context.Context, w *models.WithdrawalRequest) error {
	details, err := json.Marshal(w.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal withdrawal details: %w", err)
	}

	query := `
		INSERT INTO withdrawal_requests (
			id, provider_id, user_type, amount, withdrawal_fee, net_amount, currency,
			withdrawal_method, details, status, note, estimated_completion, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.Exec(ctx, query,
		w.ID,
		w.ProviderID,
		string(w.UserType),
		w.Amount,
		w.WithdrawalFee,
		w.NetAmount,
		w.Currency,
		string(w.Method),
		string(details),
		string(w.Status),
		w.Note,
		w.EstimatedCompletion,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	return nil
}

// GetByID retrieves a withdrawal request by id.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id)

	w, err := scanWithdrawal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	return w, nil
}

// List returns withdrawal requests matching the filter, newest first.
func (r *WithdrawalRepository) List(ctx context.Context, filter WithdrawalFilter) ([]*models.WithdrawalRequest, error) {
	var conditions []string
	var args []any

	if filter.ProviderID > 0 {
		args = append(args, filter.ProviderID)
		conditions = append(conditions, fmt.Sprintf("provider_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawal requests: %w", err)
	}
	defer rows.Close()

	requests := []*models.WithdrawalRequest{}
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		requests = append(requests, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawal requests: %w", err)
	}

	return requests, nil
}

// UpdateStatus moves a request from one status to another. The update only applies
// while the row still has the expected status; otherwise ErrStatusConflict is returned.
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, id string, from, to models.WithdrawalStatus, note string) (*models.WithdrawalRequest, error) {
	query := `
		UPDATE withdrawal_requests
		SET status = $3, note = COALESCE(NULLIF($4, ''), note), updated_at = $5
		WHERE id = $1 AND status = $2
		RETURNING ` + withdrawalColumns

	row := r.db.QueryRow(ctx, query, id, string(from), string(to), note, time.Now().UTC())

	w, err := scanWithdrawal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	return w, nil
}

func scanWithdrawal(row pgx.Row) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	var userType, method, status string
	var details []byte

	err := row.Scan(
		&w.ID,
		&w.ProviderID,
		&userType,
		&w.Amount,
		&w.WithdrawalFee,
		&w.NetAmount,
		&w.Currency,
		&method,
		&details,
		&status,
		&w.Note,
		&w.EstimatedCompletion,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.UserType = models.UserType(userType)
	w.Method = models.WithdrawalMethod(method)
	w.Status = models.WithdrawalStatus(status)
	if err := unmarshalColumn(details, &w.Details); err != nil {
		return nil, fmt.Errorf("details: %w", err)
	}

	return &w, nil
}
