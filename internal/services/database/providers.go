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

// ErrDuplicateProvider is returned when a provider with the same user_id already exists.
var ErrDuplicateProvider = errors.New("provider already exists")

const providerColumns = `id, user_id, user_type, company_name, email, rating, certificates, services,
	company_location, company_specialization, verified, COALESCE(batch_id, ''), created_at, updated_at, is_active`

const upsertProviderSQL = `
	INSERT INTO providers (
		user_id, user_type, company_name, email, rating, certificates, services,
		company_location, company_specialization, verified, batch_id, created_at, updated_at, is_active
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12, true)
	ON CONFLICT (user_id) DO UPDATE SET
		user_type = EXCLUDED.user_type,
		company_name = EXCLUDED.company_name,
		email = EXCLUDED.email,
		rating = EXCLUDED.rating,
		certificates = EXCLUDED.certificates,
		services = EXCLUDED.services,
		company_location = EXCLUDED.company_location,
		company_specialization = EXCLUDED.company_specialization,
		verified = EXCLUDED.verified,
		batch_id = EXCLUDED.batch_id,
		updated_at = EXCLUDED.updated_at,
		is_active = true`

// ProviderRepository handles provider directory database operations.
type ProviderRepository struct {
	db *DB
}

// NewProviderRepository creates a new provider repository.
func NewProviderRepository(db *DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// Create inserts a new provider. It fails with ErrDuplicateProvider when the user_id is taken.
func (r *ProviderRepository) Create(ctx context.Context, p *models.ProviderCreate) (int64, error) {
	args, err := providerArgs(p, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO providers (
			user_id, user_type, company_name, email, rating, certificates, services,
			company_location, company_specialization, verified, batch_id, created_at, updated_at, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12, true)
		RETURNING id`

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateProvider, p.UserID)
		}
		return 0, fmt.Errorf("failed to create provider: %w", err)
	}

	return id, nil
}

// BulkUpsert inserts or refreshes providers keyed by user_id inside a single transaction.
// Row failures are counted in the result instead of aborting the batch.
func (r *ProviderRepository) BulkUpsert(ctx context.Context, providers []*models.ProviderCreate) (*models.BulkInsertResult, error) {
	result := &models.BulkInsertResult{Errors: []string{}}
	now := time.Now().UTC()

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for i, p := range providers {
			args, err := providerArgs(p, now)
			if err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("provider %s: %v", p.UserID, err))
				continue
			}

			// A savepoint keeps one bad row from poisoning the whole transaction.
			savepoint := fmt.Sprintf("provider_%d", i)
			if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
				return fmt.Errorf("failed to create savepoint: %w", err)
			}

			if _, err := tx.Exec(ctx, upsertProviderSQL, args...); err != nil {
				if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
					return fmt.Errorf("failed to roll back savepoint: %w", rbErr)
				}
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("provider %s: %v", p.UserID, err))
				continue
			}

			if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
				return fmt.Errorf("failed to release savepoint: %w", err)
			}
			result.InsertedCount++
		}
		return nil
	})

	if err != nil {
		return result, fmt.Errorf("bulk upsert failed: %w", err)
	}

	return result, nil
}

// GetByID retrieves a provider by its database ID.
func (r *ProviderRepository) GetByID(ctx context.Context, id int64) (*models.Provider, error) {
	row := r.db.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id)

	p, err := scanProvider(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return p, nil
}

// GetByUserID retrieves an active provider by its external user ID.
func (r *ProviderRepository) GetByUserID(ctx context.Context, userID string) (*models.Provider, error) {
	row := r.db.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE user_id = $1 AND is_active = true`, userID)

	p, err := scanProvider(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return p, nil
}

// GetAllActive retrieves the active provider directory in id order.
// The order is the input order for ranking, so ties stay deterministic.
func (r *ProviderRepository) GetAllActive(ctx context.Context) ([]*models.Provider, error) {
	rows, err := r.db.Query(ctx, `SELECT `+providerColumns+` FROM providers WHERE is_active = true ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}
	defer rows.Close()

	providers := []*models.Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate providers: %w", err)
	}

	return providers, nil
}

// Deactivate hides a provider from the directory without deleting its history.
func (r *ProviderRepository) Deactivate(ctx context.Context, userID string) error {
	n, err := r.db.Exec(ctx,
		`UPDATE providers SET is_active = false, updated_at = $2 WHERE user_id = $1 AND is_active = true`,
		userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to deactivate provider: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByBatchID returns the number of providers written by an import batch.
func (r *ProviderRepository) CountByBatchID(ctx context.Context, batchID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM providers WHERE batch_id = $1", batchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count providers: %w", err)
	}
	return count, nil
}

func providerArgs(p *models.ProviderCreate, now time.Time) ([]any, error) {
	certificates, err := json.Marshal(nonNil(p.Certificates))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal certificates: %w", err)
	}
	services, err := json.Marshal(nonNil(p.Services))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal services: %w", err)
	}

	var batchID *string
	if p.BatchID != "" {
		batchID = &p.BatchID
	}

	return []any{
		p.UserID,
		string(p.UserType),
		p.CompanyName,
		p.Email,
		p.Rating,
		string(certificates),
		string(services),
		p.CompanyLocation,
		nonNil(p.CompanySpecialization),
		p.Verified,
		batchID,
		now,
	}, nil
}

func scanProvider(row pgx.Row) (*models.Provider, error) {
	var p models.Provider
	var userType string
	var certificates, services []byte

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&userType,
		&p.CompanyName,
		&p.Email,
		&p.Rating,
		&certificates,
		&services,
		&p.CompanyLocation,
		&p.CompanySpecialization,
		&p.Verified,
		&p.BatchID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.IsActive,
	)
	if err != nil {
		return nil, err
	}

	p.UserType = models.UserType(userType)
	if err := unmarshalColumn(certificates, &p.Certificates); err != nil {
		return nil, fmt.Errorf("certificates: %w", err)
	}
	if err := unmarshalColumn(services, &p.Services); err != nil {
		return nil, fmt.Errorf("services: %w", err)
	}

	return &p, nil
}

func unmarshalColumn(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
