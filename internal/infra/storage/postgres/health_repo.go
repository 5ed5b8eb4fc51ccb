package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vietddude/cloudlink/internal/core/domain"
)

// HealthRepo implements storage.HealthRepository using PostgreSQL.
// Probe snapshots and provider extras are stored as JSONB.
type HealthRepo struct {
	db *DB
}

// NewHealthRepo creates a new PostgreSQL health record repository.
func NewHealthRepo(db *DB) *HealthRepo {
	return &HealthRepo{db: db}
}

const healthColumns = `
	user_id, provider, status, consolidated_status, consecutive_failures,
	last_error_type, last_error_message, requires_reconnect,
	token_expires_at, last_success_at, last_live_validation_at,
	api_tested_at, live_validation_result, api_connectivity_result,
	provider_data, updated_at
`

// Get retrieves the health record for a user x provider pair.
func (r *HealthRepo) Get(ctx context.Context, userID, provider string) (*domain.ConnectionHealthRecord, error) {
	query := `SELECT ` + healthColumns + ` FROM connection_health WHERE user_id = $1 AND provider = $2`
	rec, err := scanHealth(r.db.QueryRowContext(ctx, query, userID, provider))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get health record: %w", err)
	}
	return rec, nil
}

// Upsert writes the full record atomically.
func (r *HealthRepo) Upsert(ctx context.Context, rec *domain.ConnectionHealthRecord) error {
	liveResult, err := marshalProbe(rec.LiveValidationResult)
	if err != nil {
		return err
	}
	apiResult, err := marshalProbe(rec.APIConnectivityResult)
	if err != nil {
		return err
	}
	providerData, err := json.Marshal(rec.ProviderData)
	if err != nil {
		return fmt.Errorf("failed to marshal provider data: %w", err)
	}

	query := `
		INSERT INTO connection_health (` + healthColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			status = EXCLUDED.status,
			consolidated_status = EXCLUDED.consolidated_status,
			consecutive_failures = EXCLUDED.consecutive_failures,
			last_error_type = EXCLUDED.last_error_type,
			last_error_message = EXCLUDED.last_error_message,
			requires_reconnect = EXCLUDED.requires_reconnect,
			token_expires_at = EXCLUDED.token_expires_at,
			last_success_at = EXCLUDED.last_success_at,
			last_live_validation_at = EXCLUDED.last_live_validation_at,
			api_tested_at = EXCLUDED.api_tested_at,
			live_validation_result = EXCLUDED.live_validation_result,
			api_connectivity_result = EXCLUDED.api_connectivity_result,
			provider_data = EXCLUDED.provider_data,
			updated_at = NOW()
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.UserID, rec.Provider, rec.Status, rec.ConsolidatedStatus,
		rec.ConsecutiveFailures, rec.LastErrorType, rec.LastErrorMessage,
		rec.RequiresReconnect, rec.TokenExpiresAt, rec.LastSuccessAt,
		rec.LastLiveValidation, rec.APITestedAt, liveResult, apiResult,
		providerData,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert health record: %w", err)
	}
	return nil
}

// ListUnhealthy returns records whose raw status is degraded or worse.
func (r *HealthRepo) ListUnhealthy(ctx context.Context, limit int) ([]*domain.ConnectionHealthRecord, error) {
	query := `
		SELECT ` + healthColumns + ` FROM connection_health
		WHERE status IN ('degraded', 'unhealthy')
		ORDER BY updated_at ASC LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// ListAll returns every health record.
func (r *HealthRepo) ListAll(ctx context.Context) ([]*domain.ConnectionHealthRecord, error) {
	query := `SELECT ` + healthColumns + ` FROM connection_health ORDER BY user_id, provider`
	return r.list(ctx, query)
}

func (r *HealthRepo) list(ctx context.Context, query string, args ...any) ([]*domain.ConnectionHealthRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list health records: %w", err)
	}
	defer rows.Close()

	var records []*domain.ConnectionHealthRecord
	for rows.Next() {
		rec, err := scanHealth(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan health record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHealth(row rowScanner) (*domain.ConnectionHealthRecord, error) {
	var rec domain.ConnectionHealthRecord
	var liveResult, apiResult, providerData []byte

	err := row.Scan(
		&rec.UserID, &rec.Provider, &rec.Status, &rec.ConsolidatedStatus,
		&rec.ConsecutiveFailures, &rec.LastErrorType, &rec.LastErrorMessage,
		&rec.RequiresReconnect, &rec.TokenExpiresAt, &rec.LastSuccessAt,
		&rec.LastLiveValidation, &rec.APITestedAt, &liveResult, &apiResult,
		&providerData,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.LiveValidationResult, err = unmarshalProbe(liveResult); err != nil {
		return nil, err
	}
	if rec.APIConnectivityResult, err = unmarshalProbe(apiResult); err != nil {
		return nil, err
	}
	if len(providerData) > 0 {
		if err := json.Unmarshal(providerData, &rec.ProviderData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal provider data: %w", err)
		}
	}
	return &rec, nil
}

func marshalProbe(p *domain.ProbeResult) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal probe result: %w", err)
	}
	return data, nil
}

func unmarshalProbe(data []byte) (*domain.ProbeResult, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var p domain.ProbeResult
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal probe result: %w", err)
	}
	return &p, nil
}
