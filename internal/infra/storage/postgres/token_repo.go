package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vietddude/cloudlink/internal/core/domain"
)

// TokenRepo implements storage.TokenRepository using PostgreSQL.
type TokenRepo struct {
	db *DB
}

// NewTokenRepo creates a new PostgreSQL token repository.
func NewTokenRepo(db *DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// Get retrieves the token for a user x provider pair.
func (r *TokenRepo) Get(ctx context.Context, userID, provider string) (*domain.TokenRecord, error) {
	query := `
		SELECT user_id, provider, access_token, refresh_token, expires_at,
		       refresh_failure_count, requires_user_intervention,
		       last_refresh_attempt_at, last_notification_sent_at,
		       proactive_refresh_at, updated_at
		FROM oauth_tokens
		WHERE user_id = $1 AND provider = $2
	`
	row := r.db.QueryRowContext(ctx, query, userID, provider)

	var t domain.TokenRecord
	err := row.Scan(
		&t.UserID, &t.Provider, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt,
		&t.RefreshFailureCount, &t.RequiresUserIntervention,
		&t.LastRefreshAttemptAt, &t.LastNotificationSentAt,
		&t.ProactiveRefreshAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &t, nil
}

// Save upserts a token record.
func (r *TokenRepo) Save(ctx context.Context, t *domain.TokenRecord) error {
	query := `
		INSERT INTO oauth_tokens (
			user_id, provider, access_token, refresh_token, expires_at,
			refresh_failure_count, requires_user_intervention,
			last_refresh_attempt_at, last_notification_sent_at,
			proactive_refresh_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			refresh_failure_count = EXCLUDED.refresh_failure_count,
			requires_user_intervention = EXCLUDED.requires_user_intervention,
			last_refresh_attempt_at = EXCLUDED.last_refresh_attempt_at,
			last_notification_sent_at = EXCLUDED.last_notification_sent_at,
			proactive_refresh_at = EXCLUDED.proactive_refresh_at,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		t.UserID, t.Provider, t.AccessToken, t.RefreshToken, t.ExpiresAt,
		t.RefreshFailureCount, t.RequiresUserIntervention,
		t.LastRefreshAttemptAt, t.LastNotificationSentAt, t.ProactiveRefreshAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear removes the token for a user x provider pair.
func (r *TokenRepo) Clear(ctx context.Context, userID, provider string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM oauth_tokens WHERE user_id = $1 AND provider = $2",
		userID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// FindExpiringWithin returns tokens expiring inside the window that are
// not flagged for user intervention.
func (r *TokenRepo) FindExpiringWithin(ctx context.Context, window time.Duration) ([]*domain.TokenRecord, error) {
	query := `
		SELECT user_id, provider, access_token, refresh_token, expires_at,
		       refresh_failure_count, requires_user_intervention,
		       last_refresh_attempt_at, last_notification_sent_at,
		       proactive_refresh_at, updated_at
		FROM oauth_tokens
		WHERE expires_at <= $1 AND requires_user_intervention = FALSE
		ORDER BY expires_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, time.Now().Add(window))
	if err != nil {
		return nil, fmt.Errorf("failed to find expiring tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.TokenRecord
	for rows.Next() {
		var t domain.TokenRecord
		if err := rows.Scan(
			&t.UserID, &t.Provider, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt,
			&t.RefreshFailureCount, &t.RequiresUserIntervention,
			&t.LastRefreshAttemptAt, &t.LastNotificationSentAt,
			&t.ProactiveRefreshAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}
