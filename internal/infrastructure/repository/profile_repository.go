package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/profile"
)

// ProfileRepository persists user trust profiles in PostgreSQL.
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUser retrieves a profile by user id.
func (r *ProfileRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*profile.UserProfile, error) {
	query := `
		SELECT user_id, created_at, is_verified, trust_score, transaction_limit, last_login
		FROM user_profiles
		WHERE user_id = $1
	`
	var p profile.UserProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.CreatedAt, &p.IsVerified, &p.TrustScore, &p.TransactionLimit, &p.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProfileNotFound
		}
		return nil, apperrors.NewStoreError("profile.get", err)
	}
	return &p, nil
}

// List returns all profiles ordered by creation time.
func (r *ProfileRepository) List(ctx context.Context) ([]profile.UserProfile, error) {
	query := `
		SELECT user_id, created_at, is_verified, trust_score, transaction_limit, last_login
		FROM user_profiles
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewStoreError("profile.list", err)
	}
	defer rows.Close()

	var profiles []profile.UserProfile
	for rows.Next() {
		var p profile.UserProfile
		if err := rows.Scan(&p.UserID, &p.CreatedAt, &p.IsVerified, &p.TrustScore, &p.TransactionLimit, &p.LastLogin); err != nil {
			return nil, apperrors.NewStoreError("profile.list", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("profile.list", err)
	}
	return profiles, nil
}

// UpdateTrust persists a rescored trust value and its derived limit.
func (r *ProfileRepository) UpdateTrust(ctx context.Context, userID uuid.UUID, score int, limit int64) error {
	query := `
		UPDATE user_profiles
		SET trust_score = $2, transaction_limit = $3
		WHERE user_id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, score, limit)
	if err != nil {
		return apperrors.NewStoreError("profile.update_trust", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrProfileNotFound
	}
	return nil
}

// SetVerified marks the user verified with the new score and limit.
func (r *ProfileRepository) SetVerified(ctx context.Context, userID uuid.UUID, score int, limit int64) error {
	query := `
		UPDATE user_profiles
		SET is_verified = TRUE, trust_score = $2, transaction_limit = $3
		WHERE user_id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, score, limit)
	if err != nil {
		return apperrors.NewStoreError("profile.set_verified", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrProfileNotFound
	}
	return nil
}

// TouchLastLogin records login activity used by the inactivity decay rule.
func (r *ProfileRepository) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `UPDATE user_profiles SET last_login = $2 WHERE user_id = $1 AND last_login < $2`
	if _, err := r.db.Exec(ctx, query, userID, at); err != nil {
		return apperrors.NewStoreError("profile.touch_last_login", err)
	}
	return nil
}
