package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/profile"
)

// TrustLogRepository persists the append-only trust audit trail.
type TrustLogRepository struct {
	db *pgxpool.Pool
}

// NewTrustLogRepository creates a new trust log repository.
func NewTrustLogRepository(db *pgxpool.Pool) *TrustLogRepository {
	return &TrustLogRepository{db: db}
}

// Insert appends one entry.
func (r *TrustLogRepository) Insert(ctx context.Context, entry profile.TrustLogEntry) error {
	query := `
		INSERT INTO trust_logs (id, user_id, added_trust, remarks, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, entry.ID, entry.UserID, entry.AddedTrust, entry.Remarks, entry.CreatedAt)
	if err != nil {
		return apperrors.NewStoreError("trustlog.insert", err)
	}
	return nil
}

// LatestForUser returns the most recent entry for a user.
func (r *TrustLogRepository) LatestForUser(ctx context.Context, userID uuid.UUID) (*profile.TrustLogEntry, error) {
	query := `
		SELECT id, user_id, added_trust, remarks, created_at
		FROM trust_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var entry profile.TrustLogEntry
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&entry.ID, &entry.UserID, &entry.AddedTrust, &entry.Remarks, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("trust log entry")
		}
		return nil, apperrors.NewStoreError("trustlog.latest", err)
	}
	return &entry, nil
}

// ListForUser returns a user's full audit trail, newest first.
func (r *TrustLogRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]profile.TrustLogEntry, error) {
	query := `
		SELECT id, user_id, added_trust, remarks, created_at
		FROM trust_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, apperrors.NewStoreError("trustlog.list", err)
	}
	defer rows.Close()

	var entries []profile.TrustLogEntry
	for rows.Next() {
		var entry profile.TrustLogEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.AddedTrust, &entry.Remarks, &entry.CreatedAt); err != nil {
			return nil, apperrors.NewStoreError("trustlog.list", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("trustlog.list", err)
	}
	return entries, nil
}
