package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/event"
	"github.com/davidleathers/trustguard-backend/internal/service/fraud"
)

// LoginLogRepository persists checked logins and serves the anomaly lookback.
type LoginLogRepository struct {
	db *pgxpool.Pool
}

// NewLoginLogRepository creates a new login log repository.
func NewLoginLogRepository(db *pgxpool.Pool) *LoginLogRepository {
	return &LoginLogRepository{db: db}
}

// Insert stores a checked login.
func (r *LoginLogRepository) Insert(ctx context.Context, log event.LoginLog) error {
	query := `
		INSERT INTO login_logs (id, user_id, ip_address, is_suspicious, country, region, city, latitude, longitude, checked_at, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		log.ID, log.UserID, log.IPAddress, log.IsSuspicious,
		log.Geo.Country, log.Geo.Region, log.Geo.City, log.Geo.Latitude, log.Geo.Longitude,
		log.CheckedAt, log.Remarks)
	if err != nil {
		return apperrors.NewStoreError("loginlog.insert", err)
	}
	return nil
}

// ListSince returns the user's login logs checked at or after since, oldest
// first. Insertion order matters: the anomaly check short-circuits on the
// first mismatching entry.
func (r *LoginLogRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]event.LoginLog, error) {
	query := `
		SELECT id, user_id, ip_address, is_suspicious, country, region, city, latitude, longitude, checked_at, remarks
		FROM login_logs
		WHERE user_id = $1 AND checked_at >= $2
		ORDER BY checked_at
	`
	rows, err := r.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, apperrors.NewStoreError("loginlog.list_since", err)
	}
	defer rows.Close()
	return scanLoginLogs(rows)
}

// ListForUser returns all of a user's login logs, newest first.
func (r *LoginLogRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]event.LoginLog, error) {
	query := `
		SELECT id, user_id, ip_address, is_suspicious, country, region, city, latitude, longitude, checked_at, remarks
		FROM login_logs
		WHERE user_id = $1
		ORDER BY checked_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, apperrors.NewStoreError("loginlog.list_for_user", err)
	}
	defer rows.Close()
	return scanLoginLogs(rows)
}

// MarkSafe clears a log's suspicion verdict after reviewer action.
func (r *LoginLogRepository) MarkSafe(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE login_logs SET is_suspicious = FALSE, remarks = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, fraud.RemarkMarkedSafe)
	if err != nil {
		return apperrors.NewStoreError("loginlog.mark_safe", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrLoginLogNotFound
	}
	return nil
}

func scanLoginLogs(rows pgx.Rows) ([]event.LoginLog, error) {
	var logs []event.LoginLog
	for rows.Next() {
		var log event.LoginLog
		if err := rows.Scan(&log.ID, &log.UserID, &log.IPAddress, &log.IsSuspicious,
			&log.Geo.Country, &log.Geo.Region, &log.Geo.City, &log.Geo.Latitude, &log.Geo.Longitude,
			&log.CheckedAt, &log.Remarks); err != nil {
			return nil, apperrors.NewStoreError("loginlog.scan", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("loginlog.scan", err)
	}
	return logs, nil
}
