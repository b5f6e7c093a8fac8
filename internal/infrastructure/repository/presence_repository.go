package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/presence"
)

// PresenceRepository persists per-IP co-presence records. Writes are
// conditional on the version column so racing observers of the same IP
// cannot lose each other's users.
type PresenceRepository struct {
	db *pgxpool.Pool
}

// NewPresenceRepository creates a new presence repository.
func NewPresenceRepository(db *pgxpool.Pool) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// GetByIP returns the record for an IP, or a not-found error.
func (r *PresenceRepository) GetByIP(ctx context.Context, ip string) (*presence.Record, error) {
	query := `
		SELECT ip_address, user_ids, is_suspicious, version
		FROM ip_presence
		WHERE ip_address = $1
	`
	var (
		rec     presence.Record
		userIDs []string
	)
	err := r.db.QueryRow(ctx, query, ip).Scan(&rec.IPAddress, &userIDs, &rec.IsSuspicious, &rec.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("presence record")
		}
		return nil, apperrors.NewStoreError("presence.get", err)
	}
	if rec.UserIDs, err = parseUUIDs(userIDs); err != nil {
		return nil, apperrors.NewStoreError("presence.get", err)
	}
	return &rec, nil
}

// Insert stores a brand-new record. A concurrent insert of the same IP
// surfaces as a conflict so the caller can reload and retry.
func (r *PresenceRepository) Insert(ctx context.Context, rec presence.Record) error {
	query := `
		INSERT INTO ip_presence (ip_address, user_ids, is_suspicious, version)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, rec.IPAddress, uuidStrings(rec.UserIDs), rec.IsSuspicious, rec.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrPresenceConflict
		}
		return apperrors.NewStoreError("presence.insert", err)
	}
	return nil
}

// Update persists rec iff the stored version equals expectedVersion. A zero
// row count means another observer won the race.
func (r *PresenceRepository) Update(ctx context.Context, rec presence.Record, expectedVersion int64) error {
	query := `
		UPDATE ip_presence
		SET user_ids = $2, is_suspicious = $3, version = $4
		WHERE ip_address = $1 AND version = $5
	`
	tag, err := r.db.Exec(ctx, query,
		rec.IPAddress, uuidStrings(rec.UserIDs), rec.IsSuspicious, rec.Version, expectedVersion)
	if err != nil {
		return apperrors.NewStoreError("presence.update", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPresenceConflict
	}
	return nil
}

// List returns all presence records, widest user sets first.
func (r *PresenceRepository) List(ctx context.Context) ([]presence.Record, error) {
	query := `
		SELECT ip_address, user_ids, is_suspicious, version
		FROM ip_presence
		ORDER BY cardinality(user_ids) DESC, ip_address
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewStoreError("presence.list", err)
	}
	defer rows.Close()

	var records []presence.Record
	for rows.Next() {
		var (
			rec     presence.Record
			userIDs []string
		)
		if err := rows.Scan(&rec.IPAddress, &userIDs, &rec.IsSuspicious, &rec.Version); err != nil {
			return nil, apperrors.NewStoreError("presence.list", err)
		}
		if rec.UserIDs, err = parseUUIDs(userIDs); err != nil {
			return nil, apperrors.NewStoreError("presence.list", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("presence.list", err)
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
