package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/flag"
)

// FlagRepository persists fraud flags. The id arrays are stored as text
// arrays so overlap queries stay simple.
type FlagRepository struct {
	db *pgxpool.Pool
}

// NewFlagRepository creates a new flag repository.
func NewFlagRepository(db *pgxpool.Pool) *FlagRepository {
	return &FlagRepository{db: db}
}

// InsertBatch stores new flags in one transaction so a partial scan failure
// never leaves half a rule's output behind.
func (r *FlagRepository) InsertBatch(ctx context.Context, flags []flag.Flag) error {
	if len(flags) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO flags (id, transaction_ids, user_ids, reason, created_at, is_resolved)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, f := range flags {
		batch.Queue(query, f.ID, uuidStrings(f.TransactionIDs), uuidStrings(f.UserIDs),
			f.Reason, f.CreatedAt, f.IsResolved)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range flags {
		if _, err := results.Exec(); err != nil {
			return apperrors.NewStoreError("flag.insert_batch", err)
		}
	}
	return nil
}

// ListSince returns flags created at or after since, oldest first.
func (r *FlagRepository) ListSince(ctx context.Context, since time.Time) ([]flag.Flag, error) {
	query := `
		SELECT id, transaction_ids, user_ids, reason, created_at, is_resolved
		FROM flags
		WHERE created_at >= $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, apperrors.NewStoreError("flag.list_since", err)
	}
	defer rows.Close()
	return scanFlags(rows)
}

// ListUnresolved returns open flags for the review queue.
func (r *FlagRepository) ListUnresolved(ctx context.Context) ([]flag.Flag, error) {
	query := `
		SELECT id, transaction_ids, user_ids, reason, created_at, is_resolved
		FROM flags
		WHERE NOT is_resolved
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewStoreError("flag.list_unresolved", err)
	}
	defer rows.Close()
	return scanFlags(rows)
}

// Resolve marks a flag reviewed.
func (r *FlagRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE flags SET is_resolved = TRUE WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return apperrors.NewStoreError("flag.resolve", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrFlagNotFound
	}
	return nil
}

func scanFlags(rows pgx.Rows) ([]flag.Flag, error) {
	var flags []flag.Flag
	for rows.Next() {
		var (
			f       flag.Flag
			txIDs   []string
			userIDs []string
		)
		if err := rows.Scan(&f.ID, &txIDs, &userIDs, &f.Reason, &f.CreatedAt, &f.IsResolved); err != nil {
			return nil, apperrors.NewStoreError("flag.scan", err)
		}
		var err error
		if f.TransactionIDs, err = parseUUIDs(txIDs); err != nil {
			return nil, apperrors.NewStoreError("flag.scan", err)
		}
		if f.UserIDs, err = parseUUIDs(userIDs); err != nil {
			return nil, apperrors.NewStoreError("flag.scan", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("flag.scan", err)
	}
	return flags, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}
