package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/transaction"
	"github.com/davidleathers/trustguard-backend/internal/domain/values"
)

// TransactionRepository reads and writes the transaction log. Amounts are
// stored as numeric minor units plus a currency column.
type TransactionRepository struct {
	db *pgxpool.Pool
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListBetween returns transactions created in [start, end], oldest first.
func (r *TransactionRepository) ListBetween(ctx context.Context, start, end time.Time) ([]transaction.Transaction, error) {
	query := `
		SELECT id, from_user_id, to_user_id, amount_minor, currency, status, created_at
		FROM transactions
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, apperrors.NewStoreError("transaction.list_between", err)
	}
	defer rows.Close()

	var txs []transaction.Transaction
	for rows.Next() {
		var (
			tx          transaction.Transaction
			amountMinor int64
			currency    string
			status      string
		)
		if err := rows.Scan(&tx.ID, &tx.FromUserID, &tx.ToUserID, &amountMinor, &currency, &status, &tx.CreatedAt); err != nil {
			return nil, apperrors.NewStoreError("transaction.list_between", err)
		}
		amount, err := values.NewMoneyFromMinorUnits(amountMinor, currency)
		if err != nil {
			return nil, apperrors.NewStoreError("transaction.list_between", err)
		}
		tx.Amount = amount
		tx.Status = transaction.ParseStatus(status)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("transaction.list_between", err)
	}
	return txs, nil
}
