package fixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/trustguard-backend/internal/domain/transaction"
	"github.com/davidleathers/trustguard-backend/internal/domain/values"
)

// TransactionBuilder builds test Transaction entities
type TransactionBuilder struct {
	id          uuid.UUID
	fromUserID  uuid.UUID
	toUserID    uuid.UUID
	amountMinor int64
	currency    string
	status      transaction.Status
	createdAt   time.Time
}

// NewTransactionBuilder creates a builder with a small completed transfer
// between two fresh users.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		id:          uuid.New(),
		fromUserID:  uuid.New(),
		toUserID:    uuid.New(),
		amountMinor: 1000,
		currency:    values.USD,
		status:      transaction.StatusCompleted,
		createdAt:   time.Now(),
	}
}

func (b *TransactionBuilder) WithUsers(from, to uuid.UUID) *TransactionBuilder {
	b.fromUserID = from
	b.toUserID = to
	return b
}

func (b *TransactionBuilder) WithAmountMinor(units int64) *TransactionBuilder {
	b.amountMinor = units
	return b
}

func (b *TransactionBuilder) WithStatus(status transaction.Status) *TransactionBuilder {
	b.status = status
	return b
}

func (b *TransactionBuilder) WithCreatedAt(t time.Time) *TransactionBuilder {
	b.createdAt = t
	return b
}

func (b *TransactionBuilder) Build() transaction.Transaction {
	return transaction.Transaction{
		ID:         b.id,
		FromUserID: b.fromUserID,
		ToUserID:   b.toUserID,
		Amount:     values.MustNewMoneyFromMinorUnits(b.amountMinor, b.currency),
		Status:     b.status,
		CreatedAt:  b.createdAt,
	}
}
