package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/trustguard-backend/internal/domain/values"
)

// Transaction is a completed or in-flight value transfer between two users.
// Transactions are immutable once created; the fraud engine only reads them.
type Transaction struct {
	ID         uuid.UUID    `json:"id"`
	FromUserID uuid.UUID    `json:"from_user_id"`
	ToUserID   uuid.UUID    `json:"to_user_id"`
	Amount     values.Money `json:"amount"`
	Status     Status       `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}

type Status int

const (
	StatusPending Status = iota
	StatusCompleted
	StatusFailed
	StatusReversed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusReversed:
		return "reversed"
	default:
		return "unknown"
	}
}

// ParseStatus converts the stored representation back to a Status.
// Unknown values default to pending, matching the store's column default.
func ParseStatus(s string) Status {
	switch s {
	case "completed":
		return StatusCompleted
	case "failed":
		return StatusFailed
	case "reversed":
		return StatusReversed
	default:
		return StatusPending
	}
}

// IsSelfTransfer reports whether sender and receiver are the same user.
// Self-transfers are skipped by the circular-flow detector.
func (t Transaction) IsSelfTransfer() bool {
	return t.FromUserID == t.ToUserID
}

// PairKey returns a stable key for the unordered {sender, receiver} pair,
// used by the pair-volume circular-flow heuristic.
func (t Transaction) PairKey() string {
	a, b := t.FromUserID.String(), t.ToUserID.String()
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
