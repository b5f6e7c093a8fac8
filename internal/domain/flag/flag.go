package flag

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Flag is a piece of fraud evidence raised by a detector. Flags are created
// by the engine, resolved by reviewers, and never deleted automatically.
type Flag struct {
	ID             uuid.UUID   `json:"id"`
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
	UserIDs        []uuid.UUID `json:"user_ids,omitempty"`
	Reason         string      `json:"reason"`
	CreatedAt      time.Time   `json:"created_at"`
	IsResolved     bool        `json:"is_resolved"`
}

// New builds a flag over the given evidence. The id set must be non-empty.
func New(txIDs []uuid.UUID, userIDs []uuid.UUID, reason string, createdAt time.Time) (Flag, error) {
	if len(txIDs) == 0 && len(userIDs) == 0 {
		return Flag{}, fmt.Errorf("flag requires at least one related transaction or user id")
	}
	if reason == "" {
		return Flag{}, fmt.Errorf("flag reason is required")
	}
	return Flag{
		ID:             uuid.New(),
		TransactionIDs: txIDs,
		UserIDs:        userIDs,
		Reason:         reason,
		CreatedAt:      createdAt,
		IsResolved:     false,
	}, nil
}

// Resolve marks the flag reviewed. Resolution is one-way.
func (f *Flag) Resolve() {
	f.IsResolved = true
}

// IDSet collects the flag's transaction ids into a set, the unit of overlap
// used for dedupe across scans of the same window.
func (f Flag) IDSet() map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(f.TransactionIDs))
	for _, id := range f.TransactionIDs {
		set[id] = struct{}{}
	}
	return set
}

// OverlapsAny reports whether any of the flag's transaction ids is already in
// the given set. A candidate that overlaps previously flagged evidence is
// suppressed rather than re-raised.
func (f Flag) OverlapsAny(flagged map[uuid.UUID]struct{}) bool {
	for _, id := range f.TransactionIDs {
		if _, ok := flagged[id]; ok {
			return true
		}
	}
	return false
}

// UnionIDs merges the transaction-id sets of the given flags.
func UnionIDs(flags []Flag) map[uuid.UUID]struct{} {
	union := make(map[uuid.UUID]struct{})
	for _, f := range flags {
		for _, id := range f.TransactionIDs {
			union[id] = struct{}{}
		}
	}
	return union
}
