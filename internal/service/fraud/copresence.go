package fraud

import (
	"context"

	"github.com/google/uuid"

	"github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/presence"
)

// CoPresenceTracker maintains the set of distinct users observed behind each
// IP address. The set is monotonic; this component never removes users.
//
// The load-mutate-write against the store is a read-then-write race under
// concurrent logins from the same IP, so every write goes through the
// store's conditional update and conflicts are retried from a fresh read.
type CoPresenceTracker struct {
	store      PresenceStore
	threshold  int
	maxRetries int
}

// NewCoPresenceTracker creates a tracker over the given store.
func NewCoPresenceTracker(store PresenceStore, threshold int) *CoPresenceTracker {
	if threshold <= 0 {
		threshold = DefaultCoPresenceThreshold
	}
	return &CoPresenceTracker{
		store:      store,
		threshold:  threshold,
		maxRetries: DefaultPresenceRetries,
	}
}

// Observe records that userID authenticated from ip, persists the updated
// record, and returns it along with the suspicion verdict. Duplicate
// observations are no-ops on the set but still recompute the verdict.
func (t *CoPresenceTracker) Observe(ctx context.Context, ip string, userID uuid.UUID) (presence.Record, bool, error) {
	var lastErr error

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		rec, err := t.store.GetByIP(ctx, ip)
		if err != nil {
			if errors.IsType(err, errors.ErrorTypeNotFound) {
				created := presence.NewRecord(ip, userID)
				created.Recompute(t.threshold)
				if insertErr := t.store.Insert(ctx, created); insertErr != nil {
					if errors.IsType(insertErr, errors.ErrorTypeConflict) {
						// Another observer created the record first.
						lastErr = insertErr
						continue
					}
					return presence.Record{}, false, insertErr
				}
				return created, created.IsSuspicious, nil
			}
			return presence.Record{}, false, err
		}

		updated := *rec
		changed := updated.Add(userID)
		suspicious := updated.Recompute(t.threshold)

		if !changed && suspicious == rec.IsSuspicious {
			return updated, suspicious, nil
		}

		expected := updated.Version
		updated.Version++
		if err := t.store.Update(ctx, updated, expected); err != nil {
			if errors.IsType(err, errors.ErrorTypeConflict) {
				lastErr = err
				continue
			}
			return presence.Record{}, false, err
		}
		return updated, suspicious, nil
	}

	return presence.Record{}, false, errors.NewConflictError("co-presence record was modified concurrently").WithCause(lastErr)
}
