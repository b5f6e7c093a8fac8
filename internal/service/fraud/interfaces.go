package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/trustguard-backend/internal/domain/event"
	"github.com/davidleathers/trustguard-backend/internal/domain/flag"
	"github.com/davidleathers/trustguard-backend/internal/domain/presence"
	"github.com/davidleathers/trustguard-backend/internal/domain/profile"
	"github.com/davidleathers/trustguard-backend/internal/domain/transaction"
)

// TransactionStore reads the immutable transaction log.
type TransactionStore interface {
	// ListBetween returns transactions created in [start, end]
	ListBetween(ctx context.Context, start, end time.Time) ([]transaction.Transaction, error)
}

// FlagStore persists fraud flags.
type FlagStore interface {
	// ListSince returns flags created at or after since
	ListSince(ctx context.Context, since time.Time) ([]flag.Flag, error)
	// InsertBatch stores new flags as a single batch
	InsertBatch(ctx context.Context, flags []flag.Flag) error
	// Resolve marks a flag reviewed
	Resolve(ctx context.Context, id uuid.UUID) error
}

// ProfileStore reads user trust profiles for the amount rule.
type ProfileStore interface {
	// GetByUser returns the profile, or a not-found error
	GetByUser(ctx context.Context, userID uuid.UUID) (*profile.UserProfile, error)
	// List returns all profiles
	List(ctx context.Context) ([]profile.UserProfile, error)
}

// LastLoginStore advances a profile's login-activity timestamp, which the
// trust inactivity decay reads.
type LastLoginStore interface {
	// TouchLastLogin moves last_login forward to at; older timestamps and
	// unknown users are no-ops
	TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// LoginLogStore persists checked logins and serves the anomaly lookback.
type LoginLogStore interface {
	// ListSince returns the user's login logs checked at or after since
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]event.LoginLog, error)
	// Insert stores a checked login
	Insert(ctx context.Context, log event.LoginLog) error
	// MarkSafe clears the suspicion verdict after reviewer action
	MarkSafe(ctx context.Context, id uuid.UUID) error
}

// PresenceStore persists per-IP co-presence records. Update is conditional
// on the record version so concurrent observers cannot lose updates.
type PresenceStore interface {
	// GetByIP returns the record for ip, or a not-found error
	GetByIP(ctx context.Context, ip string) (*presence.Record, error)
	// Insert stores a brand-new record
	Insert(ctx context.Context, rec presence.Record) error
	// Update persists rec iff the stored version equals expectedVersion,
	// returning a conflict error otherwise
	Update(ctx context.Context, rec presence.Record, expectedVersion int64) error
}

// GeoResolver maps an IP address to a geolocation. An unresolvable address
// yields (nil, nil): lookup failure is a degradation, not an error.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (*event.GeoLocation, error)
}

// ScanLocker provides the mutual exclusion required between batch scans over
// overlapping windows.
type ScanLocker interface {
	// Acquire takes the lock, returning false when another scan holds it
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees the lock
	Release(ctx context.Context, key string) error
}
