package fraud

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/event"
	"github.com/davidleathers/trustguard-backend/internal/domain/flag"
	"github.com/davidleathers/trustguard-backend/internal/domain/presence"
	"github.com/davidleathers/trustguard-backend/internal/domain/profile"
	"github.com/davidleathers/trustguard-backend/internal/domain/transaction"
)

// memPresenceStore is an in-memory PresenceStore with version checking and
// optional injected conflicts.
type memPresenceStore struct {
	mu      sync.Mutex
	records map[string]presence.Record

	// conflictsLeft makes the next n Update calls fail with a conflict
	// without applying the write.
	conflictsLeft int
	updateCalls   int
}

func newMemPresenceStore() *memPresenceStore {
	return &memPresenceStore{records: make(map[string]presence.Record)}
}

func (s *memPresenceStore) GetByIP(ctx context.Context, ip string) (*presence.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[ip]
	if !ok {
		return nil, errors.NewNotFoundError("presence record")
	}
	copied := rec
	copied.UserIDs = append([]uuid.UUID{}, rec.UserIDs...)
	return &copied, nil
}

func (s *memPresenceStore) Insert(ctx context.Context, rec presence.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.IPAddress]; exists {
		return errors.ErrPresenceConflict
	}
	s.records[rec.IPAddress] = rec
	return nil
}

func (s *memPresenceStore) Update(ctx context.Context, rec presence.Record, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return errors.ErrPresenceConflict
	}
	stored, ok := s.records[rec.IPAddress]
	if !ok || stored.Version != expectedVersion {
		return errors.ErrPresenceConflict
	}
	s.records[rec.IPAddress] = rec
	return nil
}

// memLoginLogStore keeps login logs in insertion order.
type memLoginLogStore struct {
	mu   sync.Mutex
	logs []event.LoginLog
}

func (s *memLoginLogStore) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]event.LoginLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.LoginLog
	for _, l := range s.logs {
		if l.UserID == userID && !l.CheckedAt.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memLoginLogStore) Insert(ctx context.Context, log event.LoginLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func (s *memLoginLogStore) MarkSafe(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.logs {
		if s.logs[i].ID == id {
			s.logs[i].IsSuspicious = false
			s.logs[i].Remarks = RemarkMarkedSafe
			return nil
		}
	}
	return errors.ErrLoginLogNotFound
}

func (s *memLoginLogStore) last() event.LoginLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs[len(s.logs)-1]
}

// memTransactionStore serves a fixed transaction set.
type memTransactionStore struct {
	txs []transaction.Transaction
}

func (s *memTransactionStore) ListBetween(ctx context.Context, start, end time.Time) ([]transaction.Transaction, error) {
	var out []transaction.Transaction
	for _, tx := range s.txs {
		if !tx.CreatedAt.Before(start) && !tx.CreatedAt.After(end) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// memFlagStore accumulates flags across scans.
type memFlagStore struct {
	mu    sync.Mutex
	flags []flag.Flag
}

func (s *memFlagStore) ListSince(ctx context.Context, since time.Time) ([]flag.Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []flag.Flag
	for _, f := range s.flags {
		if !f.CreatedAt.Before(since) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *memFlagStore) InsertBatch(ctx context.Context, flags []flag.Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = append(s.flags, flags...)
	return nil
}

func (s *memFlagStore) Resolve(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.flags {
		if s.flags[i].ID == id {
			s.flags[i].Resolve()
			return nil
		}
	}
	return errors.ErrFlagNotFound
}

// memProfileStore serves fixed profiles in insertion order.
type memProfileStore struct {
	profiles []profile.UserProfile
}

func (s *memProfileStore) GetByUser(ctx context.Context, userID uuid.UUID) (*profile.UserProfile, error) {
	for i := range s.profiles {
		if s.profiles[i].UserID == userID {
			p := s.profiles[i]
			return &p, nil
		}
	}
	return nil, errors.ErrProfileNotFound
}

func (s *memProfileStore) List(ctx context.Context) ([]profile.UserProfile, error) {
	return append([]profile.UserProfile{}, s.profiles...), nil
}

func (s *memProfileStore) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	for i := range s.profiles {
		if s.profiles[i].UserID == userID && s.profiles[i].LastLogin.Before(at) {
			s.profiles[i].LastLogin = at
		}
	}
	return nil
}

// memLocker is a single-slot lock.
type memLocker struct {
	mu     sync.Mutex
	held   bool
	denied bool
}

func (l *memLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.denied || l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *memLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

// staticGeo resolves every address to the same country.
type staticGeo struct {
	country string
}

func (g staticGeo) Resolve(ctx context.Context, ip string) (*event.GeoLocation, error) {
	if g.country == "" {
		return nil, nil
	}
	country := g.country
	return &event.GeoLocation{Country: &country}, nil
}
