package rest

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

// In-memory store fakes backing the full service stack under test. The
// handlers are exercised against real services wired to these.

type fakePresenceStore struct {
	mu      sync.Mutex
	records map[string]presence.Record
}

func newFakePresenceStore() *fakePresenceStore {
	return &fakePresenceStore{records: make(map[string]presence.Record)}
}

func (s *fakePresenceStore) GetByIP(ctx context.Context, ip string) (*presence.Record, error) {
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

func (s *fakePresenceStore) Insert(ctx context.Context, rec presence.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.IPAddress]; exists {
		return errors.ErrPresenceConflict
	}
	s.records[rec.IPAddress] = rec
	return nil
}

func (s *fakePresenceStore) Update(ctx context.Context, rec presence.Record, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[rec.IPAddress]
	if !ok || stored.Version != expectedVersion {
		return errors.ErrPresenceConflict
	}
	s.records[rec.IPAddress] = rec
	return nil
}

func (s *fakePresenceStore) List(ctx context.Context) ([]presence.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []presence.Record
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

type fakeLoginLogStore struct {
	mu   sync.Mutex
	logs []event.LoginLog
}

func (s *fakeLoginLogStore) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]event.LoginLog, error) {
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

func (s *fakeLoginLogStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]event.LoginLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.LoginLog
	for _, l := range s.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeLoginLogStore) Insert(ctx context.Context, log event.LoginLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func (s *fakeLoginLogStore) MarkSafe(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.logs {
		if s.logs[i].ID == id {
			s.logs[i].IsSuspicious = false
			return nil
		}
	}
	return errors.ErrLoginLogNotFound
}

type fakeTransactionStore struct {
	txs []transaction.Transaction
}

func (s *fakeTransactionStore) ListBetween(ctx context.Context, start, end time.Time) ([]transaction.Transaction, error) {
	var out []transaction.Transaction
	for _, tx := range s.txs {
		if !tx.CreatedAt.Before(start) && !tx.CreatedAt.After(end) {
			out = append(out, tx)
		}
	}
	return out, nil
}

type fakeFlagStore struct {
	mu    sync.Mutex
	flags []flag.Flag
}

func (s *fakeFlagStore) ListSince(ctx context.Context, since time.Time) ([]flag.Flag, error) {
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

func (s *fakeFlagStore) InsertBatch(ctx context.Context, flags []flag.Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = append(s.flags, flags...)
	return nil
}

func (s *fakeFlagStore) ListUnresolved(ctx context.Context) ([]flag.Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []flag.Flag
	for _, f := range s.flags {
		if !f.IsResolved {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeFlagStore) Resolve(ctx context.Context, id uuid.UUID) error {
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

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles []profile.UserProfile
}

func (s *fakeProfileStore) GetByUser(ctx context.Context, userID uuid.UUID) (*profile.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].UserID == userID {
			p := s.profiles[i]
			return &p, nil
		}
	}
	return nil, errors.ErrProfileNotFound
}

func (s *fakeProfileStore) List(ctx context.Context) ([]profile.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]profile.UserProfile{}, s.profiles...), nil
}

func (s *fakeProfileStore) UpdateTrust(ctx context.Context, userID uuid.UUID, score int, limit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].UserID == userID {
			s.profiles[i].TrustScore = score
			s.profiles[i].TransactionLimit = limit
			return nil
		}
	}
	return errors.ErrProfileNotFound
}

func (s *fakeProfileStore) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].UserID == userID && s.profiles[i].LastLogin.Before(at) {
			s.profiles[i].LastLogin = at
		}
	}
	return nil
}

func (s *fakeProfileStore) SetVerified(ctx context.Context, userID uuid.UUID, score int, limit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].UserID == userID {
			s.profiles[i].IsVerified = true
			s.profiles[i].TrustScore = score
			s.profiles[i].TransactionLimit = limit
			return nil
		}
	}
	return errors.ErrProfileNotFound
}

type fakeTrustLogStore struct {
	mu      sync.Mutex
	entries []profile.TrustLogEntry
}

func (s *fakeTrustLogStore) LatestForUser(ctx context.Context, userID uuid.UUID) (*profile.TrustLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].UserID == userID {
			e := s.entries[i]
			return &e, nil
		}
	}
	return nil, errors.NewNotFoundError("trust log entry")
}

func (s *fakeTrustLogStore) Insert(ctx context.Context, entry profile.TrustLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeTrustLogStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]profile.TrustLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []profile.TrustLogEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}
