package trust

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/profile"
	"github.com/davidleathers/trustguard-backend/internal/metrics"
)

// Rescoring cadence constants. The job itself is scheduled externally
// (intended cadence: every 3 months); these govern the per-user decisions.
const (
	// InactivityWindow is the no-login period that costs one trust point
	InactivityWindow = 90 * 24 * time.Hour

	// VerificationBonus is the one-time trust award for verifying
	VerificationBonus = 5
)

// Trust log remarks. These are the audit-trail vocabulary reviewers see.
const (
	RemarkInactivityDecay = "No login for 3 months (-1)"
	RemarkAgeBonus        = "Account age yearly bonus (+1)"
	RemarkNoChange        = "No change (0)"
	RemarkVerified        = "Verified account (+5)"
)

// ProfileStore persists user trust profiles.
type ProfileStore interface {
	// GetByUser returns the profile, or a not-found error
	GetByUser(ctx context.Context, userID uuid.UUID) (*profile.UserProfile, error)
	// List returns all profiles
	List(ctx context.Context) ([]profile.UserProfile, error)
	// UpdateTrust persists a new score and its derived limit
	UpdateTrust(ctx context.Context, userID uuid.UUID, score int, limit int64) error
	// SetVerified marks the user verified with the new score and limit
	SetVerified(ctx context.Context, userID uuid.UUID, score int, limit int64) error
}

// TrustLogStore persists the append-only trust audit trail.
type TrustLogStore interface {
	// LatestForUser returns the most recent entry, or a not-found error
	LatestForUser(ctx context.Context, userID uuid.UUID) (*profile.TrustLogEntry, error)
	// Insert appends one entry
	Insert(ctx context.Context, entry profile.TrustLogEntry) error
}

// Service owns the trust-score state machine: one-time verification and the
// periodic decay/bonus rescoring. Every decision writes exactly one trust
// log entry, including zero-change decisions.
type Service struct {
	profiles ProfileStore
	logs     TrustLogStore
	logger   *slog.Logger
	metrics  *metrics.Registry
	nowFn    func() time.Time
}

// NewService creates the trust ledger service.
func NewService(profiles ProfileStore, logs TrustLogStore, logger *slog.Logger, reg *metrics.Registry) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		profiles: profiles,
		logs:     logs,
		logger:   logger,
		metrics:  reg,
		nowFn:    time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *Service) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// VerifyResult reports the outcome of a verification attempt.
type VerifyResult struct {
	UserID          uuid.UUID `json:"user_id"`
	NewTrust        int       `json:"new_trust"`
	Verified        bool      `json:"verified"`
	AlreadyVerified bool      `json:"already_verified"`
}

// Verify applies the one-time verification bonus: +5 trust (clamped),
// is_verified set, one trust log entry. Verifying an already-verified user
// changes nothing and writes no entry.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID) (VerifyResult, error) {
	p, err := s.profiles.GetByUser(ctx, userID)
	if err != nil {
		return VerifyResult{}, err
	}

	if p.IsVerified {
		return VerifyResult{
			UserID:          userID,
			NewTrust:        p.TrustScore,
			Verified:        true,
			AlreadyVerified: true,
		}, nil
	}

	now := s.nowFn()
	newTrust := p.ApplyTrustChange(VerificationBonus)

	if err := s.profiles.SetVerified(ctx, userID, newTrust, p.TransactionLimit); err != nil {
		return VerifyResult{}, errors.Wrap(err, "marking user verified")
	}
	entry := profile.TrustLogEntry{
		ID:         uuid.New(),
		UserID:     userID,
		AddedTrust: VerificationBonus,
		Remarks:    RemarkVerified,
		CreatedAt:  now,
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		return VerifyResult{}, errors.Wrap(err, "writing trust log")
	}

	s.metrics.RecordVerification(ctx)
	s.logger.Info("user verified", "user_id", userID, "new_trust", newTrust)

	return VerifyResult{UserID: userID, NewTrust: newTrust, Verified: true}, nil
}

// RescoreSummary reports one rescoring run.
type RescoreSummary struct {
	UsersProcessed int       `json:"users_processed"`
	UsersChanged   int       `json:"users_changed"`
	LogsCreated    int       `json:"logs_created"`
	Timestamp      time.Time `json:"timestamp"`
}

// RescoreAll recomputes every user's trust score: -1 for 90 days without a
// login, +1 yearly age bonus when the previous cycle granted nothing, score
// clamped to [0,10], transaction limit rederived, and an audit entry written
// for every user regardless of change.
func (s *Service) RescoreAll(ctx context.Context) (RescoreSummary, error) {
	now := s.nowFn()

	users, err := s.profiles.List(ctx)
	if err != nil {
		return RescoreSummary{}, errors.Wrap(err, "listing profiles")
	}

	summary := RescoreSummary{Timestamp: now}
	for i := range users {
		p := users[i]
		change, remarks, err := s.decide(ctx, &p, now)
		if err != nil {
			return summary, err
		}

		p.ApplyTrustChange(change)
		if err := s.profiles.UpdateTrust(ctx, p.UserID, p.TrustScore, p.TransactionLimit); err != nil {
			return summary, errors.Wrap(err, "updating trust score")
		}

		entry := profile.TrustLogEntry{
			ID:         uuid.New(),
			UserID:     p.UserID,
			AddedTrust: change,
			Remarks:    strings.Join(remarks, ", "),
			CreatedAt:  now,
		}
		if err := s.logs.Insert(ctx, entry); err != nil {
			return summary, errors.Wrap(err, "writing trust log")
		}

		summary.UsersProcessed++
		summary.LogsCreated++
		if change != 0 {
			summary.UsersChanged++
			s.metrics.RecordTrustChange(ctx, change)
		}
	}

	s.logger.Info("trust rescoring completed",
		"users_processed", summary.UsersProcessed,
		"users_changed", summary.UsersChanged)

	return summary, nil
}

// decide computes one user's score delta and the audit remarks for it.
func (s *Service) decide(ctx context.Context, p *profile.UserProfile, now time.Time) (int, []string, error) {
	change := 0
	var remarks []string

	if p.InactiveSince(now, InactivityWindow) {
		change--
		remarks = append(remarks, RemarkInactivityDecay)
	}

	if p.AccountAgeYears(now) >= 1 {
		last, err := s.logs.LatestForUser(ctx, p.UserID)
		if err != nil && !errors.IsType(err, errors.ErrorTypeNotFound) {
			return 0, nil, errors.Wrap(err, "loading latest trust log")
		}
		// The bonus only lands when the previous cycle granted nothing,
		// so it cannot stack with verification or a prior bonus.
		if last != nil && last.AddedTrust == 0 {
			change++
			remarks = append(remarks, RemarkAgeBonus)
		}
	}

	if change == 0 {
		remarks = append(remarks, RemarkNoChange)
	}
	return change, remarks, nil
}
