package profile

import (
	"time"

	"github.com/google/uuid"
)

// Trust score bounds. The score is a small integer so that every movement is
// explainable in the audit trail.
const (
	MinTrustScore = 0
	MaxTrustScore = 10
)

// UserProfile is the per-user trust state. TrustScore and TransactionLimit
// are kept consistent: the limit is always TransactionLimitFor(TrustScore).
type UserProfile struct {
	UserID           uuid.UUID `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
	IsVerified       bool      `json:"is_verified"`
	TrustScore       int       `json:"trust_score"`
	TransactionLimit int64     `json:"transaction_limit"`
	LastLogin        time.Time `json:"last_login"`
}

// TrustLogEntry is one row of the append-only trust audit trail. Exactly one
// entry is written per ledger decision, including zero-change decisions.
type TrustLogEntry struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	AddedTrust int       `json:"added_trust"`
	Remarks    string    `json:"remarks"`
	CreatedAt  time.Time `json:"created_at"`
}

// TransactionLimitFor maps a trust score to the transaction limit.
//
// Low-trust users get small limits that double per point, mid-trust users
// plateau, high-trust users double every second point. Integer exact.
func TransactionLimitFor(trust int) int64 {
	switch {
	case trust <= 2:
		return 500 << trust
	case trust <= 5:
		return 20000
	default:
		return 20000 << ((trust - 5) / 2)
	}
}

// ClampTrust bounds a trust score to [MinTrustScore, MaxTrustScore].
func ClampTrust(score int) int {
	if score < MinTrustScore {
		return MinTrustScore
	}
	if score > MaxTrustScore {
		return MaxTrustScore
	}
	return score
}

// ApplyTrustChange clamps and applies a score delta, keeping the limit
// consistent with the new score. Returns the applied (post-clamp) score.
func (p *UserProfile) ApplyTrustChange(change int) int {
	p.TrustScore = ClampTrust(p.TrustScore + change)
	p.TransactionLimit = TransactionLimitFor(p.TrustScore)
	return p.TrustScore
}

// AccountAgeYears returns full years since account creation.
func (p UserProfile) AccountAgeYears(now time.Time) int {
	return int(now.Sub(p.CreatedAt).Hours() / 24 / 365)
}

// InactiveSince reports whether the user has not logged in for at least d.
func (p UserProfile) InactiveSince(now time.Time, d time.Duration) bool {
	return now.Sub(p.LastLogin) >= d
}
