package fixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/trustguard-backend/internal/domain/profile"
)

// ProfileBuilder builds test UserProfile entities
type ProfileBuilder struct {
	userID     uuid.UUID
	createdAt  time.Time
	isVerified bool
	trustScore int
	lastLogin  time.Time
}

// NewProfileBuilder creates a builder with a fresh, recently active,
// unverified zero-trust user.
func NewProfileBuilder() *ProfileBuilder {
	now := time.Now()
	return &ProfileBuilder{
		userID:    uuid.New(),
		createdAt: now.Add(-30 * 24 * time.Hour),
		lastLogin: now.Add(-time.Hour),
	}
}

func (b *ProfileBuilder) WithUserID(id uuid.UUID) *ProfileBuilder {
	b.userID = id
	return b
}

func (b *ProfileBuilder) WithCreatedAt(t time.Time) *ProfileBuilder {
	b.createdAt = t
	return b
}

func (b *ProfileBuilder) WithVerified(v bool) *ProfileBuilder {
	b.isVerified = v
	return b
}

func (b *ProfileBuilder) WithTrustScore(score int) *ProfileBuilder {
	b.trustScore = score
	return b
}

func (b *ProfileBuilder) WithLastLogin(t time.Time) *ProfileBuilder {
	b.lastLogin = t
	return b
}

// Build produces the profile with its limit derived from the trust score.
func (b *ProfileBuilder) Build() profile.UserProfile {
	return profile.UserProfile{
		UserID:           b.userID,
		CreatedAt:        b.createdAt,
		IsVerified:       b.isVerified,
		TrustScore:       b.trustScore,
		TransactionLimit: profile.TransactionLimitFor(b.trustScore),
		LastLogin:        b.lastLogin,
	}
}
