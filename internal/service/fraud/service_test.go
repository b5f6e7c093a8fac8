package fraud

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/profile"
	"github.com/davidleathers/trustguard-backend/internal/domain/transaction"
	"github.com/davidleathers/trustguard-backend/internal/testutil/fixtures"
)

func newTestService(presence *memPresenceStore, logs *memLoginLogStore, geo GeoResolver) *Service {
	return NewService(presence, logs, &memTransactionStore{}, &memProfileStore{}, geo, DefaultRules(), nil, nil)
}

func TestCheckLoginNormal(t *testing.T) {
	logs := &memLoginLogStore{}
	svc := newTestService(newMemPresenceStore(), logs, staticGeo{country: "SG"})

	result, err := svc.CheckLogin(context.Background(), uuid.New(), "203.0.113.9", time.Now())
	require.NoError(t, err)

	assert.False(t, result.IsSuspicious)
	assert.Equal(t, RemarkNormalLogin, result.Remarks)
	assert.Nil(t, result.Velocity)

	written := logs.last()
	assert.False(t, written.IsSuspicious)
	assert.Equal(t, "203.0.113.9", written.IPAddress)
	require.NotNil(t, written.Geo.Country)
	assert.Equal(t, "SG", *written.Geo.Country)
}

func TestCheckLoginRejectsInvalidInput(t *testing.T) {
	svc := newTestService(newMemPresenceStore(), &memLoginLogStore{}, staticGeo{country: "SG"})
	ctx := context.Background()

	_, err := svc.CheckLogin(ctx, uuid.Nil, "203.0.113.9", time.Now())
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = svc.CheckLogin(ctx, uuid.New(), "not-an-ip", time.Now())
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestCheckLoginGeoUnavailable(t *testing.T) {
	logs := &memLoginLogStore{}
	svc := newTestService(newMemPresenceStore(), logs, staticGeo{})

	result, err := svc.CheckLogin(context.Background(), uuid.New(), "203.0.113.9", time.Now())
	require.NoError(t, err)

	assert.False(t, result.IsSuspicious)
	assert.Equal(t, RemarkGeoUnavailable, result.Remarks)
	assert.Nil(t, logs.last().Geo.Country)
}

func TestCheckLoginAnomalyOverridesOtherFindings(t *testing.T) {
	logs := &memLoginLogStore{}
	svc := newTestService(newMemPresenceStore(), logs, staticGeo{country: "SG"})
	ctx := context.Background()
	user := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := svc.CheckLogin(ctx, user, "198.51.100.1", base)
	require.NoError(t, err)

	// Fake the historical country so the second login mismatches.
	logs.mu.Lock()
	us := "US"
	logs.logs[0].Geo.Country = &us
	logs.mu.Unlock()

	result, err := svc.CheckLogin(ctx, user, "203.0.113.9", base.Add(10*time.Minute))
	require.NoError(t, err)

	assert.True(t, result.IsSuspicious)
	assert.Equal(t, RemarkAnomalousLogin, result.Remarks)
}

func TestCheckLoginPrivateAddressNote(t *testing.T) {
	logs := &memLoginLogStore{}
	svc := newTestService(newMemPresenceStore(), logs, staticGeo{})

	result, err := svc.CheckLogin(context.Background(), uuid.New(), "192.168.1.10", time.Now())
	require.NoError(t, err)

	assert.Contains(t, result.Remarks, "(private source address)")
	assert.False(t, result.IsSuspicious)
}

// Twenty-one logins from one IP: distinct users push co-presence over its
// threshold at the sixth login, and the twentieth event trips the per-IP
// velocity rule regardless of user.
func TestCheckLoginSharedIPScenario(t *testing.T) {
	logs := &memLoginLogStore{}
	svc := newTestService(newMemPresenceStore(), logs, staticGeo{country: "SG"})
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ip := "203.0.113.9"

	for i := 1; i <= 21; i++ {
		result, err := svc.CheckLogin(ctx, uuid.New(), ip, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err, "login %d", i)

		switch {
		case i <= 5:
			assert.False(t, result.IsSuspicious, "login %d", i)
		case i < 20:
			assert.True(t, result.IsSuspicious, "login %d", i)
			assert.Equal(t, RemarkSharedIP, result.Remarks, "login %d", i)
		default:
			assert.True(t, result.IsSuspicious, "login %d", i)
			assert.Equal(t, fmt.Sprintf("%d logins from IP within %s", i, DefaultLoginIPWindow), result.Remarks, "login %d", i)
			require.NotNil(t, result.Velocity, "login %d", i)
			assert.Equal(t, ip, result.Velocity.Key)
			assert.Equal(t, RuleLoginsPerIP5Min, result.Velocity.Rule)
			assert.Equal(t, i, result.Velocity.Count)
		}
	}
}

func TestCheckGiftVelocity(t *testing.T) {
	svc := newTestService(newMemPresenceStore(), &memLoginLogStore{}, staticGeo{country: "SG"})
	ctx := context.Background()
	user := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i < DefaultGiftThreshold; i++ {
		result, err := svc.CheckGift(ctx, user, base.Add(time.Duration(i)*100*time.Millisecond))
		require.NoError(t, err)
		assert.False(t, result.IsSuspicious, "gift %d", i)
	}

	result, err := svc.CheckGift(ctx, user, base.Add(11*time.Second))
	require.NoError(t, err)
	assert.True(t, result.IsSuspicious)
	assert.Contains(t, result.Remarks, "gifts within")
	require.NotNil(t, result.Velocity)
	assert.Equal(t, user.String(), result.Velocity.Key)
	assert.Equal(t, RuleGiftPerMinute, result.Velocity.Rule)
	assert.Equal(t, DefaultGiftThreshold, result.Velocity.Count)
}

func TestCheckGiftWindowSlides(t *testing.T) {
	svc := newTestService(newMemPresenceStore(), &memLoginLogStore{}, staticGeo{country: "SG"})
	ctx := context.Background()
	user := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < DefaultGiftThreshold-1; i++ {
		_, err := svc.CheckGift(ctx, user, base.Add(time.Duration(i)*100*time.Millisecond))
		require.NoError(t, err)
	}

	// Two minutes later the window is empty again.
	result, err := svc.CheckGift(ctx, user, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, result.IsSuspicious)
}

func TestMarkLoginSafe(t *testing.T) {
	logs := &memLoginLogStore{}
	svc := newTestService(newMemPresenceStore(), logs, staticGeo{country: "SG"})
	ctx := context.Background()

	_, err := svc.CheckLogin(ctx, uuid.New(), "203.0.113.9", time.Now())
	require.NoError(t, err)
	logID := logs.last().ID

	require.NoError(t, svc.MarkLoginSafe(ctx, logID))
	assert.False(t, logs.last().IsSuspicious)
	assert.Equal(t, RemarkMarkedSafe, logs.last().Remarks)

	err = svc.MarkLoginSafe(ctx, uuid.Nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestCheckLoginUpdatesLastLogin(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := fixtures.NewProfileBuilder().WithLastLogin(at.Add(-48 * time.Hour)).Build()
	profiles := &memProfileStore{profiles: []profile.UserProfile{p}}
	svc := NewService(newMemPresenceStore(), &memLoginLogStore{}, &memTransactionStore{},
		profiles, staticGeo{country: "SG"}, DefaultRules(), nil, nil)

	_, err := svc.CheckLogin(context.Background(), p.UserID, "203.0.113.9", at)
	require.NoError(t, err)
	assert.Equal(t, at, profiles.profiles[0].LastLogin)

	// A replayed older event must not move the timestamp backwards.
	_, err = svc.CheckLogin(context.Background(), p.UserID, "203.0.113.9", at.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, at, profiles.profiles[0].LastLogin)
}

func TestDetectCycles(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	store := &memTransactionStore{txs: []transaction.Transaction{
		fixtures.NewTransactionBuilder().WithUsers(a, b).WithCreatedAt(base).Build(),
		fixtures.NewTransactionBuilder().WithUsers(b, c).WithCreatedAt(base.Add(time.Minute)).Build(),
		fixtures.NewTransactionBuilder().WithUsers(c, a).WithCreatedAt(base.Add(2 * time.Minute)).Build(),
		// Outside the window; must not contribute an edge.
		fixtures.NewTransactionBuilder().WithUsers(b, a).WithCreatedAt(base.Add(-2 * time.Hour)).Build(),
	}}
	newSvc := func(rules Rules) *Service {
		return NewService(newMemPresenceStore(), &memLoginLogStore{}, store,
			&memProfileStore{}, staticGeo{}, rules, nil, nil)
	}
	ctx := context.Background()

	cycles, err := newSvc(DefaultRules()).DetectCycles(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, cycles, 3, "one cycle per participating start node")
	assert.Len(t, cycles[0].Path, 4)
	assert.Equal(t, cycles[0].Path[0], cycles[0].Path[3])

	shallow := DefaultRules()
	shallow.MaxHops = 2
	cycles, err = newSvc(shallow).DetectCycles(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, cycles, "three-hop cycle is invisible at hop bound 2")

	_, err = newSvc(DefaultRules()).DetectCycles(ctx, base, base)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
