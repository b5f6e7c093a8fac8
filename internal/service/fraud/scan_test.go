package fraud

import (
	"context"
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

func newTestOrchestrator(txs *memTransactionStore, flags *memFlagStore, profiles *memProfileStore, locker ScanLocker, rules Rules) *ScanOrchestrator {
	return NewScanOrchestrator(txs, flags, profiles, locker, rules, nil, nil)
}

func scanWindow() (time.Time, time.Time) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return end.Add(-24 * time.Hour), end
}

func TestScanRejectsInvalidWindow(t *testing.T) {
	o := newTestOrchestrator(&memTransactionStore{}, &memFlagStore{}, &memProfileStore{}, nil, DefaultRules())
	start, end := scanWindow()

	_, err := o.Scan(context.Background(), end, start)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestScanRefusesWhenLockHeld(t *testing.T) {
	locker := &memLocker{denied: true}
	o := newTestOrchestrator(&memTransactionStore{}, &memFlagStore{}, &memProfileStore{}, locker, DefaultRules())
	start, end := scanWindow()

	_, err := o.Scan(context.Background(), start, end)
	assert.ErrorIs(t, err, errors.ErrScanInProgress)
}

func TestScanReleasesLock(t *testing.T) {
	locker := &memLocker{}
	o := newTestOrchestrator(&memTransactionStore{}, &memFlagStore{}, &memProfileStore{}, locker, DefaultRules())
	start, end := scanWindow()

	_, err := o.Scan(context.Background(), start, end)
	require.NoError(t, err)
	assert.False(t, locker.held)
}

func TestScanPairVolumeRule(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	start, end := scanWindow()

	var txs []transaction.Transaction
	for i := 0; i < 4; i++ {
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		txs = append(txs, fixtures.NewTransactionBuilder().
			WithUsers(from, to).
			WithCreatedAt(start.Add(time.Duration(i)*time.Hour)).
			Build())
	}

	flags := &memFlagStore{}
	o := newTestOrchestrator(&memTransactionStore{txs: txs}, flags, &memProfileStore{}, nil, DefaultRules())

	newFlags, err := o.Scan(context.Background(), start, end)
	require.NoError(t, err)

	require.Len(t, newFlags, 1)
	assert.Contains(t, newFlags[0].Reason, "Circular money flow")
	assert.Len(t, newFlags[0].TransactionIDs, 4)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, newFlags[0].UserIDs)
}

func TestScanPairVolumeBelowThreshold(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	start, end := scanWindow()

	var txs []transaction.Transaction
	for i := 0; i < 3; i++ {
		txs = append(txs, fixtures.NewTransactionBuilder().
			WithUsers(a, b).
			WithCreatedAt(start.Add(time.Duration(i)*time.Hour)).
			Build())
	}

	o := newTestOrchestrator(&memTransactionStore{txs: txs}, &memFlagStore{}, &memProfileStore{}, nil, DefaultRules())

	newFlags, err := o.Scan(context.Background(), start, end)
	require.NoError(t, err)
	assert.Empty(t, newFlags)
}

func TestScanIsIdempotent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	start, end := scanWindow()

	var txs []transaction.Transaction
	for i := 0; i < 5; i++ {
		txs = append(txs, fixtures.NewTransactionBuilder().
			WithUsers(a, b).
			WithCreatedAt(start.Add(time.Duration(i)*time.Hour)).
			Build())
	}

	flags := &memFlagStore{}
	o := newTestOrchestrator(&memTransactionStore{txs: txs}, flags, &memProfileStore{}, nil, DefaultRules())
	ctx := context.Background()

	first, err := o.Scan(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := o.Scan(ctx, start, end)
	require.NoError(t, err)
	assert.Empty(t, second, "an unchanged window must not re-raise flags")
}

func TestScanAmountRule(t *testing.T) {
	start, end := scanWindow()
	sender := fixtures.NewProfileBuilder().WithTrustScore(0).Build() // limit 500

	tests := []struct {
		name        string
		amountMinor int64
		from        uuid.UUID
		wantFlag    bool
	}{
		{"ten times the limit is allowed", 5000, sender.UserID, false},
		{"over ten times the limit", 5001, sender.UserID, true},
		{"unknown sender uses default limit", 10001, uuid.New(), true},
		{"unknown sender under default limit", 9999, uuid.New(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := fixtures.NewTransactionBuilder().
				WithUsers(tt.from, uuid.New()).
				WithAmountMinor(tt.amountMinor).
				WithCreatedAt(start.Add(time.Hour)).
				Build()

			o := newTestOrchestrator(
				&memTransactionStore{txs: []transaction.Transaction{tx}},
				&memFlagStore{},
				&memProfileStore{profiles: []profile.UserProfile{sender}},
				nil, DefaultRules())

			newFlags, err := o.Scan(context.Background(), start, end)
			require.NoError(t, err)

			if tt.wantFlag {
				require.Len(t, newFlags, 1)
				assert.Contains(t, newFlags[0].Reason, "Huge transaction amount")
			} else {
				assert.Empty(t, newFlags)
			}
		})
	}
}

func TestScanAbsoluteCeiling(t *testing.T) {
	start, end := scanWindow()
	// Trust 10 sender: limit 80000, multiplier allows 800000, but the
	// absolute ceiling still catches seven figures.
	sender := fixtures.NewProfileBuilder().WithTrustScore(10).Build()
	tx := fixtures.NewTransactionBuilder().
		WithUsers(sender.UserID, uuid.New()).
		WithAmountMinor(1_000_001).
		WithCreatedAt(start.Add(time.Hour)).
		Build()

	o := newTestOrchestrator(
		&memTransactionStore{txs: []transaction.Transaction{tx}},
		&memFlagStore{},
		&memProfileStore{profiles: []profile.UserProfile{sender}},
		nil, DefaultRules())

	newFlags, err := o.Scan(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, newFlags, 1)
}

func TestScanRouteRule(t *testing.T) {
	start, end := scanWindow()
	from, to := uuid.New(), uuid.New()

	rules := DefaultRules()
	rules.Route = &RouteRule{FromUserID: from, ToUserID: to, Threshold: 5}
	// Keep the pair-volume rule out of the way for this case.
	rules.PairVolumeThreshold = 100

	var txs []transaction.Transaction
	for i := 0; i < 5; i++ {
		txs = append(txs, fixtures.NewTransactionBuilder().
			WithUsers(from, to).
			WithStatus(transaction.StatusPending).
			WithCreatedAt(start.Add(time.Duration(i)*time.Hour)).
			Build())
	}

	o := newTestOrchestrator(&memTransactionStore{txs: txs}, &memFlagStore{}, &memProfileStore{}, nil, rules)

	newFlags, err := o.Scan(context.Background(), start, end)
	require.NoError(t, err)

	require.Len(t, newFlags, 1)
	assert.Contains(t, newFlags[0].Reason, "Multiple pending transactions")
	assert.Len(t, newFlags[0].TransactionIDs, 5)
}

func TestScanRouteRuleIgnoresCompleted(t *testing.T) {
	start, end := scanWindow()
	from, to := uuid.New(), uuid.New()

	rules := DefaultRules()
	rules.Route = &RouteRule{FromUserID: from, ToUserID: to, Threshold: 5}
	rules.PairVolumeThreshold = 100

	var txs []transaction.Transaction
	for i := 0; i < 5; i++ {
		txs = append(txs, fixtures.NewTransactionBuilder().
			WithUsers(from, to).
			WithStatus(transaction.StatusCompleted).
			WithCreatedAt(start.Add(time.Duration(i)*time.Hour)).
			Build())
	}

	o := newTestOrchestrator(&memTransactionStore{txs: txs}, &memFlagStore{}, &memProfileStore{}, nil, rules)

	newFlags, err := o.Scan(context.Background(), start, end)
	require.NoError(t, err)
	assert.Empty(t, newFlags)
}
