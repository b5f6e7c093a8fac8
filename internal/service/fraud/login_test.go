package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/trustguard-backend/internal/domain/event"
)

func strptr(s string) *string { return &s }

func TestLoginCheckerGeoUnavailable(t *testing.T) {
	checker := NewLoginChecker(&memLoginLogStore{}, 30*time.Minute)

	outcome, remark, err := checker.Check(context.Background(), uuid.New(), "203.0.113.9", nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, OutcomeGeoUnavailable, outcome)
	assert.Equal(t, RemarkGeoUnavailable, remark)
}

func TestLoginCheckerOutcomes(t *testing.T) {
	user := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		history []event.LoginLog
		ip      string
		country *string
		want    LoginOutcome
	}{
		{
			name:    "no history",
			ip:      "203.0.113.9",
			country: strptr("SG"),
			want:    OutcomeNormal,
		},
		{
			name: "same ip in history",
			history: []event.LoginLog{
				{UserID: user, IPAddress: "203.0.113.9", Geo: event.GeoLocation{Country: strptr("US")}, CheckedAt: now.Add(-10 * time.Minute)},
			},
			ip:      "203.0.113.9",
			country: strptr("SG"),
			want:    OutcomeNormal,
		},
		{
			name: "different ip same country",
			history: []event.LoginLog{
				{UserID: user, IPAddress: "198.51.100.1", Geo: event.GeoLocation{Country: strptr("SG")}, CheckedAt: now.Add(-10 * time.Minute)},
			},
			ip:      "203.0.113.9",
			country: strptr("SG"),
			want:    OutcomeNormal,
		},
		{
			name: "different ip different country",
			history: []event.LoginLog{
				{UserID: user, IPAddress: "198.51.100.1", Geo: event.GeoLocation{Country: strptr("US")}, CheckedAt: now.Add(-10 * time.Minute)},
			},
			ip:      "203.0.113.9",
			country: strptr("SG"),
			want:    OutcomeAnomalous,
		},
		{
			name: "different ip with unresolved historical country",
			history: []event.LoginLog{
				{UserID: user, IPAddress: "198.51.100.1", CheckedAt: now.Add(-10 * time.Minute)},
			},
			ip:      "203.0.113.9",
			country: strptr("SG"),
			want:    OutcomeAnomalous,
		},
		{
			name: "mismatch outside the lookback is ignored",
			history: []event.LoginLog{
				{UserID: user, IPAddress: "198.51.100.1", Geo: event.GeoLocation{Country: strptr("US")}, CheckedAt: now.Add(-2 * time.Hour)},
			},
			ip:      "203.0.113.9",
			country: strptr("SG"),
			want:    OutcomeNormal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memLoginLogStore{logs: tt.history}
			checker := NewLoginChecker(store, 30*time.Minute)

			outcome, _, err := checker.Check(context.Background(), user, tt.ip, tt.country, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)
		})
	}
}

func TestLoginCheckerShortCircuitsOnFirstMismatch(t *testing.T) {
	user := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &memLoginLogStore{logs: []event.LoginLog{
		{UserID: user, IPAddress: "198.51.100.1", Geo: event.GeoLocation{Country: strptr("US")}, CheckedAt: now.Add(-20 * time.Minute)},
		{UserID: user, IPAddress: "203.0.113.9", Geo: event.GeoLocation{Country: strptr("SG")}, CheckedAt: now.Add(-5 * time.Minute)},
	}}
	checker := NewLoginChecker(store, 30*time.Minute)

	// The older mismatching entry decides the outcome even though a later
	// entry matches.
	outcome, remark, err := checker.Check(context.Background(), user, "203.0.113.9", strptr("SG"), now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnomalous, outcome)
	assert.Equal(t, RemarkAnomalousLogin, remark)
}
