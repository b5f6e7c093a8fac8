package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Login remarks written back to the login log.
const (
	RemarkNormalLogin    = "Normal login"
	RemarkAnomalousLogin = "User login from different IP and country within 30 mins"
	RemarkGeoUnavailable = "Geolocation unavailable, cannot compare login history"
	RemarkSharedIP       = "Multiple users from same IP"
	RemarkMarkedSafe     = "Marked safe after review"
)

// LoginChecker compares a new login's IP and country against the user's
// recent login history. It keeps no state of its own; history is supplied by
// the store on every check.
type LoginChecker struct {
	logs     LoginLogStore
	lookback time.Duration
}

// NewLoginChecker creates a checker with the given lookback window.
func NewLoginChecker(logs LoginLogStore, lookback time.Duration) *LoginChecker {
	if lookback <= 0 {
		lookback = DefaultLoginLookback
	}
	return &LoginChecker{logs: logs, lookback: lookback}
}

// Check scans the user's logins within [now - lookback, now]. The first
// entry whose IP differs and whose country differs from the current login
// short-circuits to an anomalous outcome; remaining entries are not
// examined. A nil country means the current login's geolocation could not be
// resolved, and the check degrades to OutcomeGeoUnavailable.
func (c *LoginChecker) Check(ctx context.Context, userID uuid.UUID, ip string, country *string, now time.Time) (LoginOutcome, string, error) {
	if country == nil {
		return OutcomeGeoUnavailable, RemarkGeoUnavailable, nil
	}

	history, err := c.logs.ListSince(ctx, userID, now.Add(-c.lookback))
	if err != nil {
		return OutcomeNormal, "", err
	}

	for _, entry := range history {
		if entry.IPAddress == ip {
			continue
		}
		// A historical login with no resolved country still counts as a
		// country mismatch: we cannot place it at the current location.
		if entry.Geo.Country == nil || *entry.Geo.Country != *country {
			return OutcomeAnomalous, RemarkAnomalousLogin, nil
		}
	}

	return OutcomeNormal, RemarkNormalLogin, nil
}
