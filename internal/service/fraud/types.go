package fraud

import (
	"time"

	"github.com/google/uuid"
)

// Rules holds the tunable thresholds of all detection rules. The zero value
// is unusable; call DefaultRules and override fields as needed.
type Rules struct {
	GiftWindow       time.Duration
	GiftThreshold    int
	LoginIPWindow    time.Duration
	LoginIPThreshold int

	CoPresenceThreshold int
	LoginLookback       time.Duration

	MaxHops             int
	PairVolumeThreshold int

	UnknownSenderLimit    int64
	AmountLimitMultiplier int64
	AbsoluteAmountCeiling int64

	// Route is an optional fixed-route rule instance; nil disables it.
	Route *RouteRule
}

// RouteRule flags excess pending transfers between one named user pair
// within the scan window.
type RouteRule struct {
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	Threshold  int
}

// DefaultRules returns the production defaults.
func DefaultRules() Rules {
	return Rules{
		GiftWindow:            DefaultGiftWindow,
		GiftThreshold:         DefaultGiftThreshold,
		LoginIPWindow:         DefaultLoginIPWindow,
		LoginIPThreshold:      DefaultLoginIPThreshold,
		CoPresenceThreshold:   DefaultCoPresenceThreshold,
		LoginLookback:         DefaultLoginLookback,
		MaxHops:               DefaultMaxHops,
		PairVolumeThreshold:   DefaultPairVolumeThreshold,
		UnknownSenderLimit:    DefaultUnknownSenderLimit,
		AmountLimitMultiplier: AmountLimitMultiplier,
		AbsoluteAmountCeiling: AbsoluteAmountCeiling,
	}
}

// CheckResult is the immediate verdict of the per-event detection path.
// Velocity is set when a velocity rule tripped, carrying the triggering key.
type CheckResult struct {
	IsSuspicious bool          `json:"is_suspicious"`
	Remarks      string        `json:"remarks"`
	Velocity     *VelocityFlag `json:"velocity,omitempty"`
}

// LoginOutcome distinguishes a clean login, an anomalous one, and the case
// where geolocation was unavailable so no comparison was possible.
type LoginOutcome int

const (
	OutcomeNormal LoginOutcome = iota
	OutcomeAnomalous
	OutcomeGeoUnavailable
)

func (o LoginOutcome) String() string {
	switch o {
	case OutcomeNormal:
		return "normal"
	case OutcomeAnomalous:
		return "anomalous"
	case OutcomeGeoUnavailable:
		return "geo_unavailable"
	default:
		return "unknown"
	}
}

// VelocityFlag records a velocity threshold crossing.
type VelocityFlag struct {
	Key   string `json:"key"`
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// Edge is one directed transfer used by the cycle detector.
type Edge struct {
	From uuid.UUID
	To   uuid.UUID
}

// Cycle is a short return path discovered by the cycle detector. Path starts
// and ends at Start; len(Path)-1 is the hop count.
type Cycle struct {
	Start uuid.UUID   `json:"start"`
	Path  []uuid.UUID `json:"path"`
}
