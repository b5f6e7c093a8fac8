package fraud

import "time"

// Velocity rule defaults
const (
	// DefaultGiftWindow is the sliding window for per-user gift velocity
	DefaultGiftWindow = time.Minute

	// DefaultGiftThreshold is the per-user gift count that trips the rule
	DefaultGiftThreshold = 100

	// DefaultLoginIPWindow is the sliding window for per-IP login velocity
	DefaultLoginIPWindow = 5 * time.Minute

	// DefaultLoginIPThreshold is the per-IP login count that trips the rule
	DefaultLoginIPThreshold = 20
)

// Co-presence and login anomaly defaults
const (
	// DefaultCoPresenceThreshold is the distinct-user count above which an
	// IP is marked suspicious
	DefaultCoPresenceThreshold = 5

	// DefaultLoginLookback bounds the login history compared against a new login
	DefaultLoginLookback = 30 * time.Minute

	// DefaultPresenceRetries bounds the CAS retry loop on co-presence writes
	DefaultPresenceRetries = 3
)

// Circular-flow defaults
const (
	// DefaultMaxHops bounds the cycle search depth
	DefaultMaxHops = 3

	// DefaultPairVolumeThreshold is the transaction count between an
	// unordered user pair that the batch heuristic treats as circular
	DefaultPairVolumeThreshold = 4
)

// Amount rule defaults (minor units)
const (
	// DefaultUnknownSenderLimit is assumed for senders with no profile
	DefaultUnknownSenderLimit = 1000

	// AmountLimitMultiplier flags amounts above multiplier x sender limit
	AmountLimitMultiplier = 10

	// AbsoluteAmountCeiling flags any amount above this regardless of limit
	AbsoluteAmountCeiling = 1_000_000
)

// Fixed-route rule default
const (
	// DefaultRouteThreshold is the pending-transfer count between a named
	// pair that trips the route rule
	DefaultRouteThreshold = 5
)

// Scan job coordination
const (
	// ScanLockKey is the distributed lock key guarding batch scans
	ScanLockKey = "trustguard:scan:lock"

	// ScanLockTTL caps how long a crashed scan can hold the lock
	ScanLockTTL = 10 * time.Minute
)

// Rule names carried on velocity flags
const (
	RuleGiftPerMinute   = "GIFT_PER_MINUTE"
	RuleLoginsPerIP5Min = "LOGINS_PER_IP_5MIN"
)
