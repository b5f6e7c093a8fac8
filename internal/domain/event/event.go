package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the platform activity an Event records.
type Kind int

const (
	KindLogin Kind = iota
	KindGift
)

func (k Kind) String() string {
	switch k {
	case KindLogin:
		return "LOGIN"
	case KindGift:
		return "GIFT"
	default:
		return "unknown"
	}
}

// ParseKind converts the wire representation back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "LOGIN":
		return KindLogin, nil
	case "GIFT":
		return KindGift, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", s)
	}
}

// GeoLocation carries the resolved geolocation of an event's source address.
// All fields are nil when the lookup could not resolve the address; detection
// then degrades to "cannot compare" rather than failing.
type GeoLocation struct {
	Country   *string  `json:"country,omitempty"`
	Region    *string  `json:"region,omitempty"`
	City      *string  `json:"city,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Resolved reports whether the lookup produced at least a country.
func (g *GeoLocation) Resolved() bool {
	return g != nil && g.Country != nil
}

// Event is a single login or gift observation. Events are ephemeral: the
// detectors consume them and only their verdicts are persisted.
type Event struct {
	OccurredAt time.Time    `json:"occurred_at"`
	Kind       Kind         `json:"kind"`
	UserID     uuid.UUID    `json:"user_id"`
	IP         string       `json:"ip,omitempty"`
	Geo        *GeoLocation `json:"geo,omitempty"`
}

// NewLogin builds a login event.
func NewLogin(userID uuid.UUID, ip string, at time.Time) Event {
	return Event{OccurredAt: at, Kind: KindLogin, UserID: userID, IP: ip}
}

// NewGift builds a gift event.
func NewGift(userID uuid.UUID, at time.Time) Event {
	return Event{OccurredAt: at, Kind: KindGift, UserID: userID}
}

// Validate checks the required fields for the per-event detection path.
func (e Event) Validate() error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if e.Kind == KindLogin && e.IP == "" {
		return fmt.Errorf("ip is required for login events")
	}
	return nil
}

// LoginLog is the persisted record of a checked login, enriched with the
// geolocation fields and the detector's verdict.
type LoginLog struct {
	ID           uuid.UUID   `json:"id"`
	UserID       uuid.UUID   `json:"user_id"`
	IPAddress    string      `json:"ip_address"`
	IsSuspicious bool        `json:"is_suspicious"`
	Geo          GeoLocation `json:"geo"`
	CheckedAt    time.Time   `json:"checked_at"`
	Remarks      string      `json:"remarks"`
}
