package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/trustguard-backend/internal/domain/event"
	"github.com/davidleathers/trustguard-backend/internal/domain/flag"
	"github.com/davidleathers/trustguard-backend/internal/domain/presence"
	"github.com/davidleathers/trustguard-backend/internal/domain/profile"
	"github.com/davidleathers/trustguard-backend/internal/service/fraud"
)

// CheckLoginRequest is the body of POST /api/v1/events/login. Timestamp is
// optional; a zero value means "now".
type CheckLoginRequest struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	IP        string    `json:"ip" validate:"required,ip"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// CheckGiftRequest is the body of POST /api/v1/events/gift.
type CheckGiftRequest struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// CheckResponse is the verdict returned to the event source.
type CheckResponse struct {
	IsSuspicious bool                `json:"is_suspicious"`
	Remarks      string              `json:"remarks"`
	Velocity     *fraud.VelocityFlag `json:"velocity,omitempty"`
}

// ScanRequest is the body of POST /api/v1/scan. An empty window defaults to
// the configured scan window ending now.
type ScanRequest struct {
	WindowStart time.Time `json:"window_start,omitempty"`
	WindowEnd   time.Time `json:"window_end,omitempty"`
}

// ScanResponse reports one completed scan.
type ScanResponse struct {
	WindowStart time.Time   `json:"window_start"`
	WindowEnd   time.Time   `json:"window_end"`
	NewFlags    []flag.Flag `json:"new_flags"`
	FlagCount   int         `json:"flag_count"`
}

// DetectCyclesRequest is the body of POST /api/v1/cycles. An empty window
// defaults to the configured scan window ending now.
type DetectCyclesRequest struct {
	WindowStart time.Time `json:"window_start,omitempty"`
	WindowEnd   time.Time `json:"window_end,omitempty"`
}

// CyclesResponse lists the return cycles found in the window.
type CyclesResponse struct {
	WindowStart time.Time     `json:"window_start"`
	WindowEnd   time.Time     `json:"window_end"`
	Cycles      []fraud.Cycle `json:"cycles"`
	Count       int           `json:"count"`
}

// VerifyResponse reports a verification attempt.
type VerifyResponse struct {
	UserID          uuid.UUID `json:"user_id"`
	NewTrust        int       `json:"new_trust"`
	Verified        bool      `json:"verified"`
	AlreadyVerified bool      `json:"already_verified"`
}

// RescoreResponse reports one rescoring run.
type RescoreResponse struct {
	UsersProcessed int       `json:"users_processed"`
	UsersChanged   int       `json:"users_changed"`
	LogsCreated    int       `json:"logs_created"`
	Timestamp      time.Time `json:"timestamp"`
}

// ProfileResponse is the read model for a user profile.
type ProfileResponse struct {
	Profile profile.UserProfile `json:"profile"`
}

// TrustLogsResponse is a user's trust audit trail.
type TrustLogsResponse struct {
	UserID  uuid.UUID               `json:"user_id"`
	Entries []profile.TrustLogEntry `json:"entries"`
}

// LoginLogsResponse is a user's login history.
type LoginLogsResponse struct {
	UserID uuid.UUID        `json:"user_id"`
	Logs   []event.LoginLog `json:"logs"`
}

// FlagsResponse is the open review queue.
type FlagsResponse struct {
	Flags []flag.Flag `json:"flags"`
	Count int         `json:"count"`
}

// PresenceResponse lists per-IP co-presence records.
type PresenceResponse struct {
	Records []presence.Record `json:"records"`
	Count   int               `json:"count"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable error fields.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
