package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "github.com/davidleathers/trustguard-backend/internal/domain/errors"
	"github.com/davidleathers/trustguard-backend/internal/domain/event"
	"github.com/davidleathers/trustguard-backend/internal/domain/flag"
	"github.com/davidleathers/trustguard-backend/internal/domain/presence"
	"github.com/davidleathers/trustguard-backend/internal/domain/profile"
	"github.com/davidleathers/trustguard-backend/internal/service/fraud"
	"github.com/davidleathers/trustguard-backend/internal/service/trust"
)

const maxBodySize = 1 << 20

// ProfileReader serves the profile read surface.
type ProfileReader interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*profile.UserProfile, error)
}

// TrustLogReader serves the trust audit read surface.
type TrustLogReader interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]profile.TrustLogEntry, error)
}

// LoginLogReader serves the login history read surface.
type LoginLogReader interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]event.LoginLog, error)
}

// FlagReviewStore serves the review queue.
type FlagReviewStore interface {
	ListUnresolved(ctx context.Context) ([]flag.Flag, error)
	Resolve(ctx context.Context, id uuid.UUID) error
}

// PresenceReader serves the co-presence read surface.
type PresenceReader interface {
	List(ctx context.Context) ([]presence.Record, error)
}

// Services holds everything the REST API calls into.
type Services struct {
	Fraud   *fraud.Service
	Scanner *fraud.ScanOrchestrator
	Trust   *trust.Service

	Profiles  ProfileReader
	TrustLogs TrustLogReader
	LoginLogs LoginLogReader
	Flags     FlagReviewStore
	Presence  PresenceReader
}

// Handler serves the REST API.
type Handler struct {
	services   Services
	validator  *validator.Validate
	logger     *slog.Logger
	scanWindow time.Duration
	nowFn      func() time.Time
}

// NewHandler creates the API handler. scanWindow is the default lookback for
// scans requested without an explicit window.
func NewHandler(services Services, scanWindow time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		services:   services,
		validator:  validator.New(),
		logger:     logger,
		scanWindow: scanWindow,
		nowFn:      time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (h *Handler) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		h.nowFn = nowFn
	}
}

func (h *Handler) handleCheckLogin(w http.ResponseWriter, r *http.Request) {
	var req CheckLoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	at := req.Timestamp
	if at.IsZero() {
		at = h.nowFn()
	}

	result, err := h.services.Fraud.CheckLogin(r.Context(), req.UserID, req.IP, at)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CheckResponse{IsSuspicious: result.IsSuspicious, Remarks: result.Remarks, Velocity: result.Velocity})
}

func (h *Handler) handleCheckGift(w http.ResponseWriter, r *http.Request) {
	var req CheckGiftRequest
	if !h.decode(w, r, &req) {
		return
	}
	at := req.Timestamp
	if at.IsZero() {
		at = h.nowFn()
	}

	result, err := h.services.Fraud.CheckGift(r.Context(), req.UserID, at)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CheckResponse{IsSuspicious: result.IsSuspicious, Remarks: result.Remarks, Velocity: result.Velocity})
}

func (h *Handler) handleMarkLoginSafe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.services.Fraud.MarkLoginSafe(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "marked safe"})
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}
	if req.WindowEnd.IsZero() {
		req.WindowEnd = h.nowFn()
	}
	if req.WindowStart.IsZero() {
		req.WindowStart = req.WindowEnd.Add(-h.scanWindow)
	}

	newFlags, err := h.services.Scanner.Scan(r.Context(), req.WindowStart, req.WindowEnd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ScanResponse{
		WindowStart: req.WindowStart,
		WindowEnd:   req.WindowEnd,
		NewFlags:    newFlags,
		FlagCount:   len(newFlags),
	})
}

func (h *Handler) handleDetectCycles(w http.ResponseWriter, r *http.Request) {
	var req DetectCyclesRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}
	if req.WindowEnd.IsZero() {
		req.WindowEnd = h.nowFn()
	}
	if req.WindowStart.IsZero() {
		req.WindowStart = req.WindowEnd.Add(-h.scanWindow)
	}

	cycles, err := h.services.Fraud.DetectCycles(r.Context(), req.WindowStart, req.WindowEnd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CyclesResponse{
		WindowStart: req.WindowStart,
		WindowEnd:   req.WindowEnd,
		Cycles:      cycles,
		Count:       len(cycles),
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.services.Trust.Verify(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, VerifyResponse{
		UserID:          result.UserID,
		NewTrust:        result.NewTrust,
		Verified:        result.Verified,
		AlreadyVerified: result.AlreadyVerified,
	})
}

func (h *Handler) handleRescore(w http.ResponseWriter, r *http.Request) {
	summary, err := h.services.Trust.RescoreAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, RescoreResponse{
		UsersProcessed: summary.UsersProcessed,
		UsersChanged:   summary.UsersChanged,
		LogsCreated:    summary.LogsCreated,
		Timestamp:      summary.Timestamp,
	})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.services.Profiles.GetByUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ProfileResponse{Profile: *p})
}

func (h *Handler) handleListTrustLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.services.TrustLogs.ListForUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, TrustLogsResponse{UserID: id, Entries: entries})
}

func (h *Handler) handleListLoginLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	logs, err := h.services.LoginLogs.ListForUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, LoginLogsResponse{UserID: id, Logs: logs})
}

func (h *Handler) handleListFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := h.services.Flags.ListUnresolved(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, FlagsResponse{Flags: flags, Count: len(flags)})
}

func (h *Handler) handleResolveFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.services.Flags.Resolve(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func (h *Handler) handleListPresence(w http.ResponseWriter, r *http.Request) {
	records, err := h.services.Presence.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, PresenceResponse{Records: records, Count: len(records)})
}

// decode reads, unmarshals, and validates a JSON body, writing the error
// response itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, apperrors.NewValidationError("INVALID_BODY", "request body is not valid JSON").WithCause(err))
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.writeError(w, r, apperrors.NewValidationError("INVALID_BODY", err.Error()).WithCause(err))
		return false
	}
	return true
}

func (h *Handler) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		h.writeError(w, r, apperrors.NewValidationError("INVALID_ID", "path id must be a UUID").WithCause(err))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.GetStatusCode(err)
	code := "INTERNAL_ERROR"
	message := "An internal error occurred"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"status", status,
			"error", err)
	}

	h.writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
