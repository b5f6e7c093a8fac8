package rest

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the API route table on the standard mux. Metrics and
// health sit outside the rate limiter; everything else goes through the full
// middleware chain.
func NewRouter(h *Handler, middlewares ...Middleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	api := http.NewServeMux()
	api.HandleFunc("POST /api/v1/events/login", h.handleCheckLogin)
	api.HandleFunc("POST /api/v1/events/gift", h.handleCheckGift)
	api.HandleFunc("POST /api/v1/login-logs/{id}/safe", h.handleMarkLoginSafe)

	api.HandleFunc("POST /api/v1/scan", h.handleScan)
	api.HandleFunc("POST /api/v1/cycles", h.handleDetectCycles)

	api.HandleFunc("POST /api/v1/users/{id}/verify", h.handleVerify)
	api.HandleFunc("POST /api/v1/trust/rescore", h.handleRescore)

	api.HandleFunc("GET /api/v1/users/{id}/profile", h.handleGetProfile)
	api.HandleFunc("GET /api/v1/users/{id}/trust-logs", h.handleListTrustLogs)
	api.HandleFunc("GET /api/v1/users/{id}/login-logs", h.handleListLoginLogs)

	api.HandleFunc("GET /api/v1/flags", h.handleListFlags)
	api.HandleFunc("POST /api/v1/flags/{id}/resolve", h.handleResolveFlag)
	api.HandleFunc("GET /api/v1/presence", h.handleListPresence)

	mux.Handle("/api/v1/", chain(api, middlewares...))

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
