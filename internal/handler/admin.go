// Package handler contains HTTP handlers for the BookshelfAI API.
//
// This file implements operational endpoints.
//
// Routes:
//   - POST /admin/reset -> TriggerReset (shared-secret guarded)
//   - GET  /health      -> Health
//
// The reset endpoint exists for operators: the scheduler runs the same job
// on an interval, but support cases sometimes need it now.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/service"
)

// AdminTokenHeader carries the operator shared secret.
const AdminTokenHeader = "X-Admin-Token"

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	resets service.ResetService
	token  string // shared secret; empty disables the endpoint entirely
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(resets service.ResetService, token string, logger *slog.Logger) *AdminHandler {
	if token == "" {
		logger.Warn("admin token not configured; /admin/reset is disabled")
	}
	return &AdminHandler{
		resets: resets,
		token:  token,
		logger: logger,
	}
}

// TriggerReset runs the monthly credit reset immediately.
func (h *AdminHandler) TriggerReset(w http.ResponseWriter, r *http.Request) {
	// Unlike the webhook, an unset admin token disables the endpoint
	// rather than opening it.
	if h.token == "" || !service.ConstantTimeTokenEqual(r.Header.Get(AdminTokenHeader), h.token) {
		h.logger.Warn("admin reset rejected: bad admin token", "ip", r.RemoteAddr)
		writeJSONError(w, http.StatusUnauthorized, domain.EUNAUTHORIZED, "invalid admin token")
		return
	}

	count, err := h.resets.RunReset(r.Context(), time.Now())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"reset_count": count,
	})
}

// HealthHandler reports process liveness and database reachability.
type HealthHandler struct {
	ping   func(r *http.Request) error
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler. ping is called per request
// to verify the database connection.
func NewHealthHandler(ping func(r *http.Request) error, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		ping:   ping,
		logger: logger,
	}
}

// Health returns 200 when the service and its database are reachable.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r); err != nil {
			h.logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
