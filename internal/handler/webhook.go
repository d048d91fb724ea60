// Package handler contains HTTP handlers for the BookshelfAI API.
//
// This file implements the payment webhook endpoint.
//
// Route:
//   - POST /webhooks/payment -> HandlePaymentWebhook
//
// This route is PUBLIC (no bearer auth) because the payment provider calls
// it directly. Authentication is a shared-secret token header. The provider
// retries on any non-2xx response, so business no-ops (duplicates,
// irrelevant events, unknown products, unresolved accounts) are all
// acknowledged with 200.
package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/metrics"
	"github.com/bookshelfai/bookshelfai/internal/service"
)

const (
	// TokenHeader carries the shared secret configured with the provider.
	TokenHeader = "X-Provider-Token"

	// IdempotencyHeader carries the provider's dedup key. Optional but
	// recommended; without it, replay safety rests on the grant being
	// idempotent by value.
	IdempotencyHeader = "X-Provider-Idempotency"

	// maxWebhookBody bounds the request body (64KB).
	maxWebhookBody = 65536
)

// WebhookHandler handles incoming payment provider callbacks.
type WebhookHandler struct {
	webhooks service.WebhookService
	token    string // shared secret; empty disables the check
	logger   *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler. An empty token disables
// authentication — a deployment misconfiguration risk that is logged loudly
// at startup, not a logic error here.
func NewWebhookHandler(webhooks service.WebhookService, token string, logger *slog.Logger) *WebhookHandler {
	if token == "" {
		logger.Warn("payment webhook token not configured; webhook endpoint is UNAUTHENTICATED")
	}
	return &WebhookHandler{
		webhooks: webhooks,
		token:    token,
		logger:   logger,
	}
}

// HandlePaymentWebhook processes one webhook delivery.
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	// Method check. The mux already routes POST only; this guard keeps
	// the handler safe under direct registration too.
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONError(w, http.StatusMethodNotAllowed, domain.EINVALID, "method not allowed")
		return
	}

	// Shared-secret check.
	if h.token != "" && !service.ConstantTimeTokenEqual(r.Header.Get(TokenHeader), h.token) {
		h.logger.Warn("webhook rejected: bad provider token", "ip", r.RemoteAddr)
		metrics.WebhookEventsTotal.WithLabelValues("rejected").Inc()
		writeJSONError(w, http.StatusUnauthorized, domain.EUNAUTHORIZED, "invalid provider token")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, domain.EINVALID, "failed to read request body")
		return
	}

	result, err := h.webhooks.Process(r.Context(), service.RawWebhookEvent{
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
		Body:           body,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, webhookResponseFor(result))
}

// webhookResponseFor builds the structured acknowledgment body.
func webhookResponseFor(result *domain.WebhookResult) map[string]any {
	resp := map[string]any{
		"status":  "ok",
		"outcome": string(result.Outcome),
	}
	switch result.Outcome {
	case domain.WebhookOutcomeDuplicate:
		resp["message"] = "duplicate ignored"
	case domain.WebhookOutcomeIrrelevant:
		resp["message"] = "event not relevant"
	case domain.WebhookOutcomeUnknownProduct:
		resp["message"] = "unknown product; no changes applied"
		resp["product_id"] = result.ProductID
	case domain.WebhookOutcomeUserNotFound:
		resp["message"] = "manual upgrade needed"
		resp["email"] = result.Email
		if result.Granted != nil {
			resp["intended_tier"] = string(result.Granted.Tier)
			resp["intended_credits"] = result.Granted.Credits
		}
	case domain.WebhookOutcomeApplied:
		resp["message"] = "subscription updated"
		if result.Granted != nil {
			resp["tier"] = string(result.Granted.Tier)
			resp["credits"] = result.Granted.Credits
		}
	}
	return resp
}
