// Package handler contains HTTP handlers for the BookshelfAI API.
//
// This file implements the generation endpoint and the usage view.
//
// Routes:
//   - POST /api/generate -> Generate
//   - GET  /api/usage    -> Usage
//
// Both require bearer authentication.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/bookshelfai/bookshelfai/internal/auth"
	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/service"
)

// GenerateHandler handles AI generation requests.
type GenerateHandler struct {
	generations service.GenerationService
	ledger      service.LedgerService
	logger      *slog.Logger
}

// NewGenerateHandler creates a new GenerateHandler.
func NewGenerateHandler(generations service.GenerationService, ledger service.LedgerService, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{
		generations: generations,
		ledger:      ledger,
		logger:      logger,
	}
}

type generateRequest struct {
	ActionType string `json:"action_type"`
	Context    string `json:"context"`
}

type generateResponse struct {
	Output           string `json:"output"`
	RemainingCredits int    `json:"remaining_credits"`
	Unlimited        bool   `json:"unlimited,omitempty"`
}

// Generate runs one AI generation through the metering gate.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccount(r.Context())
	if account == nil {
		ErrorResponse(w, r, h.logger, domain.Unauthorized("generate", "authentication required"))
		return
	}

	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	action := domain.ActionType(req.ActionType)
	if !action.Valid() {
		ErrorResponse(w, r, h.logger, domain.Invalid("generate", "unknown action_type: "+req.ActionType))
		return
	}

	output, err := h.generations.Generate(r.Context(), account.ID, action, req.Context)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Output:           output.Text,
		RemainingCredits: output.RemainingCredits,
		Unlimited:        output.Unlimited,
	})
}

type usageResponse struct {
	Tier             string `json:"tier"`
	Status           string `json:"status"`
	CreditsRemaining int    `json:"credits_remaining"`
	MonthlyLimit     int    `json:"monthly_limit"`
	ResetDate        string `json:"reset_date"`
	Unlimited        bool   `json:"unlimited"`
}

// Usage returns the account's current ledger state.
func (h *GenerateHandler) Usage(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccount(r.Context())
	if account == nil {
		ErrorResponse(w, r, h.logger, domain.Unauthorized("usage", "authentication required"))
		return
	}

	entry, err := h.ledger.GetUsage(r.Context(), account.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{
		Tier:             string(entry.Tier),
		Status:           string(entry.Status),
		CreditsRemaining: entry.CreditsRemaining,
		MonthlyLimit:     entry.MonthlyLimit,
		ResetDate:        entry.ResetDate.Format("2006-01-02"),
		Unlimited:        entry.Unlimited(),
	})
}
