// Package handler contains HTTP handlers for the BookshelfAI API.
//
// This file implements the AI settings endpoints.
//
// Routes:
//   - POST /api/settings/ai -> SaveSettings
//   - GET  /api/settings/ai -> GetSettings
//
// The raw key is accepted once on save and never returned; reads get a
// masked preview only.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/bookshelfai/bookshelfai/internal/auth"
	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/service"
)

// SettingsHandler handles AI credential settings.
type SettingsHandler struct {
	credentials service.CredentialService
	logger      *slog.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(credentials service.CredentialService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		credentials: credentials,
		logger:      logger,
	}
}

type saveSettingsRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// SaveSettings stores an account's provider API key.
func (h *SettingsHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccount(r.Context())
	if account == nil {
		ErrorResponse(w, r, h.logger, domain.Unauthorized("settings.save", "authentication required"))
		return
	}

	var req saveSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.credentials.SaveCredential(r.Context(), account.ID, req.Provider, req.APIKey); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type settingsResponse struct {
	Provider  string `json:"provider,omitempty"`
	HasKey    bool   `json:"has_key"`
	MaskedKey string `json:"masked_key,omitempty"`
}

// GetSettings returns the masked credential view.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccount(r.Context())
	if account == nil {
		ErrorResponse(w, r, h.logger, domain.Unauthorized("settings.get", "authentication required"))
		return
	}

	view, err := h.credentials.GetSettings(r.Context(), account.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		Provider:  view.Provider,
		HasKey:    view.HasKey,
		MaskedKey: view.MaskedKey,
	})
}
