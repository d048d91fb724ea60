// Package handler contains HTTP handlers for the BookshelfAI API.
//
// This file implements account signup.
//
// Route:
//   - POST /api/signup -> Signup
//
// Signup is the only public JSON endpoint besides the webhook. It returns
// the raw API token exactly once; the server stores only a hash.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/bookshelfai/bookshelfai/internal/service"
)

// AccountHandler handles account provisioning.
type AccountHandler struct {
	accounts service.AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   logger,
	}
}

type signupRequest struct {
	Email string `json:"email"`
}

type signupResponse struct {
	AccountID        string `json:"account_id"`
	Email            string `json:"email"`
	Token            string `json:"token"`
	Tier             string `json:"tier"`
	CreditsRemaining int    `json:"credits_remaining"`
	MonthlyLimit     int    `json:"monthly_limit"`
	ResetDate        string `json:"reset_date"`
}

// Signup creates an account with a free-tier credit ledger.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.accounts.Signup(r.Context(), req.Email)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		AccountID:        result.Account.ID.String(),
		Email:            result.Account.Email,
		Token:            result.Token,
		Tier:             string(result.Ledger.Tier),
		CreditsRemaining: result.Ledger.CreditsRemaining,
		MonthlyLimit:     result.Ledger.MonthlyLimit,
		ResetDate:        result.Ledger.ResetDate.Format("2006-01-02"),
	})
}
