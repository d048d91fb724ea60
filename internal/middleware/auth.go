// Package middleware contains HTTP middleware for the BookshelfAI API.
//
// This file implements bearer-token authentication. The token identifies
// an account; everything else about identity lives in the identity store.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bookshelfai/bookshelfai/internal/auth"
	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/service"
)

// AuthMiddleware authenticates API requests via bearer tokens.
type AuthMiddleware struct {
	accounts service.AccountService
	logger   *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(accounts service.AccountService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		accounts: accounts,
		logger:   logger,
	}
}

// RequireAccount rejects requests without a valid bearer token and stores
// the resolved account in the request context.
func (m *AuthMiddleware) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, err := m.accounts.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			m.logger.Info("authentication failed", "path", r.URL.Path, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"code":    domain.EUNAUTHORIZED,
					"message": domain.ErrorMessage(err),
				},
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), account)))
	})
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// Stack composes middleware left to right: the first middleware is the
// outermost.
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
