// Package auth provides request-context helpers for the authenticated
// account. It exists so handlers and middleware can share the context key
// without importing each other.
package auth

import (
	"context"

	"github.com/bookshelfai/bookshelfai/internal/domain"
)

type contextKey string

// accountContextKey is the context key under which the authenticated
// account is stored.
const accountContextKey contextKey = "account"

// WithAccount returns a context carrying the authenticated account.
func WithAccount(ctx context.Context, account *domain.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// GetAccount returns the authenticated account from the context, or nil.
func GetAccount(ctx context.Context) *domain.Account {
	account, _ := ctx.Value(accountContextKey).(*domain.Account)
	return account
}
