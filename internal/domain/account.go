// Package domain contains core business types and interfaces.
//
// This file defines the Account type. Accounts are owned by the identity
// store; this core references them by ID and joins payment events to them
// by normalized email.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account represents a subscriber. The email is the join key from payment
// webhook events and is stored lowercase-normalized.
type Account struct {
	ID        uuid.UUID
	Email     string
	TokenHash string // SHA-256 hash of the API token, never the raw token
	CreatedAt time.Time
}

// NormalizeEmail lowercases and trims an email address so lookups from
// webhook payloads and signups agree on a single form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignupResult contains the result of provisioning a new account.
type SignupResult struct {
	Account *Account
	Ledger  *LedgerEntry
	Token   string // Raw API token, only returned once at signup
}
