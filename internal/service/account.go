// Package service contains the business logic layer.
//
// This file implements account provisioning and API-token authentication.
// Signup is the only path that creates a ledger entry; the metering gate
// never creates one implicitly.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/mail"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/store"
	"github.com/google/uuid"
)

// tokenBytes is the number of random bytes in an API token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const tokenBytes = 32

// =============================================================================
// Interface Definition
// =============================================================================

// AccountService provisions accounts and authenticates API tokens.
type AccountService interface {
	// Signup creates an account with a free-tier ledger entry and
	// returns the raw API token once. Returns a conflict error if the
	// email is already registered.
	Signup(ctx context.Context, email string) (*domain.SignupResult, error)

	// Authenticate resolves an account from a raw bearer token.
	Authenticate(ctx context.Context, rawToken string) (*domain.Account, error)
}

// =============================================================================
// Implementation
// =============================================================================

type accountService struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(st store.Store, logger *slog.Logger) AccountService {
	return &accountService{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

func (s *accountService) Signup(ctx context.Context, email string) (*domain.SignupResult, error) {
	const op = "account.signup"

	email = domain.NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.Invalid(op, "invalid email address")
	}

	rawToken, tokenHash, err := newAPIToken()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate API token")
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:        uuid.New(),
		Email:     email,
		TokenHash: tokenHash,
		CreatedAt: now,
	}
	ledger := &domain.LedgerEntry{
		AccountID:        account.ID,
		Tier:             domain.TierFree,
		Status:           domain.LedgerStatusActive,
		CreditsRemaining: domain.FreeMonthlyCredits,
		MonthlyLimit:     domain.FreeMonthlyCredits,
		ResetDate:        domain.NextResetDate(now),
	}

	if err := s.store.CreateAccount(ctx, account, ledger); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domain.Conflict(op, "email already registered")
		}
		return nil, domain.Internal(err, op, "failed to create account")
	}

	s.logger.Info("account created", "account_id", account.ID, "email", email)
	return &domain.SignupResult{
		Account: account,
		Ledger:  ledger,
		Token:   rawToken,
	}, nil
}

func (s *accountService) Authenticate(ctx context.Context, rawToken string) (*domain.Account, error) {
	const op = "account.authenticate"

	if rawToken == "" {
		return nil, domain.Unauthorized(op, "missing bearer token")
	}

	account, err := s.store.GetAccountByTokenHash(ctx, hashToken(rawToken))
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.Unauthorized(op, "invalid bearer token")
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to resolve token")
	}
	return account, nil
}

// newAPIToken generates a raw token and its storage hash. Only the hash
// is persisted; the raw token is shown once at signup.
func newAPIToken() (raw, hash string, err error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, hashToken(raw), nil
}

// hashToken returns the SHA-256 hex digest used for token storage and lookup.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeTokenEqual compares two tokens without leaking timing.
// Used for the fixed admin and webhook shared secrets.
func ConstantTimeTokenEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
