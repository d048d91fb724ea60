// Package store provides persistence for accounts, credit ledgers, webhook
// dedup records, credentials, and the generation audit log.
//
// This package defines a Store interface with implementations for:
// - Postgres: production storage on database/sql with the pgx driver
// - Memory: mutex-guarded in-memory storage for tests and local development
//
// The ledger operations are the only ones with concurrency discipline: the
// debit is a single conditional update so two concurrent requests can never
// overdraw a balance, and the processed-webhook insert relies on a unique
// key so overlapping deliveries collapse to one record.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/google/uuid"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict indicates a uniqueness violation (duplicate email,
	// duplicate idempotency key).
	ErrConflict = errors.New("store: conflict")

	// ErrInsufficientCredits indicates a conditional debit found the
	// balance below the requested cost and applied nothing.
	ErrInsufficientCredits = errors.New("store: insufficient credits")
)

// Store defines the persistence operations used by the services.
type Store interface {
	// CreateAccount inserts an account together with its ledger entry.
	// The two inserts are atomic: an account never exists without a
	// ledger entry. Returns ErrConflict if the email is taken.
	CreateAccount(ctx context.Context, account *domain.Account, ledger *domain.LedgerEntry) error

	// GetAccountByTokenHash resolves an account from a hashed API token.
	GetAccountByTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error)

	// GetAccountByEmail resolves an account by normalized email.
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)

	// GetLedger returns the ledger entry for an account.
	GetLedger(ctx context.Context, accountID uuid.UUID) (*domain.LedgerEntry, error)

	// DebitCredits atomically decrements the balance by cost, guarded by
	// a credits_remaining >= cost predicate. Returns the new balance, or
	// ErrInsufficientCredits if the predicate failed (no mutation), or
	// ErrNotFound if the account has no ledger entry.
	DebitCredits(ctx context.Context, accountID uuid.UUID, cost int) (int, error)

	// SetLedgerGrant applies a webhook grant as an absolute set of tier,
	// balance, monthly limit, and status. Re-applying the same grant is a
	// no-op by value.
	SetLedgerGrant(ctx context.Context, accountID uuid.UUID, grant domain.ProductGrant, status domain.LedgerStatus) error

	// ResetLapsed restores credits_remaining to monthly_limit and
	// advances reset_date to nextReset for every entry whose reset_date
	// is before now. Returns the number of entries reset.
	ResetLapsed(ctx context.Context, now, nextReset time.Time) (int64, error)

	// HasProcessedWebhook reports whether an idempotency key was already
	// recorded.
	HasProcessedWebhook(ctx context.Context, idempotencyKey string) (bool, error)

	// RecordProcessedWebhook appends a dedup record. A duplicate key is
	// treated as already processed and returns ErrConflict.
	RecordProcessedWebhook(ctx context.Context, rec *domain.ProcessedWebhook) error

	// UpsertCredential stores an encrypted provider credential, replacing
	// any prior value for the account.
	UpsertCredential(ctx context.Context, cred *domain.Credential) error

	// GetCredential returns the stored credential for an account, or
	// ErrNotFound if none is configured.
	GetCredential(ctx context.Context, accountID uuid.UUID) (*domain.Credential, error)

	// InsertGenerationAudit appends a usage-analytics record.
	InsertGenerationAudit(ctx context.Context, audit *domain.GenerationAudit) error
}
