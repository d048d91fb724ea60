package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the Postgres error code for unique constraint violations.
const pgUniqueViolation = "23505"

// Postgres implements Store on a database/sql connection pool using the
// pgx stdlib driver.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (s *Postgres) CreateAccount(ctx context.Context, account *domain.Account, ledger *domain.LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (id, email, token_hash, created_at)
		VALUES ($1, $2, $3, $4)`,
		account.ID, account.Email, account.TokenHash, account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (account_id, tier, status, credits_remaining, monthly_limit, reset_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		ledger.AccountID, ledger.Tier, ledger.Status, ledger.CreditsRemaining, ledger.MonthlyLimit, ledger.ResetDate,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Postgres) GetAccountByTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, `
		SELECT id, email, token_hash, created_at
		FROM accounts WHERE token_hash = $1`, tokenHash))
}

func (s *Postgres) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, `
		SELECT id, email, token_hash, created_at
		FROM accounts WHERE email = lower($1)`, email))
}

func (s *Postgres) scanAccount(row *sql.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.TokenHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

func (s *Postgres) GetLedger(ctx context.Context, accountID uuid.UUID) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, tier, status, credits_remaining, monthly_limit, reset_date, updated_at
		FROM ledger_entries WHERE account_id = $1`, accountID,
	).Scan(&e.AccountID, &e.Tier, &e.Status, &e.CreditsRemaining, &e.MonthlyLimit, &e.ResetDate, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	return &e, nil
}

// DebitCredits performs the check-then-decrement as a single statement so
// concurrent debits serialize on the row and the balance can never go
// negative. A zero-row result is disambiguated with a follow-up existence
// check.
func (s *Postgres) DebitCredits(ctx context.Context, accountID uuid.UUID, cost int) (int, error) {
	var remaining int
	err := s.db.QueryRowContext(ctx, `
		UPDATE ledger_entries
		SET credits_remaining = credits_remaining - $2, updated_at = now()
		WHERE account_id = $1 AND credits_remaining >= $2
		RETURNING credits_remaining`,
		accountID, cost,
	).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		if _, lerr := s.GetLedger(ctx, accountID); lerr != nil {
			return 0, lerr
		}
		return 0, ErrInsufficientCredits
	}
	if err != nil {
		return 0, fmt.Errorf("debit credits: %w", err)
	}
	return remaining, nil
}

func (s *Postgres) SetLedgerGrant(ctx context.Context, accountID uuid.UUID, grant domain.ProductGrant, status domain.LedgerStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_entries
		SET tier = $2, credits_remaining = $3, monthly_limit = $4, status = $5, updated_at = now()
		WHERE account_id = $1`,
		accountID, grant.Tier, grant.Credits, grant.Credits, status,
	)
	if err != nil {
		return fmt.Errorf("set ledger grant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ResetLapsed(ctx context.Context, now, nextReset time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_entries
		SET credits_remaining = monthly_limit, reset_date = $2, updated_at = now()
		WHERE reset_date < $1`,
		now, nextReset,
	)
	if err != nil {
		return 0, fmt.Errorf("reset lapsed ledgers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *Postgres) HasProcessedWebhook(ctx context.Context, idempotencyKey string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM processed_webhooks WHERE idempotency_key = $1)`,
		idempotencyKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed webhook: %w", err)
	}
	return exists, nil
}

func (s *Postgres) RecordProcessedWebhook(ctx context.Context, rec *domain.ProcessedWebhook) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_webhooks (idempotency_key, event_type, customer_email, product_id, tier_granted, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		rec.IdempotencyKey, rec.EventType, rec.CustomerEmail, rec.ProductID, rec.TierGranted, rec.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("record processed webhook: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *Postgres) UpsertCredential(ctx context.Context, cred *domain.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (account_id, provider, ciphertext, masked_key, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (account_id) DO UPDATE
		SET provider = EXCLUDED.provider,
		    ciphertext = EXCLUDED.ciphertext,
		    masked_key = EXCLUDED.masked_key,
		    updated_at = now()`,
		cred.AccountID, cred.Provider, cred.Ciphertext, cred.MaskedKey,
	)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (s *Postgres) GetCredential(ctx context.Context, accountID uuid.UUID) (*domain.Credential, error) {
	var c domain.Credential
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, provider, ciphertext, masked_key, updated_at
		FROM credentials WHERE account_id = $1`, accountID,
	).Scan(&c.AccountID, &c.Provider, &c.Ciphertext, &c.MaskedKey, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	return &c, nil
}

func (s *Postgres) InsertGenerationAudit(ctx context.Context, audit *domain.GenerationAudit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_audit (id, account_id, action, status, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		audit.ID, audit.AccountID, audit.Action, audit.Status, audit.Cost, audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert generation audit: %w", err)
	}
	return nil
}
