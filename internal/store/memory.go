package store

import (
	"context"
	"sync"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/google/uuid"
)

// Memory is an in-memory Store for tests and local development. All
// operations hold a single mutex, which gives the same atomicity the
// Postgres implementation gets from single-statement conditional updates.
type Memory struct {
	mu          sync.Mutex
	accounts    map[uuid.UUID]*domain.Account
	byEmail     map[string]uuid.UUID
	byTokenHash map[string]uuid.UUID
	ledgers     map[uuid.UUID]*domain.LedgerEntry
	webhooks    map[string]*domain.ProcessedWebhook
	credentials map[uuid.UUID]*domain.Credential
	audits      []*domain.GenerationAudit
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts:    make(map[uuid.UUID]*domain.Account),
		byEmail:     make(map[string]uuid.UUID),
		byTokenHash: make(map[string]uuid.UUID),
		ledgers:     make(map[uuid.UUID]*domain.LedgerEntry),
		webhooks:    make(map[string]*domain.ProcessedWebhook),
		credentials: make(map[uuid.UUID]*domain.Credential),
	}
}

func (s *Memory) CreateAccount(ctx context.Context, account *domain.Account, ledger *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[account.Email]; exists {
		return ErrConflict
	}

	a := *account
	l := *ledger
	s.accounts[a.ID] = &a
	s.byEmail[a.Email] = a.ID
	s.byTokenHash[a.TokenHash] = a.ID
	s.ledgers[l.AccountID] = &l
	return nil
}

func (s *Memory) GetAccountByTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byTokenHash[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	a := *s.accounts[id]
	return &a, nil
}

func (s *Memory) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	a := *s.accounts[id]
	return &a, nil
}

func (s *Memory) GetLedger(ctx context.Context, accountID uuid.UUID) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.ledgers[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	e := *entry
	return &e, nil
}

func (s *Memory) DebitCredits(ctx context.Context, accountID uuid.UUID, cost int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.ledgers[accountID]
	if !ok {
		return 0, ErrNotFound
	}
	if entry.CreditsRemaining < cost {
		return 0, ErrInsufficientCredits
	}
	entry.CreditsRemaining -= cost
	entry.UpdatedAt = time.Now().UTC()
	return entry.CreditsRemaining, nil
}

func (s *Memory) SetLedgerGrant(ctx context.Context, accountID uuid.UUID, grant domain.ProductGrant, status domain.LedgerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.ledgers[accountID]
	if !ok {
		return ErrNotFound
	}
	entry.Tier = grant.Tier
	entry.CreditsRemaining = grant.Credits
	entry.MonthlyLimit = grant.Credits
	entry.Status = status
	entry.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Memory) ResetLapsed(ctx context.Context, now, nextReset time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, entry := range s.ledgers {
		if entry.ResetDate.Before(now) {
			entry.CreditsRemaining = entry.MonthlyLimit
			entry.ResetDate = nextReset
			entry.UpdatedAt = time.Now().UTC()
			count++
		}
	}
	return count, nil
}

func (s *Memory) HasProcessedWebhook(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.webhooks[idempotencyKey]
	return ok, nil
}

func (s *Memory) RecordProcessedWebhook(ctx context.Context, rec *domain.ProcessedWebhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.webhooks[rec.IdempotencyKey]; exists {
		return ErrConflict
	}
	r := *rec
	s.webhooks[r.IdempotencyKey] = &r
	return nil
}

func (s *Memory) UpsertCredential(ctx context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cred
	c.Ciphertext = append([]byte(nil), cred.Ciphertext...)
	s.credentials[c.AccountID] = &c
	return nil
}

func (s *Memory) GetCredential(ctx context.Context, accountID uuid.UUID) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.credentials[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *cred
	return &c, nil
}

func (s *Memory) InsertGenerationAudit(ctx context.Context, audit *domain.GenerationAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *audit
	s.audits = append(s.audits, &a)
	return nil
}

// ForceResetDate rewrites an entry's reset date. Test helper.
func (s *Memory) ForceResetDate(accountID uuid.UUID, resetDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.ledgers[accountID]
	if !ok {
		return ErrNotFound
	}
	entry.ResetDate = resetDate
	return nil
}

// AuditCount returns the number of audit records. Test helper.
func (s *Memory) AuditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audits)
}

// WebhookCount returns the number of processed-webhook records. Test helper.
func (s *Memory) WebhookCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.webhooks)
}
