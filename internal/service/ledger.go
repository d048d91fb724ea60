// Package service contains the business logic layer.
//
// This file implements the usage metering gate: the read-only balance
// pre-check and the atomic debit commit that wrap every AI generation.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/store"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// LedgerService defines the metering gate operations.
type LedgerService interface {
	// GetUsage returns the account's ledger entry.
	// Returns a usage_not_initialized error if none exists.
	GetUsage(ctx context.Context, accountID uuid.UUID) (*domain.LedgerEntry, error)

	// CheckBalance is the read-only pre-check: is there enough balance to
	// attempt this action? Returns the action's cost on success, or a
	// monthly_limit_reached error without mutating anything.
	CheckBalance(ctx context.Context, accountID uuid.UUID, action domain.ActionType) (int, error)

	// CommitDebit atomically decrements the balance by the action's cost.
	// Unlimited tiers commit nothing and report their sentinel balance.
	// The conditional update re-verifies the balance at commit time, so a
	// concurrent debit that exhausted it surfaces as monthly_limit_reached
	// with no mutation.
	CommitDebit(ctx context.Context, accountID uuid.UUID, action domain.ActionType) (remaining int, unlimited bool, err error)
}

// =============================================================================
// Implementation
// =============================================================================

type ledgerService struct {
	store  store.Store
	logger *slog.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(st store.Store, logger *slog.Logger) LedgerService {
	return &ledgerService{
		store:  st,
		logger: logger,
	}
}

func (s *ledgerService) GetUsage(ctx context.Context, accountID uuid.UUID) (*domain.LedgerEntry, error) {
	const op = "ledger.get_usage"

	entry, err := s.store.GetLedger(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.UsageNotInitialized(op, accountID.String())
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load ledger entry")
	}
	return entry, nil
}

func (s *ledgerService) CheckBalance(ctx context.Context, accountID uuid.UUID, action domain.ActionType) (int, error) {
	const op = "ledger.check_balance"

	if !action.Valid() {
		return 0, domain.Invalid(op, "unknown action type: "+string(action))
	}

	entry, err := s.GetUsage(ctx, accountID)
	if err != nil {
		return 0, err
	}

	cost := domain.CostOf(action)
	if !entry.CanAfford(cost) {
		s.logger.Info("generation denied: monthly limit reached",
			"account_id", accountID,
			"tier", entry.Tier,
			"remaining", entry.CreditsRemaining,
			"cost", cost,
		)
		return 0, domain.LimitReached(op, entry.CreditsRemaining, cost)
	}
	return cost, nil
}

func (s *ledgerService) CommitDebit(ctx context.Context, accountID uuid.UUID, action domain.ActionType) (int, bool, error) {
	const op = "ledger.commit_debit"

	entry, err := s.GetUsage(ctx, accountID)
	if err != nil {
		return 0, false, err
	}

	// Unlimited tiers are never decremented.
	if entry.Unlimited() {
		return entry.CreditsRemaining, true, nil
	}

	cost := domain.CostOf(action)
	remaining, err := s.store.DebitCredits(ctx, accountID, cost)
	if errors.Is(err, store.ErrInsufficientCredits) {
		return 0, false, domain.LimitReached(op, entry.CreditsRemaining, cost)
	}
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, domain.UsageNotInitialized(op, accountID.String())
	}
	if err != nil {
		return 0, false, domain.Internal(err, op, "failed to debit credits")
	}

	s.logger.Debug("credits debited",
		"account_id", accountID,
		"action", action,
		"cost", cost,
		"remaining", remaining,
	)
	return remaining, false, nil
}
