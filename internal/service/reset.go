// Package service contains the business logic layer.
//
// This file implements the monthly reset: lapsed ledger entries are
// restored to their plan limit and advanced to the next window.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/metrics"
	"github.com/bookshelfai/bookshelfai/internal/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ResetService restores lapsed credit ledgers.
type ResetService interface {
	// RunReset restores credits_remaining to monthly_limit for every
	// entry whose reset_date is before now, and advances reset_date to
	// the first day of the month after now. Tier is never touched.
	// Idempotent within a window: once advanced, an entry selects
	// nothing until it lapses again. Returns the number of entries reset.
	RunReset(ctx context.Context, now time.Time) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type resetService struct {
	store  store.Store
	logger *slog.Logger
}

// NewResetService creates a new ResetService.
func NewResetService(st store.Store, logger *slog.Logger) ResetService {
	return &resetService{
		store:  st,
		logger: logger,
	}
}

func (s *resetService) RunReset(ctx context.Context, now time.Time) (int64, error) {
	const op = "reset.run"

	now = now.UTC()
	next := domain.NextResetDate(now)

	count, err := s.store.ResetLapsed(ctx, now, next)
	if err != nil {
		metrics.ResetRunsTotal.WithLabelValues("error").Inc()
		return 0, domain.Internal(err, op, "failed to reset lapsed ledgers")
	}

	metrics.ResetRunsTotal.WithLabelValues("ok").Inc()
	metrics.LedgerResetsTotal.Add(float64(count))

	if count > 0 {
		s.logger.Info("monthly credit reset applied", "count", count, "next_reset", next)
	} else {
		s.logger.Debug("monthly credit reset: nothing lapsed", "now", now)
	}
	return count, nil
}
