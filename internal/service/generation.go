// Package service contains the business logic layer.
//
// This file implements the generation dispatcher: pre-check the balance,
// resolve the account's provider key, call the provider, and commit the
// debit server-side in the same request so no client round trip can skip it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/ai"
	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/metrics"
	"github.com/bookshelfai/bookshelfai/internal/store"
	"github.com/google/uuid"
)

// MaxContextBytes bounds the caller-supplied context to keep prompts sane.
const MaxContextBytes = 64 * 1024

// GenerationOutput is the result of a successful generation.
type GenerationOutput struct {
	Text             string
	RemainingCredits int
	Unlimited        bool
}

// =============================================================================
// Interface Definition
// =============================================================================

// GenerationService dispatches AI generation requests through the metering
// gate.
type GenerationService interface {
	// Generate runs the full pipeline for one request. No debit is ever
	// applied for a failed provider call.
	Generate(ctx context.Context, accountID uuid.UUID, action domain.ActionType, contextText string) (*GenerationOutput, error)
}

// =============================================================================
// Implementation
// =============================================================================

type generationService struct {
	store       store.Store
	ledger      LedgerService
	credentials CredentialService
	provider    ai.Provider
	logger      *slog.Logger
}

// NewGenerationService creates a new GenerationService.
func NewGenerationService(
	st store.Store,
	ledger LedgerService,
	credentials CredentialService,
	provider ai.Provider,
	logger *slog.Logger,
) GenerationService {
	return &generationService{
		store:       st,
		ledger:      ledger,
		credentials: credentials,
		provider:    provider,
		logger:      logger,
	}
}

func (s *generationService) Generate(ctx context.Context, accountID uuid.UUID, action domain.ActionType, contextText string) (*GenerationOutput, error) {
	const op = "generation.generate"

	contextText = strings.TrimSpace(contextText)
	if contextText == "" {
		return nil, domain.Invalid(op, "context is required")
	}
	if len(contextText) > MaxContextBytes {
		return nil, domain.Invalid(op, "context too large")
	}

	// 1. Pre-check: fail fast before spending anything upstream.
	if _, err := s.ledger.CheckBalance(ctx, accountID, action); err != nil {
		s.audit(accountID, action, domain.GenerationStatusDenied, 0)
		metrics.GenerationsTotal.WithLabelValues(string(action), string(domain.GenerationStatusDenied)).Inc()
		return nil, err
	}

	// 2. Resolve the account's provider key.
	apiKey, err := s.credentials.ResolveKey(ctx, accountID)
	if err != nil {
		s.audit(accountID, action, domain.GenerationStatusFailed, 0)
		metrics.GenerationsTotal.WithLabelValues(string(action), string(domain.GenerationStatusFailed)).Inc()
		return nil, err
	}

	// 3. Call the provider. Failures debit nothing. The call and the
	// commit below run detached from the request context: once the
	// provider call is in flight its completion is authoritative, and a
	// client that disconnects mid-generation still gets debited. The
	// provider's own request timeout bounds the detached call.
	ctx = context.WithoutCancel(ctx)
	result, err := s.provider.Generate(ctx, ai.GenerateParams{
		APIKey:  apiKey,
		Action:  action,
		Context: contextText,
	})
	if err != nil {
		s.audit(accountID, action, domain.GenerationStatusFailed, 0)
		metrics.GenerationsTotal.WithLabelValues(string(action), string(domain.GenerationStatusFailed)).Inc()
		return nil, s.mapProviderError(op, err)
	}

	metrics.AITokensTotal.WithLabelValues("input").Add(float64(result.InputTokens))
	metrics.AITokensTotal.WithLabelValues("output").Add(float64(result.OutputTokens))

	// 4. Commit the debit. The provider's cost is already spent, so a
	// lost race (balance exhausted by a concurrent request between the
	// pre-check and here) favors the user: the output is still returned
	// and the inconsistency is logged and counted.
	cost := domain.CostOf(action)
	remaining, unlimited, err := s.ledger.CommitDebit(ctx, accountID, action)
	if err != nil {
		if domain.ErrorCode(err) == domain.ELIMITREACHED {
			s.logger.Warn("debit commit lost balance race; delivering output without debit",
				"account_id", accountID,
				"action", action,
				"cost", cost,
			)
			metrics.DebitCommitConflicts.Inc()
			remaining, unlimited, cost = 0, false, 0
		} else {
			s.audit(accountID, action, domain.GenerationStatusFailed, 0)
			metrics.GenerationsTotal.WithLabelValues(string(action), string(domain.GenerationStatusFailed)).Inc()
			return nil, err
		}
	}
	if !unlimited && cost > 0 {
		metrics.CreditsDebitedTotal.Add(float64(cost))
	}

	s.audit(accountID, action, domain.GenerationStatusSucceeded, cost)
	metrics.GenerationsTotal.WithLabelValues(string(action), string(domain.GenerationStatusSucceeded)).Inc()

	s.logger.Info("generation completed",
		"account_id", accountID,
		"action", action,
		"model", result.Model,
		"duration_ms", result.Duration.Milliseconds(),
		"remaining", remaining,
	)

	return &GenerationOutput{
		Text:             result.Text,
		RemainingCredits: remaining,
		Unlimited:        unlimited,
	}, nil
}

// mapProviderError translates provider failures into the client-facing
// taxonomy, carrying the upstream message where it is safe to show.
func (s *generationService) mapProviderError(op string, err error) error {
	switch {
	case errors.Is(err, ai.EUnauthorized):
		return domain.ProviderError(err, op, "AI provider rejected the configured API key")
	case errors.Is(err, ai.ERateLimit):
		return domain.ProviderError(err, op, "AI provider rate limit exceeded, try again shortly")
	case errors.Is(err, ai.ETimeout):
		return domain.ProviderError(err, op, "AI provider request timed out")
	case errors.Is(err, ai.EBadRequest):
		return domain.ProviderError(err, op, err.Error())
	default:
		return domain.ProviderError(err, op, "AI provider request failed")
	}
}

// audit appends a usage-analytics record. Best-effort: failures are logged
// and never fail the request, and the insert runs on a detached context so
// a canceled client request cannot abort it.
func (s *generationService) audit(accountID uuid.UUID, action domain.ActionType, status domain.GenerationStatus, cost int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := &domain.GenerationAudit{
		ID:        uuid.New(),
		AccountID: accountID,
		Action:    action,
		Status:    status,
		Cost:      cost,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertGenerationAudit(ctx, rec); err != nil {
		s.logger.Warn("audit insert failed", "account_id", accountID, "action", action, "error", err)
	}
}
