// Package service contains the business logic layer.
//
// This file implements payment webhook ingestion. The payment provider
// retries on any non-2xx response, so every business outcome that a retry
// cannot fix (duplicates, irrelevant events, unknown products, unresolved
// accounts) is handled as a successful acknowledgment, and the only real
// mutation — the ledger grant — is an absolute set that is idempotent by
// value even when no idempotency key was supplied.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/metrics"
	"github.com/bookshelfai/bookshelfai/internal/store"
)

// RawWebhookEvent is an incoming provider callback after transport-level
// checks (method, shared-secret token) have passed in the handler.
type RawWebhookEvent struct {
	IdempotencyKey string // From the dedup header; may be empty
	Body           []byte
}

// =============================================================================
// Interface Definition
// =============================================================================

// WebhookService processes payment provider callbacks.
type WebhookService interface {
	// Process runs the ingestion pipeline for one delivery. A non-nil
	// result describes a handled event (including no-op outcomes); an
	// error is either a validation failure (4xx) or a persistence
	// failure (5xx, safe for the provider to retry).
	Process(ctx context.Context, event RawWebhookEvent) (*domain.WebhookResult, error)
}

// =============================================================================
// Implementation
// =============================================================================

type webhookService struct {
	store   store.Store
	mapping domain.ProductMapping
	logger  *slog.Logger
}

// NewWebhookService creates a new WebhookService. The product mapping is
// static configuration; it is never mutated after construction.
func NewWebhookService(st store.Store, mapping domain.ProductMapping, logger *slog.Logger) WebhookService {
	return &webhookService{
		store:   st,
		mapping: mapping,
		logger:  logger,
	}
}

func (s *webhookService) Process(ctx context.Context, event RawWebhookEvent) (*domain.WebhookResult, error) {
	const op = "webhook.process"

	// Dedup first: a replayed delivery must be a no-op before any other
	// work happens.
	if event.IdempotencyKey != "" {
		seen, err := s.store.HasProcessedWebhook(ctx, event.IdempotencyKey)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to check idempotency key")
		}
		if seen {
			s.logger.Info("duplicate webhook ignored", "idempotency_key", event.IdempotencyKey)
			metrics.WebhookEventsTotal.WithLabelValues(string(domain.WebhookOutcomeDuplicate)).Inc()
			return &domain.WebhookResult{Outcome: domain.WebhookOutcomeDuplicate}, nil
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(event.Body, &payload); err != nil {
		return nil, domain.Invalid(op, "malformed webhook payload")
	}

	eventType, _ := extractString(payload, eventTypeStrategies)
	if !isRelevantEvent(eventType) {
		s.logger.Debug("irrelevant webhook event", "event_type", eventType)
		metrics.WebhookEventsTotal.WithLabelValues(string(domain.WebhookOutcomeIrrelevant)).Inc()
		return &domain.WebhookResult{Outcome: domain.WebhookOutcomeIrrelevant}, nil
	}

	email, emailStrategy := extractString(payload, emailStrategies)
	if email == "" {
		return nil, domain.Invalid(op, "no customer email found in payload")
	}
	email = domain.NormalizeEmail(email)

	productID, productStrategy := extractString(payload, productStrategies)
	if productID == "" {
		return nil, domain.Invalid(op, "no product identifier found in payload")
	}

	// Which shape matched is the early-warning signal for schema drift.
	s.logger.Info("webhook payload extracted",
		"event_type", eventType,
		"email_strategy", emailStrategy,
		"product_strategy", productStrategy,
		"product_id", productID,
	)

	grant, ok := s.mapping.Lookup(productID)
	if !ok {
		// Unknown product: acknowledge so the provider stops retrying,
		// but mutate nothing. This is a configuration gap needing
		// manual follow-up.
		s.logger.Warn("webhook for unmapped product; manual follow-up required",
			"product_id", productID,
			"email", email,
			"event_type", eventType,
		)
		metrics.WebhookEventsTotal.WithLabelValues(string(domain.WebhookOutcomeUnknownProduct)).Inc()
		return &domain.WebhookResult{
			Outcome:   domain.WebhookOutcomeUnknownProduct,
			Email:     email,
			ProductID: productID,
		}, nil
	}

	account, err := s.store.GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// Retries won't make the account appear; acknowledge with the
		// intended grant so support can apply it manually.
		s.logger.Warn("webhook for unknown account; manual upgrade needed",
			"email", email,
			"product_id", productID,
			"tier", grant.Tier,
			"credits", grant.Credits,
		)
		metrics.WebhookEventsTotal.WithLabelValues(string(domain.WebhookOutcomeUserNotFound)).Inc()
		return &domain.WebhookResult{
			Outcome:   domain.WebhookOutcomeUserNotFound,
			Email:     email,
			ProductID: productID,
			Granted:   &grant,
		}, nil
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to resolve account")
	}

	// The grant is an absolute set, not an additive one: re-applying the
	// same event re-asserts the same state. A failure here returns 500
	// and the provider retries safely.
	if err := s.store.SetLedgerGrant(ctx, account.ID, grant, domain.LedgerStatusActive); err != nil {
		return nil, domain.Internal(err, op, "failed to apply ledger grant")
	}

	// Record the dedup key best-effort: the grant already landed, so a
	// logging failure must not turn this delivery into a 500.
	if event.IdempotencyKey != "" {
		rec := &domain.ProcessedWebhook{
			IdempotencyKey: event.IdempotencyKey,
			EventType:      eventType,
			CustomerEmail:  email,
			ProductID:      productID,
			TierGranted:    grant.Tier,
			ProcessedAt:    time.Now().UTC(),
		}
		if err := s.store.RecordProcessedWebhook(ctx, rec); err != nil && !errors.Is(err, store.ErrConflict) {
			s.logger.Warn("failed to record processed webhook",
				"idempotency_key", event.IdempotencyKey,
				"error", err,
			)
		}
	}

	s.logger.Info("webhook grant applied",
		"account_id", account.ID,
		"email", email,
		"tier", grant.Tier,
		"credits", grant.Credits,
	)
	metrics.WebhookEventsTotal.WithLabelValues(string(domain.WebhookOutcomeApplied)).Inc()

	return &domain.WebhookResult{
		Outcome:   domain.WebhookOutcomeApplied,
		AccountID: account.ID,
		Email:     email,
		ProductID: productID,
		Granted:   &grant,
	}, nil
}
