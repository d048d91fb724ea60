// Package domain contains core business types and interfaces.
//
// This file defines payment webhook types: the processed-webhook dedup
// record and the static product mapping loaded at startup.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProcessedWebhook is one row of the append-only dedup log. A given
// idempotency key is recorded at most once; a second delivery with the same
// key is acknowledged without reapplying effects.
type ProcessedWebhook struct {
	IdempotencyKey string
	EventType      string
	CustomerEmail  string
	ProductID      string
	TierGranted    Tier
	ProcessedAt    time.Time
}

// ProductGrant is what purchasing a product confers: a tier and an absolute
// credit balance. Webhook application sets the ledger to these values, it
// does not add to the existing balance.
type ProductGrant struct {
	Tier    Tier
	Credits int
}

// ProductMapping translates the payment provider's product/offer IDs into
// grants. It is static configuration loaded at process start; unknown
// products are acknowledged but never mutate a ledger.
type ProductMapping map[string]ProductGrant

// Lookup returns the grant for a product ID.
func (m ProductMapping) Lookup(productID string) (ProductGrant, bool) {
	grant, ok := m[productID]
	return grant, ok
}

// ParseProductMapping parses the PRODUCT_MAPPING configuration value, a
// JSON object of the form:
//
//	{"prod_abc": {"tier": "premium", "credits": 500}}
//
// A zero credits value defaults to the tier's monthly limit, so most
// entries only need the tier.
func ParseProductMapping(raw []byte) (ProductMapping, error) {
	var parsed map[string]struct {
		Tier    string `json:"tier"`
		Credits int    `json:"credits"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid product mapping JSON: %w", err)
	}

	mapping := make(ProductMapping, len(parsed))
	for productID, entry := range parsed {
		tier := Tier(entry.Tier)
		if !tier.Valid() {
			return nil, fmt.Errorf("product %q: unknown tier %q", productID, entry.Tier)
		}
		credits := entry.Credits
		if credits <= 0 {
			credits = MonthlyLimitFor(tier)
		}
		mapping[productID] = ProductGrant{Tier: tier, Credits: credits}
	}
	return mapping, nil
}

// WebhookOutcome describes how an incoming webhook was resolved. Every
// outcome except the error ones is acknowledged with a 200 so the provider
// stops retrying.
type WebhookOutcome string

const (
	WebhookOutcomeApplied        WebhookOutcome = "applied"
	WebhookOutcomeDuplicate      WebhookOutcome = "duplicate"
	WebhookOutcomeIrrelevant     WebhookOutcome = "event_not_relevant"
	WebhookOutcomeUnknownProduct WebhookOutcome = "unknown_product"
	WebhookOutcomeUserNotFound   WebhookOutcome = "manual_upgrade_needed"
)

// WebhookResult summarizes a handled webhook for the response body and logs.
type WebhookResult struct {
	Outcome   WebhookOutcome
	AccountID uuid.UUID // zero when no account was resolved
	Email     string
	ProductID string
	Granted   *ProductGrant // nil unless a grant was mapped
}
