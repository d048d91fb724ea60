package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/store"
)

func testMapping() domain.ProductMapping {
	return domain.ProductMapping{
		"prod_premium":    {Tier: domain.TierPremium, Credits: 500},
		"prod_enterprise": {Tier: domain.TierEnterprise, Credits: domain.UnlimitedCredits},
	}
}

func premiumPurchase(email string) []byte {
	return []byte(fmt.Sprintf(`{
		"type": "purchase.approved",
		"email": %q,
		"product_id": "prod_premium"
	}`, email))
}

// =============================================================================
// Grant Application Tests
// =============================================================================

func TestWebhookProcess_AppliesPremiumGrant(t *testing.T) {
	st := store.NewMemory()
	svc := NewWebhookService(st, testMapping(), testLogger())
	id := seedAccount(t, st, "buyer@example.com", domain.TierFree, 3)

	result, err := svc.Process(context.Background(), RawWebhookEvent{
		IdempotencyKey: "evt_1",
		Body:           premiumPurchase("buyer@example.com"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != domain.WebhookOutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}
	if result.AccountID != id {
		t.Errorf("wrong account resolved")
	}

	entry, _ := st.GetLedger(context.Background(), id)
	if entry.Tier != domain.TierPremium {
		t.Errorf("expected premium tier, got %s", entry.Tier)
	}
	if entry.CreditsRemaining != 500 {
		t.Errorf("expected 500 credits, got %d", entry.CreditsRemaining)
	}
	if entry.MonthlyLimit != 500 {
		t.Errorf("expected monthly limit 500, got %d", entry.MonthlyLimit)
	}
	if entry.Status != domain.LedgerStatusActive {
		t.Errorf("expected active status, got %s", entry.Status)
	}
}

func TestWebhookProcess_EmailMatchIsCaseInsensitive(t *testing.T) {
	st := store.NewMemory()
	svc := NewWebhookService(st, testMapping(), testLogger())
	seedAccount(t, st, "buyer@example.com", domain.TierFree, 3)

	result, err := svc.Process(context.Background(), RawWebhookEvent{
		Body: premiumPurchase("Buyer@Example.COM"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != domain.WebhookOutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}
}

// =============================================================================
// Idempotency Tests
// =============================================================================

// TestWebhookProcess_ReplayIsNoOp replays the same delivery several times
// and verifies exactly one mutation and one dedup record result.
func TestWebhookProcess_ReplayIsNoOp(t *testing.T) {
	st := store.NewMemory()
	svc := NewWebhookService(st, testMapping(), testLogger())
	id := seedAccount(t, st, "buyer@example.com", domain.TierFree, 3)

	event := RawWebhookEvent{
		IdempotencyKey: "evt_replay",
		Body:           premiumPurchase("buyer@example.com"),
	}

	first, err := svc.Process(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Outcome != domain.WebhookOutcomeApplied {
		t.Fatalf("expected applied, got %s", first.Outcome)
	}

	// Burn some credits so a wrongly re-applied grant would be visible.
	if _, err := st.DebitCredits(context.Background(), id, 5); err != nil {
		t.Fatalf("debit: %v", err)
	}

	for i := 0; i < 5; i++ {
		result, err := svc.Process(context.Background(), event)
		if err != nil {
			t.Fatalf("replay %d: unexpected error: %v", i, err)
		}
		if result.Outcome != domain.WebhookOutcomeDuplicate {
			t.Fatalf("replay %d: expected duplicate, got %s", i, result.Outcome)
		}
	}

	entry, _ := st.GetLedger(context.Background(), id)
	if entry.CreditsRemaining != 495 {
		t.Errorf("replay re-applied the grant: %d credits", entry.CreditsRemaining)
	}
	if st.WebhookCount() != 1 {
		t.Errorf("expected 1 dedup record, got %d", st.WebhookCount())
	}
}

func TestWebhookProcess_NoIdempotencyKeyStillIdempotentByValue(t *testing.T) {
	st := store.NewMemory()
	svc := NewWebhookService(st, testMapping(), testLogger())
	id := seedAccount(t, st, "buyer@example.com", domain.TierFree, 3)

	event := RawWebhookEvent{Body: premiumPurchase("buyer@example.com")}

	for i := 0; i < 3; i++ {
		result, err := svc.Process(context.Background(), event)
		if err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
		if result.Outcome != domain.WebhookOutcomeApplied {
			t.Fatalf("delivery %d: expected applied, got %s", i, result.Outcome)
		}
	}

	// The grant is an absolute set, so three applications converge on the
	// same state as one.
	entry, _ := st.GetLedger(context.Background(), id)
	if entry.CreditsRemaining != 500 || entry.Tier != domain.TierPremium {
		t.Errorf("expected premium/500, got %s/%d", entry.Tier, entry.CreditsRemaining)
	}
	if st.WebhookCount() != 0 {
		t.Errorf("expected no dedup records without a key, got %d", st.WebhookCount())
	}
}

// =============================================================================
// No-Op Outcome Tests
// =============================================================================

func TestWebhookProcess_IrrelevantEvent(t *testing.T) {
	st := store.NewMemory()
	svc := NewWebhookService(st, testMapping(), testLogger())
	id := seedAccount(t, st, "buyer@example.com", domain.TierFree, 3)

	result, err := svc.Process(context.Background(), RawWebhookEvent{
		Body: []byte(`{"type": "subscription.cancelled", "email": "buyer@example.com", "product_id": "prod_premium"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != domain.WebhookOutcomeIrrelevant {
		t.Fatalf("expected irrelevant, got %s", result.Outcome)
	}

	entry, _ := st.GetLedger(context.Background(), id)
	if entry.Tier != domain.TierFree {
		t.Errorf("irrelevant event mutated the ledger")
	}
}

func TestWebhookProcess_UnknownProduct(t *testing.T) {
	st := store.NewMemory()
	svc := NewWebhookService(st, testMapping(), testLogger())
	id := seedAccount(t, st, "buyer@example.com", domain.TierFree, 3)

	result, err := svc.Process(context.Background(), RawWebhookEvent{
		Body: []byte(`{"type": "purchase.approved", "email": "buyer@example.com", "product_id": "prod_mystery"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != domain.WebhookOutcomeUnknownProduct {
		t.Fatalf("expected unknown_product, got %s", result.Outcome)
	}
	if result.ProductID != "prod_mystery" {
		t.Errorf("expected product id in result, got %q", result.ProductID)
	}

	entry, _ := st.GetLedger(context.Background(), id)
	if entry.Tier != domain.TierFree || entry.CreditsRemaining != 3 {
		t.Errorf("unknown product mutated the ledger")
	}
}

func TestWebhookProcess_UserNotFound(t *testing.T) {
	st := store.NewMemory()
	svc := NewWebhookService(st, testMapping(), testLogger())

	result, err := svc.Process(context.Background(), RawWebhookEvent{
		Body: premiumPurchase("stranger@example.com"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != domain.WebhookOutcomeUserNotFound {
		t.Fatalf("expected manual_upgrade_needed, got %s", result.Outcome)
	}
	if result.Email != "stranger@example.com" {
		t.Errorf("expected email in result, got %q", result.Email)
	}
	if result.Granted == nil || result.Granted.Tier != domain.TierPremium {
		t.Errorf("expected intended grant in result")
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestWebhookProcess_MalformedPayload(t *testing.T) {
	st := store.NewMemory()
	svc := NewWebhookService(st, testMapping(), testLogger())

	_, err := svc.Process(context.Background(), RawWebhookEvent{Body: []byte(`not json`)})
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("expected %s, got %v", domain.EINVALID, err)
	}
}

func TestWebhookProcess_MissingEmail(t *testing.T) {
	st := store.NewMemory()
	svc := NewWebhookService(st, testMapping(), testLogger())

	_, err := svc.Process(context.Background(), RawWebhookEvent{
		Body: []byte(`{"type": "purchase.approved", "product_id": "prod_premium"}`),
	})
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("expected %s, got %v", domain.EINVALID, err)
	}
}

// =============================================================================
// Payload Shape Tests
// =============================================================================

// TestWebhookProcess_PayloadShapes runs the same purchase through the
// shapes the provider has been observed sending.
func TestWebhookProcess_PayloadShapes(t *testing.T) {
	shapes := []struct {
		name string
		body string
	}{
		{
			name: "flat",
			body: `{"type": "purchase.approved", "email": "buyer@example.com", "product_id": "prod_premium"}`,
		},
		{
			name: "nested user and product",
			body: `{"event_type": "NEWSALE", "user": {"email": "buyer@example.com"}, "product": {"id": "prod_premium"}}`,
		},
		{
			name: "event envelope",
			body: `{"type": "subscription.activated", "event": {"user": {"email": "buyer@example.com"}, "group_id": "prod_premium"}}`,
		},
		{
			name: "data envelope",
			body: `{"type": "invoice.payment_succeeded", "data": {"customer": {"email": "buyer@example.com"}, "product_id": "prod_premium"}}`,
		},
		{
			name: "camel case keys",
			body: `{"type": "purchase.completed", "customerEmail": "buyer@example.com", "productId": "prod_premium"}`,
		},
	}

	for _, tt := range shapes {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory()
			svc := NewWebhookService(st, testMapping(), testLogger())
			id := seedAccount(t, st, "buyer@example.com", domain.TierFree, 3)

			result, err := svc.Process(context.Background(), RawWebhookEvent{Body: []byte(tt.body)})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Outcome != domain.WebhookOutcomeApplied {
				t.Fatalf("expected applied, got %s", result.Outcome)
			}

			entry, _ := st.GetLedger(context.Background(), id)
			if entry.Tier != domain.TierPremium {
				t.Errorf("expected premium tier, got %s", entry.Tier)
			}
		})
	}
}
