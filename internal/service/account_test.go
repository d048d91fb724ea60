package service

import (
	"context"
	"testing"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/store"
)

// =============================================================================
// Signup Tests
// =============================================================================

func TestSignup_CreatesFreeLedger(t *testing.T) {
	st := store.NewMemory()
	svc := NewAccountService(st, testLogger())

	result, err := svc.Signup(context.Background(), "Reader@Example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Account.Email != "reader@example.com" {
		t.Errorf("email not normalized: %q", result.Account.Email)
	}
	if result.Token == "" {
		t.Fatal("expected a raw token")
	}
	if result.Account.TokenHash == result.Token {
		t.Error("raw token stored as its own hash")
	}
	if result.Ledger.Tier != domain.TierFree {
		t.Errorf("expected free tier, got %s", result.Ledger.Tier)
	}
	if result.Ledger.CreditsRemaining != domain.FreeMonthlyCredits {
		t.Errorf("expected %d credits, got %d", domain.FreeMonthlyCredits, result.Ledger.CreditsRemaining)
	}
	if result.Ledger.Status != domain.LedgerStatusActive {
		t.Errorf("expected active status, got %s", result.Ledger.Status)
	}
	if result.Ledger.ResetDate.IsZero() {
		t.Error("expected a reset date")
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	st := store.NewMemory()
	svc := NewAccountService(st, testLogger())

	if _, err := svc.Signup(context.Background(), "reader@example.com"); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, err := svc.Signup(context.Background(), "READER@example.com")
	if domain.ErrorCode(err) != domain.ECONFLICT {
		t.Fatalf("expected %s, got %v", domain.ECONFLICT, err)
	}
}

func TestSignup_InvalidEmail(t *testing.T) {
	st := store.NewMemory()
	svc := NewAccountService(st, testLogger())

	for _, email := range []string{"", "not-an-email", "@example.com", "user@"} {
		if _, err := svc.Signup(context.Background(), email); domain.ErrorCode(err) != domain.EINVALID {
			t.Errorf("email %q: expected %s, got %v", email, domain.EINVALID, err)
		}
	}
}

// =============================================================================
// Authenticate Tests
// =============================================================================

func TestAuthenticate_RoundTrip(t *testing.T) {
	st := store.NewMemory()
	svc := NewAccountService(st, testLogger())

	result, err := svc.Signup(context.Background(), "reader@example.com")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	account, err := svc.Authenticate(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if account.ID != result.Account.ID {
		t.Error("authenticated as a different account")
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	st := store.NewMemory()
	svc := NewAccountService(st, testLogger())

	for _, token := range []string{"", "bogus-token"} {
		if _, err := svc.Authenticate(context.Background(), token); domain.ErrorCode(err) != domain.EUNAUTHORIZED {
			t.Errorf("token %q: expected %s, got %v", token, domain.EUNAUTHORIZED, err)
		}
	}
}

// =============================================================================
// Shared Secret Comparison Tests
// =============================================================================

func TestConstantTimeTokenEqual(t *testing.T) {
	if !ConstantTimeTokenEqual("secret", "secret") {
		t.Error("equal tokens should match")
	}
	if ConstantTimeTokenEqual("secret", "Secret") {
		t.Error("different tokens should not match")
	}
	// Empty on either side never matches, so an unset server secret can
	// never be satisfied by an empty header.
	if ConstantTimeTokenEqual("", "") {
		t.Error("empty tokens must not match")
	}
	if ConstantTimeTokenEqual("secret", "") {
		t.Error("empty candidate must not match")
	}
}
