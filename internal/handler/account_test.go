package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/service"
	"github.com/bookshelfai/bookshelfai/internal/store"
)

func newAccountFixture(t *testing.T) (*store.Memory, *AccountHandler) {
	t.Helper()
	st := store.NewMemory()
	accounts := service.NewAccountService(st, testLogger())
	return st, NewAccountHandler(accounts, testLogger())
}

func postSignup(h *AccountHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/signup", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Signup(rec, req)
	return rec
}

func TestSignupHandler_Created(t *testing.T) {
	_, h := newAccountFixture(t)

	rec := postSignup(h, `{"email": "reader@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AccountID        string `json:"account_id"`
		Email            string `json:"email"`
		Token            string `json:"token"`
		Tier             string `json:"tier"`
		CreditsRemaining int    `json:"credits_remaining"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected the raw token in the signup response")
	}
	if resp.Tier != string(domain.TierFree) {
		t.Errorf("expected free tier, got %s", resp.Tier)
	}
	if resp.CreditsRemaining != domain.FreeMonthlyCredits {
		t.Errorf("expected %d credits, got %d", domain.FreeMonthlyCredits, resp.CreditsRemaining)
	}
}

func TestSignupHandler_DuplicateEmail409(t *testing.T) {
	_, h := newAccountFixture(t)

	if rec := postSignup(h, `{"email": "reader@example.com"}`); rec.Code != http.StatusCreated {
		t.Fatalf("first signup: expected 201, got %d", rec.Code)
	}
	if rec := postSignup(h, `{"email": "reader@example.com"}`); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", rec.Code)
	}
}

func TestSignupHandler_InvalidEmail400(t *testing.T) {
	_, h := newAccountFixture(t)

	if rec := postSignup(h, `{"email": "not-an-email"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSignupHandler_MalformedBody400(t *testing.T) {
	_, h := newAccountFixture(t)

	if rec := postSignup(h, `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
