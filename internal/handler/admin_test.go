package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/service"
	"github.com/bookshelfai/bookshelfai/internal/store"
	"github.com/google/uuid"
)

func newAdminFixture(t *testing.T, token string) (*store.Memory, *AdminHandler) {
	t.Helper()
	st := store.NewMemory()
	resets := service.NewResetService(st, testLogger())
	return st, NewAdminHandler(resets, token, testLogger())
}

func postReset(h *AdminHandler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/reset", nil)
	if token != "" {
		req.Header.Set(AdminTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	h.TriggerReset(rec, req)
	return rec
}

func TestAdminReset_RequiresToken(t *testing.T) {
	_, h := newAdminFixture(t, "admin-secret")

	if rec := postReset(h, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", rec.Code)
	}
	if rec := postReset(h, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: expected 401, got %d", rec.Code)
	}
}

func TestAdminReset_DisabledWithoutConfiguredToken(t *testing.T) {
	_, h := newAdminFixture(t, "")

	// Unlike the webhook, an empty admin token disables the endpoint.
	if rec := postReset(h, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 when disabled, got %d", rec.Code)
	}
}

func TestAdminReset_RunsAndReportsCount(t *testing.T) {
	st, h := newAdminFixture(t, "admin-secret")

	// One lapsed entry.
	id := seedAccount(t, st, "lapsed@example.com", domain.TierFree, 0)
	backdate(t, st, id)

	rec := postReset(h, "admin-secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status     string `json:"status"`
		ResetCount int64  `json:"reset_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.ResetCount != 1 {
		t.Errorf("expected reset_count 1, got %d", resp.ResetCount)
	}
}

// backdate forces an entry's reset date into the past.
func backdate(t *testing.T, st *store.Memory, id uuid.UUID) {
	t.Helper()
	entry, err := st.GetLedger(context.Background(), id)
	if err != nil {
		t.Fatalf("get ledger: %v", err)
	}
	if err := st.ForceResetDate(id, entry.ResetDate.AddDate(0, -2, 0)); err != nil {
		t.Fatalf("force reset date: %v", err)
	}
}
