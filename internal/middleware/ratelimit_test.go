package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/auth"
	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/google/uuid"
)

// =============================================================================
// RateLimiter Tests
// =============================================================================

func TestNewRateLimiter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	rl := NewRateLimiter(5, time.Minute, logger)

	if rl == nil {
		t.Fatal("expected rate limiter to be created")
	}
	if rl.maxAttempts != 5 {
		t.Errorf("expected maxAttempts=5, got %d", rl.maxAttempts)
	}
	if rl.window != time.Minute {
		t.Errorf("expected window=1m, got %v", rl.window)
	}
}

func TestRateLimiter_Allow_UnderLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	rl := NewRateLimiter(5, time.Minute, logger)

	// Should allow 5 requests
	for i := 0; i < 5; i++ {
		if !rl.Allow("account-1") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiter_Allow_AtLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	rl := NewRateLimiter(5, time.Minute, logger)

	// Use up all 5 attempts
	for i := 0; i < 5; i++ {
		rl.Allow("account-1")
	}

	// 6th request should be denied
	if rl.Allow("account-1") {
		t.Error("6th request should be denied")
	}
}

func TestRateLimiter_Allow_DifferentKeys(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	rl := NewRateLimiter(2, time.Minute, logger)

	// Account 1 uses its limit
	rl.Allow("account-1")
	rl.Allow("account-1")
	if rl.Allow("account-1") {
		t.Error("account 1 should be rate limited")
	}

	// Account 2 should still have its own limit
	if !rl.Allow("account-2") {
		t.Error("account 2 should not be rate limited")
	}
	if !rl.Allow("account-2") {
		t.Error("account 2 should still not be rate limited")
	}
	if rl.Allow("account-2") {
		t.Error("account 2 should now be rate limited")
	}
}

func TestRateLimiter_Allow_WindowExpiry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	// Use a very short window for testing
	rl := NewRateLimiter(2, 50*time.Millisecond, logger)

	// Use up the limit
	rl.Allow("account-1")
	rl.Allow("account-1")
	if rl.Allow("account-1") {
		t.Error("should be rate limited")
	}

	// Wait for window to expire
	time.Sleep(60 * time.Millisecond)

	// Should be allowed again
	if !rl.Allow("account-1") {
		t.Error("should be allowed after window expires")
	}
}

// =============================================================================
// Middleware Tests
// =============================================================================

func TestRateLimiterHandler_KeysByAccount(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	rl := NewRateLimiter(2, time.Minute, logger)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := rl.Handler(next)

	accountA := &domain.Account{ID: uuid.New()}
	accountB := &domain.Account{ID: uuid.New()}

	do := func(account *domain.Account) int {
		req := httptest.NewRequest("POST", "/api/generate", nil)
		req.RemoteAddr = "192.168.1.1:12345" // same IP for both accounts
		req = req.WithContext(auth.WithAccount(req.Context(), account))
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		return rec.Code
	}

	// Account A exhausts its limit
	do(accountA)
	do(accountA)
	if code := do(accountA); code != http.StatusTooManyRequests {
		t.Errorf("account A: expected 429, got %d", code)
	}

	// Account B on the same IP is unaffected
	if code := do(accountB); code != http.StatusOK {
		t.Errorf("account B: expected 200, got %d", code)
	}
}

func TestRateLimiterHandler_FallsBackToIP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	rl := NewRateLimiter(1, time.Minute, logger)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := rl.Handler(next)

	do := func(addr string) int {
		req := httptest.NewRequest("POST", "/api/generate", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("192.168.1.1:1000"); code != http.StatusOK {
		t.Errorf("first request: expected 200, got %d", code)
	}
	if code := do("192.168.1.1:2000"); code != http.StatusTooManyRequests {
		t.Errorf("second request same IP: expected 429, got %d", code)
	}
	if code := do("192.168.1.2:1000"); code != http.StatusOK {
		t.Errorf("other IP: expected 200, got %d", code)
	}
}
