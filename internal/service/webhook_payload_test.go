package service

import (
	"encoding/json"
	"testing"
)

func parsePayload(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	return m
}

func TestExtractString_StrategyOrder(t *testing.T) {
	// When multiple locations hold an email, the higher-priority one wins.
	payload := parsePayload(t, `{
		"email": "top@example.com",
		"user": {"email": "nested@example.com"}
	}`)

	value, strategy := extractString(payload, emailStrategies)
	if value != "top@example.com" {
		t.Errorf("expected top-level email to win, got %q", value)
	}
	if strategy != "top_level_email" {
		t.Errorf("expected strategy top_level_email, got %q", strategy)
	}
}

func TestExtractString_SkipsEmptyValues(t *testing.T) {
	payload := parsePayload(t, `{
		"email": "   ",
		"user": {"email": "nested@example.com"}
	}`)

	value, strategy := extractString(payload, emailStrategies)
	if value != "nested@example.com" {
		t.Errorf("expected fallback past blank value, got %q", value)
	}
	if strategy != "user_email" {
		t.Errorf("expected strategy user_email, got %q", strategy)
	}
}

func TestExtractString_NoMatch(t *testing.T) {
	payload := parsePayload(t, `{"unrelated": true}`)

	value, strategy := extractString(payload, emailStrategies)
	if value != "" || strategy != "" {
		t.Errorf("expected no match, got %q via %q", value, strategy)
	}
}

func TestLookupPath_KeyFolding(t *testing.T) {
	payload := parsePayload(t, `{"Data": {"productId": "prod_1"}}`)

	v, ok := lookupPath(payload, []string{"data", "product_id"})
	if !ok || v != "prod_1" {
		t.Errorf("expected folded match, got %q ok=%v", v, ok)
	}
}

func TestLookupPath_NonStringLeaf(t *testing.T) {
	// Numeric identifiers are a shape we have not seen; do not coerce.
	payload := parsePayload(t, `{"product_id": 42}`)

	_, ok := lookupPath(payload, []string{"product_id"})
	if ok {
		t.Error("expected non-string leaf to be rejected")
	}
}

func TestIsRelevantEvent(t *testing.T) {
	tests := []struct {
		eventType string
		want      bool
	}{
		{"purchase.approved", true},
		{"PURCHASE.APPROVED", true},
		{"event.purchase.approved.v2", true},
		{"NewSale", true},
		{"new_sale", true},
		{"subscription.activated", true},
		{"subscription.renewed", true},
		{"invoice.payment_succeeded", true},
		{"subscription.cancelled", false},
		{"refund.issued", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			if got := isRelevantEvent(tt.eventType); got != tt.want {
				t.Errorf("isRelevantEvent(%q) = %v, want %v", tt.eventType, got, tt.want)
			}
		})
	}
}
