// Package service contains the business logic layer.
//
// This file implements payload extraction for payment webhooks. The
// provider's payload shape is not strictly versioned, so each field is
// located by an ordered list of named strategies tried in sequence; the
// matching strategy's name is logged to detect schema drift early.
package service

import (
	"strings"
)

// extractStrategy names one place a field may live in the payload.
type extractStrategy struct {
	name string
	path []string
}

// emailStrategies lists where the customer email has been observed, in
// priority order.
var emailStrategies = []extractStrategy{
	{"top_level_email", []string{"email"}},
	{"top_level_customer_email", []string{"customer_email"}},
	{"user_email", []string{"user", "email"}},
	{"customer_email", []string{"customer", "email"}},
	{"buyer_email", []string{"buyer", "email"}},
	{"purchaser_email", []string{"purchaser", "email"}},
	{"event_user_email", []string{"event", "user", "email"}},
	{"event_customer_email", []string{"event", "customer", "email"}},
	{"data_user_email", []string{"data", "user", "email"}},
	{"data_customer_email", []string{"data", "customer", "email"}},
	{"data_buyer_email", []string{"data", "buyer", "email"}},
}

// productStrategies lists where the purchased product/offer identifier has
// been observed, in priority order.
var productStrategies = []extractStrategy{
	{"top_level_product_id", []string{"product_id"}},
	{"top_level_offer_id", []string{"offer_id"}},
	{"top_level_group_id", []string{"group_id"}},
	{"product_id_field", []string{"product", "id"}},
	{"offer_id_field", []string{"offer", "id"}},
	{"event_product_id", []string{"event", "product", "id"}},
	{"event_group_id", []string{"event", "group_id"}},
	{"data_product_id", []string{"data", "product_id"}},
	{"data_product_id_field", []string{"data", "product", "id"}},
	{"data_offer_id_field", []string{"data", "offer", "id"}},
}

// eventTypeStrategies lists where the event type name has been observed.
var eventTypeStrategies = []extractStrategy{
	{"top_level_type", []string{"type"}},
	{"top_level_event_type", []string{"event_type"}},
	{"top_level_event", []string{"event"}},
	{"data_type", []string{"data", "type"}},
}

// relevantEventTokens is the allow-list of purchase/subscription-activation
// event classes. An incoming event type matches if it equals a token or
// contains it as a substring, case-insensitively. Everything else is
// acknowledged and ignored.
var relevantEventTokens = []string{
	"purchase.approved",
	"purchase.completed",
	"newsale",
	"new_sale",
	"subscription.activated",
	"subscription.renewed",
	"invoice.payment_succeeded",
}

// extractString tries each strategy in order and returns the first
// non-empty trimmed string together with the strategy name that matched.
func extractString(payload map[string]any, strategies []extractStrategy) (value, strategy string) {
	for _, s := range strategies {
		if v, ok := lookupPath(payload, s.path); ok {
			v = strings.TrimSpace(v)
			if v != "" {
				return v, s.name
			}
		}
	}
	return "", ""
}

// lookupPath walks nested maps by key, case-insensitively at each level,
// and returns a string leaf. Non-string scalars are not coerced: the
// provider sends identifiers and emails as strings, and a number here
// means a shape we have not seen.
func lookupPath(m map[string]any, path []string) (string, bool) {
	var current any = m
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = lookupKeyFold(node, key)
		if !ok {
			return "", false
		}
	}
	s, ok := current.(string)
	return s, ok
}

// lookupKeyFold finds a map key ignoring case and underscore/camel
// variants ("product_id" matches "productId").
func lookupKeyFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	want := foldKey(key)
	for k, v := range m {
		if foldKey(k) == want {
			return v, true
		}
	}
	return nil, false
}

func foldKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(k), "_", "")
}

// isRelevantEvent checks the event type against the allow-list.
func isRelevantEvent(eventType string) bool {
	et := strings.ToLower(strings.TrimSpace(eventType))
	if et == "" {
		return false
	}
	for _, token := range relevantEventTokens {
		if et == token || strings.Contains(et, token) {
			return true
		}
	}
	return false
}
