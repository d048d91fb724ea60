// Package domain contains core business types and interfaces.
//
// This file defines the stored AI-provider credential. The raw key is held
// only as an encrypted blob; after the initial save the API exposes nothing
// but a masked preview.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Credential is an account's externally-supplied AI provider API key,
// encrypted at rest. One credential per account (upsert semantics).
type Credential struct {
	AccountID  uuid.UUID
	Provider   string // e.g. "openai"
	Ciphertext []byte // nonce || AES-GCM ciphertext, self-contained
	MaskedKey  string // precomputed preview, e.g. "sk-...GHJK"
	UpdatedAt  time.Time
}

// CredentialView is what settings endpoints return. The raw key never
// round-trips.
type CredentialView struct {
	Provider  string
	HasKey    bool
	MaskedKey string
}

// MaskKey returns a preview of a raw key showing the first 3 and last 4
// characters. Short keys are fully redacted rather than leaked.
func MaskKey(raw string) string {
	if len(raw) <= 8 {
		return "****"
	}
	return raw[:3] + "..." + raw[len(raw)-4:]
}
