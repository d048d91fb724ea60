// Package service contains the business logic layer.
//
// This file implements the credential store: account-supplied AI provider
// keys, encrypted at rest, exposed only as masked previews after save.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bookshelfai/bookshelfai/internal/domain"
	"github.com/bookshelfai/bookshelfai/internal/secretbox"
	"github.com/bookshelfai/bookshelfai/internal/store"
	"github.com/google/uuid"
)

// SupportedProviders lists the AI providers an account may configure.
var SupportedProviders = map[string]bool{
	"openai": true,
}

// =============================================================================
// Interface Definition
// =============================================================================

// CredentialService manages account-supplied provider API keys.
type CredentialService interface {
	// SaveCredential encrypts and stores a raw provider key, replacing
	// any prior value for the account.
	SaveCredential(ctx context.Context, accountID uuid.UUID, provider, rawKey string) error

	// GetSettings returns the masked view of the account's credential.
	// HasKey is false when none is configured; the raw key is never
	// returned.
	GetSettings(ctx context.Context, accountID uuid.UUID) (*domain.CredentialView, error)

	// ResolveKey decrypts the stored key for use in a provider call.
	// Returns a missing_ai_settings error when none is configured.
	ResolveKey(ctx context.Context, accountID uuid.UUID) (string, error)
}

// =============================================================================
// Implementation
// =============================================================================

type credentialService struct {
	store  store.Store
	box    *secretbox.Box
	logger *slog.Logger
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(st store.Store, box *secretbox.Box, logger *slog.Logger) CredentialService {
	return &credentialService{
		store:  st,
		box:    box,
		logger: logger,
	}
}

func (s *credentialService) SaveCredential(ctx context.Context, accountID uuid.UUID, provider, rawKey string) error {
	const op = "settings.save_credential"

	provider = strings.ToLower(strings.TrimSpace(provider))
	if !SupportedProviders[provider] {
		return domain.Invalid(op, "unsupported provider: "+provider)
	}

	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return domain.Invalid(op, "API key is required")
	}

	ciphertext, err := s.box.Seal([]byte(rawKey))
	if err != nil {
		return domain.Internal(err, op, "failed to encrypt credential")
	}

	cred := &domain.Credential{
		AccountID:  accountID,
		Provider:   provider,
		Ciphertext: ciphertext,
		MaskedKey:  domain.MaskKey(rawKey),
	}
	if err := s.store.UpsertCredential(ctx, cred); err != nil {
		return domain.Internal(err, op, "failed to store credential")
	}

	s.logger.Info("credential saved", "account_id", accountID, "provider", provider)
	return nil
}

func (s *credentialService) GetSettings(ctx context.Context, accountID uuid.UUID) (*domain.CredentialView, error) {
	const op = "settings.get"

	cred, err := s.store.GetCredential(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return &domain.CredentialView{HasKey: false}, nil
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load credential")
	}

	return &domain.CredentialView{
		Provider:  cred.Provider,
		HasKey:    true,
		MaskedKey: cred.MaskedKey,
	}, nil
}

func (s *credentialService) ResolveKey(ctx context.Context, accountID uuid.UUID) (string, error) {
	const op = "settings.resolve_key"

	cred, err := s.store.GetCredential(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return "", domain.MissingCredential(op)
	}
	if err != nil {
		return "", domain.Internal(err, op, "failed to load credential")
	}

	plaintext, err := s.box.Open(cred.Ciphertext)
	if err != nil {
		// A blob that fails authentication means the master secret
		// changed or the row is corrupt; the account must re-save.
		return "", domain.MissingCredential(op)
	}
	return string(plaintext), nil
}
