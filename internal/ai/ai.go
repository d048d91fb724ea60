// Package ai defines the interface to the external text-generation provider.
//
// Providers are black boxes: prompt in, text out. The metering gate and the
// dispatcher live elsewhere; a provider only performs the bounded upstream
// call and classifies its failures.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/domain"
)

// Provider defines the interface for AI text generation.
type Provider interface {
	// Generate produces text for the given action and context. The call
	// is bounded by the provider's configured request timeout and by ctx.
	Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error)
}

// GenerateParams contains parameters for a generation call.
type GenerateParams struct {
	APIKey  string            // Account-supplied provider key
	Action  domain.ActionType // What kind of content to produce
	Context string            // Book/library data or conversation history
}

// GenerateResult contains the provider's output and usage information.
type GenerateResult struct {
	Text         string        // Generated text
	Model        string        // Model that produced it
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	Duration     time.Duration // Upstream call duration
}

// ProviderConfig contains common configuration for providers.
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error values for provider operations.
var (
	// ERateLimit indicates the provider's rate limit has been exceeded.
	ERateLimit = errors.New("ai provider rate limit exceeded")

	// ETimeout indicates the request timed out.
	ETimeout = errors.New("ai request timed out")

	// EUnavailable indicates the provider is temporarily unavailable.
	EUnavailable = errors.New("ai service temporarily unavailable")

	// EUnauthorized indicates the account's API key was rejected.
	EUnauthorized = errors.New("ai provider authentication failed")

	// EBadRequest indicates the provider rejected the request content.
	EBadRequest = errors.New("ai provider rejected the request")
)

// IsRetryable returns true if the error is transient and worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ERateLimit) ||
		errors.Is(err, ETimeout) ||
		errors.Is(err, EUnavailable)
}

// WrapError wraps an error with context about the AI operation.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
