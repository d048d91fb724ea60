// Package mock provides a configurable ai.Provider double for tests and
// local development.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/ai"
)

// Provider is a mock AI provider.
type Provider struct {
	mu sync.Mutex

	// Configurable behavior for tests
	GenerateResponse *ai.GenerateResult
	GenerateError    error

	// Call tracking
	GenerateCalls int
	LastParams    ai.GenerateParams
}

// New creates a new mock provider.
func New() *Provider {
	return &Provider{}
}

// Generate returns the configured response or error, tracking the call.
func (p *Provider) Generate(ctx context.Context, params ai.GenerateParams) (*ai.GenerateResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.GenerateCalls++
	p.LastParams = params

	if p.GenerateError != nil {
		return nil, p.GenerateError
	}
	if p.GenerateResponse != nil {
		return p.GenerateResponse, nil
	}

	return &ai.GenerateResult{
		Text:         "Mock generated text for action " + string(params.Action) + ".",
		Model:        "mock-model",
		InputTokens:  100,
		OutputTokens: 50,
		Duration:     10 * time.Millisecond,
	}, nil
}

// Calls returns the number of Generate invocations.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.GenerateCalls
}
