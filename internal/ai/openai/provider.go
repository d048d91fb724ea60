// Package openai implements the ai.Provider interface against the OpenAI
// chat completions API. The API key is supplied per call: each account
// brings its own key via the settings store.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/ai"
	"github.com/sethvargo/go-retry"
)

const (
	// APIBaseURL is the chat completions endpoint.
	APIBaseURL = "https://api.openai.com/v1/chat/completions"

	// DefaultModel is the default model to use.
	DefaultModel = "gpt-4o-mini"

	// MaxOutputTokens bounds the completion size.
	MaxOutputTokens = 2048
)

// Config contains configuration for the OpenAI provider.
type Config struct {
	BaseURL        string // Defaults to APIBaseURL; overridable for tests
	Model          string
	ProviderConfig ai.ProviderConfig
}

// Provider implements ai.Provider using OpenAI's chat completions API.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new OpenAI provider.
func New(config Config, logger *slog.Logger) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = APIBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 60 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		logger: logger,
	}
}

// Request/response shapes for the chat completions API.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate produces text for the given action. Transient failures (rate
// limit, timeout, 5xx) are retried with exponential backoff up to the
// configured attempt count; everything else fails immediately.
func (p *Provider) Generate(ctx context.Context, params ai.GenerateParams) (*ai.GenerateResult, error) {
	if params.APIKey == "" {
		return nil, ai.EUnauthorized
	}

	body, err := json.Marshal(chatRequest{
		Model:     p.config.Model,
		Messages:  buildMessages(params.Action, params.Context),
		MaxTokens: MaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()

	backoff := retry.WithMaxRetries(
		uint64(p.config.ProviderConfig.MaxRetries),
		retry.NewExponential(p.config.ProviderConfig.RetryBaseDelay),
	)

	var resp *chatResponse
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var attemptErr error
		resp, attemptErr = p.executeRequest(ctx, params.APIKey, body)
		if attemptErr == nil {
			return nil
		}
		if ai.IsRetryable(attemptErr) {
			p.logger.Info("Retrying AI request", "action", params.Action, "error", attemptErr)
			return retry.RetryableError(attemptErr)
		}
		return attemptErr
	})
	if err != nil {
		return nil, ai.WrapError("generate", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ai.WrapError("generate", fmt.Errorf("empty response content"))
	}

	return &ai.GenerateResult{
		Text:         resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Duration:     time.Since(start),
	}, nil
}

// executeRequest executes a single HTTP request.
func (p *Provider) executeRequest(ctx context.Context, apiKey string, body []byte) (*chatResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ai.ETimeout
		}
		// Network errors are typically retryable
		return nil, ai.EUnavailable
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.mapHTTPError(resp.StatusCode, bodyBytes)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &chatResp, nil
}

// mapHTTPError maps HTTP status codes to provider errors.
func (p *Provider) mapHTTPError(statusCode int, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ai.EUnauthorized
	case http.StatusTooManyRequests:
		return ai.ERateLimit
	case http.StatusRequestTimeout:
		return ai.ETimeout
	case http.StatusBadRequest:
		if errResp.Error.Message != "" {
			return fmt.Errorf("%w: %s", ai.EBadRequest, errResp.Error.Message)
		}
		return ai.EBadRequest
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ai.EUnavailable
	default:
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}
