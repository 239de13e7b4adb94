// Package llm is a minimal Anthropic Messages API client used for
// analysis tasks. Calls are rate limited and pass through a circuit
// breaker; every failure degrades to an empty result so callers fall back
// to rule-based analysis instead of erroring out.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"

	// DefaultModel is the cost-efficient model for internal analysis.
	DefaultModel = "claude-haiku-4-5-20251001"

	// DefaultMaxTokens bounds a single analysis response.
	DefaultMaxTokens = 1024

	requestTimeout = 30 * time.Second
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider calls the Anthropic Messages API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *zap.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithAPIKey sets the key explicitly instead of reading ANTHROPIC_API_KEY.
func WithAPIKey(key string) ProviderOption {
	return func(p *Provider) {
		p.apiKey = key
	}
}

// WithModel overrides the model.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(url string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithRateLimiter overrides the request rate limiter.
func WithRateLimiter(limiter *rate.Limiter) ProviderOption {
	return func(p *Provider) {
		p.limiter = limiter
	}
}

// NewProvider creates a client. Without an API key the provider reports
// unavailable and Analyze returns empty results.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		model:   DefaultModel,
		baseURL: apiURL,
		client:  &http.Client{Timeout: requestTimeout},
		// Analysis traffic is light; one request per second with a
		// small burst is plenty and keeps a misbehaving loop in check.
		limiter: rate.NewLimiter(rate.Limit(1), 5),
		logger:  zap.NewNop(),
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "anthropic-messages",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	for _, opt := range opts {
		opt(p)
	}
	if p.apiKey == "" {
		p.apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return p
}

// Available reports whether an API key is configured.
func (p *Provider) Available() bool {
	return p.apiKey != ""
}

// Analyze sends a prompt, optionally prefixed with context, and returns
// the response text. Returns "" on any failure or when unavailable.
func (p *Provider) Analyze(ctx context.Context, prompt, contextText string, maxTokens int) string {
	if !p.Available() {
		return ""
	}
	content := prompt
	if contextText != "" {
		content = fmt.Sprintf("Context:\n%s\n\nTask:\n%s", contextText, prompt)
	}
	out, err := p.call(ctx, []Message{{Role: "user", Content: content}}, maxTokens)
	if err != nil {
		p.logger.Error("analysis request failed", zap.Error(err))
		return ""
	}
	return out
}

type apiRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}

type apiResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// call posts to the Messages API behind the rate limiter and breaker.
func (p *Provider) call(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	result, err := p.breaker.Execute(func() (any, error) {
		return p.post(ctx, apiRequest{
			Model:     p.model,
			MaxTokens: maxTokens,
			Messages:  messages,
		})
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (p *Provider) post(ctx context.Context, payload apiRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // response already consumed
	}()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck // best-effort detail
		return "", fmt.Errorf("api status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Content) == 0 {
		return "", nil
	}
	return decoded.Content[0].Text, nil
}
