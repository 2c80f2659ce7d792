// Package generation drafts a README from a context document through an OpenAI-compatible
// chat completion endpoint.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the OpenRouter chat completion URL.
	DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	// DefaultModel is the model requested when none is configured.
	DefaultModel = "x-ai/grok-4.1-fast"

	defaultTimeout        = 5 * time.Minute
	defaultMaxAttempts    = 3
	defaultBaseBackoff    = 500 * time.Millisecond
	defaultMaxBackoff     = 8 * time.Second
	defaultRatePerSecond  = 1.0
	defaultTemperature    = 0.5
	errorBodyLimit        = 8 << 10
	apiErrorFormat        = "api error: status=%d message=%s"
	apiErrorNoBodyFormat  = "api error: status=%d"
	rateLimiterWaitFormat = "rate limiter: %w"
)

var (
	// ErrMissingAPIKey indicates no provider credential was configured.
	ErrMissingAPIKey = errors.New("generation API key is missing")
	// ErrEmptyCompletion indicates the provider answered without any content.
	ErrEmptyCompletion = errors.New("failed to generate content: no content in response")
)

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf(apiErrorNoBodyFormat, e.StatusCode)
	}
	return fmt.Sprintf(apiErrorFormat, e.StatusCode, e.Message)
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode <= 599)
}

// Config describes how to reach the provider.
type Config struct {
	Endpoint      string
	Model         string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
	MaxAttempts   int
	BaseBackoff   time.Duration
	Reasoning     bool
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type reasoningOption struct {
	Enabled bool `json:"enabled"`
}

type completionRequest struct {
	Model       string           `json:"model"`
	Messages    []message        `json:"messages"`
	Temperature float64          `json:"temperature"`
	Reasoning   *reasoningOption `json:"reasoning,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Client posts context documents to the provider. A Client is safe for concurrent use;
// every attempt waits on a shared rate limiter.
type Client struct {
	httpClient  *http.Client
	config      Config
	limiter     *rate.Limiter
	logger      *zap.Logger
	sleep       func(ctx context.Context, duration time.Duration) error
	maxAttempts int
}

// NewClient fills unset Config fields with defaults.
func NewClient(config Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if strings.TrimSpace(config.Endpoint) == "" {
		config.Endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(config.Model) == "" {
		config.Model = DefaultModel
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = defaultRatePerSecond
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = defaultBaseBackoff
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient:  httpClient,
		config:      config,
		limiter:     rate.NewLimiter(rate.Limit(config.RatePerSecond), 1),
		logger:      logger,
		sleep:       sleepContext,
		maxAttempts: config.MaxAttempts,
	}
}

// Model returns the model requests are sent to.
func (client *Client) Model() string {
	return client.config.Model
}

// Generate returns the README markdown drafted from document, with any wrapping code fence removed.
func (client *Client) Generate(ctx context.Context, document string) (string, error) {
	if strings.TrimSpace(client.config.APIKey) == "" {
		return "", ErrMissingAPIKey
	}
	request := completionRequest{
		Model: client.config.Model,
		Messages: []message{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: fmt.Sprintf(userPromptFormat, document)},
		},
		Temperature: defaultTemperature,
	}
	if client.config.Reasoning {
		request.Reasoning = &reasoningOption{Enabled: true}
	}
	payload, marshalErr := json.Marshal(request)
	if marshalErr != nil {
		return "", fmt.Errorf("marshal request: %w", marshalErr)
	}

	backoff := client.config.BaseBackoff
	var lastErr error
	for attempt := 1; attempt <= client.maxAttempts; attempt++ {
		if waitErr := client.limiter.Wait(ctx); waitErr != nil {
			return "", fmt.Errorf(rateLimiterWaitFormat, waitErr)
		}
		content, attemptErr := client.attempt(ctx, payload)
		if attemptErr == nil {
			return StripMarkdownFence(content), nil
		}
		lastErr = attemptErr
		var apiErr *APIError
		if !errors.As(attemptErr, &apiErr) || !apiErr.retryable() || attempt == client.maxAttempts {
			break
		}
		client.logger.Warn("generation attempt failed; retrying",
			zap.Int("attempt", attempt),
			zap.Int("status", apiErr.StatusCode),
			zap.Duration("backoff", backoff),
		)
		if sleepErr := client.sleep(ctx, backoff); sleepErr != nil {
			return "", sleepErr
		}
		backoff *= 2
		if backoff > defaultMaxBackoff {
			backoff = defaultMaxBackoff
		}
	}
	return "", lastErr
}

func (client *Client) attempt(ctx context.Context, payload []byte) (string, error) {
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, client.config.Endpoint, bytes.NewReader(payload))
	if requestErr != nil {
		return "", fmt.Errorf("build request: %w", requestErr)
	}
	request.Header.Set("Authorization", "Bearer "+client.config.APIKey)
	request.Header.Set("Content-Type", "application/json")

	response, responseErr := client.httpClient.Do(request)
	if responseErr != nil {
		return "", fmt.Errorf("http request: %w", responseErr)
	}
	defer response.Body.Close()
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(response.Body, errorBodyLimit))
		return "", &APIError{StatusCode: response.StatusCode, Message: extractErrorMessage(body)}
	}
	var decoded completionResponse
	if decodeErr := json.NewDecoder(response.Body).Decode(&decoded); decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return decoded.Choices[0].Message.Content, nil
}

// extractErrorMessage prefers the provider's structured error message over the raw body.
func extractErrorMessage(body []byte) string {
	var structured struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &structured) == nil && len(structured.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(structured.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if json.Unmarshal(structured.Error, &plain) == nil && plain != "" {
			return plain
		}
	}
	return strings.TrimSpace(string(body))
}

func sleepContext(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
