// Package llm wraps the external text generation service. The service is
// prose-only: callers may use its output for narrative wording, never for a
// decision-affecting value.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/amzops/sellerpulse/internal/telemetry"
)

// ErrExternalService marks a text generation failure or timeout. Callers
// surface it as a failed stage; retries are the orchestrator's call.
var ErrExternalService = errors.New("text generation service unavailable")

// Generator produces prose for a prompt within a bounded timeout.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds client settings for an OpenAI-compatible chat completion API.
type Config struct {
	Endpoint      string
	Model         string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Client is an HTTP Generator with a circuit breaker and rate limiter in
// front of the remote API.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewClient creates a text generation client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 4
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "text-generation",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Text generation breaker state change")
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends one prompt and returns the completion text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limit wait: %v", ErrExternalService, err)
	}

	started := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, prompt)
	})
	telemetry.LLMLatency.Observe(time.Since(started).Seconds())

	if err != nil {
		telemetry.LLMErrors.Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: circuit open", ErrExternalService)
		}
		return "", err
	}

	return result.(string), nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrExternalService, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrExternalService, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrExternalService, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrExternalService, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrExternalService)
	}

	return parsed.Choices[0].Message.Content, nil
}
