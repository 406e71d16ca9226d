// Package gemini provides completion services backed by the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/poiesic/leadhunt/ai"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/retry"
	"google.golang.org/genai"
)

// Completer implements ai.Completer using the Gemini generate content API.
type Completer struct {
	client      *genai.Client
	model       string
	temperature float32
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

var _ ai.Completer = (*Completer)(nil)

func newClient(ctx context.Context, config *ai.Config) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(config.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(config.Host) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(config.Host)
	}
	return genai.NewClient(ctx, cc)
}

func newCompleter(client *genai.Client, config *ai.Config, model string, temperature float64) *Completer {
	return &Completer{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		maxAttempts: config.MaxAttempts,
		retryDelay:  config.RetryDelay,
		logger:      slog.Default().With("component", "gemini-completer", "model", model),
	}
}

// NewCompleter creates a completer for one model using the provided configuration.
func NewCompleter(ctx context.Context, config *ai.Config, model string, temperature float64) (ai.Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newClient(ctx, config)
	if err != nil {
		return nil, err
	}
	return newCompleter(client, config, model, temperature), nil
}

// Complete sends prompt and returns the text of the first candidate.
// Rate limiting and server errors are retried with backoff; other API errors fail fast.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	temperature := c.temperature
	var reply string
	err := retry.WithBackoff(ctx, func() error {
		resp, err := c.client.Models.GenerateContent(
			ctx,
			c.model,
			genai.Text(prompt),
			&genai.GenerateContentConfig{
				Temperature:    &temperature,
				CandidateCount: 1,
			},
		)
		if err != nil {
			c.logger.Warn("completion request failed", "err", err)
			return classifyErr(err)
		}
		reply = strings.TrimSpace(resp.Text())
		if reply == "" {
			return retry.Permanent(fmt.Errorf("%w: empty reply from model", core.ErrMalformedResponse))
		}
		return nil
	}, c.maxAttempts, c.retryDelay)
	if err != nil {
		if errors.Is(err, core.ErrMalformedResponse) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", core.ErrUpstreamUnavailable, err)
	}
	return reply, nil
}

// classifyErr marks everything but rate limiting, server errors and
// temporary network errors as permanent.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return err
		}
		return retry.Permanent(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && (ne.Timeout() || ne.Temporary()) {
		return err
	}
	return retry.Permanent(err)
}
