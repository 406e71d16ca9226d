// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/leadhunt/ai"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/retry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
type Completer struct {
	client      llms.Model
	model       string
	temperature float64
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

var _ ai.Completer = (*Completer)(nil)

// newCompleter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instances.
func newCompleter(config *ai.Config, model string, temperature float64) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services don't require authentication
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}

	return &Completer{
		client:      client,
		model:       model,
		temperature: temperature,
		maxAttempts: config.MaxAttempts,
		retryDelay:  config.RetryDelay,
		logger:      slog.Default().With("component", "openai-completer", "model", model),
	}, nil
}

// NewCompleter creates a completer for one model using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config, model string, temperature float64) (ai.Completer, error) {
	return newCompleter(config, model, temperature)
}

// Complete sends prompt as a single user message and returns the first choice.
// Failed calls are retried with exponential backoff up to the configured attempts.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
			},
		},
	}

	var reply string
	err := retry.WithBackoff(ctx, func() error {
		response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(c.temperature))
		if err != nil {
			c.logger.Warn("completion request failed", "err", err)
			return classifyErr(err)
		}
		if len(response.Choices) < 1 {
			return retry.Permanent(fmt.Errorf("%w: no choices returned from model", core.ErrMalformedResponse))
		}
		reply = strings.TrimSpace(response.Choices[0].Content)
		return nil
	}, c.maxAttempts, c.retryDelay)
	if err != nil {
		if errors.Is(err, core.ErrMalformedResponse) {
			return "", err
		}
		c.logger.Error("completion failed", "attempts", c.maxAttempts, "err", err)
		return "", fmt.Errorf("%w: %w", core.ErrUpstreamUnavailable, err)
	}

	c.logger.Debug("completion succeeded", "chars", len(reply))
	return reply, nil
}

var statusCode = regexp.MustCompile(`status code: (\d{3})`)

// classifyErr leaves rate limiting, server errors and temporary network
// errors retryable and marks everything else permanent.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Permanent(err)
	}
	if m := statusCode.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		if code == 429 || code/100 == 5 {
			return err
		}
		return retry.Permanent(err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return err
	}
	return retry.Permanent(err)
}
