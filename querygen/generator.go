// Package querygen derives search queries and target customer profiles from
// a product description using a language model.
package querygen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/leadhunt/ai"
	"github.com/poiesic/leadhunt/core"
)

const (
	// DefaultQueryCount is how many queries are requested per run.
	DefaultQueryCount = 10

	// DefaultMaxProfiles caps the suggested target profiles.
	DefaultMaxProfiles = 10
)

var (
	// ErrCompleterRequired is returned when a generator is created without a completer.
	ErrCompleterRequired = errors.New("completer required")

	// ErrInvalidCount is returned when the query count is not positive.
	ErrInvalidCount = errors.New("count must be greater than 0")
)

// Generator produces search queries and target profiles.
type Generator struct {
	completer    ai.Completer
	count        int
	lineFallback bool
	logger       *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator) error

// WithCount sets how many queries are requested and kept.
// Default is DefaultQueryCount.
func WithCount(n int) Option {
	return func(g *Generator) error {
		if n < 1 {
			return ErrInvalidCount
		}
		g.count = n
		return nil
	}
}

// WithLineFallback makes GenerateQueries split non-JSON replies into lines
// instead of failing. Profile generation always falls back.
func WithLineFallback(enabled bool) Option {
	return func(g *Generator) error {
		g.lineFallback = enabled
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// New creates a generator backed by completer.
func New(completer ai.Completer, opts ...Option) (*Generator, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	g := &Generator{
		completer: completer,
		count:     DefaultQueryCount,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	g.logger = g.logger.With("component", "querygen")
	return g, nil
}

// GenerateQueries asks for search queries that members of targetProfiles
// might post about the problem the product solves. The result is trimmed,
// deduplicated and capped at the configured count; it may be empty.
func (g *Generator) GenerateQueries(ctx context.Context, title, description string, targetProfiles []string) ([]string, error) {
	prompt := queriesPrompt(title, description, core.CleanStrings(targetProfiles), g.count)

	reply, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	queries, err := g.parse(reply, g.lineFallback)
	if err != nil {
		return nil, err
	}
	if len(queries) > g.count {
		queries = queries[:g.count]
	}

	g.logger.Debug("generated queries", "count", len(queries))
	return queries, nil
}

// GenerateProfiles suggests 5 to 10 ideal customer profiles for a product.
// Replies that are not JSON are split into lines.
func (g *Generator) GenerateProfiles(ctx context.Context, title, description string) ([]string, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: title and description are required", core.ErrInvalidProject)
	}

	reply, err := g.complete(ctx, profilesPrompt(title, description))
	if err != nil {
		return nil, err
	}

	profiles, err := g.parse(reply, true)
	if err != nil {
		return nil, err
	}
	if len(profiles) > DefaultMaxProfiles {
		profiles = profiles[:DefaultMaxProfiles]
	}
	return profiles, nil
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	reply, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		g.logger.Error("completion failed", "err", err)
		if errors.Is(err, core.ErrUpstreamUnavailable) || errors.Is(err, core.ErrMalformedResponse) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", core.ErrUpstreamUnavailable, err)
	}
	return reply, nil
}

// parse decodes a JSON string array, optionally falling back to line splitting.
// The fallback must produce at least one item.
func (g *Generator) parse(reply string, fallback bool) ([]string, error) {
	items, err := ai.ParseStringList(reply)
	if err == nil {
		return items, nil
	}
	if !fallback {
		g.logger.Warn("error parsing completion", "response", reply, "err", err)
		return nil, err
	}

	items = ai.SplitLines(reply)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: reply contains no list items", core.ErrMalformedResponse)
	}
	g.logger.Debug("used line fallback", "items", len(items))
	return items, nil
}
