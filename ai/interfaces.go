package ai

import "context"

// Completer sends a single prompt to a language model and returns the text
// of the first choice.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete returns the model's reply to prompt.
	// Transport failures and non-success responses are returned as errors
	// wrapping core.ErrUpstreamUnavailable.
	Complete(ctx context.Context, prompt string) (string, error)
}

// AIProvider aggregates completion services for convenient initialization and
// lifecycle management. Generation and ranking use separately configured
// models and temperatures.
type AIProvider interface {
	// QueryCompleter returns the completer used for query and target profile generation.
	QueryCompleter() Completer

	// RankCompleter returns the completer used for relevance ranking.
	RankCompleter() Completer

	// Close releases resources held by the provider and its services.
	Close() error
}
