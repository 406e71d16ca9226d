package search

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/leadhunt/core"
)

// Observer is told how many results an adapter returned for one query and
// how long the call took.
type Observer func(source core.Source, results int, elapsed time.Duration)

// Aggregator fans queries out to every adapter and merges the results.
type Aggregator struct {
	adapters []Adapter
	pool     *ants.Pool
	observer Observer
	logger   *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator) error

// WithPoolSize sets the number of concurrent adapter calls.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) AggregatorOption {
	return func(a *Aggregator) error {
		if size < 1 {
			return ErrInvalidPoolSize
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if a.pool != nil {
			a.pool.Release()
		}
		a.pool = pool
		return nil
	}
}

// WithObserver registers a callback invoked after every adapter call.
func WithObserver(o Observer) AggregatorOption {
	return func(a *Aggregator) error {
		a.observer = o
		return nil
	}
}

// WithAggregatorLogger sets a custom logger.
// Default is slog.Default().
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAggregator creates an aggregator over adapters. Adapter order decides
// result order among results of the same query.
func NewAggregator(adapters []Adapter, opts ...AggregatorOption) (*Aggregator, error) {
	if len(adapters) == 0 {
		return nil, ErrNoAdapters
	}

	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	a := &Aggregator{
		adapters: append([]Adapter(nil), adapters...),
		pool:     pool,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(a); optErr != nil {
			a.Release()
			return nil, optErr
		}
	}
	a.logger = a.logger.With("component", "aggregator")
	return a, nil
}

// Adapters returns the adapters in result order.
func (a *Aggregator) Adapters() []Adapter {
	return append([]Adapter(nil), a.adapters...)
}

// Aggregate runs every (query, adapter) pair and returns the deduplicated union.
// Results are ordered by query, then adapter, then provider order, regardless
// of completion order. Empty or failing adapters contribute nothing. Once ctx
// is done no further pairs are started and the results gathered so far are returned.
func (a *Aggregator) Aggregate(ctx context.Context, queries []string) []core.SearchResult {
	queries = core.CleanStrings(queries)
	slots := make([][]core.SearchResult, len(queries)*len(a.adapters))

	var wg sync.WaitGroup
submit:
	for qi, query := range queries {
		for ai, adapter := range a.adapters {
			if ctx.Err() != nil {
				a.logger.Warn("context done, skipping remaining searches", "err", ctx.Err())
				break submit
			}
			slot := qi*len(a.adapters) + ai
			wg.Add(1)
			err := a.pool.Submit(func() {
				defer wg.Done()
				start := time.Now()
				found := adapter.Search(ctx, query)
				slots[slot] = found
				if a.observer != nil {
					a.observer(adapter.Source(), len(found), time.Since(start))
				}
			})
			if err != nil {
				wg.Done()
				a.logger.Error("error submitting search", "source", adapter.Source(), "query", query, "err", err)
			}
		}
	}
	wg.Wait()

	total := 0
	for _, s := range slots {
		total += len(s)
	}
	merged := make([]core.SearchResult, 0, total)
	for _, s := range slots {
		merged = append(merged, s...)
	}

	deduped := Dedupe(merged)
	a.logger.Debug("aggregation complete", "queries", len(queries), "raw", total, "unique", len(deduped))
	return deduped
}

// Release releases the worker pool.
// The aggregator should not be used after calling Release.
func (a *Aggregator) Release() {
	if a.pool != nil {
		a.pool.Release()
	}
}
