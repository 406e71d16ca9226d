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


// Package leadhunt assembles a complete lead discovery service from its
// configuration: the persistent store, the completion provider, the search
// stack and the discovery pipeline.
package leadhunt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/leadhunt/ai"
	"github.com/poiesic/leadhunt/ai/gemini"
	"github.com/poiesic/leadhunt/ai/openai"
	"github.com/poiesic/leadhunt/billing"
	"github.com/poiesic/leadhunt/config"
	"github.com/poiesic/leadhunt/discovery"
	"github.com/poiesic/leadhunt/metrics"
	"github.com/poiesic/leadhunt/querygen"
	"github.com/poiesic/leadhunt/rank"
	"github.com/poiesic/leadhunt/search"
	"github.com/poiesic/leadhunt/server"
	"github.com/poiesic/leadhunt/storage"
	"github.com/poiesic/leadhunt/storage/badger"
	"github.com/poiesic/leadhunt/storage/postgres"
	"github.com/poiesic/leadhunt/storage/sqlite"
)

// App owns every long-lived component of a deployment.
type App struct {
	config     config.Config
	store      storage.Store
	provider   ai.AIProvider
	aggregator *search.Aggregator
	generator  *querygen.Generator
	ranker     *rank.Ranker
	gate       *billing.Gate
	pipeline   *discovery.Pipeline
	logger     *slog.Logger
}

// AppOption configures an App.
type AppOption func(*appOptions)

type appOptions struct {
	store    storage.Store
	provider ai.AIProvider
	adapters []search.Adapter
	monitor  discovery.Monitor
	logger   *slog.Logger
}

// WithStore uses an already opened store instead of the configured one.
// The App takes ownership and closes it.
func WithStore(store storage.Store) AppOption {
	return func(o *appOptions) { o.store = store }
}

// WithProvider uses the given completion provider instead of the configured one.
func WithProvider(provider ai.AIProvider) AppOption {
	return func(o *appOptions) { o.provider = provider }
}

// WithAdapters replaces the configured search adapters.
func WithAdapters(adapters ...search.Adapter) AppOption {
	return func(o *appOptions) { o.adapters = adapters }
}

// WithMonitor replaces the default Prometheus run monitor.
func WithMonitor(m discovery.Monitor) AppOption {
	return func(o *appOptions) { o.monitor = m }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) AppOption {
	return func(o *appOptions) { o.logger = logger }
}

// OpenStore opens the store selected by cfg.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverBadger:
		return badger.Open(cfg.Path)
	case config.DriverSQLite:
		return sqlite.New(cfg.Path)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownDriver, cfg.Driver)
	}
}

// NewProvider creates the completion provider selected by cfg.
func NewProvider(ctx context.Context, cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == ai.BackendGemini {
		return gemini.NewProvider(ctx, cfg)
	}
	return openai.NewProvider(cfg)
}

// New builds an App from cfg.
func New(ctx context.Context, cfg config.Config, opts ...AppOption) (*App, error) {
	options := &appOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{config: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	var err error
	app.store = options.store
	if app.store == nil {
		store, err := OpenStore(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		app.store = store
	}

	app.provider = options.provider
	if app.provider == nil {
		aiConfig := cfg.AI
		provider, err := NewProvider(ctx, &aiConfig)
		if err != nil {
			return nil, fmt.Errorf("create completion provider: %w", err)
		}
		app.provider = provider
	}

	adapters := options.adapters
	if adapters == nil {
		adapters = search.NewAdapters(cfg.Search, logger)
	}
	aggOpts := []search.AggregatorOption{
		search.WithObserver(metrics.ObserveSearch),
		search.WithAggregatorLogger(logger),
	}
	if cfg.Pipeline.PoolSize > 0 {
		aggOpts = append(aggOpts, search.WithPoolSize(cfg.Pipeline.PoolSize))
	}
	if app.aggregator, err = search.NewAggregator(adapters, aggOpts...); err != nil {
		return nil, fmt.Errorf("create aggregator: %w", err)
	}

	if app.generator, err = querygen.New(app.provider.QueryCompleter(),
		querygen.WithCount(cfg.Pipeline.QueryCount),
		querygen.WithLogger(logger),
	); err != nil {
		return nil, fmt.Errorf("create query generator: %w", err)
	}

	if app.ranker, err = rank.New(app.provider.RankCompleter(),
		rank.WithInputCap(cfg.Pipeline.RankInputCap),
		rank.WithTopN(cfg.Pipeline.TopN),
		rank.WithLogger(logger),
	); err != nil {
		return nil, fmt.Errorf("create ranker: %w", err)
	}

	if app.gate, err = billing.NewGate(app.store.Plans(), app.store.Usage(), billing.WithLogger(logger)); err != nil {
		return nil, err
	}

	monitor := options.monitor
	if monitor == nil {
		monitor = metrics.NewMonitor()
	}
	if app.pipeline, err = discovery.NewPipeline(discovery.Components{
		Projects:   app.store.Projects(),
		Usage:      app.store.Usage(),
		Gate:       app.gate,
		Generator:  app.generator,
		Aggregator: app.aggregator,
		Ranker:     app.ranker,
	},
		discovery.WithRankInputCap(app.ranker.InputCap()),
		discovery.WithStaleAfter(cfg.Pipeline.StaleAfter),
		discovery.WithMonitor(monitor),
		discovery.WithLogger(logger),
	); err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	ok = true
	return app, nil
}

func (a *App) Config() config.Config          { return a.config }
func (a *App) Store() storage.Store           { return a.store }
func (a *App) Generator() *querygen.Generator { return a.generator }
func (a *App) Gate() *billing.Gate            { return a.gate }
func (a *App) Pipeline() *discovery.Pipeline  { return a.pipeline }
func (a *App) Aggregator() *search.Aggregator { return a.aggregator }

// NewServer builds the HTTP server from the App's components and the
// server section of the configuration. Extra options are applied last.
func (a *App) NewServer(opts ...server.Option) (*server.Server, error) {
	cfg := a.config.Server
	all := []server.Option{
		server.WithAddr(cfg.Addr),
		server.WithStaleAfter(a.config.Pipeline.StaleAfter),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
		server.WithMetricsHandler(metrics.Handler()),
		server.WithLogger(a.logger),
	}
	if cfg.RunBudget > 0 {
		all = append(all, server.WithRunBudget(cfg.RunBudget))
	}
	if cfg.RunPoolSize > 0 {
		all = append(all, server.WithRunPoolSize(cfg.RunPoolSize))
	}
	return server.New(server.Deps{
		Projects: a.store.Projects(),
		Usage:    a.store.Usage(),
		Quota:    a.gate,
		Runner:   a.pipeline,
		Profiles: a.generator,
	}, append(all, opts...)...)
}

// Close releases the worker pool, the provider and the store.
func (a *App) Close() error {
	if a.aggregator != nil {
		a.aggregator.Release()
	}
	var errs []error
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("error closing store", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
