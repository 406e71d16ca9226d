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


// Package server exposes projects and discovery runs over HTTP.
//
// Callers are identified by the X-User-ID header, which an upstream
// authenticating proxy sets. Every route except /healthz and /metrics
// requires it.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/leadhunt/billing"
	"github.com/poiesic/leadhunt/discovery"
	"github.com/poiesic/leadhunt/storage"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAddr            = ":8080"
	DefaultRunBudget       = 60 * time.Second
	DefaultRunPoolSize     = 8
	DefaultShutdownTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

var (
	// ErrProjectRepositoryRequired is returned when Deps.Projects is nil.
	ErrProjectRepositoryRequired = errors.New("project repository required")

	// ErrUsageRepositoryRequired is returned when Deps.Usage is nil.
	ErrUsageRepositoryRequired = errors.New("usage repository required")

	// ErrQuotaRequired is returned when Deps.Quota is nil.
	ErrQuotaRequired = errors.New("quota checker required")

	// ErrRunnerRequired is returned when Deps.Runner is nil.
	ErrRunnerRequired = errors.New("discovery runner required")

	// ErrProfilesRequired is returned when Deps.Profiles is nil.
	ErrProfilesRequired = errors.New("profile suggester required")
)

// Runner executes discovery runs. *discovery.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req discovery.RunRequest) (*discovery.Outcome, error)
}

// ProfileSuggester proposes target profiles. *querygen.Generator satisfies it.
type ProfileSuggester interface {
	GenerateProfiles(ctx context.Context, title, description string) ([]string, error)
}

// QuotaChecker reports plan state. *billing.Gate satisfies it.
type QuotaChecker interface {
	Check(ctx context.Context, ownerID string) (*billing.Entitlement, error)
	Entitlement(ctx context.Context, ownerID string) (*billing.Entitlement, error)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Projects storage.ProjectRepository
	Usage    storage.UsageRepository
	Quota    QuotaChecker
	Runner   Runner
	Profiles ProfileSuggester
}

// Server is the HTTP trigger of the discovery pipeline.
type Server struct {
	deps            Deps
	addr            string
	runBudget       time.Duration
	staleAfter      time.Duration
	shutdownTimeout time.Duration
	runPool         *ants.Pool
	metrics         http.Handler
	now             func() time.Time
	logger          *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithAddr sets the listen address. Default is DefaultAddr.
func WithAddr(addr string) Option {
	return func(s *Server) error {
		if addr != "" {
			s.addr = addr
		}
		return nil
	}
}

// WithRunBudget sets the wall-clock budget of each run. Default is DefaultRunBudget.
func WithRunBudget(d time.Duration) Option {
	return func(s *Server) error {
		if d <= 0 {
			return errors.New("run budget must be positive")
		}
		s.runBudget = d
		return nil
	}
}

// WithStaleAfter matches the pipeline's claim expiry so background triggers
// can reject a project that is already running. Default is discovery.DefaultStaleAfter.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Server) error {
		if d > 0 {
			s.staleAfter = d
		}
		return nil
	}
}

// WithRunPoolSize bounds the number of background runs.
// Default is DefaultRunPoolSize.
func WithRunPoolSize(size int) Option {
	return func(s *Server) error {
		if size < 1 {
			return errors.New("run pool size must be at least 1")
		}
		pool, err := ants.NewPool(size, ants.WithNonblocking(true))
		if err != nil {
			return err
		}
		if s.runPool != nil {
			s.runPool.Release()
		}
		s.runPool = pool
		return nil
	}
}

// WithShutdownTimeout bounds graceful shutdown. Default is DefaultShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) error {
		if d > 0 {
			s.shutdownTimeout = d
		}
		return nil
	}
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) error {
		s.metrics = h
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a Server.
func New(deps Deps, opts ...Option) (*Server, error) {
	switch {
	case deps.Projects == nil:
		return nil, ErrProjectRepositoryRequired
	case deps.Usage == nil:
		return nil, ErrUsageRepositoryRequired
	case deps.Quota == nil:
		return nil, ErrQuotaRequired
	case deps.Runner == nil:
		return nil, ErrRunnerRequired
	case deps.Profiles == nil:
		return nil, ErrProfilesRequired
	}

	pool, err := ants.NewPool(DefaultRunPoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	s := &Server{
		deps:            deps,
		addr:            DefaultAddr,
		runBudget:       DefaultRunBudget,
		staleAfter:      discovery.DefaultStaleAfter,
		shutdownTimeout: DefaultShutdownTimeout,
		runPool:         pool,
		now:             time.Now,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.runPool.Release()
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "server")
	return s, nil
}

// Handler returns the routed handler with logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	mux.Handle("POST /api/projects", s.requireUser(s.handleCreateProject))
	mux.Handle("GET /api/projects", s.requireUser(s.handleListProjects))
	mux.Handle("GET /api/projects/{id}", s.requireUser(s.handleGetProject))
	mux.Handle("PUT /api/projects/{id}", s.requireUser(s.handleUpdateProject))
	mux.Handle("POST /api/projects/{id}/discover", s.requireUser(s.handleDiscoverProject))
	mux.Handle("POST /api/discover", s.requireUser(s.handleDiscover))
	mux.Handle("DELETE /api/projects/{id}/opportunities/{resultId}", s.requireUser(s.handleRemoveOpportunity))
	mux.Handle("DELETE /api/projects/{id}/competitors/{resultId}", s.requireUser(s.handleRemoveCompetitor))
	mux.Handle("GET /api/projects/{id}/export.csv", s.requireUser(s.handleExport))
	mux.Handle("POST /api/profiles", s.requireUser(s.handleProfiles))
	mux.Handle("GET /api/usage", s.requireUser(s.handleUsage))

	return s.logRequests(mux)
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully and
// waits for background runs up to the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if perr := s.runPool.ReleaseTimeout(s.shutdownTimeout); perr != nil {
			s.logger.Warn("background runs still active at shutdown", "running", s.runPool.Running(), "err", perr)
		}
		s.logger.Info("server stopped")
		return err
	})
	return g.Wait()
}

// Release stops the background run pool without waiting.
func (s *Server) Release() {
	s.runPool.Release()
}
