package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/leadhunt/billing"
	"github.com/poiesic/leadhunt/competitor"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/rank"
	"github.com/poiesic/leadhunt/storage"
)

const (
	// DefaultStaleAfter is how long a claimed run blocks new runs of the same
	// project. Older claims are assumed abandoned.
	DefaultStaleAfter = 5 * time.Minute

	// DefaultWriteTimeout bounds the writes made after a run is claimed.
	DefaultWriteTimeout = 10 * time.Second
)

// QueryGenerator produces search queries for a product.
type QueryGenerator interface {
	GenerateQueries(ctx context.Context, title, description string, targetProfiles []string) ([]string, error)
}

// Aggregator searches every source for every query.
type Aggregator interface {
	Aggregate(ctx context.Context, queries []string) []core.SearchResult
}

// CompetitorExtractor separates competitor profiles from discussion results.
type CompetitorExtractor interface {
	Partition(results []core.SearchResult) ([]core.Competitor, []core.SearchResult)
}

// Ranker selects and orders the most relevant results.
type Ranker interface {
	Rank(ctx context.Context, candidates []core.SearchResult, product core.ProductContext, targetProfiles []string) ([]core.RankedResult, error)
}

// QuotaGate decides whether an owner may start a run. Check runs before the
// claim; Admit runs after it with the number of the owner's other active runs.
type QuotaGate interface {
	Check(ctx context.Context, ownerID string) (*billing.Entitlement, error)
	Admit(ctx context.Context, ownerID string, activeOthers int) (*billing.Entitlement, error)
}

// Components are the collaborators of a Pipeline. Extractor is optional and
// defaults to the built-in competitor extractor.
type Components struct {
	Projects   storage.ProjectRepository
	Usage      storage.UsageRepository
	Gate       QuotaGate
	Generator  QueryGenerator
	Aggregator Aggregator
	Extractor  CompetitorExtractor
	Ranker     Ranker
}

// RunRequest identifies the project to run discovery for.
type RunRequest struct {
	ProjectID core.ID
	OwnerID   string
}

// Outcome is the result of a successful run.
type Outcome struct {
	RunID         string
	Project       *core.Project
	Queries       []string
	Candidates    int
	Opportunities []core.RankedResult
	Competitors   []core.Competitor
	Duration      time.Duration
}

// Pipeline orchestrates discovery runs.
type Pipeline struct {
	projects     storage.ProjectRepository
	usage        storage.UsageRepository
	gate         QuotaGate
	generator    QueryGenerator
	aggregator   Aggregator
	extractor    CompetitorExtractor
	ranker       Ranker
	rankInputCap int
	staleAfter   time.Duration
	writeTimeout time.Duration
	monitor      Monitor
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithRankInputCap sets how many non-competitor results are handed to the ranker.
// Default is rank.DefaultInputCap.
func WithRankInputCap(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("%w: rank input cap must be positive", ErrInvalidOption)
		}
		p.rankInputCap = n
		return nil
	}
}

// WithStaleAfter sets how long a claimed run blocks new runs of its project.
// Default is DefaultStaleAfter.
func WithStaleAfter(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d <= 0 {
			return fmt.Errorf("%w: stale-after must be positive", ErrInvalidOption)
		}
		p.staleAfter = d
		return nil
	}
}

// WithWriteTimeout bounds each write made after the run is claimed.
// Default is DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d <= 0 {
			return fmt.Errorf("%w: write timeout must be positive", ErrInvalidOption)
		}
		p.writeTimeout = d
		return nil
	}
}

// WithMonitor installs run hooks.
func WithMonitor(m Monitor) Option {
	return func(p *Pipeline) error {
		if m == nil {
			m = &noopMonitor{}
		}
		p.monitor = m
		return nil
	}
}

// WithClock sets the time source. Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new discovery pipeline.
func NewPipeline(c Components, opts ...Option) (*Pipeline, error) {
	switch {
	case c.Projects == nil:
		return nil, ErrProjectRepositoryRequired
	case c.Usage == nil:
		return nil, ErrUsageRepositoryRequired
	case c.Gate == nil:
		return nil, ErrQuotaGateRequired
	case c.Generator == nil:
		return nil, ErrQueryGeneratorRequired
	case c.Aggregator == nil:
		return nil, ErrAggregatorRequired
	case c.Ranker == nil:
		return nil, ErrRankerRequired
	}

	extractor := c.Extractor
	if extractor == nil {
		extractor = competitor.New()
	}

	p := &Pipeline{
		projects:     c.Projects,
		usage:        c.Usage,
		gate:         c.Gate,
		generator:    c.Generator,
		aggregator:   c.Aggregator,
		extractor:    extractor,
		ranker:       c.Ranker,
		rankInputCap: rank.DefaultInputCap,
		staleAfter:   DefaultStaleAfter,
		writeTimeout: DefaultWriteTimeout,
		monitor:      &noopMonitor{},
		now:          time.Now,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "discovery")
	return p, nil
}

// run carries the state of one invocation of Run.
type run struct {
	id      string
	req     RunRequest
	started time.Time
	claimed bool
	logger  *slog.Logger
}

// Run executes one discovery run for the project. The pipeline imposes no
// deadline of its own; callers bound it through ctx. Writes after the claim
// outlive ctx cancellation so an abandoned run still records its outcome.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*Outcome, error) {
	r := &run{
		id:      uuid.NewString(),
		req:     req,
		started: p.now(),
	}
	r.logger = p.logger.With("run", r.id, "project", req.ProjectID, "owner", req.OwnerID)
	p.monitor.RunStarted(r.id, req)
	p.monitor.StageEntered(r.id, StagePending)

	project, err := p.projects.GetProject(ctx, req.ProjectID, req.OwnerID)
	if err != nil {
		return nil, p.fail(ctx, r, StagePending, err)
	}
	ent, err := p.gate.Check(ctx, req.OwnerID)
	if err != nil {
		return nil, p.fail(ctx, r, StagePending, err)
	}
	project, err = p.projects.ClaimRun(ctx, req.ProjectID, req.OwnerID, r.started, p.staleAfter)
	if err != nil {
		return nil, p.fail(ctx, r, StagePending, err)
	}
	r.claimed = true
	if ent.Limits.MonthlyRuns > 0 {
		active, err := p.activeRuns(ctx, req, r.started)
		if err != nil {
			return nil, p.fail(ctx, r, StagePending, err)
		}
		if ent, err = p.gate.Admit(ctx, req.OwnerID, active); err != nil {
			return nil, p.fail(ctx, r, StagePending, err)
		}
	}
	r.logger.Info("discovery run started", "plan", ent.Plan)

	p.monitor.StageEntered(r.id, StageGeneratingQueries)
	queries, err := p.generator.GenerateQueries(ctx, project.Name, project.Description, project.TargetProfiles)
	if err != nil {
		return nil, p.fail(ctx, r, StageGeneratingQueries, err)
	}
	queries = core.CleanStrings(queries)
	if len(queries) == 0 {
		return nil, p.fail(ctx, r, StageGeneratingQueries, core.ErrNoQueries)
	}
	p.monitor.QueriesGenerated(r.id, queries)

	p.monitor.StageEntered(r.id, StageAggregating)
	results := p.aggregator.Aggregate(ctx, queries)
	p.monitor.ResultsAggregated(r.id, len(results))
	if len(results) == 0 {
		if ctx.Err() != nil {
			return nil, p.fail(ctx, r, StageAggregating, fmt.Errorf("%w: %w", core.ErrNoResults, ctx.Err()))
		}
		return nil, p.fail(ctx, r, StageAggregating, core.ErrNoResults)
	}

	competitors, remainder := p.extractor.Partition(results)
	if !ent.Limits.Competitors {
		competitors = []core.Competitor{}
	}
	p.monitor.CompetitorsFound(r.id, len(competitors))
	if len(remainder) == 0 {
		return nil, p.fail(ctx, r, StageAggregating,
			fmt.Errorf("%w: every result is a profile page", core.ErrNoResults))
	}
	if len(remainder) > p.rankInputCap {
		remainder = remainder[:p.rankInputCap]
	}

	p.monitor.StageEntered(r.id, StageRanking)
	ranked, err := p.ranker.Rank(ctx, remainder, project.Product(), project.TargetProfiles)
	if err != nil {
		return nil, p.fail(ctx, r, StageRanking, err)
	}
	if limit := ent.Limits.MaxOpportunities; limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	p.monitor.ResultsRanked(r.id, len(ranked))

	p.monitor.StageEntered(r.id, StagePersisting)
	finished := p.now().UTC()
	result := storage.RunResult{
		Queries:       queries,
		Opportunities: ranked,
		Competitors:   competitors,
		FinishedAt:    finished,
	}
	writeCtx, cancel := p.writeContext(ctx)
	err = p.projects.SaveRunResult(writeCtx, req.ProjectID, req.OwnerID, result)
	cancel()
	if err != nil {
		return nil, p.fail(ctx, r, StagePersisting, err)
	}
	p.recordUsage(ctx, r, core.UsageOutcomeCompleted)

	project.Queries = queries
	project.DiscoveryResults = ranked
	project.PossibleCompetitors = competitors
	project.RunStatus = core.RunStatusDone
	project.RunError = ""
	project.RunFinishedAt = finished

	outcome := &Outcome{
		RunID:         r.id,
		Project:       project,
		Queries:       queries,
		Candidates:    len(results),
		Opportunities: ranked,
		Competitors:   competitors,
		Duration:      p.now().Sub(r.started),
	}
	p.monitor.StageEntered(r.id, StageDone)
	p.monitor.RunFinished(r.id, outcome, nil)
	r.logger.Info("discovery run complete",
		"queries", len(queries), "candidates", len(results),
		"opportunities", len(ranked), "competitors", len(competitors),
		"duration", outcome.Duration)
	return outcome, nil
}

// fail builds the RunError for a fatal failure. Claimed runs also persist the
// failure and count as an attempted run; both writes are best effort.
func (p *Pipeline) fail(ctx context.Context, r *run, stage Stage, err error) *RunError {
	runErr := &RunError{RunID: r.id, Stage: stage, Kind: core.KindOf(err), Err: err}

	if r.claimed {
		writeCtx, cancel := p.writeContext(ctx)
		saveErr := p.projects.SaveRunFailure(writeCtx, r.req.ProjectID, r.req.OwnerID, runErr.Error(), p.now().UTC())
		cancel()
		if saveErr != nil {
			r.logger.Error("error recording run failure", "err", saveErr)
		}
		p.recordUsage(ctx, r, core.UsageOutcomeFailed)
	}

	level := slog.LevelError
	if errors.Is(err, core.ErrQuotaExceeded) || (!r.claimed && (errors.Is(err, core.ErrRunInProgress) || errors.Is(err, core.ErrNotFound))) {
		level = slog.LevelInfo
	}
	r.logger.Log(context.Background(), level, "discovery run failed", "stage", stage, "kind", runErr.Kind, "err", err)

	p.monitor.StageEntered(r.id, StageFailed)
	p.monitor.RunFinished(r.id, nil, runErr)
	return runErr
}

// activeRuns counts the owner's other projects holding a fresh run claim.
func (p *Pipeline) activeRuns(ctx context.Context, req RunRequest, now time.Time) (int, error) {
	projects, err := p.projects.ListProjects(ctx, req.OwnerID)
	if err != nil {
		return 0, fmt.Errorf("list active runs: %w", err)
	}
	cutoff := now.Add(-p.staleAfter)
	active := 0
	for _, project := range projects {
		if project.ID != req.ProjectID && !storage.ClaimAllowed(project, cutoff) {
			active++
		}
	}
	return active, nil
}

// recordUsage appends a usage event. Failures are logged, never returned.
func (p *Pipeline) recordUsage(ctx context.Context, r *run, outcome core.UsageOutcome) {
	writeCtx, cancel := p.writeContext(ctx)
	defer cancel()
	event := &core.UsageEvent{
		OwnerID:   r.req.OwnerID,
		ProjectID: r.req.ProjectID,
		Outcome:   outcome,
		CreatedAt: p.now().UTC(),
	}
	if err := p.usage.AppendUsage(writeCtx, event); err != nil {
		r.logger.Warn("error appending usage event", "outcome", outcome, "err", err)
	}
}

func (p *Pipeline) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), p.writeTimeout)
}
