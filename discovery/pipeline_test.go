package discovery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/leadhunt/ai/mock"
	"github.com/poiesic/leadhunt/billing"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/querygen"
	"github.com/poiesic/leadhunt/rank"
	"github.com/poiesic/leadhunt/storage"
	"github.com/poiesic/leadhunt/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testAggregator implements Aggregator for testing
type testAggregator struct {
	results []core.SearchResult
	queries []string
}

func (a *testAggregator) Aggregate(ctx context.Context, queries []string) []core.SearchResult {
	a.queries = queries
	return a.results
}

// recordingMonitor records stage transitions
type recordingMonitor struct {
	noopMonitor
	mu       sync.Mutex
	stages   []Stage
	finished *RunError
	outcome  *Outcome
}

func (m *recordingMonitor) StageEntered(_ string, stage Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

func (m *recordingMonitor) RunFinished(_ string, outcome *Outcome, err *RunError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcome = outcome
	m.finished = err
}

type fixture struct {
	store      storage.Store
	project    *core.Project
	queryAI    *mock.MockCompleter
	rankAI     *mock.MockCompleter
	aggregator *testAggregator
	monitor    *recordingMonitor
	pipeline   *Pipeline
}

const rankReply = "```json\n" + `[
	{"ranking": 1, "site": "Reddit", "url": "https://reddit.com/r/a"},
	{"ranking": 2, "site": "Quora", "url": "https://quora.com/q/b"}
]` + "\n```"

func newFixture(t *testing.T, plan core.Plan) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := badger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Plans().SetPlan(ctx, "u1", plan))
	project, err := store.Projects().CreateProject(ctx, &core.Project{
		OwnerID:        "u1",
		Name:           "Timely",
		Description:    "Time tracking for remote teams",
		TargetProfiles: []string{"remote engineering managers"},
	})
	require.NoError(t, err)

	f := &fixture{
		store:   store,
		project: project,
		queryAI: mock.NewMockCompleter(`["time tracking for remote teams", "how to track hours"]`),
		rankAI:  mock.NewMockCompleter(rankReply),
		aggregator: &testAggregator{results: []core.SearchResult{
			{Source: core.SourceReddit, Title: "a", URL: "https://reddit.com/r/a"},
			{Source: core.SourceTwitter, Title: "Acme", URL: "https://twitter.com/acme"},
			{Source: core.SourceQuora, Title: "b", URL: "https://quora.com/q/b"},
		}},
		monitor: &recordingMonitor{},
	}

	gen, err := querygen.New(f.queryAI)
	require.NoError(t, err)
	ranker, err := rank.New(f.rankAI)
	require.NoError(t, err)
	gate, err := billing.NewGate(store.Plans(), store.Usage())
	require.NoError(t, err)

	f.pipeline, err = NewPipeline(Components{
		Projects:   store.Projects(),
		Usage:      store.Usage(),
		Gate:       gate,
		Generator:  gen,
		Aggregator: f.aggregator,
		Ranker:     ranker,
	}, WithMonitor(f.monitor))
	require.NoError(t, err)
	return f
}

func (f *fixture) request() RunRequest {
	return RunRequest{ProjectID: f.project.ID, OwnerID: "u1"}
}

func TestNewPipeline_RequiresComponents(t *testing.T) {
	_, err := NewPipeline(Components{})
	assert.ErrorIs(t, err, ErrProjectRepositoryRequired)
}

func TestNewPipeline_InvalidOption(t *testing.T) {
	f := newFixture(t, core.PlanPro)
	_, err := NewPipeline(Components{
		Projects:   f.store.Projects(),
		Usage:      f.store.Usage(),
		Gate:       f.pipeline.gate,
		Generator:  f.pipeline.generator,
		Aggregator: f.aggregator,
		Ranker:     f.pipeline.ranker,
	}, WithRankInputCap(0))
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestRun_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.PlanPro)

	outcome, err := f.pipeline.Run(ctx, f.request())
	require.NoError(t, err)

	assert.Equal(t, []string{"time tracking for remote teams", "how to track hours"}, outcome.Queries)
	assert.Equal(t, outcome.Queries, f.aggregator.queries)
	assert.Equal(t, 3, outcome.Candidates)
	require.Len(t, outcome.Opportunities, 2)
	assert.Equal(t, "https://reddit.com/r/a", outcome.Opportunities[0].URL)
	require.Len(t, outcome.Competitors, 1)
	assert.Equal(t, "https://twitter.com/acme", outcome.Competitors[0].URL)

	// The competitor profile never reaches the ranker.
	assert.NotContains(t, f.rankAI.LastPrompt(), "twitter.com/acme")

	stored, err := f.store.Projects().GetProject(ctx, f.project.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusDone, stored.RunStatus)
	assert.Equal(t, outcome.Opportunities, stored.DiscoveryResults)
	assert.Equal(t, outcome.Competitors, stored.PossibleCompetitors)

	n, err := f.store.Usage().CountUsage(ctx, "u1", core.UsageOutcomeCompleted, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, []Stage{StagePending, StageGeneratingQueries, StageAggregating, StageRanking, StagePersisting, StageDone}, f.monitor.stages)
	assert.Nil(t, f.monitor.finished)
	assert.Same(t, outcome, f.monitor.outcome)
}

func TestRun_FreePlanHidesCompetitorsAndEnforcesQuota(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.PlanFree)

	outcome, err := f.pipeline.Run(ctx, f.request())
	require.NoError(t, err)
	assert.Empty(t, outcome.Competitors)

	_, err = f.pipeline.Run(ctx, f.request())
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, core.KindQuotaExceeded, runErr.Kind)
	assert.Equal(t, StagePending, runErr.Stage)
	assert.Equal(t, 1, f.queryAI.CallCount(), "no run attempted after quota rejection")

	stored, err := f.store.Projects().GetProject(ctx, f.project.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusDone, stored.RunStatus)
}

func TestRun_WrongOwnerIsNotFound(t *testing.T) {
	f := newFixture(t, core.PlanPro)

	_, err := f.pipeline.Run(context.Background(), RunRequest{ProjectID: f.project.ID, OwnerID: "u2"})
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, core.KindNotFound, runErr.Kind)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Zero(t, f.queryAI.CallCount())
}

func TestRun_NoQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.PlanPro)
	f.queryAI.Reply = `[]`

	_, err := f.pipeline.Run(ctx, f.request())
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StageGeneratingQueries, runErr.Stage)
	assert.Equal(t, core.KindNoQueries, runErr.Kind)

	stored, err := f.store.Projects().GetProject(ctx, f.project.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, stored.RunStatus)
	assert.Contains(t, stored.RunError, "no queries")

	n, err := f.store.Usage().CountUsage(ctx, "u1", core.UsageOutcomeFailed, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, StageFailed, f.monitor.stages[len(f.monitor.stages)-1])
}

func TestRun_MalformedQueryReply(t *testing.T) {
	f := newFixture(t, core.PlanPro)
	f.queryAI.Reply = "I cannot help with that."

	_, err := f.pipeline.Run(context.Background(), f.request())
	assert.ErrorIs(t, err, core.ErrMalformedResponse)
	assert.Equal(t, core.KindMalformedResponse, core.KindOf(err))
}

func TestRun_NoResults(t *testing.T) {
	f := newFixture(t, core.PlanPro)
	f.aggregator.results = nil

	_, err := f.pipeline.Run(context.Background(), f.request())
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StageAggregating, runErr.Stage)
	assert.Equal(t, core.KindNoResults, runErr.Kind)
	assert.Zero(t, f.rankAI.CallCount())
}

func TestRun_OnlyCompetitorResults(t *testing.T) {
	f := newFixture(t, core.PlanPro)
	f.aggregator.results = []core.SearchResult{
		{Source: core.SourceTwitter, Title: "Acme", URL: "https://twitter.com/acme"},
	}

	_, err := f.pipeline.Run(context.Background(), f.request())
	assert.ErrorIs(t, err, core.ErrNoResults)
}

func TestRun_RankerUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.PlanPro)
	f.rankAI.WithCompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("connection refused")
	})

	_, err := f.pipeline.Run(ctx, f.request())
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StageRanking, runErr.Stage)
	assert.Equal(t, core.KindUpstreamUnavailable, runErr.Kind)

	stored, err := f.store.Projects().GetProject(ctx, f.project.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, stored.RunStatus)
}

func TestRun_RankInputCap(t *testing.T) {
	f := newFixture(t, core.PlanPro)
	f.pipeline.rankInputCap = 1

	_, err := f.pipeline.Run(context.Background(), f.request())
	require.NoError(t, err)
	assert.Contains(t, f.rankAI.LastPrompt(), "reddit.com/r/a")
	assert.NotContains(t, f.rankAI.LastPrompt(), "quora.com/q/b")
}

func TestRun_ConcurrentRunRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.PlanPro)

	_, err := f.store.Projects().ClaimRun(ctx, f.project.ID, "u1", time.Now(), DefaultStaleAfter)
	require.NoError(t, err)

	_, err = f.pipeline.Run(ctx, f.request())
	assert.ErrorIs(t, err, core.ErrRunInProgress)
	assert.Zero(t, f.queryAI.CallCount())

	stored, err := f.store.Projects().GetProject(ctx, f.project.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusRunning, stored.RunStatus, "rejected run must not touch the active claim")
}

func TestRun_RerunReplacesResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.PlanPro)

	_, err := f.pipeline.Run(ctx, f.request())
	require.NoError(t, err)

	f.rankAI.Reply = "```json\n" + `[{"ranking": 1, "site": "Quora", "url": "https://quora.com/q/b"}]` + "\n```"
	outcome, err := f.pipeline.Run(ctx, f.request())
	require.NoError(t, err)
	require.Len(t, outcome.Opportunities, 1)

	stored, err := f.store.Projects().GetProject(ctx, f.project.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, outcome.Opportunities, stored.DiscoveryResults)
}

func TestRunError_Unwrap(t *testing.T) {
	err := &RunError{Stage: StageRanking, Kind: core.KindMalformedResponse, Err: core.ErrMalformedResponse}
	assert.ErrorIs(t, err, core.ErrMalformedResponse)
	assert.Contains(t, err.Error(), "ranking")
}

func TestRun_ConcurrentRunsShareQuota(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.PlanFree)
	second, err := f.store.Projects().CreateProject(ctx, &core.Project{
		OwnerID:     "u1",
		Name:        "Ledger",
		Description: "Invoicing for agencies",
	})
	require.NoError(t, err)

	// The first run holds inside query generation; later calls pass through.
	entered := make(chan struct{})
	release := make(chan struct{})
	reply := f.queryAI.Reply
	var calls atomic.Int32
	f.queryAI.WithCompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return reply, nil
	})

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.pipeline.Run(ctx, f.request())
		firstErr <- err
	}()
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never reached query generation")
	}

	_, err = f.pipeline.Run(ctx, RunRequest{ProjectID: second.ID, OwnerID: "u1"})
	close(release)
	require.NoError(t, <-firstErr)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, core.KindQuotaExceeded, runErr.Kind)
	assert.Equal(t, StagePending, runErr.Stage)
	assert.Equal(t, int32(1), calls.Load())

	n, err := f.store.Usage().CountUsage(ctx, "u1", core.UsageOutcomeCompleted, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.store.Projects().GetProject(ctx, second.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, stored.RunStatus)
}

func TestRun_StaleClaimDoesNotReserveQuota(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.PlanFree)
	abandoned, err := f.store.Projects().CreateProject(ctx, &core.Project{
		OwnerID:     "u1",
		Name:        "Ledger",
		Description: "Invoicing for agencies",
	})
	require.NoError(t, err)
	_, err = f.store.Projects().ClaimRun(ctx, abandoned.ID, "u1", time.Now().Add(-time.Hour), DefaultStaleAfter)
	require.NoError(t, err)

	_, err = f.pipeline.Run(ctx, f.request())
	assert.NoError(t, err)
}

// failingProjects fails SaveRunResult and delegates everything else.
type failingProjects struct {
	storage.ProjectRepository
	saveErr error
}

func (p *failingProjects) SaveRunResult(ctx context.Context, id core.ID, ownerID string, result storage.RunResult) error {
	return p.saveErr
}

// failingUsage fails AppendUsage and delegates everything else.
type failingUsage struct {
	storage.UsageRepository
	appendErr error
}

func (u *failingUsage) AppendUsage(ctx context.Context, event *core.UsageEvent) error {
	return u.appendErr
}

func (f *fixture) rebuild(t *testing.T, projects storage.ProjectRepository, usage storage.UsageRepository) {
	t.Helper()
	var err error
	f.pipeline, err = NewPipeline(Components{
		Projects:   projects,
		Usage:      usage,
		Gate:       f.pipeline.gate,
		Generator:  f.pipeline.generator,
		Aggregator: f.aggregator,
		Ranker:     f.pipeline.ranker,
	}, WithMonitor(f.monitor))
	require.NoError(t, err)
}

func TestRun_PersistNotFoundFailsRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.PlanPro)
	f.rebuild(t, &failingProjects{ProjectRepository: f.store.Projects(), saveErr: storage.ErrNotFound}, f.store.Usage())

	_, err := f.pipeline.Run(ctx, f.request())
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StagePersisting, runErr.Stage)
	assert.Equal(t, core.KindNotFound, runErr.Kind)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stored, err := f.store.Projects().GetProject(ctx, f.project.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, stored.RunStatus)
	assert.Empty(t, stored.DiscoveryResults)

	n, err := f.store.Usage().CountUsage(ctx, "u1", core.UsageOutcomeCompleted, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = f.store.Usage().CountUsage(ctx, "u1", core.UsageOutcomeFailed, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_UsageAppendFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.PlanPro)
	f.rebuild(t, f.store.Projects(), &failingUsage{UsageRepository: f.store.Usage(), appendErr: errors.New("disk full")})

	outcome, err := f.pipeline.Run(ctx, f.request())
	require.NoError(t, err)
	assert.NotEmpty(t, outcome.Opportunities)

	stored, err := f.store.Projects().GetProject(ctx, f.project.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusDone, stored.RunStatus)

	events, err := f.store.Usage().ListUsage(ctx, "u1", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, events)
}
