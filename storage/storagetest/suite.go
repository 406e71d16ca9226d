// Package storagetest holds behaviour tests shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens an empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

// Run exercises a storage.Store implementation.
func Run(t *testing.T, open Factory) {
	t.Run("Projects", func(t *testing.T) { testProjects(t, open(t)) })
	t.Run("Claim", func(t *testing.T) { testClaim(t, open(t)) })
	t.Run("RunResults", func(t *testing.T) { testRunResults(t, open(t)) })
	t.Run("Usage", func(t *testing.T) { testUsage(t, open(t)) })
	t.Run("Plans", func(t *testing.T) { testPlans(t, open(t)) })
}

func newProject(owner string) *core.Project {
	return &core.Project{
		OwnerID:        owner,
		Name:           "Timely",
		Description:    "Time tracking for remote teams",
		TargetProfiles: []string{"remote managers"},
	}
}

func testProjects(t *testing.T, store storage.Store) {
	defer store.Close()
	ctx := context.Background()
	repo := store.Projects()

	first, err := repo.CreateProject(ctx, newProject("u1"))
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, core.RunStatusPending, first.RunStatus)
	assert.Equal(t, []string{"remote managers"}, first.TargetProfiles)

	second, err := repo.CreateProject(ctx, newProject("u1"))
	require.NoError(t, err)
	_, err = repo.CreateProject(ctx, newProject("u2"))
	require.NoError(t, err)

	_, err = repo.CreateProject(ctx, &core.Project{OwnerID: "u1"})
	assert.ErrorIs(t, err, core.ErrInvalidProject)

	list, err := repo.ListProjects(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	_, err = repo.GetProject(ctx, first.ID, "u2")
	assert.ErrorIs(t, err, core.ErrNotFound)

	updated, err := repo.UpdateProjectDetails(ctx, first.ID, "u1", "Timely Pro", "Tracking", []string{"a", " a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "Timely Pro", updated.Name)
	assert.Equal(t, []string{"a", "b"}, updated.TargetProfiles)

	_, err = repo.UpdateProjectDetails(ctx, first.ID, "u2", "x", "y", nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testClaim(t *testing.T, store storage.Store) {
	defer store.Close()
	ctx := context.Background()
	repo := store.Projects()
	p, err := repo.CreateProject(ctx, newProject("u1"))
	require.NoError(t, err)
	now := time.Now().UTC()

	claimed, err := repo.ClaimRun(ctx, p.ID, "u1", now, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusRunning, claimed.RunStatus)

	_, err = repo.ClaimRun(ctx, p.ID, "u1", now.Add(time.Minute), 5*time.Minute)
	assert.ErrorIs(t, err, core.ErrRunInProgress)

	_, err = repo.ClaimRun(ctx, p.ID, "u1", now.Add(10*time.Minute), 5*time.Minute)
	assert.NoError(t, err)

	_, err = repo.ClaimRun(ctx, p.ID, "u2", now, 5*time.Minute)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testRunResults(t *testing.T, store storage.Store) {
	defer store.Close()
	ctx := context.Background()
	repo := store.Projects()
	p, err := repo.CreateProject(ctx, newProject("u1"))
	require.NoError(t, err)

	opp := core.RankedResult{Ranking: 1, Site: core.SourceReddit, URL: "https://reddit.com/r/a"}
	comp := core.Competitor{Site: core.SourceTwitter, Title: "Acme", URL: "https://twitter.com/acme"}
	require.NoError(t, repo.SaveRunResult(ctx, p.ID, "u1", storage.RunResult{
		Queries:       []string{"q1"},
		Opportunities: []core.RankedResult{opp},
		Competitors:   []core.Competitor{comp},
		FinishedAt:    time.Now(),
	}))

	got, err := repo.GetProject(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusDone, got.RunStatus)
	assert.Equal(t, []core.RankedResult{opp}, got.DiscoveryResults)
	assert.Equal(t, []core.Competitor{comp}, got.PossibleCompetitors)
	assert.Equal(t, []string{"q1"}, got.Queries)

	assert.ErrorIs(t, repo.SaveRunResult(ctx, p.ID, "u2", storage.RunResult{}), core.ErrNotFound)

	require.NoError(t, repo.SaveRunFailure(ctx, p.ID, "u1", "boom", time.Now()))
	got, err = repo.GetProject(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, got.RunStatus)
	assert.Equal(t, "boom", got.RunError)
	assert.Len(t, got.DiscoveryResults, 1)

	require.NoError(t, repo.RemoveOpportunity(ctx, p.ID, "u1", opp.ID()))
	assert.ErrorIs(t, repo.RemoveOpportunity(ctx, p.ID, "u1", opp.ID()), core.ErrNotFound)
	assert.ErrorIs(t, repo.RemoveCompetitor(ctx, p.ID, "u2", comp.ID()), core.ErrNotFound)
	require.NoError(t, repo.RemoveCompetitor(ctx, p.ID, "u1", comp.ID()))

	got, err = repo.GetProject(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.DiscoveryResults)
	assert.Empty(t, got.PossibleCompetitors)
}

func testUsage(t *testing.T, store storage.Store) {
	defer store.Close()
	ctx := context.Background()
	repo := store.Usage()
	month := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, e := range []*core.UsageEvent{
		{OwnerID: "u1", ProjectID: 1, Outcome: core.UsageOutcomeCompleted, CreatedAt: month.Add(-time.Hour)},
		{OwnerID: "u1", ProjectID: 1, Outcome: core.UsageOutcomeCompleted, CreatedAt: month.Add(time.Hour)},
		{OwnerID: "u1", ProjectID: 1, Outcome: core.UsageOutcomeFailed, CreatedAt: month.Add(2 * time.Hour)},
		{OwnerID: "u2", ProjectID: 2, Outcome: core.UsageOutcomeCompleted, CreatedAt: month.Add(time.Hour)},
	} {
		require.NoError(t, repo.AppendUsage(ctx, e))
		assert.NotEmpty(t, e.ID)
	}

	n, err := repo.CountUsage(ctx, "u1", core.UsageOutcomeCompleted, month)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	events, err := repo.ListUsage(ctx, "u1", month)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, core.UsageOutcomeCompleted, events[0].Outcome)
	assert.Equal(t, core.UsageOutcomeFailed, events[1].Outcome)
}

func testPlans(t *testing.T, store storage.Store) {
	defer store.Close()
	ctx := context.Background()
	repo := store.Plans()

	plan, err := repo.GetPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.PlanFree, plan)

	require.NoError(t, repo.SetPlan(ctx, "u1", core.PlanStarter))
	require.NoError(t, repo.SetPlan(ctx, "u1", core.PlanPro))
	plan, err = repo.GetPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.PlanPro, plan)

	assert.ErrorIs(t, repo.SetPlan(ctx, "u1", "gold"), core.ErrInvalidPlan)
}
