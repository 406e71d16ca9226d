package badger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, _, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestProject(t *testing.T, repo storage.ProjectRepository, owner string) *core.Project {
	t.Helper()
	p, err := repo.CreateProject(context.Background(), &core.Project{
		OwnerID:        owner,
		Name:           "Timely",
		Description:    "Time tracking for remote teams",
		TargetProfiles: []string{"remote managers"},
	})
	require.NoError(t, err)
	return p
}

func TestProjectRepository_Create(t *testing.T) {
	repo := newTestStore(t).Projects()

	p := createTestProject(t, repo, "u1")
	assert.NotZero(t, p.ID)
	assert.Equal(t, core.RunStatusPending, p.RunStatus)
	assert.False(t, p.CreatedAt.IsZero())

	p2 := createTestProject(t, repo, "u1")
	assert.NotEqual(t, p.ID, p2.ID)
}

func TestProjectRepository_CreateInvalid(t *testing.T) {
	repo := newTestStore(t).Projects()

	_, err := repo.CreateProject(context.Background(), &core.Project{OwnerID: "u1"})
	assert.ErrorIs(t, err, core.ErrInvalidProject)
}

func TestProjectRepository_GetOwnerScoped(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Projects()
	p := createTestProject(t, repo, "u1")

	got, err := repo.GetProject(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, []string{"remote managers"}, got.TargetProfiles)

	_, err = repo.GetProject(ctx, p.ID, "u2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.GetProject(ctx, p.ID+100, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProjectRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Projects()
	first := createTestProject(t, repo, "u1")
	second := createTestProject(t, repo, "u1")
	createTestProject(t, repo, "u2")

	list, err := repo.ListProjects(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	list, err = repo.ListProjects(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProjectRepository_UpdateDetails(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Projects()
	p := createTestProject(t, repo, "u1")

	updated, err := repo.UpdateProjectDetails(ctx, p.ID, "u1", "Timely 2", "Better tracking", []string{" a ", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "Timely 2", updated.Name)
	assert.Equal(t, []string{"a", "b"}, updated.TargetProfiles)

	_, err = repo.UpdateProjectDetails(ctx, p.ID, "u2", "x", "y", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.UpdateProjectDetails(ctx, p.ID, "u1", "", "y", nil)
	assert.ErrorIs(t, err, core.ErrInvalidProject)

	got, err := repo.GetProject(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Timely 2", got.Name)
}

func TestProjectRepository_ClaimRun(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Projects()
	p := createTestProject(t, repo, "u1")
	now := time.Now().UTC()

	claimed, err := repo.ClaimRun(ctx, p.ID, "u1", now, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusRunning, claimed.RunStatus)

	_, err = repo.ClaimRun(ctx, p.ID, "u1", now.Add(time.Minute), 5*time.Minute)
	assert.ErrorIs(t, err, core.ErrRunInProgress)

	// A stale claim can be taken over.
	_, err = repo.ClaimRun(ctx, p.ID, "u1", now.Add(10*time.Minute), 5*time.Minute)
	require.NoError(t, err)

	_, err = repo.ClaimRun(ctx, p.ID, "u2", now, 5*time.Minute)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProjectRepository_ClaimRunConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Projects()
	p := createTestProject(t, repo, "u1")
	now := time.Now().UTC()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ClaimRun(ctx, p.ID, "u1", now, 5*time.Minute); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestProjectRepository_SaveRunResultAndFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Projects()
	p := createTestProject(t, repo, "u1")
	finished := mustTime(t, "2025-03-01T12:00:00Z")

	err := repo.SaveRunResult(ctx, p.ID, "u1", storage.RunResult{
		Queries:       []string{"q1"},
		Opportunities: []core.RankedResult{{Ranking: 1, Site: core.SourceReddit, URL: "https://reddit.com/r/a"}},
		FinishedAt:    finished,
	})
	require.NoError(t, err)

	got, err := repo.GetProject(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusDone, got.RunStatus)
	assert.Len(t, got.DiscoveryResults, 1)
	assert.NotNil(t, got.PossibleCompetitors)
	assert.True(t, finished.Equal(got.RunFinishedAt))

	err = repo.SaveRunFailure(ctx, p.ID, "u1", "search failed", finished.Add(time.Hour))
	require.NoError(t, err)

	got, err = repo.GetProject(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, got.RunStatus)
	assert.Equal(t, "search failed", got.RunError)
	assert.Len(t, got.DiscoveryResults, 1, "failure keeps previous results")

	assert.ErrorIs(t, repo.SaveRunFailure(ctx, p.ID, "u2", "x", finished), storage.ErrNotFound)
}

func TestProjectRepository_RemoveEntries(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Projects()
	p := createTestProject(t, repo, "u1")

	opp := core.RankedResult{Ranking: 1, Site: core.SourceReddit, URL: "https://reddit.com/r/a"}
	comp := core.Competitor{Site: core.SourceTwitter, Title: "Acme", URL: "https://twitter.com/acme"}
	require.NoError(t, repo.SaveRunResult(ctx, p.ID, "u1", storage.RunResult{
		Opportunities: []core.RankedResult{opp},
		Competitors:   []core.Competitor{comp},
		FinishedAt:    time.Now(),
	}))

	require.NoError(t, repo.RemoveOpportunity(ctx, p.ID, "u1", opp.ID()))
	assert.ErrorIs(t, repo.RemoveOpportunity(ctx, p.ID, "u1", opp.ID()), storage.ErrNotFound)

	assert.ErrorIs(t, repo.RemoveCompetitor(ctx, p.ID, "u2", comp.ID()), storage.ErrNotFound)
	require.NoError(t, repo.RemoveCompetitor(ctx, p.ID, "u1", comp.ID()))

	got, err := repo.GetProject(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.DiscoveryResults)
	assert.Empty(t, got.PossibleCompetitors)
}
