package leadhunt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/leadhunt/ai/mock"
	"github.com/poiesic/leadhunt/config"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/discovery"
	"github.com/poiesic/leadhunt/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticAdapter implements search.Adapter for testing
type staticAdapter struct {
	source  core.Source
	results []core.SearchResult
}

func (a *staticAdapter) Source() core.Source { return a.source }

func (a *staticAdapter) Search(ctx context.Context, query string) []core.SearchResult {
	return a.results
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "test_db")
	return cfg
}

func TestNew(t *testing.T) {
	t.Run("create new app", func(t *testing.T) {
		app, err := New(context.Background(), testConfig(t), WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, app)
		defer app.Close()

		assert.NotNil(t, app.Store())
		assert.NotNil(t, app.Pipeline())
		assert.NotNil(t, app.Generator())
		assert.NotNil(t, app.Gate())
		assert.NotEmpty(t, app.Aggregator().Adapters())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a store at a file path instead of directory
		cfg := testConfig(t)
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))
		cfg.Storage.Path = tmpFile

		app, err := New(context.Background(), cfg, WithProvider(mock.NewMockProvider()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open store")
		assert.Nil(t, app)
	})

	t.Run("error with invalid ai config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.AI.Backend = "bogus"
		_, err := New(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, config.StorageConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = OpenStore(ctx, config.StorageConfig{Driver: "mongo"})
	assert.ErrorIs(t, err, storage.ErrUnknownDriver)
}

func TestApp_EndToEnd(t *testing.T) {
	ctx := context.Background()
	query := mock.NewMockCompleter(`["time tracking remote teams"]`)
	rank := mock.NewMockCompleter("```json\n" + `[{"ranking": 1, "site": "Reddit", "url": "https://reddit.com/r/x/1"}]` + "\n```")
	adapter := &staticAdapter{source: core.SourceReddit, results: []core.SearchResult{
		{Source: core.SourceReddit, Title: "How do you track hours?", URL: "https://reddit.com/r/x/1"},
		{Source: core.SourceReddit, Title: "Other", URL: "https://reddit.com/r/x/2"},
	}}

	app, err := New(ctx, testConfig(t),
		WithProvider(mock.NewMockProviderWithServices(query, rank)),
		WithAdapters(adapter),
	)
	require.NoError(t, err)
	defer app.Close()

	project, err := app.Store().Projects().CreateProject(ctx, &core.Project{
		OwnerID: "u1", Name: "Timely", Description: "Time tracking",
	})
	require.NoError(t, err)

	outcome, err := app.Pipeline().Run(ctx, discovery.RunRequest{ProjectID: project.ID, OwnerID: "u1"})
	require.NoError(t, err)
	require.Len(t, outcome.Opportunities, 1)
	assert.Equal(t, "https://reddit.com/r/x/1", outcome.Opportunities[0].URL)
}

func TestApp_Close(t *testing.T) {
	app, err := New(context.Background(), testConfig(t), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.NoError(t, app.Close())
}

func TestApp_NewServer(t *testing.T) {
	app, err := New(context.Background(), testConfig(t), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer app.Close()

	srv, err := app.NewServer()
	require.NoError(t, err)
	defer srv.Release()

	h := srv.Handler()
	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("X-User-ID", "u1")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
