package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/storage"
	"github.com/poiesic/leadhunt/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Plans()

	plan, err := repo.GetPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.PlanFree, plan)

	require.NoError(t, repo.SetPlan(ctx, "u1", core.PlanPro))
	plan, err = repo.GetPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.PlanPro, plan)

	assert.ErrorIs(t, repo.SetPlan(ctx, "u1", core.Plan("gold")), core.ErrInvalidPlan)
}

func TestStore_CloseTwice(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestOpen_FailureReturnsNilStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not_a_dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	store, err := Open(path)
	require.Error(t, err)
	assert.Nil(t, store)

	var nilStore *Store
	assert.NoError(t, nilStore.Close())
}

func TestStoreSuite(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		store, err := OpenInMemory()
		require.NoError(t, err)
		return store
	})
}
