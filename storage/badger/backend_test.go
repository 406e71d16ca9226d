package badger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/leadhunt/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "db")
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	info, err := os.Stat(tmpDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0o644))

	_, err := OpenBackend(tmpFile, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	err = backend.WithTx(func(tx *badger.Txn) error { return nil }, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestBackendUpdate_Commits(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	err = backend.Update(func(tx *badger.Txn) error {
		return tx.Set([]byte("k"), []byte("v"))
	})
	require.NoError(t, err)

	err = backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte("k"))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		assert.Equal(t, "v", string(val))
		return err
	}, false)
	require.NoError(t, err)
}

func TestBackendUpdate_ErrorDiscards(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	boom := errors.New("boom")
	err = backend.Update(func(tx *badger.Txn) error {
		if err := tx.Set([]byte("k"), []byte("v")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get([]byte("k"))
		return err
	}, false)
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)
}

func TestBackendUpdate_RetriesConflict(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	attempts := 0
	err = backend.Update(func(tx *badger.Txn) error {
		attempts++
		if attempts == 1 {
			return badger.ErrConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestBackendUpdate_GivesUpAfterRetries(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	attempts := 0
	err = backend.Update(func(tx *badger.Txn) error {
		attempts++
		return badger.ErrConflict
	})
	assert.ErrorIs(t, err, storage.ErrTransactionFailed)
	assert.Equal(t, maxConflictRetries, attempts)
}

func TestKeys_OwnerPrefixesDoNotOverlap(t *testing.T) {
	a := makePartialProjectOwnerKey("a")
	ab := makeProjectOwnerKey("a:b", 1)
	assert.NotEqual(t, string(a), string(ab[:len(a)]))
}

func TestKeys_UsageOrderedByTime(t *testing.T) {
	earlier := makeUsageKey("u1", mustTime(t, "2025-01-01T00:00:00Z"), "x")
	later := makeUsageKey("u1", mustTime(t, "2025-02-01T00:00:00Z"), "a")
	assert.Less(t, string(earlier), string(later))

	before1970 := makeUsageKey("u1", mustTime(t, "1969-12-31T00:00:00Z"), "z")
	assert.Less(t, string(before1970), string(earlier))

	zeroSeek := makeUsageSeekKey("u1", time.Time{})
	assert.Less(t, string(zeroSeek), string(before1970))
}
