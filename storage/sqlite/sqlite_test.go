package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/poiesic/leadhunt/storage"
	"github.com/poiesic/leadhunt/storage/storagetest"
)

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := New(filepath.Join(t.TempDir(), "leadhunt.db"))
		if err != nil {
			t.Fatalf("Failed to create SQLite store: %v", err)
		}
		return s
	})
}

func TestToMicros(t *testing.T) {
	var zero = fromMicros(0)
	if !zero.IsZero() {
		t.Errorf("fromMicros(0) = %v, want zero time", zero)
	}
	if toMicros(zero) != 0 {
		t.Errorf("toMicros(zero) = %d, want 0", toMicros(zero))
	}
}
