package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/storage"
)

// UsageRepository implements storage.UsageRepository for BadgerDB.
// Events are keyed by owner and creation time so range scans stay ordered.
type UsageRepository struct {
	backend *Backend
}

var _ storage.UsageRepository = (*UsageRepository)(nil)

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(backend *Backend) *UsageRepository {
	return &UsageRepository{backend: backend}
}

// Close is a no-op; the backend is owned by the Store.
func (r *UsageRepository) Close() error {
	return nil
}

// AppendUsage stores one usage event.
func (r *UsageRepository) AppendUsage(ctx context.Context, event *core.UsageEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	value, err := storage.MarshalUsageEvent(event)
	if err != nil {
		return err
	}
	return r.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeUsageKey(event.OwnerID, event.CreatedAt, event.ID), value)
	})
}

// CountUsage counts an owner's events with the given outcome since a point in time.
func (r *UsageRepository) CountUsage(ctx context.Context, ownerID string, outcome core.UsageOutcome, since time.Time) (int, error) {
	count := 0
	err := r.scan(ownerID, since, func(event *core.UsageEvent) {
		if event.Outcome == outcome {
			count++
		}
	})
	return count, err
}

// ListUsage retrieves an owner's events since a point in time, oldest first.
func (r *UsageRepository) ListUsage(ctx context.Context, ownerID string, since time.Time) ([]*core.UsageEvent, error) {
	var events []*core.UsageEvent
	err := r.scan(ownerID, since, func(event *core.UsageEvent) {
		events = append(events, event)
	})
	return events, err
}

func (r *UsageRepository) scan(ownerID string, since time.Time, fn func(event *core.UsageEvent)) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialUsageKey(ownerID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeUsageSeekKey(ownerID, since)); iter.ValidForPrefix(prefix); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				event, err := storage.UnmarshalUsageEvent(val)
				if err != nil {
					return err
				}
				fn(event)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
}
