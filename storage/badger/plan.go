package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/storage"
)

// PlanRepository implements storage.PlanRepository for BadgerDB.
type PlanRepository struct {
	backend *Backend
}

var _ storage.PlanRepository = (*PlanRepository)(nil)

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(backend *Backend) *PlanRepository {
	return &PlanRepository{backend: backend}
}

func (r *PlanRepository) Close() error {
	return nil
}

// GetPlan returns the owner's plan, core.PlanFree when none is stored.
func (r *PlanRepository) GetPlan(ctx context.Context, ownerID string) (core.Plan, error) {
	plan := core.PlanFree
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makePlanKey(ownerID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, err := core.ParsePlan(string(val))
			if err != nil {
				return err
			}
			plan = parsed
			return nil
		})
	}, false)
	return plan, err
}

// SetPlan stores the owner's plan.
func (r *PlanRepository) SetPlan(ctx context.Context, ownerID string, plan core.Plan) error {
	parsed, err := core.ParsePlan(string(plan))
	if err != nil {
		return err
	}
	return r.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makePlanKey(ownerID), []byte(parsed))
	})
}
