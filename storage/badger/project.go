package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/storage"
)

// ProjectRepository implements storage.ProjectRepository for BadgerDB.
type ProjectRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ProjectRepository = (*ProjectRepository)(nil)

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(backend *Backend) (*ProjectRepository, error) {
	idSeq, err := backend.GetSequence(projectIDSeq)
	if err != nil {
		return nil, err
	}

	return &ProjectRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ProjectRepository) Close() error {
	return r.idSeq.Release()
}

// CreateProject stores a new project under a fresh sequence ID.
func (r *ProjectRepository) CreateProject(ctx context.Context, project *core.Project) (*core.Project, error) {
	if err := core.ValidateProject(project); err != nil {
		return nil, err
	}

	nextID, err := r.idSeq.Next()
	if err != nil {
		return nil, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		nextID, err = r.idSeq.Next()
		if err != nil {
			return nil, err
		}
	}

	stored := *project
	stored.ID = core.ID(nextID)
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	stored.RunStatus = core.RunStatusPending

	err = r.backend.Update(func(tx *badger.Txn) error {
		if err := writeProject(tx, &stored); err != nil {
			return err
		}
		return tx.Set(makeProjectOwnerKey(stored.OwnerID, stored.ID), nil)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetProject retrieves a project by ID and owner.
func (r *ProjectRepository) GetProject(ctx context.Context, id core.ID, ownerID string) (*core.Project, error) {
	var result *core.Project
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readOwnedProject(tx, id, ownerID)
		return err
	}, false)
	return result, err
}

// ListProjects retrieves all projects of an owner, newest first.
func (r *ProjectRepository) ListProjects(ctx context.Context, ownerID string) ([]*core.Project, error) {
	var results []*core.Project
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialProjectOwnerKey(ownerID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var ids []core.ID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			ids = append(ids, core.ID(decodeUint64(key[len(prefix):])))
		}

		for _, id := range slices.Backward(ids) {
			project, err := readProject(tx, id)
			if err != nil {
				return err
			}
			if project != nil {
				results = append(results, project)
			}
		}
		return nil
	}, false)
	return results, err
}

// UpdateProjectDetails replaces the descriptive fields of a project.
func (r *ProjectRepository) UpdateProjectDetails(ctx context.Context, id core.ID, ownerID, name, description string, targetProfiles []string) (*core.Project, error) {
	var updated *core.Project
	err := r.modify(id, ownerID, func(p *core.Project) error {
		p.Name = name
		p.Description = description
		p.TargetProfiles = core.CleanStrings(targetProfiles)
		if err := core.ValidateProject(p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	return updated, err
}

// ClaimRun moves the project to running unless a fresh run holds it.
func (r *ProjectRepository) ClaimRun(ctx context.Context, id core.ID, ownerID string, now time.Time, staleAfter time.Duration) (*core.Project, error) {
	var claimed *core.Project
	err := r.modify(id, ownerID, func(p *core.Project) error {
		if !storage.ClaimAllowed(p, now.Add(-staleAfter)) {
			return core.ErrRunInProgress
		}
		p.RunStatus = core.RunStatusRunning
		p.RunStartedAt = now.UTC()
		p.RunFinishedAt = time.Time{}
		p.RunError = ""
		claimed = p
		return nil
	})
	return claimed, err
}

// SaveRunResult stores a successful run's results and marks it done.
func (r *ProjectRepository) SaveRunResult(ctx context.Context, id core.ID, ownerID string, result storage.RunResult) error {
	return r.modify(id, ownerID, func(p *core.Project) error {
		p.Queries = result.Queries
		p.DiscoveryResults = nonNil(result.Opportunities)
		p.PossibleCompetitors = nonNil(result.Competitors)
		p.RunStatus = core.RunStatusDone
		p.RunError = ""
		p.RunFinishedAt = result.FinishedAt.UTC()
		return nil
	})
}

// SaveRunFailure marks the run failed.
func (r *ProjectRepository) SaveRunFailure(ctx context.Context, id core.ID, ownerID string, message string, finishedAt time.Time) error {
	return r.modify(id, ownerID, func(p *core.Project) error {
		p.RunStatus = core.RunStatusFailed
		p.RunError = message
		p.RunFinishedAt = finishedAt.UTC()
		return nil
	})
}

// RemoveOpportunity deletes one discovery result.
func (r *ProjectRepository) RemoveOpportunity(ctx context.Context, id core.ID, ownerID string, resultID core.ResultID) error {
	return r.modify(id, ownerID, func(p *core.Project) error {
		results, ok := storage.RemoveOpportunity(p.DiscoveryResults, resultID)
		if !ok {
			return storage.ErrNotFound
		}
		p.DiscoveryResults = results
		return nil
	})
}

// RemoveCompetitor deletes one possible competitor.
func (r *ProjectRepository) RemoveCompetitor(ctx context.Context, id core.ID, ownerID string, resultID core.ResultID) error {
	return r.modify(id, ownerID, func(p *core.Project) error {
		competitors, ok := storage.RemoveCompetitor(p.PossibleCompetitors, resultID)
		if !ok {
			return storage.ErrNotFound
		}
		p.PossibleCompetitors = competitors
		return nil
	})
}

// modify reads the owned project, applies fn and writes the result back in
// one transaction. UpdatedAt is maintained automatically.
func (r *ProjectRepository) modify(id core.ID, ownerID string, fn func(p *core.Project) error) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		project, err := readOwnedProject(tx, id, ownerID)
		if err != nil {
			return err
		}
		if err := fn(project); err != nil {
			return err
		}
		project.UpdatedAt = time.Now().UTC()
		return writeProject(tx, project)
	})
}

func writeProject(tx *badger.Txn, project *core.Project) error {
	value, err := storage.MarshalProject(project)
	if err != nil {
		return err
	}
	return tx.Set(makeProjectKey(project.ID), value)
}

// readProject reads a project. Returns nil, nil if it doesn't exist.
func readProject(tx *badger.Txn, id core.ID) (*core.Project, error) {
	item, err := tx.Get(makeProjectKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var project *core.Project
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		project, unmarshalErr = storage.UnmarshalProject(val)
		return unmarshalErr
	})
	return project, err
}

// readOwnedProject reads a project and checks its owner.
func readOwnedProject(tx *badger.Txn, id core.ID, ownerID string) (*core.Project, error) {
	project, err := readProject(tx, id)
	if err != nil {
		return nil, err
	}
	if project == nil || project.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return project, nil
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
