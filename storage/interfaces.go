package storage

import (
	"context"
	"time"

	"github.com/poiesic/leadhunt/core"
)

// RunResult is everything a successful discovery run persists.
type RunResult struct {
	Queries       []string
	Opportunities []core.RankedResult
	Competitors   []core.Competitor
	FinishedAt    time.Time
}

// ProjectRepository provides operations for managing projects.
// Every operation on an existing project is filtered by id AND owner: a
// project owned by someone else is indistinguishable from a missing one.
type ProjectRepository interface {
	// CreateProject stores a new project.
	// Assigns the ID, sets CreatedAt/UpdatedAt and RunStatus pending.
	// Returns the project with generated fields populated.
	CreateProject(ctx context.Context, project *core.Project) (*core.Project, error)

	// GetProject retrieves a project.
	// Returns ErrNotFound if it doesn't exist or belongs to another owner.
	GetProject(ctx context.Context, id core.ID, ownerID string) (*core.Project, error)

	// ListProjects retrieves all projects of an owner, newest first.
	ListProjects(ctx context.Context, ownerID string) ([]*core.Project, error)

	// UpdateProjectDetails replaces name, description and target profiles.
	// Returns ErrNotFound if the id+owner filter matches nothing.
	UpdateProjectDetails(ctx context.Context, id core.ID, ownerID, name, description string, targetProfiles []string) (*core.Project, error)

	// ClaimRun atomically moves the project to RunStatusRunning.
	// A project already running for less than staleAfter is not claimed
	// and core.ErrRunInProgress is returned.
	// Returns ErrNotFound if the id+owner filter matches nothing.
	ClaimRun(ctx context.Context, id core.ID, ownerID string, now time.Time, staleAfter time.Duration) (*core.Project, error)

	// SaveRunResult stores the outcome of a successful run and marks it done,
	// in one conditional write.
	// Returns ErrNotFound if the id+owner filter matches nothing.
	SaveRunResult(ctx context.Context, id core.ID, ownerID string, result RunResult) error

	// SaveRunFailure marks the run failed and records the error message.
	// Existing results are left untouched.
	// Returns ErrNotFound if the id+owner filter matches nothing.
	SaveRunFailure(ctx context.Context, id core.ID, ownerID string, message string, finishedAt time.Time) error

	// RemoveOpportunity deletes one entry from the project's discovery results.
	// Returns ErrNotFound if the project or the entry doesn't exist.
	RemoveOpportunity(ctx context.Context, id core.ID, ownerID string, resultID core.ResultID) error

	// RemoveCompetitor deletes one entry from the project's possible competitors.
	// Returns ErrNotFound if the project or the entry doesn't exist.
	RemoveCompetitor(ctx context.Context, id core.ID, ownerID string, resultID core.ResultID) error

	// Close releases resources held by the repository.
	Close() error
}

// UsageRepository is the append-only hunt log used for quota accounting.
type UsageRepository interface {
	// AppendUsage stores one usage event. Generates the ID and CreatedAt if unset.
	AppendUsage(ctx context.Context, event *core.UsageEvent) error

	// CountUsage counts an owner's events with the given outcome created at or after since.
	CountUsage(ctx context.Context, ownerID string, outcome core.UsageOutcome, since time.Time) (int, error)

	// ListUsage retrieves an owner's events created at or after since, oldest first.
	ListUsage(ctx context.Context, ownerID string, since time.Time) ([]*core.UsageEvent, error)

	// Close releases resources held by the repository.
	Close() error
}

// PlanRepository stores the subscription plan of every owner.
type PlanRepository interface {
	// GetPlan returns the owner's plan. Owners without a stored plan are on core.PlanFree.
	GetPlan(ctx context.Context, ownerID string) (core.Plan, error)

	// SetPlan stores the owner's plan.
	SetPlan(ctx context.Context, ownerID string, plan core.Plan) error

	// Close releases resources held by the repository.
	Close() error
}

// Store bundles the repositories of one storage backend.
type Store interface {
	Projects() ProjectRepository
	Usage() UsageRepository
	Plans() PlanRepository

	// Close closes every repository and the underlying backend.
	Close() error
}
