package discovery

import (
	"errors"
	"fmt"

	"github.com/poiesic/leadhunt/core"
)

var (
	// ErrProjectRepositoryRequired is returned when a project repository is not provided.
	ErrProjectRepositoryRequired = errors.New("project repository required")

	// ErrUsageRepositoryRequired is returned when a usage repository is not provided.
	ErrUsageRepositoryRequired = errors.New("usage repository required")

	// ErrQuotaGateRequired is returned when a quota gate is not provided.
	ErrQuotaGateRequired = errors.New("quota gate required")

	// ErrQueryGeneratorRequired is returned when a query generator is not provided.
	ErrQueryGeneratorRequired = errors.New("query generator required")

	// ErrAggregatorRequired is returned when a search aggregator is not provided.
	ErrAggregatorRequired = errors.New("search aggregator required")

	// ErrRankerRequired is returned when a ranker is not provided.
	ErrRankerRequired = errors.New("ranker required")

	// ErrInvalidOption is returned for out-of-range option values.
	ErrInvalidOption = errors.New("invalid pipeline option")
)

// RunError describes a failed discovery run.
type RunError struct {
	RunID string
	Stage Stage
	Kind  core.ErrorKind
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("discovery run failed at %s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
