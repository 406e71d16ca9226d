package storage

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/poiesic/leadhunt/core"
)

func MarshalProject(project *core.Project) ([]byte, error) {
	data, err := json.Marshal(project)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

func UnmarshalProject(data []byte) (*core.Project, error) {
	var project core.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &project, nil
}

func MarshalUsageEvent(event *core.UsageEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

func UnmarshalUsageEvent(data []byte) (*core.UsageEvent, error) {
	var event core.UsageEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &event, nil
}

// MarshalList encodes a result list column. Nil lists encode as [].
func MarshalList[T any](list []T) ([]byte, error) {
	if list == nil {
		list = []T{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalList decodes a result list column. Empty input decodes as an empty list.
func UnmarshalList[T any](data []byte) ([]T, error) {
	list := []T{}
	if len(data) == 0 {
		return list, nil
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return list, nil
}

// RemoveOpportunity returns results without the entry identified by id and
// whether an entry was removed.
func RemoveOpportunity(results []core.RankedResult, id core.ResultID) ([]core.RankedResult, bool) {
	i := slices.IndexFunc(results, func(r core.RankedResult) bool { return r.ID() == id })
	if i < 0 {
		return results, false
	}
	return slices.Delete(slices.Clone(results), i, i+1), true
}

// RemoveCompetitor returns competitors without the entry identified by id and
// whether an entry was removed.
func RemoveCompetitor(competitors []core.Competitor, id core.ResultID) ([]core.Competitor, bool) {
	i := slices.IndexFunc(competitors, func(c core.Competitor) bool { return c.ID() == id })
	if i < 0 {
		return competitors, false
	}
	return slices.Delete(slices.Clone(competitors), i, i+1), true
}

// ClaimAllowed reports whether a run may start on a project in its current
// state. A running project whose run started at or after cutoff blocks the claim.
func ClaimAllowed(project *core.Project, cutoff time.Time) bool {
	if project.RunStatus != core.RunStatusRunning {
		return true
	}
	return project.RunStartedAt.Before(cutoff)
}
