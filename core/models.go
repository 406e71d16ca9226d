package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for projects.
// It is generated from storage sequences.
type ID uint64

// String renders the ID in base 10, the form used in URLs and logs.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses a base 10 project ID.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// ResultID is a content-derived identifier for an entry in a project's
// opportunity or competitor list.
type ResultID uint64

// String renders the ResultID in lowercase hex.
func (id ResultID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// ParseResultID parses a hex ResultID.
func ParseResultID(s string) (ResultID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, err
	}
	return ResultID(v), nil
}

// ResultIDFromURL derives a ResultID from a URL using BLAKE2b hashing.
// Identical URLs always produce identical IDs.
func ResultIDFromURL(url string) ResultID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(url))
	sum := h.Sum(nil)
	return ResultID(binary.LittleEndian.Uint64(sum))
}

// Source tags the forum a search result came from.
type Source string

const (
	SourceReddit     Source = "Reddit"
	SourceTwitter    Source = "Twitter"
	SourceQuora      Source = "Quora"
	SourceHackerNews Source = "HackerNews"
)

// Sources lists every known source in display order.
var Sources = []Source{SourceReddit, SourceTwitter, SourceQuora, SourceHackerNews}

// RunStatus tracks the lifecycle of the most recent discovery run of a project.
type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
)

// SearchResult is a normalized record returned by a search adapter.
// It only lives in memory for the duration of a run.
type SearchResult struct {
	Source  Source `json:"site"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
	Query   string `json:"query,omitempty"`
}

// RankedResult is one entry of a project's discovery results.
type RankedResult struct {
	Ranking int    `json:"ranking"`
	Site    Source `json:"site"`
	URL     string `json:"url"`
}

// ID returns the content-derived identifier of the entry.
func (r RankedResult) ID() ResultID {
	return ResultIDFromURL(r.URL)
}

// Competitor is a profile page of a possible competitor.
type Competitor struct {
	Site    Source `json:"site"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// ID returns the content-derived identifier of the entry.
func (c Competitor) ID() ResultID {
	return ResultIDFromURL(c.URL)
}

// CompetitorFromResult converts a search result into a competitor record.
func CompetitorFromResult(r SearchResult) Competitor {
	return Competitor{
		Site:    r.Source,
		Title:   r.Title,
		URL:     r.URL,
		Summary: r.Summary,
	}
}

// ProductContext is the product description handed to the ranker.
type ProductContext struct {
	Name        string
	Description string
}

// Project is one discovery context owned by a single user.
type Project struct {
	ID                  ID             `json:"id"`
	OwnerID             string         `json:"user_id"`
	Name                string         `json:"name"`
	Description         string         `json:"description"`
	TargetProfiles      []string       `json:"query_icp"`
	Queries             []string       `json:"queries,omitempty"`
	DiscoveryResults    []RankedResult `json:"discovery_results"`
	PossibleCompetitors []Competitor   `json:"possible_competitors"`
	RunStatus           RunStatus      `json:"run_status"`
	RunError            string         `json:"run_error,omitempty"`
	RunStartedAt        time.Time      `json:"run_started_at,omitzero"`
	RunFinishedAt       time.Time      `json:"run_finished_at,omitzero"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// Product returns the ranking context of the project.
func (p *Project) Product() ProductContext {
	return ProductContext{Name: p.Name, Description: p.Description}
}

// UsageOutcome records how a discovery run ended.
type UsageOutcome string

const (
	UsageOutcomeCompleted UsageOutcome = "completed"
	UsageOutcomeFailed    UsageOutcome = "failed"
)

// UsageEvent is one entry of the hunt log, used for plan quota accounting.
type UsageEvent struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"user_id"`
	ProjectID ID           `json:"project_id"`
	Outcome   UsageOutcome `json:"outcome"`
	CreatedAt time.Time    `json:"created_at"`
}
