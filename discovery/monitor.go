package discovery

// Stage is a step of the run state machine.
type Stage string

const (
	StagePending           Stage = "pending"
	StageGeneratingQueries Stage = "generating-queries"
	StageAggregating       Stage = "aggregating"
	StageRanking           Stage = "ranking"
	StagePersisting        Stage = "persisting"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// Monitor provides hooks to observe discovery runs.
// Implementations must be safe for concurrent use; runs of different
// projects proceed in parallel.
type Monitor interface {
	RunStarted(runID string, req RunRequest)
	StageEntered(runID string, stage Stage)
	QueriesGenerated(runID string, queries []string)
	ResultsAggregated(runID string, results int)
	CompetitorsFound(runID string, competitors int)
	ResultsRanked(runID string, ranked int)
	RunFinished(runID string, outcome *Outcome, err *RunError)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) RunStarted(_ string, _ RunRequest)             {}
func (n *noopMonitor) StageEntered(_ string, _ Stage)                {}
func (n *noopMonitor) QueriesGenerated(_ string, _ []string)         {}
func (n *noopMonitor) ResultsAggregated(_ string, _ int)             {}
func (n *noopMonitor) CompetitorsFound(_ string, _ int)              {}
func (n *noopMonitor) ResultsRanked(_ string, _ int)                 {}
func (n *noopMonitor) RunFinished(_ string, _ *Outcome, _ *RunError) {}
