package contracts

import "time"

// CycleState is the state of the daily orchestrator's state machine. IDLE is
// both the initial and terminal state of a cycle.
type CycleState string

const (
	CycleIdle        CycleState = "IDLE"
	CycleGating      CycleState = "GATING"
	CycleTracking    CycleState = "TRACKING"
	CycleGenerating  CycleState = "GENERATING"
	CycleAggregating CycleState = "AGGREGATING"
	CycleSkipped     CycleState = "SKIPPED"
)

// Stage names a re-runnable section of the cycle. An operator can restart a
// partially failed cycle from a later stage without repeating earlier ones.
type Stage string

const (
	StageTracking    Stage = "tracking"
	StageGenerating  Stage = "generating"
	StageAggregating Stage = "aggregating"
)

// ValidStage reports whether s names a known stage.
func ValidStage(s Stage) bool {
	return s == StageTracking || s == StageGenerating || s == StageAggregating
}

// CycleResult summarizes one orchestrator invocation.
type CycleResult struct {
	Date        time.Time  `json:"date"`
	State       CycleState `json:"state"`      // last state reached
	TradingDay  bool       `json:"trading_day"`
	Generated   int        `json:"generated"`
	Resolved    int        `json:"resolved"`
	ForceFailed int        `json:"force_failed"`
	Pending     int        `json:"pending"` // due signals left unresolved
	Success     bool       `json:"success"`
	FailedStage Stage      `json:"failed_stage,omitempty"`
	Error       string     `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	StartedAt   time.Time  `json:"started_at"`
}
