// internal/agent/models.go
package agent

import (
	"strings"

	"github.com/xkilldash9x/pathfinder/api/schemas"
)

// StepStatus is the outcome of executing one planned step.
type StepStatus string

const (
	StatusApplied     StepStatus = "applied"
	StatusSkipped     StepStatus = "skipped"
	StatusInterrupted StepStatus = "interrupted"
)

// Result reports a single step back to the loop.
type Result struct {
	Status StepStatus
	// Done means the oracle declared the goal reached.
	Done bool
	// Resense means the current element map can no longer be trusted and the
	// rest of the plan must be dropped.
	Resense bool
	// HistoryEntry is appended verbatim to the run history. Empty means
	// nothing happened worth telling the oracle.
	HistoryEntry string
	ErrorCode    ErrorCode
	Err          error
	Element      *schemas.Element
}

func interrupted(code ErrorCode, err error) Result {
	return Result{Status: StatusInterrupted, Resense: true, ErrorCode: code, Err: err}
}

// LoopPhase is where the controller is in its cycle.
type LoopPhase string

const (
	PhaseSense LoopPhase = "SENSE"
	PhaseThink LoopPhase = "THINK"
	PhaseAct   LoopPhase = "ACT"
	PhaseDone  LoopPhase = "DONE"
)

// RunStatus is how a run ended.
type RunStatus string

const (
	RunSucceeded       RunStatus = "succeeded"
	RunBudgetExhausted RunStatus = "budget_exhausted"
	RunStalled         RunStatus = "stalled"
	RunCancelled       RunStatus = "cancelled"
)

// RunResult summarizes a finished run.
type RunResult struct {
	RunID   string
	Status  RunStatus
	Steps   int
	History string
}

// LoopState is the controller's private memory of a run.
type LoopState struct {
	Goal       string
	Phase      LoopPhase
	StepCount  int
	Budget     int
	EmptyPlans int
	history    strings.Builder
}

// Append adds an entry to the history. The history only grows.
func (s *LoopState) Append(entry string) {
	s.history.WriteString(entry)
}

// History returns the accumulated history.
func (s *LoopState) History() string {
	return s.history.String()
}
