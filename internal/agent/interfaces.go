// internal/agent/interfaces.go
package agent

import (
	"context"

	"github.com/xkilldash9x/pathfinder/api/schemas"
)

// ElementScanner produces the element map for the current page.
type ElementScanner interface {
	Scan(ctx context.Context) ([]schemas.Element, error)
}

// Calibrator samples the viewport to screen offset.
type Calibrator interface {
	Calibrate(ctx context.Context) (schemas.CalibrationOffset, error)
}

// Planner asks the oracle for the next steps. It never fails; problems yield
// an empty plan.
type Planner interface {
	Plan(ctx context.Context, req schemas.PlanRequest) schemas.Plan
}

// Guide shows and clears the on-screen cue in guided mode.
type Guide interface {
	Show(ctx context.Context, rect schemas.Rect, label, instruction string) error
	Clear(ctx context.Context) error
}

// PointerMover glides the pointer to a viewport point before a direct click.
type PointerMover interface {
	MoveTo(ctx context.Context, target schemas.Point) error
}

// Journal persists runs and their steps. Failures are logged by the caller
// and never end a run.
type Journal interface {
	StartRun(ctx context.Context, run schemas.RunRecord) error
	RecordStep(ctx context.Context, step schemas.StepRecord) error
	FinishRun(ctx context.Context, summary schemas.RunSummary) error
}

// ArtifactSink receives the per-cycle diagnostic dumps.
type ArtifactSink interface {
	WritePageMap(elements []schemas.Element) error
	WriteSnapshot(png []byte) error
}

// PageSensor reads the non-element parts of a page observation.
type PageSensor interface {
	URL(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// StepExecutor performs one planned step against the current element map.
type StepExecutor interface {
	Execute(ctx context.Context, step schemas.Step, cycle int, elements schemas.ElementMap, mode Mode) Result
}
