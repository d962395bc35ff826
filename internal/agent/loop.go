// internal/agent/loop.go
package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/browser/session"
	"github.com/xkilldash9x/pathfinder/internal/config"
	"github.com/xkilldash9x/pathfinder/internal/planner"
)

// ErrEmptyGoal is returned by Run when there is nothing to pursue.
var ErrEmptyGoal = errors.New("goal cannot be empty")

// observation is one SENSE phase's view of the page.
type observation struct {
	url      string
	elements []schemas.Element
	byID     schemas.ElementMap
	snapshot []byte
}

// Controller drives the sense, think, act cycle for a single goal.
type Controller struct {
	page      PageSensor
	scanner   ElementScanner
	planner   Planner
	executor  StepExecutor
	journal   Journal
	artifacts ArtifactSink
	cfg       config.LoopConfig
	mode      Mode
	logger    *zap.Logger
	sleep     SleepFunc
	now       func() time.Time
}

// NewController wires a controller. journal and artifacts are optional.
func NewController(page PageSensor, scanner ElementScanner, planner Planner, executor StepExecutor, journal Journal, artifacts ArtifactSink, cfg config.LoopConfig, mode Mode, logger *zap.Logger) *Controller {
	return &Controller{
		page:      page,
		scanner:   scanner,
		planner:   planner,
		executor:  executor,
		journal:   journal,
		artifacts: artifacts,
		cfg:       cfg,
		mode:      mode,
		logger:    logger.Named("controller"),
		sleep:     sleepCtx,
		now:       time.Now,
	}
}

// WithSleep replaces the backoff and pacing delays.
func (c *Controller) WithSleep(fn SleepFunc) *Controller {
	c.sleep = fn
	return c
}

// Run pursues goal until the oracle declares it done, the step budget runs
// out, the oracle stalls, or ctx is cancelled. The returned error is only
// for calls that could never start.
func (c *Controller) Run(ctx context.Context, goal string) (RunResult, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return RunResult{}, ErrEmptyGoal
	}

	runID := uuid.NewString()
	logger := c.logger.With(zap.String("run_id", runID))
	state := &LoopState{Goal: goal, Phase: PhaseSense, Budget: c.cfg.MaxSteps}

	startURL, _ := c.page.URL(ctx)
	c.record(ctx, logger, "start run", func(ctx context.Context) error {
		return c.journal.StartRun(ctx, schemas.RunRecord{
			ID:        runID,
			Goal:      goal,
			Mode:      string(c.mode),
			StartURL:  startURL,
			StartedAt: c.now(),
		})
	})
	logger.Info("Run started.", zap.String("goal", goal), zap.String("mode", string(c.mode)), zap.Int("budget", state.Budget))

	status := c.loop(ctx, logger, runID, state)
	state.Phase = PhaseDone

	result := RunResult{RunID: runID, Status: status, Steps: state.StepCount, History: state.History()}

	// The run is over either way; its summary is written even after cancellation.
	finishCtx, cancel := context.WithTimeout(session.Detach(ctx), 5*time.Second)
	defer cancel()
	c.record(finishCtx, logger, "finish run", func(ctx context.Context) error {
		return c.journal.FinishRun(ctx, schemas.RunSummary{
			RunID:      runID,
			Status:     string(status),
			Steps:      state.StepCount,
			History:    result.History,
			FinishedAt: c.now(),
		})
	})

	logger.Info("Run finished.", zap.String("status", string(status)), zap.Int("steps", state.StepCount))
	return result, nil
}

func (c *Controller) loop(ctx context.Context, logger *zap.Logger, runID string, state *LoopState) RunStatus {
	for state.StepCount < state.Budget {
		if ctx.Err() != nil {
			return RunCancelled
		}
		cycle := state.StepCount + 1
		cycleLogger := logger.With(zap.Int("cycle", cycle))

		// -- SENSE --
		state.Phase = PhaseSense
		obs, err := c.sense(ctx, cycleLogger)
		if err != nil {
			return RunCancelled
		}

		// -- THINK --
		state.Phase = PhaseThink
		plan := c.planner.Plan(ctx, schemas.PlanRequest{
			Goal:             state.Goal,
			URL:              obs.url,
			History:          state.History(),
			Elements:         schemas.ViewOf(obs.elements),
			ScreenshotBase64: planner.EncodeSnapshot(obs.snapshot),
		})
		if ctx.Err() != nil {
			return RunCancelled
		}
		if len(plan) == 0 {
			state.EmptyPlans++
			cycleLogger.Warn("Empty plan; backing off.", zap.Int("consecutive", state.EmptyPlans))
			if c.cfg.MaxEmptyPlans > 0 && state.EmptyPlans >= c.cfg.MaxEmptyPlans {
				cycleLogger.Error("Oracle keeps returning empty plans; giving up.", zap.Int("consecutive", state.EmptyPlans))
				return RunStalled
			}
			if err := c.sleep(ctx, c.cfg.EmptyPlanBackoff); err != nil {
				return RunCancelled
			}
			continue
		}
		state.EmptyPlans = 0
		cycleLogger.Info("Plan received.", zap.Int("steps", len(plan)))

		// -- ACT --
		state.Phase = PhaseAct
		if done := c.act(ctx, cycleLogger, runID, cycle, plan, obs, state); done {
			return RunSucceeded
		}
		if ctx.Err() != nil {
			return RunCancelled
		}

		state.StepCount++
		if err := c.sleep(ctx, c.cfg.CycleDelay); err != nil {
			return RunCancelled
		}
	}
	logger.Warn("Step budget exhausted.", zap.Int("budget", state.Budget))
	return RunBudgetExhausted
}

// sense scans the page and captures the snapshot. Only cancellation is an
// error; a blank or unreadable page is just an empty observation.
func (c *Controller) sense(ctx context.Context, logger *zap.Logger) (observation, error) {
	elements, err := c.scanner.Scan(ctx)
	if err != nil {
		return observation{}, err
	}
	obs := observation{elements: elements, byID: schemas.NewElementMap(elements)}

	if obs.url, err = c.page.URL(ctx); err != nil {
		logger.Debug("Could not read page URL.", zap.Error(err))
	}
	if obs.snapshot, err = c.page.Screenshot(ctx); err != nil {
		logger.Warn("Screenshot failed; planning without one.", zap.Error(err))
		obs.snapshot = nil
	}
	if ctx.Err() != nil {
		return observation{}, ctx.Err()
	}

	if c.artifacts != nil {
		if err := c.artifacts.WritePageMap(elements); err != nil {
			logger.Warn("Failed to write page map.", zap.Error(err))
		}
		if len(obs.snapshot) > 0 {
			if err := c.artifacts.WriteSnapshot(obs.snapshot); err != nil {
				logger.Warn("Failed to write snapshot.", zap.Error(err))
			}
		}
	}

	logger.Debug("Sensed page.", zap.String("url", obs.url), zap.Int("elements", len(elements)))
	return obs, nil
}

// act executes the plan in order and reports whether the goal was declared
// done. It stops at the first step that invalidates the element map; the
// steps after it are journaled as skipped.
func (c *Controller) act(ctx context.Context, logger *zap.Logger, runID string, cycle int, plan schemas.Plan, obs observation, state *LoopState) bool {
	for i, step := range plan {
		res := c.executor.Execute(ctx, step, cycle, obs.byID, c.mode)
		if res.HistoryEntry != "" {
			state.Append(res.HistoryEntry)
		}
		c.recordStep(ctx, logger, runID, cycle, step, res, state.History())

		if res.Done {
			logger.Info("Goal reached.", zap.String("reasoning", step.Reasoning))
			return true
		}
		if res.Status == StatusInterrupted || res.Resense {
			if res.Status == StatusInterrupted {
				logger.Warn("Step interrupted; re-sensing.",
					zap.String("action", string(step.Action)),
					zap.String("error_code", string(res.ErrorCode)),
					zap.Error(res.Err))
			}
			for _, rest := range plan[i+1:] {
				c.recordStep(ctx, logger, runID, cycle, rest, Result{Status: StatusSkipped}, state.History())
			}
			return false
		}
	}
	return false
}

func (c *Controller) recordStep(ctx context.Context, logger *zap.Logger, runID string, cycle int, step schemas.Step, res Result, history string) {
	rec := schemas.StepRecord{
		RunID:     runID,
		Cycle:     cycle,
		Action:    string(step.Action),
		ElementID: step.ElementID,
		Status:    string(res.Status),
		ErrorCode: string(res.ErrorCode),
		History:   history,
		At:        c.now(),
	}
	if res.Element != nil {
		rec.Label = res.Element.Label
	}
	c.record(ctx, logger, "record step", func(ctx context.Context) error {
		return c.journal.RecordStep(ctx, rec)
	})
}

// record runs a journal write. A missing journal is a no-op and failures
// never reach the loop.
func (c *Controller) record(ctx context.Context, logger *zap.Logger, op string, fn func(context.Context) error) {
	if c.journal == nil {
		return
	}
	if err := fn(ctx); err != nil {
		logger.Warn("Journal write failed.", zap.String("op", op), zap.Error(err))
	}
}
