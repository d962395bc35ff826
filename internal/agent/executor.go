// internal/agent/executor.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/browser/calibration"
	"github.com/xkilldash9x/pathfinder/internal/browser/scanner"
	"github.com/xkilldash9x/pathfinder/internal/browser/session"
	"github.com/xkilldash9x/pathfinder/internal/config"
)

// Mode selects who performs the physical action.
type Mode string

const (
	ModeDirect Mode = config.ModeDirect
	ModeGuided Mode = config.ModeGuided
)

// ParseMode maps a configured mode name to a Mode. Anything but "guided"
// is direct.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), config.ModeGuided) {
		return ModeGuided
	}
	return ModeDirect
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// actionHandler performs one resolved action in direct mode.
type actionHandler func(ctx context.Context, step schemas.Step, el schemas.Element) error

// Executor validates a step against the current element map and performs it,
// or relays it to the operator in guided mode.
type Executor struct {
	page       session.Page
	calibrator Calibrator
	guide      Guide
	mover      PointerMover
	cfg        config.ExecutorConfig
	guideCfg   config.GuidanceConfig
	logger     *zap.Logger
	sleep      SleepFunc
	handlers   map[schemas.ActionKind]actionHandler
}

// NewExecutor creates an executor. mover may be nil, in which case the
// pointer jumps straight to its target. guide may be nil when guided mode is
// never used.
func NewExecutor(page session.Page, calibrator Calibrator, guide Guide, mover PointerMover, cfg config.ExecutorConfig, guideCfg config.GuidanceConfig, logger *zap.Logger) *Executor {
	e := &Executor{
		page:       page,
		calibrator: calibrator,
		guide:      guide,
		mover:      mover,
		cfg:        cfg,
		guideCfg:   guideCfg,
		logger:     logger.Named("executor"),
		sleep:      sleepCtx,
		handlers:   make(map[schemas.ActionKind]actionHandler),
	}
	e.registerHandlers()
	return e
}

// WithSleep replaces the settle-delay function.
func (e *Executor) WithSleep(fn SleepFunc) *Executor {
	e.sleep = fn
	return e
}

func (e *Executor) registerHandlers() {
	e.handlers[schemas.ActionClick] = e.handleClick
	e.handlers[schemas.ActionType] = e.handleType
	e.handlers[schemas.ActionScroll] = e.handleScroll
}

// Execute runs one step. cycle numbers the history entry. It never panics
// and never returns an error: every failure becomes an interrupted Result.
func (e *Executor) Execute(ctx context.Context, step schemas.Step, cycle int, elements schemas.ElementMap, mode Mode) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Recovered from panic during step execution.",
				zap.String("action", string(step.Action)),
				zap.Any("panic", r),
				zap.Stack("stack"))
			res = interrupted(ErrCodeExecutorPanic, fmt.Errorf("panic during %s: %v", step.Action, r))
		}
	}()

	switch step.Action {
	case schemas.ActionDone:
		return Result{Status: StatusApplied, Done: true}
	case schemas.ActionWait:
		if err := e.sleep(ctx, e.cfg.WaitInterval); err != nil {
			return interrupted(ErrCodeInteractionFailed, err)
		}
		return Result{Status: StatusApplied, HistoryEntry: "Step: waited. "}
	}

	if !step.Action.Known() {
		return e.reject(step, interrupted(ErrCodeUnknownAction, fmt.Errorf("unknown action %q", step.Action)))
	}
	if step.InvalidElementID {
		return e.reject(step, interrupted(ErrCodeInvalidElementID, fmt.Errorf("%s has an element_id that is not a non-negative integer", step.Action)))
	}

	if !step.HasElement() {
		if step.Action.RequiresElement() {
			return e.reject(step, interrupted(ErrCodeElementIDMissing, fmt.Errorf("%s requires an element_id", step.Action)))
		}
		return e.global(ctx, step)
	}

	el, ok := elements[*step.ElementID]
	if !ok {
		return e.reject(step, interrupted(ErrCodeStaleReference, fmt.Errorf("element %d is not in the current map", *step.ElementID)))
	}
	if step.Action == schemas.ActionType && !el.AcceptsText() {
		res := interrupted(ErrCodeNotEditable, fmt.Errorf("element %d (%s) does not accept text", el.ID, el.TagName))
		res.Element = &el
		return e.reject(step, res)
	}

	if mode == ModeGuided {
		return e.guided(ctx, step, cycle, el)
	}
	return e.direct(ctx, step, cycle, el)
}

func (e *Executor) reject(step schemas.Step, res Result) Result {
	e.logger.Warn("Step rejected; re-sensing.",
		zap.String("action", string(step.Action)),
		zap.String("error_code", string(res.ErrorCode)),
		zap.Error(res.Err))
	return res
}

// direct performs the action with synthesized input.
func (e *Executor) direct(ctx context.Context, step schemas.Step, cycle int, el schemas.Element) Result {
	e.highlight(ctx, el)

	handler := e.handlers[step.Action]
	if err := handler(ctx, step, el); err != nil {
		e.logger.Warn("Interaction failed.",
			zap.String("action", string(step.Action)),
			zap.Int("element_id", el.ID),
			zap.String("label", el.Label),
			zap.Error(err))
		res := interrupted(ErrCodeInteractionFailed, err)
		res.Element = &el
		return res
	}

	e.logger.Info("Step applied.", zap.String("action", string(step.Action)), zap.Int("element_id", el.ID), zap.String("label", el.Label))
	return Result{
		Status:       StatusApplied,
		Resense:      step.Action != schemas.ActionType,
		HistoryEntry: historyEntry(cycle, step, el),
		Element:      &el,
	}
}

func (e *Executor) handleClick(ctx context.Context, _ schemas.Step, el schemas.Element) error {
	x, y := float64(el.Center.X), float64(el.Center.Y)
	if e.mover != nil {
		if err := e.mover.MoveTo(ctx, el.Center); err != nil {
			return fmt.Errorf("failed to move pointer: %w", err)
		}
	}
	if err := e.page.Click(ctx, x, y); err != nil {
		return fmt.Errorf("failed to click: %w", err)
	}
	return e.sleep(ctx, e.cfg.ClickSettle)
}

// handleType focuses by clicking, types, then sends the confirmation key so
// composed inputs such as recipient chips commit and dropdowns close.
func (e *Executor) handleType(ctx context.Context, step schemas.Step, el schemas.Element) error {
	if err := e.page.Click(ctx, float64(el.Center.X), float64(el.Center.Y)); err != nil {
		return fmt.Errorf("failed to focus: %w", err)
	}
	if err := e.page.TypeText(ctx, step.Text); err != nil {
		return fmt.Errorf("failed to type: %w", err)
	}
	if err := e.sleep(ctx, e.cfg.TypeSettle); err != nil {
		return err
	}
	if e.cfg.ConfirmKey != "" {
		if err := e.page.PressKey(ctx, e.cfg.ConfirmKey); err != nil {
			return fmt.Errorf("failed to confirm input: %w", err)
		}
	}
	return e.sleep(ctx, e.cfg.ConfirmSettle)
}

func (e *Executor) handleScroll(ctx context.Context, _ schemas.Step, el schemas.Element) error {
	if err := e.page.Scroll(ctx, float64(el.Center.X), float64(el.Center.Y), e.cfg.ScrollDelta); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return e.sleep(ctx, e.cfg.ClickSettle)
}

const viewportScript = `(() => ({w: window.innerWidth, h: window.innerHeight}))()`

// global handles element-less actions. Only scroll has one: the viewport
// scrolls at its center.
func (e *Executor) global(ctx context.Context, step schemas.Step) Result {
	var vp struct{ W, H float64 }
	if err := e.page.Evaluate(ctx, viewportScript, &vp); err != nil {
		return interrupted(ErrCodeInteractionFailed, fmt.Errorf("failed to read viewport size: %w", err))
	}
	if err := e.page.Scroll(ctx, vp.W/2, vp.H/2, e.cfg.ScrollDelta); err != nil {
		return interrupted(ErrCodeInteractionFailed, fmt.Errorf("failed to scroll: %w", err))
	}
	if err := e.sleep(ctx, e.cfg.ClickSettle); err != nil {
		return interrupted(ErrCodeInteractionFailed, err)
	}
	return Result{Status: StatusApplied, Resense: true, HistoryEntry: fmt.Sprintf("Step: %s. ", step.Action)}
}

// guided relays the step to the operator and waits for them to act.
func (e *Executor) guided(ctx context.Context, step schemas.Step, cycle int, el schemas.Element) Result {
	e.highlight(ctx, el)

	off, err := e.calibrator.Calibrate(ctx)
	if err != nil {
		res := interrupted(ErrCodeInteractionFailed, err)
		res.Element = &el
		return res
	}
	rect := calibration.PhysicalRect(el.Rect, off, e.guideCfg.Margin)
	instruction := instructionFor(step, el)

	if e.guide != nil {
		if err := e.guide.Show(ctx, rect, el.Label, instruction); err != nil {
			e.logger.Warn("Guidance cue not shown; waiting for the operator anyway.", zap.Error(err))
		}
	}
	e.logger.Info("Waiting for operator.", zap.String("instruction", instruction))

	events := []string{"click", "keydown"}
	if step.Action == schemas.ActionScroll {
		events = []string{"wheel"}
	}
	waitErr := e.awaitOperator(ctx, events)
	e.clearGuide(ctx)

	switch {
	case errors.Is(waitErr, errOperatorTimeout):
		e.logger.Warn("Operator did not act in time; re-sensing.", zap.Duration("timeout", e.guideCfg.OperatorTimeout))
		res := interrupted(ErrCodeOperatorTimeout, waitErr)
		res.Element = &el
		return res
	case waitErr != nil:
		res := interrupted(ErrCodeInteractionFailed, waitErr)
		res.Element = &el
		return res
	}

	return Result{
		Status:       StatusApplied,
		Resense:      true,
		HistoryEntry: historyEntry(cycle, step, el),
		Element:      &el,
	}
}

// clearGuide withdraws the cue even if ctx is already done.
func (e *Executor) clearGuide(ctx context.Context) {
	if e.guide == nil {
		return
	}
	clearCtx, cancel := context.WithTimeout(session.Detach(ctx), 2*time.Second)
	defer cancel()
	if err := e.guide.Clear(clearCtx); err != nil {
		e.logger.Warn("Failed to clear guidance cue.", zap.Error(err))
	}
}

// highlight outlines the target in the page and gives the viewer a moment
// to see it. Failures are cosmetic.
func (e *Executor) highlight(ctx context.Context, el schemas.Element) {
	var found bool
	if err := e.page.Evaluate(ctx, scanner.HighlightScript(el.ID), &found); err != nil {
		e.logger.Debug("Highlight failed.", zap.Int("element_id", el.ID), zap.Error(err))
	}
	_ = e.sleep(ctx, e.cfg.HighlightPause)
}

func instructionFor(step schemas.Step, el schemas.Element) string {
	switch step.Action {
	case schemas.ActionType:
		return fmt.Sprintf("Type '%s' here", step.Text)
	case schemas.ActionScroll:
		return fmt.Sprintf("Scroll at '%s'", el.Label)
	default:
		return fmt.Sprintf("Click on '%s'", el.Label)
	}
}

func historyEntry(cycle int, step schemas.Step, el schemas.Element) string {
	if step.Action == schemas.ActionType {
		return fmt.Sprintf("Step %d: type '%s' on %s. ", cycle, step.Text, el.Label)
	}
	return fmt.Sprintf("Step %d: %s on %s. ", cycle, step.Action, el.Label)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
