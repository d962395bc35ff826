// internal/agent/loop_test.go
package agent

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/config"
	"github.com/xkilldash9x/pathfinder/internal/observability"
	"github.com/xkilldash9x/pathfinder/internal/planner"
)

const testGoal = "Log in as demo"

func testLoopConfig() config.LoopConfig {
	return config.LoopConfig{
		MaxSteps:         20,
		MaxEmptyPlans:    5,
		EmptyPlanBackoff: 2 * time.Second,
		CycleDelay:       time.Second,
	}
}

type loopFixture struct {
	page     *MockPage
	scanner  *MockScanner
	planner  *MockPlanner
	executor *MockExecutor
	journal  *MockJournal
	sleeps   *sleepRecorder
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()
	f := &loopFixture{
		page:     new(MockPage),
		scanner:  new(MockScanner),
		planner:  new(MockPlanner),
		executor: new(MockExecutor),
		journal:  new(MockJournal),
		sleeps:   &sleepRecorder{},
	}
	f.page.On("URL", mock.Anything).Return("https://example.test/login", nil).Maybe()
	f.page.On("Screenshot", mock.Anything).Return([]byte{1, 2}, nil).Maybe()
	f.scanner.On("Scan", mock.Anything).Return([]schemas.Element(testElementList()), nil).Maybe()
	f.journal.On("StartRun", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.journal.On("RecordStep", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.journal.On("FinishRun", mock.Anything, mock.Anything).Return(nil).Maybe()
	return f
}

func testElementList() []schemas.Element {
	m := testElements()
	return []schemas.Element{m[3], m[5]}
}

func (f *loopFixture) controller(cfg config.LoopConfig, exec StepExecutor, mode Mode) *Controller {
	return NewController(f.page, f.scanner, f.planner, exec, f.journal, nil, cfg, mode, observability.GetLogger()).
		WithSleep(f.sleeps.Sleep)
}

func TestRun_DoneEndsRun(t *testing.T) {
	f := newLoopFixture(t)
	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{{Action: schemas.ActionDone}}).Once()
	f.executor.On("Execute", mock.Anything, schemas.Step{Action: schemas.ActionDone}, 1, mock.Anything, ModeDirect).
		Return(Result{Status: StatusApplied, Done: true}).Once()

	res, err := f.controller(testLoopConfig(), f.executor, ModeDirect).Run(context.Background(), testGoal)
	require.NoError(t, err)

	assert.Equal(t, RunSucceeded, res.Status)
	assert.Equal(t, 0, res.Steps)
	assert.NotEmpty(t, res.RunID)
	f.planner.AssertNumberOfCalls(t, "Plan", 1)
	f.journal.AssertCalled(t, "FinishRun", mock.Anything, mock.MatchedBy(func(s schemas.RunSummary) bool {
		return s.RunID == res.RunID && s.Status == string(RunSucceeded)
	}))
}

func TestRun_TypeThenDone(t *testing.T) {
	f := newLoopFixture(t)
	page := f.page
	page.On("Evaluate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	page.On("Click", mock.Anything, 60.0, 35.0).Return(nil).Once()
	page.On("TypeText", mock.Anything, "hello").Return(nil).Once()
	page.On("PressKey", mock.Anything, "Tab").Return(nil).Once()

	f.planner.On("Plan", mock.Anything, mock.MatchedBy(func(req schemas.PlanRequest) bool {
		return req.Goal == testGoal && req.URL == "https://example.test/login" &&
			len(req.Elements) == 2 && req.ScreenshotBase64 == "AQI=" && req.History == ""
	})).Return(schemas.Plan{
		{Action: schemas.ActionType, ElementID: intPtr(3), Text: "hello"},
		{Action: schemas.ActionDone},
	}).Once()

	exec := NewExecutor(page, new(MockCalibrator), nil, nil, testExecutorConfig(), config.GuidanceConfig{}, observability.GetLogger()).
		WithSleep(f.sleeps.Sleep)
	res, err := f.controller(testLoopConfig(), exec, ModeDirect).Run(context.Background(), testGoal)
	require.NoError(t, err)

	assert.Equal(t, RunSucceeded, res.Status)
	assert.Contains(t, res.History, "hello")
	assert.Contains(t, res.History, "X [INPUT]")
	page.AssertExpectations(t)
	f.planner.AssertNumberOfCalls(t, "Plan", 1)
}

func TestRun_UnknownActionNeverReachesDone(t *testing.T) {
	var calls atomic.Int32
	oracle := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"steps":[{"action":"hover","element_id":5},{"action":"done"}]}`)
	}))
	defer oracle.Close()

	f := newLoopFixture(t)
	client := planner.NewClient(config.PlannerConfig{Endpoint: oracle.URL, Timeout: 2 * time.Second}, nil, observability.GetLogger())
	exec := NewExecutor(f.page, new(MockCalibrator), nil, nil, testExecutorConfig(), config.GuidanceConfig{}, observability.GetLogger()).
		WithSleep(f.sleeps.Sleep)

	cfg := testLoopConfig()
	cfg.MaxSteps = 2
	ctrl := NewController(f.page, f.scanner, client, exec, f.journal, nil, cfg, ModeDirect, observability.GetLogger()).
		WithSleep(f.sleeps.Sleep)

	res, err := ctrl.Run(context.Background(), testGoal)
	require.NoError(t, err)

	assert.Equal(t, RunBudgetExhausted, res.Status)
	assert.Equal(t, int32(2), calls.Load(), "every cycle re-senses and asks again")
	f.journal.AssertCalled(t, "RecordStep", mock.Anything, mock.MatchedBy(func(r schemas.StepRecord) bool {
		return r.Action == "hover" && r.ErrorCode == string(ErrCodeUnknownAction)
	}))
	f.journal.AssertNotCalled(t, "RecordStep", mock.Anything, mock.MatchedBy(func(r schemas.StepRecord) bool {
		return r.Action == string(schemas.ActionDone)
	}))
	f.page.AssertNotCalled(t, "Click", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ResenseDropsRestOfPlan(t *testing.T) {
	f := newLoopFixture(t)
	click := schemas.Step{Action: schemas.ActionClick, ElementID: intPtr(5)}
	typeStep := schemas.Step{Action: schemas.ActionType, ElementID: intPtr(3), Text: "x"}

	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{click, typeStep}).Once()
	f.planner.On("Plan", mock.Anything, mock.MatchedBy(func(req schemas.PlanRequest) bool {
		return strings.Contains(req.History, "Step 1: click on Submit [BUTTON].")
	})).Return(schemas.Plan{{Action: schemas.ActionDone}}).Once()

	f.executor.On("Execute", mock.Anything, click, 1, mock.Anything, ModeDirect).
		Return(Result{Status: StatusApplied, Resense: true, HistoryEntry: "Step 1: click on Submit [BUTTON]. "}).Once()
	f.executor.On("Execute", mock.Anything, schemas.Step{Action: schemas.ActionDone}, 2, mock.Anything, ModeDirect).
		Return(Result{Status: StatusApplied, Done: true}).Once()

	res, err := f.controller(testLoopConfig(), f.executor, ModeDirect).Run(context.Background(), testGoal)
	require.NoError(t, err)

	assert.Equal(t, RunSucceeded, res.Status)
	assert.Equal(t, 1, res.Steps)
	f.executor.AssertNotCalled(t, "Execute", mock.Anything, typeStep, mock.Anything, mock.Anything, mock.Anything)
	f.journal.AssertCalled(t, "RecordStep", mock.Anything, mock.MatchedBy(func(r schemas.StepRecord) bool {
		return r.Action == string(schemas.ActionType) && r.Status == string(StatusSkipped)
	}))
	assert.Equal(t, []time.Duration{time.Second}, f.sleeps.Calls())
}

func TestRun_InterruptedStepResenses(t *testing.T) {
	f := newLoopFixture(t)
	stale := schemas.Step{Action: schemas.ActionClick, ElementID: intPtr(42)}
	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{stale, {Action: schemas.ActionDone}}).Once()
	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{{Action: schemas.ActionDone}}).Once()

	f.executor.On("Execute", mock.Anything, stale, 1, mock.Anything, ModeDirect).
		Return(interrupted(ErrCodeStaleReference, errors.New("element 42 is not in the current map"))).Once()
	f.executor.On("Execute", mock.Anything, schemas.Step{Action: schemas.ActionDone}, 2, mock.Anything, ModeDirect).
		Return(Result{Status: StatusApplied, Done: true}).Once()

	res, err := f.controller(testLoopConfig(), f.executor, ModeDirect).Run(context.Background(), testGoal)
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, res.Status)
	f.planner.AssertNumberOfCalls(t, "Plan", 2)
	f.journal.AssertCalled(t, "RecordStep", mock.Anything, mock.MatchedBy(func(r schemas.StepRecord) bool {
		return r.ErrorCode == string(ErrCodeStaleReference) && r.Status == string(StatusInterrupted)
	}))
}

func TestRun_EmptyPlansStall(t *testing.T) {
	f := newLoopFixture(t)
	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{})

	res, err := f.controller(testLoopConfig(), f.executor, ModeDirect).Run(context.Background(), testGoal)
	require.NoError(t, err)

	assert.Equal(t, RunStalled, res.Status)
	assert.Equal(t, 0, res.Steps, "empty plans do not consume the budget")
	f.planner.AssertNumberOfCalls(t, "Plan", 5)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second}, f.sleeps.Calls())
	f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_EmptyPlanCounterResets(t *testing.T) {
	f := newLoopFixture(t)
	cfg := testLoopConfig()
	cfg.MaxEmptyPlans = 2
	cfg.MaxSteps = 2

	wait := schemas.Step{Action: schemas.ActionWait}
	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{}).Once()
	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{wait}).Once()
	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{}).Once()
	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{wait}).Once()
	f.executor.On("Execute", mock.Anything, wait, mock.Anything, mock.Anything, ModeDirect).
		Return(Result{Status: StatusApplied, HistoryEntry: "Step: waited. "})

	res, err := f.controller(cfg, f.executor, ModeDirect).Run(context.Background(), testGoal)
	require.NoError(t, err)
	assert.Equal(t, RunBudgetExhausted, res.Status)
	assert.Equal(t, 2, res.Steps)
}

func TestRun_BudgetExhausted(t *testing.T) {
	f := newLoopFixture(t)
	cfg := testLoopConfig()
	cfg.MaxSteps = 3

	wait := schemas.Step{Action: schemas.ActionWait}
	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{wait})
	f.executor.On("Execute", mock.Anything, wait, mock.Anything, mock.Anything, ModeDirect).
		Return(Result{Status: StatusApplied, HistoryEntry: "Step: waited. "})

	res, err := f.controller(cfg, f.executor, ModeDirect).Run(context.Background(), testGoal)
	require.NoError(t, err)

	assert.Equal(t, RunBudgetExhausted, res.Status)
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, strings.Repeat("Step: waited. ", 3), res.History)
	f.planner.AssertNumberOfCalls(t, "Plan", 3)
}

func TestRun_Cancelled(t *testing.T) {
	f := newLoopFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.planner.On("Plan", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(schemas.Plan{})

	res, err := f.controller(testLoopConfig(), f.executor, ModeDirect).Run(ctx, testGoal)
	require.NoError(t, err)
	assert.Equal(t, RunCancelled, res.Status)
	f.journal.AssertCalled(t, "FinishRun", mock.Anything, mock.MatchedBy(func(s schemas.RunSummary) bool {
		return s.Status == string(RunCancelled)
	}))
}

func TestRun_JournalFailuresAreIgnored(t *testing.T) {
	f := newLoopFixture(t)
	f.journal = new(MockJournal)
	f.journal.On("StartRun", mock.Anything, mock.Anything).Return(errors.New("db down"))
	f.journal.On("RecordStep", mock.Anything, mock.Anything).Return(errors.New("db down"))
	f.journal.On("FinishRun", mock.Anything, mock.Anything).Return(errors.New("db down"))

	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{{Action: schemas.ActionDone}})
	f.executor.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(Result{Status: StatusApplied, Done: true})

	res, err := f.controller(testLoopConfig(), f.executor, ModeDirect).Run(context.Background(), testGoal)
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, res.Status)
}

func TestRun_WritesArtifacts(t *testing.T) {
	f := newLoopFixture(t)
	artifacts := new(MockArtifacts)
	artifacts.On("WritePageMap", testElementList()).Return(nil).Once()
	artifacts.On("WriteSnapshot", []byte{1, 2}).Return(errors.New("disk full")).Once()

	f.planner.On("Plan", mock.Anything, mock.Anything).Return(schemas.Plan{{Action: schemas.ActionDone}})
	f.executor.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(Result{Status: StatusApplied, Done: true})

	c := NewController(f.page, f.scanner, f.planner, f.executor, nil, artifacts, testLoopConfig(), ModeDirect, observability.GetLogger()).
		WithSleep(f.sleeps.Sleep)
	res, err := c.Run(context.Background(), testGoal)
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, res.Status)
	artifacts.AssertExpectations(t)
}

func TestRun_ScreenshotFailureStillPlans(t *testing.T) {
	f := newLoopFixture(t)
	f.page = new(MockPage)
	f.page.On("URL", mock.Anything).Return("", errors.New("no target"))
	f.page.On("Screenshot", mock.Anything).Return(nil, errors.New("capture failed"))

	f.planner.On("Plan", mock.Anything, mock.MatchedBy(func(req schemas.PlanRequest) bool {
		return req.ScreenshotBase64 == ""
	})).Return(schemas.Plan{{Action: schemas.ActionDone}}).Once()
	f.executor.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(Result{Status: StatusApplied, Done: true})

	res, err := f.controller(testLoopConfig(), f.executor, ModeDirect).Run(context.Background(), testGoal)
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, res.Status)
}

func TestRun_EmptyGoal(t *testing.T) {
	f := newLoopFixture(t)
	_, err := f.controller(testLoopConfig(), f.executor, ModeDirect).Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyGoal)
}

func TestLoopState_History(t *testing.T) {
	var s LoopState
	s.Append("Step 1: click on A. ")
	s.Append("Step 2: click on B. ")
	assert.Equal(t, "Step 1: click on A. Step 2: click on B. ", s.History())
}
