// internal/agent/mocks_test.go
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pathfinder/api/schemas"
)

// -- Page Mock --

// MockPage mocks session.Page. RunActions and RunBackgroundActions accept a
// func(context.Context) error as their return value so tests can block on
// the context the way a pending promise would.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	args := m.Called(ctx, actions)
	if fn, ok := args.Get(0).(func(context.Context) error); ok {
		return fn(ctx)
	}
	return args.Error(0)
}

func (m *MockPage) RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error {
	args := m.Called(ctx, actions)
	return args.Error(0)
}

func (m *MockPage) Evaluate(ctx context.Context, script string, res interface{}) error {
	args := m.Called(ctx, script, res)
	return args.Error(0)
}

func (m *MockPage) MouseMove(ctx context.Context, x, y float64) error {
	return m.Called(ctx, x, y).Error(0)
}

func (m *MockPage) Click(ctx context.Context, x, y float64) error {
	return m.Called(ctx, x, y).Error(0)
}

func (m *MockPage) Scroll(ctx context.Context, x, y, deltaY float64) error {
	return m.Called(ctx, x, y, deltaY).Error(0)
}

func (m *MockPage) TypeText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockPage) PressKey(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockPage) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

// -- Perception Mocks --

type MockScanner struct {
	mock.Mock
}

func (m *MockScanner) Scan(ctx context.Context) ([]schemas.Element, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.Element), args.Error(1)
}

type MockCalibrator struct {
	mock.Mock
}

func (m *MockCalibrator) Calibrate(ctx context.Context) (schemas.CalibrationOffset, error) {
	args := m.Called(ctx)
	return args.Get(0).(schemas.CalibrationOffset), args.Error(1)
}

// -- Planner Mock --

type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) Plan(ctx context.Context, req schemas.PlanRequest) schemas.Plan {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return schemas.Plan{}
	}
	return args.Get(0).(schemas.Plan)
}

// -- Actuation Mocks --

type MockGuide struct {
	mock.Mock
}

func (m *MockGuide) Show(ctx context.Context, rect schemas.Rect, label, instruction string) error {
	return m.Called(ctx, rect, label, instruction).Error(0)
}

func (m *MockGuide) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockMover struct {
	mock.Mock
}

func (m *MockMover) MoveTo(ctx context.Context, target schemas.Point) error {
	return m.Called(ctx, target).Error(0)
}

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, step schemas.Step, cycle int, elements schemas.ElementMap, mode Mode) Result {
	return m.Called(ctx, step, cycle, elements, mode).Get(0).(Result)
}

// -- Persistence Mocks --

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) StartRun(ctx context.Context, run schemas.RunRecord) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockJournal) RecordStep(ctx context.Context, step schemas.StepRecord) error {
	return m.Called(ctx, step).Error(0)
}

func (m *MockJournal) FinishRun(ctx context.Context, summary schemas.RunSummary) error {
	return m.Called(ctx, summary).Error(0)
}

type MockArtifacts struct {
	mock.Mock
}

func (m *MockArtifacts) WritePageMap(elements []schemas.Element) error {
	return m.Called(elements).Error(0)
}

func (m *MockArtifacts) WriteSnapshot(png []byte) error {
	return m.Called(png).Error(0)
}

// -- Sleep Recorder --

// sleepRecorder replaces real delays and remembers what was asked for.
type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.calls...)
}
