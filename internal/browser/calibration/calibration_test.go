// internal/browser/calibration/calibration_test.go
package calibration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
)

type stubRunner struct {
	payload string
	err     error
}

func (s stubRunner) Evaluate(_ context.Context, _ string, res interface{}) error {
	if s.err != nil {
		return s.err
	}
	return json.Unmarshal([]byte(s.payload), res)
}

func TestCalibrate(t *testing.T) {
	c := New(stubRunner{payload: `{"screenX":100,"screenY":50,"chromeHeight":80,"devicePixelRatio":1}`}, zap.NewNop())

	off, err := c.Calibrate(context.Background())
	require.NoError(t, err)

	x, y := off.ToPhysical(10, 20)
	assert.Equal(t, 110.0, x)
	assert.Equal(t, 150.0, y)
}

func TestCalibrate_HiDPI(t *testing.T) {
	c := New(stubRunner{payload: `{"screenX":100,"screenY":50,"chromeHeight":80,"devicePixelRatio":2}`}, zap.NewNop())

	off, err := c.Calibrate(context.Background())
	require.NoError(t, err)

	x, y := off.ToPhysical(10, 20)
	assert.Equal(t, 120.0, x)
	assert.Equal(t, 250.0, y)
}

func TestCalibrate_ZeroRatio(t *testing.T) {
	c := New(stubRunner{payload: `{"screenX":0,"screenY":0,"chromeHeight":0,"devicePixelRatio":0}`}, zap.NewNop())

	off, err := c.Calibrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, off.DevicePixelRatio)
}

func TestCalibrate_Error(t *testing.T) {
	c := New(stubRunner{err: errors.New("target closed")}, zap.NewNop())

	_, err := c.Calibrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target closed")
}

func TestPhysicalRect(t *testing.T) {
	off := schemas.CalibrationOffset{ScreenX: 100, ScreenY: 50, ChromeHeight: 80, DevicePixelRatio: 2}
	got := PhysicalRect(schemas.Rect{X: 10, Y: 20, W: 30, H: 40}, off, 10)

	assert.Equal(t, schemas.Rect{X: 110, Y: 240, W: 80, H: 100}, got)
}
