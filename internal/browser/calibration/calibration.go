// internal/browser/calibration/calibration.go

// Package calibration maps viewport coordinates onto the physical display.
package calibration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/browser/session"
)

// offsetScript reads the window geometry. The height of the browser chrome
// (tabs, address bar) is the difference between outer and inner heights.
const offsetScript = `(() => ({
	screenX: window.screenX,
	screenY: window.screenY,
	chromeHeight: window.outerHeight - window.innerHeight,
	devicePixelRatio: window.devicePixelRatio || 1,
}))()`

// Calibrator samples the window position. It holds no state; every call
// re-reads the geometry because the window may have moved.
type Calibrator struct {
	runner session.ScriptRunner
	logger *zap.Logger
}

// New creates a calibrator backed by runner.
func New(runner session.ScriptRunner, logger *zap.Logger) *Calibrator {
	return &Calibrator{runner: runner, logger: logger.Named("calibration")}
}

// Calibrate samples the current offset from viewport to screen.
func (c *Calibrator) Calibrate(ctx context.Context) (schemas.CalibrationOffset, error) {
	var off schemas.CalibrationOffset
	if err := c.runner.Evaluate(ctx, offsetScript, &off); err != nil {
		return schemas.CalibrationOffset{}, fmt.Errorf("failed to sample window geometry: %w", err)
	}
	if off.DevicePixelRatio <= 0 {
		off.DevicePixelRatio = 1
	}
	c.logger.Debug("Calibrated.",
		zap.Float64("screen_x", off.ScreenX),
		zap.Float64("screen_y", off.ScreenY),
		zap.Float64("chrome_height", off.ChromeHeight),
		zap.Float64("dpr", off.DevicePixelRatio))
	return off, nil
}

// PhysicalRect converts a viewport rect to screen pixels and pads it by
// margin on every side. The margin is in physical pixels.
func PhysicalRect(r schemas.Rect, off schemas.CalibrationOffset, margin float64) schemas.Rect {
	return off.RectToPhysical(r).Pad(margin)
}
