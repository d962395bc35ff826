// internal/guidance/renderer.go
package guidance

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Renderer draws frames. Implementations must not block the render loop for
// long; slow consumers should drop frames.
type Renderer interface {
	Render(ctx context.Context, f Frame) error
}

// LogRenderer writes each frame to the log. It is the fallback when no
// display client is connected.
type LogRenderer struct {
	logger *zap.Logger
}

func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	return &LogRenderer{logger: logger.Named("overlay")}
}

func (r *LogRenderer) Render(_ context.Context, f Frame) error {
	if !f.Visible {
		r.logger.Info("Spotlight hidden.", zap.Uint64("seq", f.Seq))
		return nil
	}
	r.logger.Info("Spotlight shown.",
		zap.Uint64("seq", f.Seq),
		zap.String("instruction", f.Text),
		zap.Int("x", f.Target.X), zap.Int("y", f.Target.Y),
		zap.Int("w", f.Target.W), zap.Int("h", f.Target.H))
	return nil
}

// MultiRenderer fans a frame out to several renderers and joins their errors.
type MultiRenderer []Renderer

func (m MultiRenderer) Render(ctx context.Context, f Frame) error {
	var errs []error
	for _, r := range m {
		if err := r.Render(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RenderLoop polls the queue at a fixed interval and renders what it finds.
type RenderLoop struct {
	queue    *Queue
	renderer Renderer
	screenW  int
	screenH  int
	interval time.Duration
	logger   *zap.Logger
	seq      uint64
}

// NewRenderLoop creates a loop for a screen of the given size. A zero
// interval defaults to 50ms.
func NewRenderLoop(queue *Queue, renderer Renderer, screenW, screenH int, interval time.Duration, logger *zap.Logger) *RenderLoop {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &RenderLoop{
		queue:    queue,
		renderer: renderer,
		screenW:  screenW,
		screenH:  screenH,
		interval: interval,
		logger:   logger.Named("render_loop"),
	}
}

// Run polls until ctx is done. It always returns nil so it can sit in an
// errgroup next to the server without tearing it down on shutdown.
func (l *RenderLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Debug("Render loop started.", zap.Duration("interval", l.interval))
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("Render loop stopped.")
			return nil
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick renders the pending command, if any.
func (l *RenderLoop) Tick(ctx context.Context) {
	cmd, ok := l.queue.Take()
	if !ok {
		return
	}

	var f Frame
	switch cmd.Kind {
	case CommandHide:
		f = HiddenFrame(l.screenW, l.screenH)
	default:
		f = Spotlight(cmd, l.screenW, l.screenH)
	}
	l.seq++
	f.Seq = l.seq

	if err := l.renderer.Render(ctx, f); err != nil {
		l.logger.Warn("Render failed.", zap.Stringer("command", cmd.Kind), zap.Error(err))
	}
}
