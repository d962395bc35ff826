// internal/humanoid/humanoid.go

// Package humanoid moves the pointer along human-looking paths: a bowed
// Bezier curve timed by Fitts's law, eased, with low-frequency Perlin drift
// and a little Gaussian tremor.
package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/config"
)

const (
	perlinAlpha     = 2.0
	perlinBeta      = 2.0
	perlinOctaves   = int32(3)
	perlinFrequency = 0.8
	stepsPerSecond  = 100.0
	maxBow          = 0.15
)

// Mover dispatches a single pointer move.
type Mover interface {
	MouseMove(ctx context.Context, x, y float64) error
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Humanoid tracks the pointer position between movements.
type Humanoid struct {
	cfg    config.HumanoidConfig
	mover  Mover
	logger *zap.Logger
	sleep  SleepFunc

	mu      sync.Mutex
	pos     Vector2D
	placed  bool
	rng     *rand.Rand
	noiseX  *perlin.Perlin
	noiseY  *perlin.Perlin
	elapsed float64
}

// New creates a humanoid driving mover. A zero seed picks one from the clock.
func New(cfg config.HumanoidConfig, mover Mover, logger *zap.Logger, seed int64) *Humanoid {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Humanoid{
		cfg:    cfg,
		mover:  mover,
		logger: logger.Named("humanoid"),
		sleep:  sleepCtx,
		rng:    rand.New(rand.NewSource(seed)),
		noiseX: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
		noiseY: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed+1),
	}
}

// WithSleep replaces the pause function, typically with a no-op in tests.
func (h *Humanoid) WithSleep(fn SleepFunc) *Humanoid {
	h.sleep = fn
	return h
}

// Position returns the last position the pointer was moved to.
func (h *Humanoid) Position() Vector2D {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

// MoveTo glides the pointer to target. The first movement of a session jumps
// straight there since the real starting position is unknown. The final
// event always lands exactly on target.
func (h *Humanoid) MoveTo(ctx context.Context, target schemas.Point) error {
	end := FromPoint(target)

	h.mu.Lock()
	start, placed := h.pos, h.placed
	h.mu.Unlock()

	if !placed {
		if err := h.mover.MouseMove(ctx, end.X, end.Y); err != nil {
			return err
		}
		h.setPos(end)
		return nil
	}

	duration, path := h.plan(start, end)
	stepDelay := time.Duration(0)
	if len(path) > 1 {
		stepDelay = duration / time.Duration(len(path)-1)
	}

	for i, ideal := range path {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := float64(i) / float64(max(len(path)-1, 1))
		idx := int(easeInOutCubic(t) * float64(len(path)-1))
		p := path[min(idx, len(path)-1)]
		if i < len(path)-1 {
			p = h.perturb(p)
		} else {
			p = ideal
		}

		if err := h.mover.MouseMove(ctx, p.X, p.Y); err != nil {
			if ctx.Err() == nil {
				h.logger.Warn("Pointer move failed.", zap.Error(err))
			}
			return err
		}
		h.setPos(p)

		if i < len(path)-1 && stepDelay > 0 {
			if err := h.sleep(ctx, stepDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// plan picks the movement duration and samples the path for it.
func (h *Humanoid) plan(start, end Vector2D) (time.Duration, []Vector2D) {
	h.mu.Lock()
	jitter := h.rng.Float64()
	bow := (h.rng.Float64()*2 - 1) * maxBow
	h.mu.Unlock()

	duration := fittsDuration(h.cfg.FittsA, h.cfg.FittsB, start.Dist(end), jitter)
	steps := int(duration.Seconds() * stepsPerSecond)
	if steps < 2 {
		steps = 2
	}
	if h.cfg.MaxSteps > 1 && steps > h.cfg.MaxSteps {
		steps = h.cfg.MaxSteps
	}
	return duration, bezierPath(start, end, bow, steps)
}

// perturb adds Perlin drift and Gaussian tremor to an intermediate sample.
func (h *Humanoid) perturb(p Vector2D) Vector2D {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.elapsed += 1.0 / stepsPerSecond
	drift := Vector2D{
		X: h.noiseX.Noise1D(h.elapsed*perlinFrequency) * h.cfg.PerlinAmplitude,
		Y: h.noiseY.Noise1D(h.elapsed*perlinFrequency) * h.cfg.PerlinAmplitude,
	}
	tremor := Vector2D{
		X: h.rng.NormFloat64() * h.cfg.GaussianStrength,
		Y: h.rng.NormFloat64() * h.cfg.GaussianStrength,
	}
	return p.Add(drift).Add(tremor)
}

func (h *Humanoid) setPos(p Vector2D) {
	h.mu.Lock()
	h.pos, h.placed = p, true
	h.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
