// internal/humanoid/trajectory.go
package humanoid

import (
	"math"
	"time"
)

// fittsTargetWidth is the assumed target width W in pixels.
const fittsTargetWidth = 30.0

// easeInOutCubic accelerates through the first half and decelerates through
// the second.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// fittsDuration returns MT = A + B*log2(1 + D/W) in milliseconds, jittered by
// up to 15% either way. jitter is a sample from [0,1).
func fittsDuration(a, b, distance, jitter float64) time.Duration {
	id := math.Log2(1.0 + distance/fittsTargetWidth)
	mt := a + b*id
	mt += mt * (jitter*0.3 - 0.15)
	if mt < 0 {
		mt = 0
	}
	return time.Duration(mt * float64(time.Millisecond))
}

// bezierPath samples a cubic Bezier from start to end with numSteps points.
// bow shifts both control points sideways, as a fraction of the distance, so
// the path arcs the way a wrist pivot does. The first and last samples are
// exactly start and end.
func bezierPath(start, end Vector2D, bow float64, numSteps int) []Vector2D {
	main := end.Sub(start)
	dist := main.Mag()
	if dist < 1.0 || numSteps <= 1 {
		return []Vector2D{end}
	}

	dir := main.Normalize()
	side := dir.Perp().Mul(bow * dist)
	p0, p3 := start, end
	p1 := start.Add(dir.Mul(dist / 3.0)).Add(side)
	p2 := start.Add(dir.Mul(dist * 2.0 / 3.0)).Add(side.Mul(0.5))

	path := make([]Vector2D, numSteps)
	for i := 0; i < numSteps; i++ {
		t := float64(i) / float64(numSteps-1)
		omt := 1.0 - t
		path[i] = p0.Mul(omt * omt * omt).
			Add(p1.Mul(3 * omt * omt * t)).
			Add(p2.Mul(3 * omt * t * t)).
			Add(p3.Mul(t * t * t))
	}
	path[0], path[numSteps-1] = start, end
	return path
}
