package schemas

import "math"

// -- Page Geometry Schemas --

// Rect is an axis-aligned box. Units depend on the producer: CSS pixels for
// scanner output, physical pixels once calibrated.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Point is a 2D coordinate in whole pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Center returns the rounded midpoint of the rect.
func (r Rect) Center() Point {
	return Point{
		X: int(math.Round(r.X + r.W/2)),
		Y: int(math.Round(r.Y + r.H/2)),
	}
}

// Pad grows the rect by margin on every side.
func (r Rect) Pad(margin float64) Rect {
	return Rect{X: r.X - margin, Y: r.Y - margin, W: r.W + 2*margin, H: r.H + 2*margin}
}

// -- Element Map Schemas --

// TypeHint is the coarse interaction class of an element.
type TypeHint string

const (
	HintInput   TypeHint = "INPUT"
	HintLink    TypeHint = "LINK"
	HintButton  TypeHint = "BUTTON"
	HintElement TypeHint = "ELEMENT"
)

// Element is a snapshot of one interactive node taken during a single scan.
// Its ID is only meaningful within that scan.
type Element struct {
	ID       int      `json:"element_id"`
	Label    string   `json:"label"`
	TypeHint TypeHint `json:"type_hint"`
	Value    string   `json:"value"`
	TagName  string   `json:"tagName"`
	Rect     Rect     `json:"rect"`
	Center   Point    `json:"coord"`
	Visible  bool     `json:"isVisible"`
}

// AcceptsText reports whether typing into the element is meaningful.
func (e Element) AcceptsText() bool {
	switch e.TagName {
	case "INPUT", "TEXTAREA":
		return true
	}
	return e.TypeHint == HintInput
}

// ElementMap indexes a scan's elements by id.
type ElementMap map[int]Element

// NewElementMap builds an index over elements. Later duplicates win.
func NewElementMap(elements []Element) ElementMap {
	m := make(ElementMap, len(elements))
	for _, el := range elements {
		m[el.ID] = el
	}
	return m
}

// -- Calibration Schemas --

// CalibrationOffset maps viewport CSS pixels to absolute physical screen pixels.
type CalibrationOffset struct {
	ScreenX          float64 `json:"screenX"`
	ScreenY          float64 `json:"screenY"`
	ChromeHeight     float64 `json:"chromeHeight"`
	DevicePixelRatio float64 `json:"devicePixelRatio"`
}

// dpr guards against a zero ratio reported by a detached or minimized window.
func (c CalibrationOffset) dpr() float64 {
	if c.DevicePixelRatio <= 0 {
		return 1
	}
	return c.DevicePixelRatio
}

// ToPhysical converts a viewport point to physical screen coordinates.
func (c CalibrationOffset) ToPhysical(vx, vy float64) (float64, float64) {
	d := c.dpr()
	return vx*d + c.ScreenX, vy*d + c.ScreenY + c.ChromeHeight*d
}

// RectToPhysical converts a viewport rect, scaling its size by the pixel ratio.
func (c CalibrationOffset) RectToPhysical(r Rect) Rect {
	x, y := c.ToPhysical(r.X, r.Y)
	d := c.dpr()
	return Rect{X: x, Y: y, W: r.W * d, H: r.H * d}
}
