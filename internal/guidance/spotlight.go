// internal/guidance/spotlight.go
package guidance

import "unicode/utf8"

// Box is an integer rectangle in physical screen pixels.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Frame is everything a renderer needs to draw one overlay state: four dim
// panels surrounding the target, the target hole itself, and a label
// placed near it. A hidden frame withdraws everything.
type Frame struct {
	Seq     uint64 `json:"seq"`
	Visible bool   `json:"visible"`
	Screen  Box    `json:"screen"`
	Target  Box    `json:"target"`
	// Panels are top, bottom, left and right, in that order.
	Panels    [4]Box `json:"panels"`
	LabelBox  Box    `json:"label_box"`
	Text      string `json:"text"`
	TargetTag string `json:"target_label"`
}

// Rough metrics of a 12pt bold label with 10px horizontal padding.
const (
	labelCharWidth = 8
	labelPadding   = 20
	labelHeight    = 28
	labelGap       = 5
)

// HiddenFrame is the frame for a hide command.
func HiddenFrame(screenW, screenH int) Frame {
	return Frame{Screen: Box{W: screenW, H: screenH}}
}

// Spotlight lays out the panels for cmd on a screen of the given size. The
// target is clamped to the screen so no panel overflows it.
func Spotlight(cmd Command, screenW, screenH int) Frame {
	x, y := max(0, cmd.X), max(0, cmd.Y)
	x, y = min(x, screenW), min(y, screenH)
	w := max(0, min(cmd.W, screenW-x))
	h := max(0, min(cmd.H, screenH-y))

	f := Frame{
		Visible:   true,
		Screen:    Box{W: screenW, H: screenH},
		Target:    Box{X: x, Y: y, W: w, H: h},
		Text:      cmd.Instruction,
		TargetTag: cmd.Label,
	}
	f.Panels[0] = Box{X: 0, Y: 0, W: screenW, H: y}
	f.Panels[1] = Box{X: 0, Y: y + h, W: screenW, H: max(0, screenH-(y+h))}
	f.Panels[2] = Box{X: 0, Y: y, W: x, H: h}
	f.Panels[3] = Box{X: x + w, Y: y, W: max(0, screenW-(x+w)), H: h}

	lw := utf8.RuneCountInString(cmd.Instruction)*labelCharWidth + labelPadding
	lh := labelHeight
	lx := max(labelGap, min(screenW-lw-labelGap, x+w/2-lw/2))
	ly := y + h + labelGap
	if above := y - lh - labelGap; above > 0 {
		ly = above
	}
	f.LabelBox = Box{X: lx, Y: ly, W: lw, H: lh}
	return f
}
