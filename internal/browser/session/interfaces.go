// internal/browser/session/interfaces.go
package session

import (
	"context"

	"github.com/chromedp/chromedp"
)

// ActionExecutor runs chromedp actions against the attached tab. Callers pass
// their operational context; the implementation combines it with the
// long-lived tab context that carries the CDP connection.
type ActionExecutor interface {
	RunActions(ctx context.Context, actions ...chromedp.Action) error

	// RunBackgroundActions runs on a detached context so cleanup can finish
	// after the caller's context is canceled.
	RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error
}

// ScriptRunner evaluates JavaScript in the page and decodes the result.
type ScriptRunner interface {
	Evaluate(ctx context.Context, script string, res interface{}) error
}

// Pointer dispatches raw input at viewport coordinates.
type Pointer interface {
	MouseMove(ctx context.Context, x, y float64) error
	Click(ctx context.Context, x, y float64) error
	Scroll(ctx context.Context, x, y, deltaY float64) error
}

// Keyboard dispatches key input to the focused element.
type Keyboard interface {
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key string) error
}

// Page is the full surface the agent needs from an attached tab.
type Page interface {
	ActionExecutor
	ScriptRunner
	Pointer
	Keyboard
	URL(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Navigate(ctx context.Context, url string) error
}
