// internal/browser/session/input.go
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

const inputTimeout = 10 * time.Second

// namedKeys maps config-friendly key names to the runes chromedp's keyboard
// encoder understands.
var namedKeys = map[string]string{
	"tab":       kb.Tab,
	"enter":     kb.Enter,
	"return":    kb.Enter,
	"escape":    kb.Escape,
	"esc":       kb.Escape,
	"backspace": kb.Backspace,
	"space":     " ",
}

// resolveKey returns the key sequence for a name, or the input unchanged if
// it is not a known name.
func resolveKey(name string) string {
	if k, ok := namedKeys[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k
	}
	return name
}

// runInput applies the input timeout and labels timeouts with the operation.
func (s *Session) runInput(ctx context.Context, op string, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(ctx, inputTimeout)
	defer cancel()

	err := s.RunActions(opCtx, actions...)
	if err != nil && opCtx.Err() == context.DeadlineExceeded {
		s.logger.Debug("Input dispatch timed out.", zap.String("op", op), zap.Duration("timeout", inputTimeout))
		return fmt.Errorf("%s timed out after %v: %w", op, inputTimeout, opCtx.Err())
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return nil
}

// MouseMove moves the pointer to viewport coordinates.
func (s *Session) MouseMove(ctx context.Context, x, y float64) error {
	return s.runInput(ctx, "mouse move", input.DispatchMouseEvent(input.MouseMoved, x, y))
}

// Click presses and releases the left button at viewport coordinates.
func (s *Session) Click(ctx context.Context, x, y float64) error {
	press := input.DispatchMouseEvent(input.MousePressed, x, y).
		WithButton(input.Left).
		WithButtons(1).
		WithClickCount(1)
	release := input.DispatchMouseEvent(input.MouseReleased, x, y).
		WithButton(input.Left).
		WithClickCount(1)
	return s.runInput(ctx, "click", input.DispatchMouseEvent(input.MouseMoved, x, y), press, release)
}

// Scroll dispatches a wheel event at viewport coordinates.
func (s *Session) Scroll(ctx context.Context, x, y, deltaY float64) error {
	wheel := input.DispatchMouseEvent(input.MouseWheel, x, y).WithDeltaX(0).WithDeltaY(deltaY)
	return s.runInput(ctx, "scroll", wheel)
}

// TypeText sends text to the focused element one key at a time.
func (s *Session) TypeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	return s.runInput(ctx, "type", chromedp.KeyEvent(text))
}

// PressKey sends a single named key such as "Tab" or "Enter".
func (s *Session) PressKey(ctx context.Context, key string) error {
	return s.runInput(ctx, "key "+key, chromedp.KeyEvent(resolveKey(key)))
}
