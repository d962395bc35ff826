// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/internal/config"
)

// ErrAttach wraps every failure to reach the remote browser. It is the only
// fatal error of a run.
var ErrAttach = errors.New("could not attach to browser")

// Session is a connection to one page of an already-running browser.
type Session struct {
	id     string
	cfg    config.BrowserConfig
	logger *zap.Logger

	// ctx is the tab context. It carries the CDP target and lives until Close.
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

var _ Page = (*Session)(nil)

// Attach connects to the browser's remote debugging endpoint and binds to its
// first page target, creating one if the browser has none. Connection
// attempts are retried with exponential backoff up to cfg.AttachRetries.
func Attach(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	s := &Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		logger: logger.Named("session"),
	}

	var attempt int
	operation := func() error {
		attempt++
		err := s.connect(ctx)
		if err != nil {
			s.logger.Warn("Attach attempt failed.",
				zap.Int("attempt", attempt),
				zap.String("debugger_url", cfg.DebuggerURL),
				zap.Error(err))
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.AttachRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrAttach, cfg.DebuggerURL, err)
	}

	s.logger.Info("Attached to browser.", zap.String("session_id", s.id), zap.String("debugger_url", cfg.DebuggerURL))
	return s, nil
}

// connect performs a single attach attempt. On failure every context it
// created is released.
//
// The first chromedp call on a context binds its browser and target to that
// exact context, so both calls below run on the long-lived contexts and are
// bounded by timers instead of derived deadlines.
func (s *Session) connect(parent context.Context) error {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), s.cfg.DebuggerURL)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	fail := func(err error) error {
		browserCancel()
		allocCancel()
		return err
	}

	stopOnParent := context.AfterFunc(parent, browserCancel)
	defer stopOnParent()
	timer := time.AfterFunc(s.attachTimeout(), browserCancel)
	targets, err := chromedp.Targets(browserCtx)
	if !timer.Stop() || err != nil {
		if err == nil {
			err = context.DeadlineExceeded
		}
		return fail(fmt.Errorf("failed to list targets: %w", err))
	}

	var tabCtx context.Context
	var tabCancel context.CancelFunc
	if id, ok := firstPage(targets); ok {
		tabCtx, tabCancel = chromedp.NewContext(browserCtx, chromedp.WithTargetID(id))
	} else {
		s.logger.Info("Browser has no open page; creating one.")
		tabCtx, tabCancel = chromedp.NewContext(browserCtx)
	}

	timer = time.AfterFunc(s.attachTimeout(), tabCancel)
	err = chromedp.Run(tabCtx)
	if !timer.Stop() || err != nil {
		tabCancel()
		if err == nil {
			err = context.DeadlineExceeded
		}
		return fail(fmt.Errorf("failed to bind page target: %w", err))
	}

	s.ctx = tabCtx
	s.cancel = func() {
		tabCancel()
		browserCancel()
	}
	s.allocCancel = allocCancel
	return nil
}

// firstPage returns the first target of type "page".
func firstPage(targets []*target.Info) (target.ID, bool) {
	for _, t := range targets {
		if t.Type == "page" {
			return t.TargetID, true
		}
	}
	return "", false
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Close drops the connection to the browser. The browser process is left
// running.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// RunActions runs actions on the tab under the caller's context.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// RunBackgroundActions runs actions on the tab, ignoring the caller's
// cancellation but still bounded by the action timeout.
func (s *Session) RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error {
	detached, cancel := context.WithTimeout(Detach(ctx), s.actionTimeout())
	defer cancel()
	return s.RunActions(detached, actions...)
}

func (s *Session) attachTimeout() time.Duration {
	if s.cfg.AttachTimeout <= 0 {
		return 10 * time.Second
	}
	return s.cfg.AttachTimeout
}

func (s *Session) actionTimeout() time.Duration {
	if s.cfg.ActionTimeout <= 0 {
		return 10 * time.Second
	}
	return s.cfg.ActionTimeout
}

// Evaluate runs script and decodes its return value into res. Promises are
// awaited.
func (s *Session) Evaluate(ctx context.Context, script string, res interface{}) error {
	opCtx, cancel := context.WithTimeout(ctx, s.actionTimeout())
	defer cancel()

	err := s.RunActions(opCtx, chromedp.Evaluate(script, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	}))
	if err != nil && opCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("script evaluation timed out after %v: %w", s.actionTimeout(), opCtx.Err())
	}
	return err
}

// URL returns the tab's current location.
func (s *Session) URL(ctx context.Context) (string, error) {
	var u string
	if err := s.RunActions(ctx, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return u, nil
}

// Screenshot captures the visible viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.RunActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Navigate loads url in the tab and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	timeout := s.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.RunActions(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	s.logger.Info("Navigated.", zap.String("url", url))
	return nil
}
