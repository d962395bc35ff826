// internal/browser/session/session_test.go
package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/internal/config"
)

func TestFirstPage(t *testing.T) {
	t.Run("skips non-page targets", func(t *testing.T) {
		targets := []*target.Info{
			{TargetID: "sw", Type: "service_worker"},
			{TargetID: "bg", Type: "background_page"},
			{TargetID: "tab-1", Type: "page"},
			{TargetID: "tab-2", Type: "page"},
		}
		id, ok := firstPage(targets)
		require.True(t, ok)
		assert.Equal(t, target.ID("tab-1"), id)
	})

	t.Run("no pages", func(t *testing.T) {
		_, ok := firstPage([]*target.Info{{TargetID: "sw", Type: "service_worker"}})
		assert.False(t, ok)
	})
}

func TestResolveKey(t *testing.T) {
	tests := map[string]string{
		"Tab":    kb.Tab,
		" enter": kb.Enter,
		"ESC":    kb.Escape,
		"a":      "a",
	}
	for in, want := range tests {
		assert.Equal(t, want, resolveKey(in), "resolveKey(%q)", in)
	}
}

func TestAttach_UnreachableBrowser(t *testing.T) {
	// A debugging endpoint that answers every request with 404 looks like a
	// browser that is not running with remote debugging enabled.
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := config.BrowserConfig{
		DebuggerURL:   srv.URL,
		AttachTimeout: 500 * time.Millisecond,
		AttachRetries: 1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Attach(ctx, cfg, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, ErrAttach), "attach failures must wrap ErrAttach")
	assert.Contains(t, err.Error(), srv.URL)
}

func TestSession_Timeouts(t *testing.T) {
	s := &Session{}
	assert.Equal(t, 10*time.Second, s.actionTimeout())
	assert.Equal(t, 10*time.Second, s.attachTimeout())

	s.cfg.ActionTimeout = 3 * time.Second
	s.cfg.AttachTimeout = 4 * time.Second
	assert.Equal(t, 3*time.Second, s.actionTimeout())
	assert.Equal(t, 4*time.Second, s.attachTimeout())
}
