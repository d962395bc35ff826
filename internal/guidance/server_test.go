// internal/guidance/server_test.go
package guidance

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/config"
)

func newTestServer(t *testing.T) (*Queue, *Hub, *httptest.Server) {
	t.Helper()
	q := NewQueue()
	hub := NewHub(zap.NewNop())
	s := NewServer(config.GuidanceConfig{}, q, hub, zap.NewNop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return q, hub, srv
}

func TestClientServer_RoundTrip(t *testing.T) {
	q, _, srv := newTestServer(t)
	c := NewClient(config.GuidanceConfig{URL: srv.URL + "/", RequestTimeout: time.Second}, nil, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Show(ctx, schemas.Rect{X: 99.6, Y: 200.2, W: 50, H: 40}, "Email [INPUT]", "Type 'a@b.c' here"))
	cmd, ok := q.Take()
	require.True(t, ok)
	assert.Equal(t, Command{Kind: CommandShow, X: 100, Y: 200, W: 50, H: 40, Label: "Email [INPUT]", Instruction: "Type 'a@b.c' here"}, cmd)

	require.NoError(t, c.Clear(ctx))
	cmd, ok = q.Take()
	require.True(t, ok)
	assert.Equal(t, CommandHide, cmd.Kind)
}

func TestServer_Routes(t *testing.T) {
	_, _, srv := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"set arrow", http.MethodGet, "/set-arrow?x=1&y=2&w=3&h=4&label=l&instruction=i", http.StatusOK, `{"status":"ok"}`},
		{"clear arrow", http.MethodGet, "/clear-arrow", http.StatusOK, `{"status":"ok"}`},
		{"health", http.MethodGet, "/health", http.StatusOK, `{"status":"ok"}`},
		{"non-integer coordinate", http.MethodGet, "/set-arrow?x=1.5&y=2&w=3&h=4", http.StatusBadRequest, "parameter x"},
		{"missing coordinate", http.MethodGet, "/set-arrow?x=1&y=2&w=3", http.StatusBadRequest, "parameter h"},
		{"preflight", http.MethodOptions, "/set-arrow", http.StatusOK, ""},
		{"overlay page", http.MethodGet, "/overlay", http.StatusOK, "<html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, string(body), tt.wantBody)
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestClient_Failures(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		c := NewClient(config.GuidanceConfig{URL: "http://127.0.0.1:1", RequestTimeout: time.Second}, nil, zap.NewNop())
		assert.Error(t, c.Clear(context.Background()))
	})

	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		c := NewClient(config.GuidanceConfig{URL: srv.URL}, nil, zap.NewNop())
		err := c.Show(context.Background(), schemas.Rect{}, "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(config.GuidanceConfig{MaxConnections: 2}, NewQueue(), nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	c := NewClient(config.GuidanceConfig{URL: "http://" + ln.Addr().String()}, nil, zap.NewNop())
	require.Eventually(t, func() bool { return c.Clear(context.Background()) == nil }, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestWatch_ReceivesFrames(t *testing.T) {
	q, hub, srv := newTestServer(t)
	loop := NewRenderLoop(q, hub, 800, 600, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frames := make(chan Frame, 4)
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- Watch(ctx, srv.URL, func(f Frame) { frames <- f })
	}()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	q.Show(10, 20, 30, 40, "Go [BUTTON]", "Click on 'Go [BUTTON]'")
	loop.Tick(ctx)

	select {
	case f := <-frames:
		assert.True(t, f.Visible)
		assert.Equal(t, Box{X: 10, Y: 20, W: 30, H: 40}, f.Target)
		assert.Equal(t, "Click on 'Go [BUTTON]'", f.Text)
		assert.Equal(t, uint64(1), f.Seq)
	case <-ctx.Done():
		t.Fatal("no frame received")
	}

	hub.Close()
	select {
	case err := <-watchDone:
		assert.NoError(t, err, "a normal close ends the watch cleanly")
	case <-ctx.Done():
		t.Fatal("watch did not return")
	}
}
