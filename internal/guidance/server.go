// internal/guidance/server.go
package guidance

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/xkilldash9x/pathfinder/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed overlay.html
var overlayPage []byte

const shutdownTimeout = 5 * time.Second

// StatusResponse is the body of every successful control call.
type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Server exposes the overlay's control routes and feeds the render loop
// through the queue. Handlers only ever touch the queue, so they return
// immediately regardless of what the renderer is doing.
type Server struct {
	cfg    config.GuidanceConfig
	queue  *Queue
	hub    *Hub
	logger *zap.Logger
}

// NewServer wires the routes to queue. hub may be nil, in which case /ws is
// not served.
func NewServer(cfg config.GuidanceConfig, queue *Queue, hub *Hub, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, queue: queue, hub: hub, logger: logger.Named("guidance_server")}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/set-arrow", s.handleSetArrow)
	r.Get("/clear-arrow", s.handleClearArrow)
	r.Get("/health", s.handleHealth)
	r.Get("/overlay", s.handleOverlay)
	if s.hub != nil {
		r.Get("/ws", s.hub.ServeHTTP)
	}
	return r
}

// Serve accepts on ln until ctx is done, then shuts down gracefully. At most
// cfg.MaxConnections connections are served at once.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if s.hub != nil {
			s.hub.Close()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Guidance server shutdown error.", zap.Error(err))
		}
	})
	defer stop()

	s.logger.Info("Guidance server listening.", zap.String("address", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("guidance server failed: %w", err)
	}
	return nil
}

// ListenAndServe listens on cfg.ListenAddr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) handleSetArrow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var coords [4]int
	for i, name := range []string{"x", "y", "w", "h"} {
		v, err := strconv.Atoi(q.Get(name))
		if err != nil {
			s.respond(w, http.StatusBadRequest, StatusResponse{Status: "error", Error: fmt.Sprintf("parameter %s must be an integer", name)})
			return
		}
		coords[i] = v
	}

	s.queue.Show(coords[0], coords[1], coords[2], coords[3], q.Get("label"), q.Get("instruction"))
	s.logger.Debug("Queued show.", zap.Ints("rect", coords[:]), zap.String("instruction", q.Get("instruction")))
	s.respond(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleClearArrow(w http.ResponseWriter, _ *http.Request) {
	s.queue.Hide()
	s.respond(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleOverlay(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(overlayPage)
}

func (s *Server) respond(w http.ResponseWriter, code int, body StatusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response.", zap.Error(err))
	}
}

// corsMiddleware lets the overlay page and browser extensions call the
// control routes from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
