// internal/oracle/server.go
package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/config"
	"github.com/xkilldash9x/pathfinder/internal/llmutil"
)

// maxRequestBytes bounds a plan request; screenshots dominate its size.
const maxRequestBytes = 32 << 20

const shutdownTimeout = 5 * time.Second

// ErrorResponse is the body of a failed call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server answers POST /generate-steps.
type Server struct {
	cfg    config.OracleConfig
	model  Model
	logger *zap.Logger
}

// NewServer creates a server that plans with model.
func NewServer(cfg config.OracleConfig, model Model, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, model: model, logger: logger.Named("oracle")}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/generate-steps", s.handleGenerateSteps)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// Serve accepts on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Oracle server shutdown error.", zap.Error(err))
		}
	})
	defer stop()

	s.logger.Info("Oracle listening.", zap.String("address", ln.Addr().String()), zap.String("provider", s.cfg.Provider), zap.String("model", s.cfg.Model))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("oracle server failed: %w", err)
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

func (s *Server) handleGenerateSteps(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		s.respond(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
		return
	}
	var req schemas.PlanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.respond(w, http.StatusBadRequest, ErrorResponse{Error: "invalid plan request: " + err.Error()})
		return
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		s.respond(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx := r.Context()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.model.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("Model call failed.", zap.Error(err), zap.Duration("duration", time.Since(start)))
		s.respond(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	parsed, err := llmutil.ParseJSONResponse[schemas.PlanResponse](reply)
	if err != nil {
		s.logger.Error("Model reply is not a step list.", zap.Error(err))
		s.respond(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	if parsed.Steps == nil {
		parsed.Steps = []schemas.Step{}
	}

	s.logger.Info("Steps generated.",
		zap.String("goal", req.Goal),
		zap.Int("elements", len(req.Elements)),
		zap.Bool("screenshot", len(prompt.Image) > 0),
		zap.Int("steps", len(parsed.Steps)),
		zap.Duration("duration", time.Since(start)))
	s.respond(w, http.StatusOK, parsed)
}

func (s *Server) respond(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response.", zap.Error(err))
	}
}
