// cmd/components.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/internal/agent"
	"github.com/xkilldash9x/pathfinder/internal/browser/calibration"
	"github.com/xkilldash9x/pathfinder/internal/browser/scanner"
	"github.com/xkilldash9x/pathfinder/internal/browser/session"
	"github.com/xkilldash9x/pathfinder/internal/config"
	"github.com/xkilldash9x/pathfinder/internal/guidance"
	"github.com/xkilldash9x/pathfinder/internal/humanoid"
	"github.com/xkilldash9x/pathfinder/internal/planner"
	"github.com/xkilldash9x/pathfinder/internal/store"
)

// components holds everything a run needs. Shutdown releases what was
// opened, in reverse order.
type components struct {
	Session    *session.Session
	Scanner    *scanner.Scanner
	Calibrator *calibration.Calibrator
	Controller *agent.Controller
	Artifacts  *store.Artifacts
	Journal    *store.Store

	pool   *pgxpool.Pool
	logger *zap.Logger
}

// attachBrowser connects to the running browser and, when a start URL is
// configured, loads it.
func attachBrowser(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*session.Session, error) {
	sess, err := session.Attach(ctx, cfg.Browser(), logger)
	if err != nil {
		return nil, err
	}
	if u := cfg.Browser().StartURL; u != "" {
		if err := sess.Navigate(ctx, u); err != nil {
			sess.Close()
			return nil, err
		}
	}
	return sess, nil
}

// initializeRunComponents wires the sense/think/act loop against an attached
// browser. The journal is optional: a database that cannot be reached is
// logged and the run proceeds without it.
func initializeRunComponents(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*components, error) {
	c := &components{logger: logger}

	sess, err := attachBrowser(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to attach to browser: %w", err)
	}
	c.Session = sess
	c.Scanner = scanner.New(sess, logger)
	c.Calibrator = calibration.New(sess, logger)

	var mover agent.PointerMover
	if hcfg := cfg.Executor().Humanoid; hcfg.Enabled {
		mover = humanoid.New(hcfg, sess, logger, time.Now().UnixNano())
	}
	guide := guidance.NewClient(cfg.Guidance(), nil, logger)
	executor := agent.NewExecutor(sess, c.Calibrator, guide, mover, cfg.Executor(), cfg.Guidance(), logger)

	var artifacts agent.ArtifactSink
	if cfg.Artifacts().Enabled {
		a, err := store.NewArtifacts(cfg.Artifacts(), logger)
		if err != nil {
			c.Shutdown()
			return nil, err
		}
		c.Artifacts = a
		artifacts = a
	}

	var journal agent.Journal
	if cfg.Database().URL != "" {
		if err := c.openJournal(ctx, cfg.Database()); err != nil {
			logger.Warn("Run journal unavailable; continuing without it.", zap.Error(err))
		} else {
			journal = c.Journal
		}
	}

	c.Controller = agent.NewController(
		sess, c.Scanner, planner.NewClient(cfg.Planner(), nil, logger), executor,
		journal, artifacts, cfg.Loop(), agent.ParseMode(cfg.Executor().Mode), logger,
	)
	return c, nil
}

// openJournal connects to PostgreSQL and prepares the journal tables.
func (c *components) openJournal(ctx context.Context, dbCfg config.DatabaseConfig) error {
	pool, err := pgxpool.New(ctx, dbCfg.URL)
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	st, err := store.New(ctx, pool, c.logger)
	if err != nil {
		pool.Close()
		return err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return err
	}
	c.pool = pool
	c.Journal = st
	return nil
}

// Shutdown releases the database pool and the browser connection. The
// browser itself keeps running.
func (c *components) Shutdown() {
	if c.pool != nil {
		c.pool.Close()
	}
	if c.Session != nil {
		c.Session.Close()
	}
}
