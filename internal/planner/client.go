// internal/planner/client.go
package planner

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxResponseBytes bounds how much of an oracle reply is read.
const maxResponseBytes = 4 << 20

// Client asks the planning oracle for the next steps. It never fails: any
// transport, status or decoding problem is logged and yields an empty plan,
// which the loop treats as "wait and retry".
type Client struct {
	cfg        config.PlannerConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a planning client. A nil httpClient gets one bounded by
// cfg.Timeout.
func NewClient(cfg config.PlannerConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger.Named("planner"),
	}
}

// Plan sends req and returns the sanitized steps. The snapshot is stripped
// unless screenshots are enabled.
func (c *Client) Plan(ctx context.Context, req schemas.PlanRequest) schemas.Plan {
	if !c.cfg.IncludeScreenshot {
		req.ScreenshotBase64 = ""
	}

	plan, err := c.plan(ctx, req)
	if err != nil {
		c.logger.Warn("Planning request failed; treating as empty plan.",
			zap.String("endpoint", c.cfg.Endpoint),
			zap.Error(err))
		return schemas.Plan{}
	}

	c.logger.Debug("Received plan.", zap.Int("steps", len(plan)))
	return plan
}

func (c *Client) plan(ctx context.Context, req schemas.PlanRequest) (schemas.Plan, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var pr schemas.PlanResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	plan := pr.Sanitize()
	if dropped := len(pr.Steps) - len(plan); dropped > 0 {
		c.logger.Warn("Plan cut at an unusable step.",
			zap.String("action", string(plan[len(plan)-1].Action)),
			zap.Int("dropped", dropped))
	}
	return plan, nil
}

// truncate cuts b to at most n runes.
func truncate(b []byte, n int) string {
	if utf8.RuneCount(b) <= n {
		return string(b)
	}
	return string([]rune(string(b))[:n]) + "..."
}

// EncodeSnapshot renders PNG bytes for the request's snapshot field.
func EncodeSnapshot(png []byte) string {
	if len(png) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(png)
}
