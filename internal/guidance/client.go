// internal/guidance/client.go
package guidance

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/config"
)

// Client drives a remote overlay over its HTTP control routes. Callers treat
// every failure as a no-op; the error is returned only so it can be logged.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the overlay at cfg.URL. A nil httpClient
// gets one bounded by cfg.RequestTimeout.
func NewClient(cfg config.GuidanceConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		httpClient: httpClient,
		logger:     logger.Named("guidance_client"),
	}
}

// Show asks the overlay to spotlight rect, in physical pixels, with the given
// instruction.
func (c *Client) Show(ctx context.Context, rect schemas.Rect, label, instruction string) error {
	q := url.Values{}
	q.Set("x", strconv.Itoa(int(math.Round(rect.X))))
	q.Set("y", strconv.Itoa(int(math.Round(rect.Y))))
	q.Set("w", strconv.Itoa(int(math.Round(rect.W))))
	q.Set("h", strconv.Itoa(int(math.Round(rect.H))))
	q.Set("label", label)
	q.Set("instruction", instruction)
	return c.get(ctx, "/set-arrow?"+q.Encode())
}

// Clear withdraws the overlay.
func (c *Client) Clear(ctx context.Context) error {
	return c.get(ctx, "/clear-arrow")
}

func (c *Client) get(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build guidance request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Guidance channel unreachable.", zap.String("url", c.baseURL), zap.Error(err))
		return fmt.Errorf("guidance request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Guidance channel rejected request.", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("guidance channel returned status %d", resp.StatusCode)
	}
	return nil
}
