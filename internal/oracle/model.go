// internal/oracle/model.go
package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/xkilldash9x/pathfinder/internal/config"
)

// Model answers a prompt with JSON text.
type Model interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// NewModel builds the backend named by cfg.Provider.
func NewModel(ctx context.Context, cfg config.OracleConfig, httpClient *http.Client) (Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle.api_key is required for provider %q", cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderGemini:
		return NewGemini(ctx, cfg, httpClient)
	case config.ProviderOpenAI:
		return NewOpenAI(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}
