// internal/llmclient/factory.go
package llmclient

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/config"
)

// NewClient creates an LLM client for a single model based on configuration.
// Knowledge components receive the schemas.LLMClient interface, never a
// concrete provider type.
func NewClient(cfg config.LLMModelConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch strings.ToLower(string(cfg.Provider)) {
	case "gemini", "google":
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

// NewRouter builds the tiered client from the router configuration. When the
// fast and powerful entries name the same model, a single client backs both
// tiers.
func NewRouter(cfg config.LLMRouterConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	powerful, err := NewClient(cfg.Powerful, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create powerful-tier client: %w", err)
	}

	if cfg.Fast.Model == cfg.Powerful.Model && cfg.Fast.Provider == cfg.Powerful.Provider {
		return NewTierRouter(powerful, powerful, logger), nil
	}

	fast, err := NewClient(cfg.Fast, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fast-tier client: %w", err)
	}

	return NewTierRouter(fast, powerful, logger), nil
}

// NewEmbedder creates the embedding client from configuration.
func NewEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) (schemas.EmbeddingClient, error) {
	switch strings.ToLower(string(cfg.Provider)) {
	case "gemini", "google":
		return NewGeminiEmbeddingClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
}
