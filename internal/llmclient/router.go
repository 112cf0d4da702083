// internal/llmclient/router.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
)

// TierRouter dispatches generation requests to the model configured for the
// requested tier. Graph merges run on the fast model; evaluation and guide
// synthesis run on the powerful one.
type TierRouter struct {
	fast     schemas.LLMClient
	powerful schemas.LLMClient
	logger   *zap.Logger
}

// NewTierRouter initializes the router.
func NewTierRouter(fast, powerful schemas.LLMClient, logger *zap.Logger) *TierRouter {
	return &TierRouter{
		fast:     fast,
		powerful: powerful,
		logger:   logger.Named("llm_client.router"),
	}
}

var _ schemas.LLMClient = (*TierRouter)(nil)

// Generate routes the request based on its tier. An unset tier falls back to
// the powerful model.
func (r *TierRouter) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	switch req.Tier {
	case schemas.TierFast:
		r.logger.Debug("Routing generation request", zap.String("tier", "fast"))
		return r.fast.Generate(ctx, req)
	case schemas.TierPowerful, "":
		r.logger.Debug("Routing generation request", zap.String("tier", "powerful"))
		return r.powerful.Generate(ctx, req)
	default:
		return "", fmt.Errorf("unknown model tier: %q", req.Tier)
	}
}
