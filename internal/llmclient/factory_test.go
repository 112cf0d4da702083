// internal/llmclient/factory_test.go
package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/config"
)

type stubClient struct {
	reply string
	calls int
}

func (s *stubClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	s.calls++
	return s.reply, nil
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	_, err := NewClient(config.LLMModelConfig{Provider: "openai", APIKey: "k"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewEmbedder(config.EmbeddingConfig{Provider: "openai", APIKey: "k"}, zap.NewNop())
	assert.Error(t, err)
}

func TestTierRouterDispatch(t *testing.T) {
	fast := &stubClient{reply: "fast"}
	powerful := &stubClient{reply: "powerful"}
	router := NewTierRouter(fast, powerful, zap.NewNop())

	out, err := router.Generate(context.Background(), schemas.GenerationRequest{Tier: schemas.TierFast})
	require.NoError(t, err)
	assert.Equal(t, "fast", out)

	out, err = router.Generate(context.Background(), schemas.GenerationRequest{Tier: schemas.TierPowerful})
	require.NoError(t, err)
	assert.Equal(t, "powerful", out)

	// Unset tier defaults to the powerful model.
	out, err = router.Generate(context.Background(), schemas.GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "powerful", out)
	assert.Equal(t, 1, fast.calls)
	assert.Equal(t, 2, powerful.calls)
}
