// -- cmd/components.go --
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/config"
	"github.com/dsoriano-dev/webknow/internal/llmclient"
	"github.com/dsoriano-dev/webknow/internal/navgraph"
	"github.com/dsoriano-dev/webknow/internal/planstore"
)

// knowledgeComponents holds the initialized knowledge-layer services shared by
// the run, batch and guide commands.
type knowledgeComponents struct {
	LLM    schemas.LLMClient
	Graphs *navgraph.Store
	Plans  *planstore.Store
}

// Shutdown closes components that hold external resources.
func (kc *knowledgeComponents) Shutdown(logger *zap.Logger) {
	if kc.Plans != nil {
		if err := kc.Plans.Close(); err != nil {
			logger.Warn("Error closing plan store", zap.Error(err))
		}
	}
}

// initKnowledgeComponents handles dependency injection for the knowledge
// stores and the tiered LLM client.
func initKnowledgeComponents(cfg *config.Config, logger *zap.Logger) (*knowledgeComponents, error) {
	components := &knowledgeComponents{}

	llm, err := llmclient.NewRouter(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	components.LLM = llm

	graphDir := filepath.Join(cfg.Knowledge.DataDir, "graphs")
	graphs, err := navgraph.NewStore(graphDir, llm, cfg.Knowledge.FuzzyDomainLookup, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize navigation graph store: %w", err)
	}
	components.Graphs = graphs

	embedder, err := llmclient.NewEmbedder(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	planDB := cfg.Knowledge.PlanDBFile
	if !filepath.IsAbs(planDB) {
		planDB = filepath.Join(cfg.Knowledge.DataDir, planDB)
	}
	plans, err := planstore.Open(planDB, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan store: %w", err)
	}
	components.Plans = plans

	return components, nil
}

// loadConfig re-reads the fully merged configuration for a RunE body. The
// PersistentPreRunE has already validated it once; this picks up any flag
// bindings the subcommand added on top.
func loadConfig() (*config.Config, error) {
	return config.NewConfigFromViper(viper.GetViper())
}
