package schemas

import "context"

// -- LLM Interfaces --

// ModelTier selects a large language model by capability preference rather
// than by concrete model name.
type ModelTier string

const (
	TierFast     ModelTier = "fast"     // Prefers a faster, cheaper model (graph merges).
	TierPowerful ModelTier = "powerful" // Prefers a more capable model (evaluation, guides).
)

// Message is one ordered element of a multimodal prompt. Text is always
// present; ImageB64 optionally carries a base64-encoded PNG rendered inline
// after the text.
type Message struct {
	Text     string
	ImageB64 string
}

// GenerationOptions tunes a single generation call.
type GenerationOptions struct {
	Temperature     float32
	ForceJSONFormat bool
}

// GenerationRequest encapsulates a complete request to the LLM.
type GenerationRequest struct {
	SystemPrompt string
	// Messages is the ordered user content. For single-prompt calls a lone
	// text-only message is used.
	Messages []Message
	Tier     ModelTier
	Options  GenerationOptions
}

// LLMClient is the single-capability provider abstraction: structured prompt
// in, free-text completion out. Concrete implementations are selected by
// dependency injection at process start, never by ambient global state.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// EmbeddingInput distinguishes query-side from document-side embeddings for
// providers whose models are asymmetric.
type EmbeddingInput string

const (
	EmbedQuery    EmbeddingInput = "query"
	EmbedDocument EmbeddingInput = "document"
)

// EmbeddingClient turns a short text into a dense vector. Only plan titles
// are ever embedded; plan bodies are retrieved, not indexed.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string, input EmbeddingInput) ([]float64, error)
}

// -- Agent Boundary --

// AgentRunner is the external browser-automation agent, treated as a black
// box: it accepts a task description plus optional guidance text and returns
// the ordered execution trace. The core never sees the agent's reasoning.
type AgentRunner interface {
	Run(ctx context.Context, task string, guidance string, maxSteps int) (*Trace, error)
}
