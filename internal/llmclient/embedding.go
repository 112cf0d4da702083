// internal/llmclient/embedding.go
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/config"
)

// GeminiEmbeddingClient implements schemas.EmbeddingClient against the
// Gemini embedContent API. Query vs document task types matter for retrieval
// quality, so the caller's intent is forwarded as the taskType field.
type GeminiEmbeddingClient struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

type embedRequestPayload struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"taskType,omitempty"`
}

type embedResponsePayload struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// NewGeminiEmbeddingClient initializes the embedding client.
func NewGeminiEmbeddingClient(cfg config.EmbeddingConfig, logger *zap.Logger) (*GeminiEmbeddingClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API Key is required for embeddings")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:embedContent", cfg.Model)
	}

	return &GeminiEmbeddingClient{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		model:    "models/" + cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("llm_client.embedding"),
	}, nil
}

var _ schemas.EmbeddingClient = (*GeminiEmbeddingClient)(nil)

// Embed returns the embedding vector for the given text.
func (c *GeminiEmbeddingClient) Embed(ctx context.Context, text string, input schemas.EmbeddingInput) ([]float64, error) {
	taskType := "RETRIEVAL_DOCUMENT"
	if input == schemas.EmbedQuery {
		taskType = "RETRIEVAL_QUERY"
	}

	payload := embedRequestPayload{
		Model:    c.model,
		Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
		TaskType: taskType,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 1 * time.Minute

	var vector []float64

	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Warn("Network error during embedding request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("gemini embedding API error: status %d, body: %s", resp.StatusCode, string(respBody))
			switch resp.StatusCode {
			case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
				return err
			default:
				return backoff.Permanent(err)
			}
		}

		var responsePayload embedResponsePayload
		if err := json.Unmarshal(respBody, &responsePayload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode embedding response: %w", err))
		}

		if len(responsePayload.Embedding.Values) == 0 {
			return backoff.Permanent(fmt.Errorf("gemini embedding API returned an empty vector"))
		}

		vector = responsePayload.Embedding.Values
		return nil
	}

	if err = backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}

	return vector, nil
}
