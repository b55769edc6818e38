package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// Embedder talks to an OpenAI-compatible /embeddings endpoint
// (text-embeddings-inference, Ollama /v1, vLLM, OpenAI).
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
}

// Config holds the provider connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions is sent as the "dimensions" request field when > 0.
	// Most self-hosted sentence-transformers servers reject it, so leave it 0 there.
	Dimensions int
	User       string
	HTTPClient *http.Client
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	return openai.NewClientWithConfig(clientCfg)
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	return &Embedder{
		client:     newClient(cfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder with one request for all texts.
// Vectors are returned in input order regardless of the order the server lists them.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return domain.BatchEmbeddingResult{}, parseAPIError(err)
	}

	if len(resp.Data) != len(texts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"embedding response has %d vectors for %d inputs: %w", len(resp.Data), len(texts), domain.ErrEncoding)
	}

	data := slices.Clone(resp.Data)
	slices.SortStableFunc(data, func(a, b openai.Embedding) int { return a.Index - b.Index })

	embeddings := make([][]float32, len(data))
	for i := range data {
		embeddings[i] = data[i].Embedding
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w: %w", domain.ErrModelUnavailable, err)
	}
	return nil
}

// parseAPIError maps provider failures onto domain errors:
// rejected input (400, 422) is ErrEncoding, everything else ErrModelUnavailable.
func parseAPIError(err error) error {
	status, detail := statusAndDetail(err)
	if status == 0 {
		return fmt.Errorf("embedding request failed: %w: %w", domain.ErrModelUnavailable, err)
	}

	wrap := domain.ErrModelUnavailable
	if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
		wrap = domain.ErrEncoding
	}
	return fmt.Errorf("embedding API error %d: %s: %w", status, detail, wrap)
}

// statusAndDetail extracts the HTTP status and a readable message from a go-openai error.
// A zero status means the request never got an HTTP response.
func statusAndDetail(err error) (int, string) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.Message
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if d := extractDetail(reqErr.Body); d != "" {
			return reqErr.HTTPStatusCode, d
		}
		return reqErr.HTTPStatusCode, string(reqErr.Body)
	}

	return 0, ""
}

// extractDetail extracts the "detail" or "error" field from a JSON error body.
// text-embeddings-inference reports {"error": "..."}, FastAPI servers {"detail": "..."}.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error
}
