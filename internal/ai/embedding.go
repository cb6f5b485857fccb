package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ollama "github.com/jmorganca/ollama/api"

	"github.com/tkilaker/dronewire/internal/config"
)

const (
	defaultOpenAIEmbeddingModel = "text-embedding-3-small"
	defaultOllamaEmbeddingModel = "nomic-embed-text"
)

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder returns the embedder selected by configuration, or nil when
// embeddings are disabled.
func NewEmbedder(cfg *config.Config) (Embedder, error) {
	if !cfg.EmbeddingsEnabled() {
		return nil, nil
	}
	switch cfg.EmbeddingProvider {
	case "openai":
		return NewOpenAIEmbedder(cfg.OpenAIBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, nil), nil
	case "ollama":
		e, err := NewOllamaEmbedder(cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint
type OpenAIEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewOpenAIEmbedder creates an embedder; an empty model picks text-embedding-3-small.
func NewOpenAIEmbedder(baseURL, apiKey, model string, client *http.Client) *OpenAIEmbedder {
	if model == "" {
		model = defaultOpenAIEmbeddingModel
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OpenAIEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  client,
	}
}

// Embed implements Embedder
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.apiKey == "" {
		return nil, errors.New("EMBEDDING_API_KEY not set")
	}

	body, err := json.Marshal(embeddingRequest{Input: []string{text}, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API error (%d): %s", resp.StatusCode, errorMessage(respBody))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, errors.New("no embeddings returned")
	}
	return parsed.Data[0].Embedding, nil
}

// OllamaEmbedder computes embeddings with a local Ollama server, located via OLLAMA_HOST.
type OllamaEmbedder struct {
	model  string
	client *ollama.Client
}

// NewOllamaEmbedder creates an embedder; an empty model picks nomic-embed-text.
func NewOllamaEmbedder(model string) (*OllamaEmbedder, error) {
	if model == "" {
		model = defaultOllamaEmbeddingModel
	}
	client, err := ollama.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &OllamaEmbedder{model: model, client: client}, nil
}

// Embed implements Embedder
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings(ctx, &ollama.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}

	out := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbeddingText is the text an article's embedding is computed over.
func EmbeddingText(title, summary string, keyPoints []string) string {
	parts := append([]string{title, summary}, keyPoints...)
	return strings.Join(parts, "\n")
}
