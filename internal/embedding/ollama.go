// Package embedding wraps the Ollama embeddings API behind a small client.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Client calls a local Ollama server to turn text into vectors. Construct
// it once per process; the first call probes and caches the model's output
// dimension.
type Client struct {
	baseURL string
	model   string
	client  *http.Client

	mu  sync.Mutex
	dim int
}

// EmbeddingRequest is the Ollama embeddings API request body.
type EmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// EmbeddingResponse is the Ollama embeddings API response body.
type EmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// New creates an embedding client. Empty arguments fall back to a local
// Ollama with the all-minilm model.
func New(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "all-minilm"
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Encode generates the embedding for a single text.
func (c *Client) Encode(ctx context.Context, text string) ([]float32, error) {
	reqBody := EmbeddingRequest{
		Model:  c.model,
		Prompt: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request to ollama failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned error status: %d", resp.StatusCode)
	}

	var result EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}

	c.mu.Lock()
	if c.dim == 0 {
		c.dim = len(result.Embedding)
	}
	c.mu.Unlock()

	return result.Embedding, nil
}

// EncodeBatch generates embeddings for multiple texts, sequentially.
func (c *Client) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := c.Encode(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimension returns the model's output vector size, probing the server the
// first time. A probe failure means the model is unusable and surfaces to
// the caller.
func (c *Client) Dimension(ctx context.Context) (int, error) {
	c.mu.Lock()
	dim := c.dim
	c.mu.Unlock()
	if dim > 0 {
		return dim, nil
	}

	emb, err := c.Encode(ctx, "dimension probe")
	if err != nil {
		return 0, fmt.Errorf("probing embedding dimension: %w", err)
	}
	return len(emb), nil
}
