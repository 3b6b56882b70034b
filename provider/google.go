package provider

import (
	"context"
	"fmt"
	"time"
)

const (
	// GoogleAPIBaseURL is the Generative Language API endpoint.
	GoogleAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	defaultEmbeddingModel  = "embedding-001"
	defaultGenerationModel = "gemini-2.5-flash"

	// embedBatchSize caps the number of texts per batchEmbedContents call.
	embedBatchSize = 100
)

// GoogleConfig configures the Google Generative Language clients.
type GoogleConfig struct {
	// APIKey authenticates every request. Required.
	APIKey string

	// BaseURL overrides the API endpoint (used by tests and proxies).
	BaseURL string

	// Model selects the embedding or generation model. Defaults depend on
	// the client being constructed.
	Model string

	// Timeout bounds a single HTTP round trip (not the whole retry loop).
	Timeout time.Duration

	// RequestsPerSecond rate-limits outgoing calls. Defaults to 10.
	RequestsPerSecond float64
}

func (cfg *GoogleConfig) applyDefaults(model string) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("google: %w", ErrMissingCredential)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = GoogleAPIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = model
	}
	return nil
}

// GoogleEmbedder implements Embedder against the Generative Language API.
type GoogleEmbedder struct {
	cfg    GoogleConfig
	client *client
}

// NewGoogleEmbedder creates an embedding client.
// Fails with ErrMissingCredential when no API key is configured.
func NewGoogleEmbedder(cfg GoogleConfig) (*GoogleEmbedder, error) {
	if err := cfg.applyDefaults(defaultEmbeddingModel); err != nil {
		return nil, err
	}
	return &GoogleEmbedder{
		cfg:    cfg,
		client: newClient("google-embedding", cfg.Timeout, cfg.RequestsPerSecond),
	}, nil
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleEmbedRequest struct {
	Model   string        `json:"model,omitempty"`
	Content googleContent `json:"content"`
}

type googleEmbedding struct {
	Values []float32 `json:"values"`
}

// Embed returns the embedding for a single text.
func (e *GoogleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", e.cfg.BaseURL, e.cfg.Model, e.cfg.APIKey)

	var resp struct {
		Embedding googleEmbedding `json:"embedding"`
	}
	req := googleEmbedRequest{
		Content: googleContent{Parts: []googlePart{{Text: text}}},
	}
	if err := e.client.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, &Error{Provider: "google-embedding", Message: "empty embedding in response"}
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch returns one embedding per input text, in input order.
// Large inputs are split across multiple batchEmbedContents calls.
func (e *GoogleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s", e.cfg.BaseURL, e.cfg.Model, e.cfg.APIKey)

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))

		reqs := make([]googleEmbedRequest, 0, end-start)
		for _, text := range texts[start:end] {
			reqs = append(reqs, googleEmbedRequest{
				Model:   "models/" + e.cfg.Model,
				Content: googleContent{Parts: []googlePart{{Text: text}}},
			})
		}

		var resp struct {
			Embeddings []googleEmbedding `json:"embeddings"`
		}
		if err := e.client.postJSON(ctx, url, map[string]any{"requests": reqs}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != end-start {
			return nil, &Error{
				Provider: "google-embedding",
				Message:  fmt.Sprintf("expected %d embeddings, got %d", end-start, len(resp.Embeddings)),
			}
		}
		for _, emb := range resp.Embeddings {
			if len(emb.Values) == 0 {
				return nil, &Error{Provider: "google-embedding", Message: "empty embedding in batch response"}
			}
			out = append(out, emb.Values)
		}
	}
	return out, nil
}

// GoogleGenerator implements Generator against the Generative Language API.
type GoogleGenerator struct {
	cfg    GoogleConfig
	client *client
}

// NewGoogleGenerator creates a generation client.
// Fails with ErrMissingCredential when no API key is configured.
func NewGoogleGenerator(cfg GoogleConfig) (*GoogleGenerator, error) {
	if err := cfg.applyDefaults(defaultGenerationModel); err != nil {
		return nil, err
	}
	return &GoogleGenerator{
		cfg:    cfg,
		client: newClient("google-generation", cfg.Timeout, cfg.RequestsPerSecond),
	}, nil
}

// Generate returns the model's answer for the composed prompt.
// Temperature is pinned to 0 so grounded answers stay reproducible.
func (g *GoogleGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.cfg.BaseURL, g.cfg.Model, g.cfg.APIKey)

	req := map[string]any{
		"contents": []googleContent{
			{Role: "user", Parts: []googlePart{{Text: prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature": 0,
		},
	}

	var resp struct {
		Candidates []struct {
			Content googleContent `json:"content"`
		} `json:"candidates"`
	}
	if err := g.client.postJSON(ctx, url, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Provider: "google-generation", Message: "no candidates in response"}
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}
