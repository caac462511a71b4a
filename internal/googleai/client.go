// Package googleai embeds text with Gemini through the Google Gen AI SDK.
package googleai

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"

	"github.com/ideaspark/hub/pkg/embeddings"
)

const defaultModel = "gemini-embedding-001"

// ErrInvalidDimensions is returned by NewClient for a negative or oversized Dimensions.
var ErrInvalidDimensions = errors.New("googleai: embedding dimensions out of range")

// Config selects the model and, for tests or proxies, the API base URL.
type Config struct {
	APIKey string
	// Model defaults to gemini-embedding-001.
	Model string
	// Dimensions sets OutputDimensionality when positive.
	Dimensions int
	BaseURL    string
}

// Client implements service.EmbeddingClient against the Gemini API.
type Client struct {
	models *genai.Models
	model  string
	config *genai.EmbedContentConfig
	dims   int
}

// NewClient validates cfg and creates the underlying SDK client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Dimensions < 0 || cfg.Dimensions > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimensions, cfg.Dimensions)
	}

	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	c := &Client{
		models: sdk.Models,
		model:  cmp.Or(cfg.Model, defaultModel),
		config: &genai.EmbedContentConfig{},
		dims:   cfg.Dimensions,
	}

	if cfg.Dimensions > 0 {
		//nolint:gosec // G115: bounded by math.MaxInt32 above
		dims := int32(cfg.Dimensions)
		c.config.OutputDimensionality = &dims
	}

	return c, nil
}

func (c *Client) Model() string {
	return c.model
}

// CreateEmbedding embeds the trimmed input.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, embeddings.ErrEmptyInput
	}

	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}

	resp, err := c.models.EmbedContent(ctx, c.model, contents, c.config)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("gemini embedding: %w", embeddings.ErrEmptyVector)
	}

	vec, err := embeddings.FromProvider(resp.Embeddings[0].Values, c.dims)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	return vec, nil
}
