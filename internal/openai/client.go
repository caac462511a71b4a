// Package openai embeds text through the official OpenAI Go SDK. BaseURL lets the same
// client talk to OpenAI-compatible servers such as a self-hosted BAAI/bge-m3.
package openai

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/ideaspark/hub/pkg/embeddings"
)

const defaultModel = openaisdk.EmbeddingModelTextEmbedding3Small

// Config selects the endpoint and model.
type Config struct {
	APIKey string
	// Model defaults to text-embedding-3-small.
	Model string
	// BaseURL of an OpenAI-compatible API, e.g. http://bge:8000/v1. Empty uses OpenAI.
	BaseURL string
	// Dimensions is sent as the "dimensions" parameter when positive. Servers that reject
	// the parameter need 0.
	Dimensions int
	// MaxRetries is the SDK retry count for transient HTTP failures.
	MaxRetries int
}

// Client implements service.EmbeddingClient.
type Client struct {
	sdk        openaisdk.Client
	model      string
	dimensions int
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		sdk:        openaisdk.NewClient(opts...),
		model:      model,
		dimensions: cfg.Dimensions,
	}
}

func (c *Client) Model() string {
	return c.model
}

// CreateEmbedding embeds the trimmed input as float vectors.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, embeddings.ErrEmptyInput
	}

	params := openaisdk.EmbeddingNewParams{
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(input)},
		Model:          c.model,
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}
	if c.dimensions > 0 {
		params.Dimensions = param.NewOpt(int64(c.dimensions))
	}

	resp, err := c.sdk.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: %w", embeddings.ErrEmptyVector)
	}

	vec, err := embeddings.FromProvider(resp.Data[0].Embedding, c.dimensions)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	return vec, nil
}
