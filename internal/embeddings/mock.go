// Package embeddings provides an offline embedding provider for demos and tests.
package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"strings"
	"unicode"

	vectors "github.com/ideaspark/hub/pkg/embeddings"
)

// ErrEmptyInput is returned when CreateEmbedding is called with text that has no words.
var ErrEmptyInput = errors.New("mock embeddings: input text is empty")

const defaultDimensions = 256

// MockClient produces deterministic unit vectors by hashing each lowercase word of the
// input into a signed bucket. Texts that share words get a positive cosine similarity,
// which keeps similarity alerts and the graph meaningful without a provider.
type MockClient struct {
	dimensions int
}

// NewMockClient creates a mock client. dimensions <= 0 uses 256.
func NewMockClient(dimensions int) *MockClient {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}

	return &MockClient{dimensions: dimensions}
}

// Model returns the provider's model name.
func (c *MockClient) Model() string {
	return "mock-hashing"
}

// CreateEmbedding returns the hashed bag-of-words vector of text, L2-normalized.
func (c *MockClient) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 {
		return nil, ErrEmptyInput
	}

	vec := make([]float32, c.dimensions)

	for _, w := range words {
		sum := sha256.Sum256([]byte(w))
		bucket := binary.BigEndian.Uint32(sum[:4]) % uint32(c.dimensions) //nolint:gosec // dimensions is positive

		if sum[4]&1 == 0 {
			vec[bucket]++
		} else {
			vec[bucket]--
		}
	}

	vectors.NormalizeL2(vec)

	return vec, nil
}
