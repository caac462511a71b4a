// Package embeddings provides utilities for embedding vectors (L2 normalization and validation).
package embeddings

import (
	"errors"
	"fmt"
	"math"
)

// Vector validation errors.
var (
	ErrEmptyVector       = errors.New("embedding is empty")
	ErrNonFiniteVector   = errors.New("embedding contains NaN or Inf")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrZeroVector        = errors.New("embedding has zero norm")

	// ErrEmptyInput is returned by providers asked to embed blank text.
	ErrEmptyInput = errors.New("embedding input is empty")
)

// NormalizeL2 scales vector in place to unit length. A zero vector is left unchanged.
func NormalizeL2(vector []float32) {
	magnitude := Norm(vector)
	if magnitude == 0 {
		return
	}

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

// Norm returns the Euclidean length of vector, accumulated in float64.
func Norm(vector []float32) float64 {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	return math.Sqrt(sumSquares)
}

// Validate checks that vector is non-empty, finite and not all zeros. When dims > 0 the
// length must equal dims.
func Validate(vector []float32, dims int) error {
	if len(vector) == 0 {
		return ErrEmptyVector
	}

	if dims > 0 && len(vector) != dims {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), dims)
	}

	for _, v := range vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return ErrNonFiniteVector
		}
	}

	if Norm(vector) == 0 {
		return ErrZeroVector
	}

	return nil
}

// FromProvider copies a provider's vector into float32, requiring it to be non-empty and,
// when dims > 0, exactly dims long.
func FromProvider[T float32 | float64](values []T, dims int) ([]float32, error) {
	if len(values) == 0 {
		return nil, ErrEmptyVector
	}

	if dims > 0 && len(values) != dims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(values), dims)
	}

	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}

	return out, nil
}
