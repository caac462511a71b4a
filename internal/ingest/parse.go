package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pgvector/pgvector-go"
)

// Parse errors. ParseEmbedding wraps one of these so callers can classify drops.
var (
	ErrMissingEmbedding   = errors.New("embedding is missing")
	ErrEmptyEmbedding     = errors.New("embedding is empty")
	ErrMalformedEmbedding = errors.New("embedding is malformed")
	ErrNonFiniteEmbedding = errors.New("embedding has non-finite values")
)

// ParseEmbedding converts an embedding in any of the accepted encodings into a float64 slice.
// Accepted: JSON / pgvector text ("[0.1,0.2]") as string or []byte, []float32, []float64,
// []any of numbers (decoded JSON), pgvector.Vector, pgvector.HalfVector and their pointers.
func ParseEmbedding(raw any) ([]float64, error) {
	var (
		out []float64
		err error
	)

	switch v := raw.(type) {
	case nil:
		return nil, ErrMissingEmbedding
	case string:
		out, err = parseText(v)
	case []byte:
		out, err = parseText(string(v))
	case *string:
		if v == nil {
			return nil, ErrMissingEmbedding
		}

		out, err = parseText(*v)
	case []float32:
		out = widen(v)
	case []float64:
		out = append([]float64(nil), v...)
	case []any:
		out, err = parseAnySlice(v)
	case pgvector.Vector:
		out = widen(v.Slice())
	case *pgvector.Vector:
		if v == nil {
			return nil, ErrMissingEmbedding
		}

		out = widen(v.Slice())
	case pgvector.HalfVector:
		out = widen(v.Slice())
	case *pgvector.HalfVector:
		if v == nil {
			return nil, ErrMissingEmbedding
		}

		out = widen(v.Slice())
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrMalformedEmbedding, raw)
	}

	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, ErrEmptyEmbedding
	}

	for i, f := range out {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: index %d", ErrNonFiniteEmbedding, i)
		}
	}

	return out, nil
}

// parseText decodes the bracketed text form shared by JSON arrays and pgvector's text output.
func parseText(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrMissingEmbedding
	}

	var out []float64
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEmbedding, err)
	}

	return out, nil
}

func parseAnySlice(values []any) ([]float64, error) {
	out := make([]float64, len(values))

	for i, v := range values {
		switch n := v.(type) {
		case float64:
			out[i] = n
		case float32:
			out[i] = float64(n)
		case int:
			out[i] = float64(n)
		case int64:
			out[i] = float64(n)
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: index %d: %w", ErrMalformedEmbedding, i, err)
			}

			out[i] = f
		default:
			return nil, fmt.Errorf("%w: index %d has type %T", ErrMalformedEmbedding, i, v)
		}
	}

	return out, nil
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = float64(v[i])
	}

	return out
}
