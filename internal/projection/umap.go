// Package projection reduces high-dimensional embeddings to 2-D points with a
// neighbour-graph based manifold projection (UMAP family).
//
// Output is stochastic: two runs over the same input produce different coordinates and
// only the relative neighbour structure is expected to agree.
package projection

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// MinPoints is the smallest population Project accepts.
const MinPoints = 3

var (
	// ErrProjectionFailed reports a numerical failure; no partial output accompanies it.
	ErrProjectionFailed = errors.New("projection failed")
	// ErrTooFewPoints is returned for populations below MinPoints.
	ErrTooFewPoints = errors.New("projection needs at least 3 points")
	// ErrInvalidParams is returned when Params cannot be used.
	ErrInvalidParams = errors.New("invalid projection parameters")
)

// Point is a raw projected coordinate pair, unbounded.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Project maps each vector to a 2-D point, index-aligned with the input.
// All vectors must share one dimension and contain only finite values.
func Project(ctx context.Context, vectors [][]float64, params Params) ([]Point, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	p := params.withDefaults()

	n := len(vectors)
	if n < MinPoints {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, n)
	}

	if err := checkInput(vectors); err != nil {
		return nil, err
	}

	epochs := p.Epochs
	if epochs == 0 {
		epochs = epochsFor(n)
	}

	k := effectiveNeighbors(p.NNeighbors, n)
	knn := nearestNeighbors(vectors, k, distanceFor(p.Metric))
	rhos, sigmas := smoothKNNDist(knn, k)
	g := fuzzyGraph(knn, rhos, sigmas).prune(epochs)

	a, b, err := findAB(p.Spread, p.MinDist)
	if err != nil {
		return nil, err
	}

	rng := newRand(p.Rand)
	emb := initEmbedding(n, rng)

	if err := newOptimizer(g, n, epochs, a, b, p, rng).run(ctx, emb); err != nil {
		return nil, err
	}

	points := make([]Point, n)

	for i := range points {
		x, y := emb[i*outputDims], emb[i*outputDims+1]
		if !finite(x) || !finite(y) {
			return nil, fmt.Errorf("%w: non-finite coordinate for point %d", ErrProjectionFailed, i)
		}

		points[i] = Point{X: x, Y: y}
	}

	return points, nil
}

func checkInput(vectors [][]float64) error {
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty vector", ErrProjectionFailed)
	}

	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrProjectionFailed, i, len(v), dim)
		}

		for _, f := range v {
			if !finite(f) {
				return fmt.Errorf("%w: vector %d has non-finite values", ErrProjectionFailed, i)
			}
		}
	}

	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
