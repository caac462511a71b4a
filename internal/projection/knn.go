package projection

import (
	"math"
	"sort"
)

type neighbor struct {
	index int
	dist  float64
}

type distanceFunc func(a, b []float64) float64

func distanceFor(m Metric) distanceFunc {
	if m == MetricCosine {
		return cosineDistance
	}

	return euclidean
}

func euclidean(a, b []float64) float64 {
	var sum float64

	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return math.Sqrt(sum)
}

// cosineDistance returns 1 - cos(a, b). A zero vector is maximally distant from everything.
func cosineDistance(a, b []float64) float64 {
	var dot, normA, normB float64

	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 1.0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	return math.Max(0, 1-sim)
}

// nearestNeighbors runs an exact search. Each row holds the k closest other points,
// nearest first, ties broken by index so the graph does not depend on scheduling.
func nearestNeighbors(data [][]float64, k int, dist distanceFunc) [][]neighbor {
	n := len(data)
	out := make([][]neighbor, n)
	row := make([]neighbor, 0, n-1)

	for i := range n {
		row = row[:0]

		for j := range n {
			if i == j {
				continue
			}

			row = append(row, neighbor{index: j, dist: dist(data[i], data[j])})
		}

		sort.Slice(row, func(a, b int) bool {
			if row[a].dist != row[b].dist {
				return row[a].dist < row[b].dist
			}

			return row[a].index < row[b].index
		})

		out[i] = append([]neighbor(nil), row[:k]...)
	}

	return out
}
