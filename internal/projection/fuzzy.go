package projection

import (
	"math"
	"sort"
)

const (
	smoothKTolerance  = 1e-5
	minKDistScale     = 1e-3
	smoothKIterations = 64
)

// graph is the symmetric fuzzy neighbour graph as parallel edge slices.
type graph struct {
	heads   []int
	tails   []int
	weights []float64
}

// smoothKNNDist finds, per point, the distance to its nearest neighbour (rho) and the bandwidth
// (sigma) for which the membership strengths of its k neighbours sum to log2(k+1).
func smoothKNNDist(knn [][]neighbor, k int) (rhos, sigmas []float64) {
	n := len(knn)
	rhos = make([]float64, n)
	sigmas = make([]float64, n)
	target := math.Log2(float64(k + 1))

	var total float64

	count := 0

	for i := range knn {
		for _, nb := range knn[i] {
			total += nb.dist
			count++
		}
	}

	meanAll := 0.0
	if count > 0 {
		meanAll = total / float64(count)
	}

	for i, row := range knn {
		lo, hi, mid := 0.0, math.Inf(1), 1.0

		var rho, rowSum float64

		for _, nb := range row {
			rowSum += nb.dist

			if rho == 0 && nb.dist > 0 {
				rho = nb.dist
			}
		}

		for range smoothKIterations {
			var psum float64

			for _, nb := range row {
				d := nb.dist - rho
				if d > 0 {
					psum += math.Exp(-d / mid)
				} else {
					psum++
				}
			}

			if math.Abs(psum-target) < smoothKTolerance {
				break
			}

			if psum > target {
				hi = mid
				mid = (lo + hi) / 2
			} else {
				lo = mid
				if math.IsInf(hi, 1) {
					mid *= 2
				} else {
					mid = (lo + hi) / 2
				}
			}
		}

		floor := minKDistScale * meanAll
		if rho > 0 && len(row) > 0 {
			floor = minKDistScale * rowSum / float64(len(row))
		}

		rhos[i] = rho
		sigmas[i] = math.Max(mid, floor)
	}

	return rhos, sigmas
}

// fuzzyGraph computes membership strengths and combines both directions with a fuzzy union:
// w = a + b - a*b. Edges are returned in (head, tail) order.
func fuzzyGraph(knn [][]neighbor, rhos, sigmas []float64) graph {
	type edgeKey struct{ head, tail int }

	directed := make(map[edgeKey]float64)

	for i, row := range knn {
		for _, nb := range row {
			w := 1.0

			d := nb.dist - rhos[i]
			if d > 0 && sigmas[i] > 0 {
				w = math.Exp(-d / sigmas[i])
			}

			directed[edgeKey{head: i, tail: nb.index}] = w
		}
	}

	keys := make([]edgeKey, 0, 2*len(directed))
	seen := make(map[edgeKey]bool, 2*len(directed))

	for key := range directed {
		for _, candidate := range []edgeKey{key, {head: key.tail, tail: key.head}} {
			if !seen[candidate] {
				seen[candidate] = true
				keys = append(keys, candidate)
			}
		}
	}

	sort.Slice(keys, func(a, b int) bool {
		if keys[a].head != keys[b].head {
			return keys[a].head < keys[b].head
		}

		return keys[a].tail < keys[b].tail
	})

	g := graph{
		heads:   make([]int, 0, len(keys)),
		tails:   make([]int, 0, len(keys)),
		weights: make([]float64, 0, len(keys)),
	}

	for _, key := range keys {
		a := directed[key]
		b := directed[edgeKey{head: key.tail, tail: key.head}]

		w := a + b - a*b
		if w <= 0 {
			continue
		}

		g.heads = append(g.heads, key.head)
		g.tails = append(g.tails, key.tail)
		g.weights = append(g.weights, w)
	}

	return g
}

// prune drops edges too weak to be sampled even once over the run.
func (g graph) prune(epochs int) graph {
	maxW := 0.0
	for _, w := range g.weights {
		maxW = math.Max(maxW, w)
	}

	if maxW == 0 {
		return g
	}

	cut := maxW / float64(epochs)
	out := graph{}

	for i, w := range g.weights {
		if w < cut {
			continue
		}

		out.heads = append(out.heads, g.heads[i])
		out.tails = append(out.tails, g.tails[i])
		out.weights = append(out.weights, w)
	}

	return out
}
