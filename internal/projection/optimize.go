package projection

import (
	"context"
	"math"
	"math/rand"
)

const (
	initRange     = 10.0
	gradClip      = 4.0
	repulsionEps  = 0.001
	ctxCheckEvery = 10
	outputDims    = 2
	duplicatePush = 4.0
)

// initEmbedding scatters n points uniformly over [-10, 10]^2.
func initEmbedding(n int, rng *rand.Rand) []float64 {
	emb := make([]float64, n*outputDims)
	for i := range emb {
		emb[i] = rng.Float64()*2*initRange - initRange
	}

	return emb
}

func clip(v float64) float64 {
	return math.Max(-gradClip, math.Min(gradClip, v))
}

// optimizer holds the per-edge sampling schedule for the SGD epochs.
type optimizer struct {
	g                 graph
	n                 int
	epochs            int
	a, b              float64
	gamma             float64
	learningRate      float64
	epochsPerSample   []float64
	epochsPerNegative []float64
	nextSample        []float64
	nextNegative      []float64
	rng               *rand.Rand
}

func newOptimizer(g graph, n, epochs int, a, b float64, p Params, rng *rand.Rand) *optimizer {
	maxW := 0.0
	for _, w := range g.weights {
		maxW = math.Max(maxW, w)
	}

	o := &optimizer{
		g:                 g,
		n:                 n,
		epochs:            epochs,
		a:                 a,
		b:                 b,
		gamma:             p.RepulsionStrength,
		learningRate:      p.LearningRate,
		epochsPerSample:   make([]float64, len(g.weights)),
		epochsPerNegative: make([]float64, len(g.weights)),
		nextSample:        make([]float64, len(g.weights)),
		nextNegative:      make([]float64, len(g.weights)),
		rng:               rng,
	}

	for i, w := range g.weights {
		samples := float64(epochs) * w / maxW

		eps := -1.0
		if samples > 0 {
			eps = float64(epochs) / samples
		}

		o.epochsPerSample[i] = eps
		o.epochsPerNegative[i] = eps / float64(p.NegativeSampleRate)
		o.nextSample[i] = eps
		o.nextNegative[i] = o.epochsPerNegative[i]
	}

	return o
}

// run applies attractive updates along sampled edges and repulsive updates against random
// points, with a learning rate decaying linearly to zero.
func (o *optimizer) run(ctx context.Context, emb []float64) error {
	for epoch := range o.epochs {
		if epoch%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		alpha := o.learningRate * (1 - float64(epoch)/float64(o.epochs))
		o.epoch(emb, float64(epoch), alpha)
	}

	return nil
}

func (o *optimizer) epoch(emb []float64, n, alpha float64) {
	for i := range o.g.weights {
		if o.epochsPerSample[i] <= 0 || o.nextSample[i] > n {
			continue
		}

		j, k := o.g.heads[i], o.g.tails[i]
		o.attract(emb, j, k, alpha)
		o.nextSample[i] += o.epochsPerSample[i]

		negatives := int((n - o.nextNegative[i]) / o.epochsPerNegative[i])
		for range max(negatives, 0) {
			o.repel(emb, j, o.rng.Intn(o.n), alpha)
		}

		o.nextNegative[i] += float64(negatives) * o.epochsPerNegative[i]
	}
}

func (o *optimizer) attract(emb []float64, j, k int, alpha float64) {
	d2 := squaredDist(emb, j, k)

	coeff := 0.0
	if d2 > 0 {
		coeff = -2 * o.a * o.b * math.Pow(d2, o.b-1) / (o.a*math.Pow(d2, o.b) + 1)
	}

	for d := range outputDims {
		grad := clip(coeff * (emb[j*outputDims+d] - emb[k*outputDims+d]))
		emb[j*outputDims+d] += grad * alpha
		emb[k*outputDims+d] -= grad * alpha
	}
}

func (o *optimizer) repel(emb []float64, j, k int, alpha float64) {
	if j == k {
		return
	}

	d2 := squaredDist(emb, j, k)

	coeff := 0.0
	if d2 > 0 {
		coeff = 2 * o.gamma * o.b / ((repulsionEps + d2) * (o.a*math.Pow(d2, o.b) + 1))
	}

	for d := range outputDims {
		grad := duplicatePush
		if coeff > 0 {
			grad = clip(coeff * (emb[j*outputDims+d] - emb[k*outputDims+d]))
		}

		emb[j*outputDims+d] += grad * alpha
	}
}

func squaredDist(emb []float64, j, k int) float64 {
	var sum float64

	for d := range outputDims {
		diff := emb[j*outputDims+d] - emb[k*outputDims+d]
		sum += diff * diff
	}

	return sum
}
