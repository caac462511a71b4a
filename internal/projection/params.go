package projection

import (
	"fmt"
	"math/rand"
	"time"
)

// Metric selects the distance used to build the neighbour graph.
type Metric string

// Supported metrics.
const (
	MetricEuclidean Metric = "euclidean"
	MetricCosine    Metric = "cosine"
)

// ParseMetric returns the metric for s; empty means Euclidean.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricEuclidean:
		return MetricEuclidean, nil
	case MetricCosine:
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidParams, s)
	}
}

// Defaults used by DefaultParams. Apart from DefaultMinDist they also replace zero fields.
const (
	DefaultNeighbors          = 5
	DefaultMinDist            = 0.1
	DefaultSpread             = 1.0
	DefaultLearningRate       = 1.0
	DefaultNegativeSampleRate = 5
	DefaultRepulsionStrength  = 1.0
)

// Params configures one projection run. MinDist and Spread are process configuration;
// nothing on the request path sets them.
type Params struct {
	// NNeighbors is the configured neighbour count. The effective value is min(NNeighbors, N-1).
	NNeighbors int
	// MinDist is used as given: zero packs neighbours as tightly as the curve allows.
	// Start from DefaultParams for the usual value.
	MinDist float64
	Spread  float64
	// Epochs fixes the number of optimisation epochs. Zero picks a value from the population size.
	Epochs             int
	Metric             Metric
	LearningRate       float64
	NegativeSampleRate int
	RepulsionStrength  float64

	// Rand is the random source for initialisation and negative sampling.
	// Nil seeds a fresh source from the clock, so repeated runs differ.
	Rand *rand.Rand
}

// DefaultParams returns the parameters the service runs with unless configured otherwise.
func DefaultParams() Params {
	return Params{
		NNeighbors:         DefaultNeighbors,
		MinDist:            DefaultMinDist,
		Spread:             DefaultSpread,
		Metric:             MetricEuclidean,
		LearningRate:       DefaultLearningRate,
		NegativeSampleRate: DefaultNegativeSampleRate,
		RepulsionStrength:  DefaultRepulsionStrength,
	}
}

func (p Params) withDefaults() Params {
	if p.NNeighbors <= 0 {
		p.NNeighbors = DefaultNeighbors
	}

	if p.Spread == 0 {
		p.Spread = DefaultSpread
	}

	if p.Metric == "" {
		p.Metric = MetricEuclidean
	}

	if p.LearningRate <= 0 {
		p.LearningRate = DefaultLearningRate
	}

	if p.NegativeSampleRate <= 0 {
		p.NegativeSampleRate = DefaultNegativeSampleRate
	}

	if p.RepulsionStrength <= 0 {
		p.RepulsionStrength = DefaultRepulsionStrength
	}

	return p
}

// Validate reports parameter combinations the optimiser cannot work with.
func (p Params) Validate() error {
	p = p.withDefaults()

	if p.Spread < 0 {
		return fmt.Errorf("%w: spread must be positive", ErrInvalidParams)
	}

	if p.MinDist < 0 || p.MinDist > p.Spread {
		return fmt.Errorf("%w: min dist must be within [0, spread]", ErrInvalidParams)
	}

	if p.Epochs < 0 {
		return fmt.Errorf("%w: epochs must not be negative", ErrInvalidParams)
	}

	if _, err := ParseMetric(string(p.Metric)); err != nil {
		return err
	}

	return nil
}

// effectiveNeighbors bounds the neighbour count by the population size.
func effectiveNeighbors(configured, n int) int {
	return min(configured, n-1)
}

// epochsFor mirrors the usual schedule: small populations get more epochs.
func epochsFor(n int) int {
	switch {
	case n <= 2500:
		return 500
	case n <= 5000:
		return 400
	case n <= 7500:
		return 300
	default:
		return 200
	}
}

func newRand(r *rand.Rand) *rand.Rand {
	if r != nil {
		return r
	}

	//nolint:gosec // layout jitter, not security sensitive
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
