// Package ingest validates raw idea records and turns their embeddings into a projection-ready population.
package ingest

import (
	"errors"
	"log/slog"
)

// MinPopulation is the smallest population the projection engine accepts.
const MinPopulation = 3

// ErrInsufficientData is returned when fewer than MinPopulation records carry a valid embedding.
var ErrInsufficientData = errors.New("insufficient data for projection")

// DropReason classifies why a record was left out of the population.
type DropReason string

// Drop reasons, also used as bounded metric attribute values.
const (
	DropMissing           DropReason = "missing"
	DropEmpty             DropReason = "empty"
	DropMalformed         DropReason = "malformed"
	DropNonFinite         DropReason = "non_finite"
	DropDimensionMismatch DropReason = "dimension_mismatch"
)

// Record is a raw idea as read from the store or a request body.
// Embedding may be textual or native, see ParseEmbedding.
type Record struct {
	ID        int64
	Author    string
	Content   string
	Embedding any
}

// Sample is a validated record whose vector has the population dimension.
type Sample struct {
	ID      int64
	Author  string
	Content string
	Vector  []float64
}

// Population is the set of samples consumed by one projection run.
type Population struct {
	Samples []Sample
	Dim     int
}

// Vectors returns the sample vectors, index-aligned with Samples.
func (p Population) Vectors() [][]float64 {
	out := make([][]float64, len(p.Samples))
	for i := range p.Samples {
		out[i] = p.Samples[i].Vector
	}

	return out
}

// Len returns the number of samples.
func (p Population) Len() int { return len(p.Samples) }

// Report summarises one ingestion pass.
type Report struct {
	Received int                `json:"received"`
	Accepted int                `json:"accepted"`
	Dropped  map[DropReason]int `json:"dropped,omitempty"`
}

// TotalDropped returns the number of records dropped for any reason.
func (r Report) TotalDropped() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}

	return total
}

func (r *Report) drop(reason DropReason) {
	if r.Dropped == nil {
		r.Dropped = make(map[DropReason]int)
	}

	r.Dropped[reason]++
}

// Options configures Ingest.
type Options struct {
	// Dimensions pins the population dimension. Zero means the most common length wins.
	Dimensions int
	Logger     *slog.Logger
}

// Ingest parses every record, drops the invalid ones and fixes the population dimension.
// Invalid records never abort the batch. When fewer than MinPopulation samples remain the
// population and report are still returned together with ErrInsufficientData.
func Ingest(records []Record, opts Options) (Population, Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	report := Report{Received: len(records)}
	parsed := make([]Sample, 0, len(records))

	for _, rec := range records {
		vec, err := ParseEmbedding(rec.Embedding)
		if err != nil {
			reason := classify(err)
			report.drop(reason)
			logger.Debug("ingest: record dropped", "idea_id", rec.ID, "reason", reason, "error", err)

			continue
		}

		parsed = append(parsed, Sample{ID: rec.ID, Author: rec.Author, Content: rec.Content, Vector: vec})
	}

	dim := opts.Dimensions
	if dim <= 0 {
		dim = dominantLength(parsed)
	}

	pop := Population{Dim: dim, Samples: make([]Sample, 0, len(parsed))}

	for _, s := range parsed {
		if len(s.Vector) != dim {
			report.drop(DropDimensionMismatch)
			logger.Warn("ingest: embedding dimension mismatch",
				"idea_id", s.ID, "got", len(s.Vector), "want", dim)

			continue
		}

		pop.Samples = append(pop.Samples, s)
	}

	report.Accepted = len(pop.Samples)

	if pop.Len() < MinPopulation {
		return pop, report, ErrInsufficientData
	}

	return pop, report, nil
}

// dominantLength returns the most frequent vector length; ties go to the length seen first.
func dominantLength(samples []Sample) int {
	counts := make(map[int]int)
	order := make([]int, 0, 1)

	for _, s := range samples {
		n := len(s.Vector)
		if counts[n] == 0 {
			order = append(order, n)
		}

		counts[n]++
	}

	best, bestCount := 0, 0

	for _, n := range order {
		if counts[n] > bestCount {
			best, bestCount = n, counts[n]
		}
	}

	return best
}

func classify(err error) DropReason {
	switch {
	case errors.Is(err, ErrMissingEmbedding):
		return DropMissing
	case errors.Is(err, ErrEmptyEmbedding):
		return DropEmpty
	case errors.Is(err, ErrNonFiniteEmbedding):
		return DropNonFinite
	default:
		return DropMalformed
	}
}
