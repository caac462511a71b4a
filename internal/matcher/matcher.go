// Package matcher finds existing ideas semantically close to a query vector.
package matcher

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidQuery is returned by Query.Validate.
var ErrInvalidQuery = errors.New("invalid similarity query")

// Query asks for ideas by other authors whose cosine similarity to Vector is strictly
// above Threshold, best first, at most Limit of them.
type Query struct {
	Vector        []float32
	ExcludeAuthor string
	Threshold     float64
	Limit         int
}

// Validate checks the threshold is within [0,1], the limit is positive and the vector usable.
func (q Query) Validate() error {
	if len(q.Vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidQuery)
	}

	if math.IsNaN(q.Threshold) || q.Threshold < 0 || q.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be between 0 and 1", ErrInvalidQuery)
	}

	if q.Limit < 1 {
		return fmt.Errorf("%w: limit must be at least 1", ErrInvalidQuery)
	}

	return nil
}

// Candidate is an existing idea with its embedding.
type Candidate struct {
	ID      int64
	Author  string
	Content string
	Vector  []float32
}

// Match is a candidate that cleared the threshold.
type Match struct {
	ID      int64   `json:"id"`
	Author  string  `json:"author"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Find scores every candidate against q. Candidates of another dimension or with a zero
// vector are skipped. The result is empty when nothing clears the threshold; ties on score
// are ordered by ascending ID. A score must be strictly above the threshold, so Threshold 1
// never matches, not even an identical vector.
func Find(q Query, candidates []Candidate) []Match {
	matches := make([]Match, 0)
	if len(q.Vector) == 0 || q.Limit < 1 {
		return matches
	}

	qNorm := norm(q.Vector)
	if qNorm == 0 {
		return matches
	}

	for _, c := range candidates {
		if c.Author == q.ExcludeAuthor || len(c.Vector) != len(q.Vector) {
			continue
		}

		cNorm := norm(c.Vector)
		if cNorm == 0 {
			continue
		}

		score := math.Min(1, dot(q.Vector, c.Vector)/(qNorm*cNorm))
		if math.IsNaN(score) || score <= q.Threshold {
			continue
		}

		matches = append(matches, Match{ID: c.ID, Author: c.Author, Content: c.Content, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}

		return matches[i].ID < matches[j].ID
	})

	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	return matches
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when the
// lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}

	return dot(a, b) / (na * nb)
}

func dot(a, b []float32) float64 {
	var sum float64

	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
