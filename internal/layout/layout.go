package layout

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ideaspark/hub/internal/ingest"
	"github.com/ideaspark/hub/internal/projection"
)

// Status describes whether a layout carries points.
type Status string

// Layout statuses.
const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
)

// Point is one idea placed in the scene. X and Y are unit-square coordinates,
// ViewX and ViewY the same point mapped into the viewport.
type Point struct {
	ID      int64   `json:"id"`
	Author  string  `json:"author"`
	Content string  `json:"content"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	ViewX   float64 `json:"view_x"`
	ViewY   float64 `json:"view_y"`
}

// Layout is a complete scene. Points and Edges are never nil so they encode as [].
type Layout struct {
	Status   Status                    `json:"status"`
	Points   []Point                   `json:"points"`
	Edges    []Edge                    `json:"edges"`
	Accepted int                       `json:"accepted"`
	Dropped  map[ingest.DropReason]int `json:"dropped"`
	Dim      int                       `json:"dimensions,omitempty"`
}

// Options configures Build.
type Options struct {
	// Dimensions forces the population dimension; zero infers it from the records.
	Dimensions int
	Projection projection.Params
	Viewport   Viewport
	Edges      EdgeOptions
	Logger     *slog.Logger
}

// Build runs ingestion, projection, normalisation and edge building over records.
// Fewer than three usable records yield StatusInsufficientData without projecting.
// Projection errors are returned as-is and no partial layout accompanies them.
func Build(ctx context.Context, records []ingest.Record, opts Options) (Layout, error) {
	if err := opts.Viewport.Validate(); err != nil {
		return Layout{}, err
	}

	pop, report, err := ingest.Ingest(records, ingest.Options{Dimensions: opts.Dimensions, Logger: opts.Logger})
	if errors.Is(err, ingest.ErrInsufficientData) {
		return Insufficient(report), nil
	}

	if err != nil {
		return Layout{}, err
	}

	raw, err := projection.Project(ctx, pop.Vectors(), opts.Projection)
	if err != nil {
		return Layout{}, err
	}

	return Assemble(pop, report, raw, opts.Viewport, opts.Edges), nil
}

// Assemble builds the scene from an already projected population; raw must be
// index-aligned with pop.Samples.
func Assemble(pop ingest.Population, report ingest.Report, raw []projection.Point, vp Viewport, edgeOpts EdgeOptions) Layout {
	units := Normalize(raw)
	points := make([]Point, len(units))

	for i, u := range units {
		s := pop.Samples[i]
		vx, vy := vp.Map(u)
		points[i] = Point{
			ID:      s.ID,
			Author:  s.Author,
			Content: s.Content,
			X:       u.X,
			Y:       u.Y,
			ViewX:   vx,
			ViewY:   vy,
		}
	}

	return Layout{
		Status:   StatusOK,
		Points:   points,
		Edges:    BuildEdges(points, edgeOpts),
		Accepted: report.Accepted,
		Dropped:  report.Dropped,
		Dim:      pop.Dim,
	}
}

// Insufficient is the placeholder layout for populations too small to project.
func Insufficient(report ingest.Report) Layout {
	return Layout{
		Status:   StatusInsufficientData,
		Points:   []Point{},
		Edges:    []Edge{},
		Accepted: report.Accepted,
		Dropped:  report.Dropped,
	}
}
