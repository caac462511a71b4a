package layout

import "math"

// Edge defaults, in rendered units.
const (
	DefaultEdgeThreshold = 150.0
	DefaultEdgeMinWidth  = 0.5
	DefaultEdgeScale     = 2.0
)

// EdgeOptions controls which pairs are connected and how edges are weighted.
type EdgeOptions struct {
	Threshold float64
	MinWidth  float64
	Scale     float64
}

// DefaultEdgeOptions returns the graph page defaults.
func DefaultEdgeOptions() EdgeOptions {
	return EdgeOptions{
		Threshold: DefaultEdgeThreshold,
		MinWidth:  DefaultEdgeMinWidth,
		Scale:     DefaultEdgeScale,
	}
}

// Edge connects two nearby points.
type Edge struct {
	Source   int64   `json:"source"`
	Target   int64   `json:"target"`
	Distance float64 `json:"distance"`
	Opacity  float64 `json:"opacity"`
	Width    float64 `json:"width"`
}

// BuildEdges connects every pair of points closer than opts.Threshold in rendered space.
// Closeness scales opacity linearly to 1 at distance 0. Pairs are visited once, i < j,
// so the pass is quadratic in the number of points.
func BuildEdges(points []Point, opts EdgeOptions) []Edge {
	edges := make([]Edge, 0)
	if opts.Threshold <= 0 {
		return edges
	}

	for i := range points {
		for j := i + 1; j < len(points); j++ {
			d := math.Hypot(points[i].ViewX-points[j].ViewX, points[i].ViewY-points[j].ViewY)
			if d >= opts.Threshold {
				continue
			}

			closeness := 1 - d/opts.Threshold
			edges = append(edges, Edge{
				Source:   points[i].ID,
				Target:   points[j].ID,
				Distance: d,
				Opacity:  closeness,
				Width:    math.Max(opts.MinWidth, opts.Scale*closeness),
			})
		}
	}

	return edges
}
