package layout

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideaspark/hub/internal/ingest"
	"github.com/ideaspark/hub/internal/projection"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  []projection.Point
		want []Unit
	}{
		{
			name: "empty",
			raw:  nil,
			want: []Unit{},
		},
		{
			name: "rescales each axis",
			raw:  []projection.Point{{X: -2, Y: 10}, {X: 0, Y: 20}, {X: 2, Y: 15}},
			want: []Unit{{X: 0, Y: 0}, {X: 0.5, Y: 1}, {X: 1, Y: 0.5}},
		},
		{
			name: "degenerate x axis maps to zero",
			raw:  []projection.Point{{X: 3, Y: 1}, {X: 3, Y: 2}, {X: 3, Y: 3}},
			want: []Unit{{X: 0, Y: 0}, {X: 0, Y: 0.5}, {X: 0, Y: 1}},
		},
		{
			name: "identical points",
			raw:  []projection.Point{{X: 1, Y: 1}, {X: 1, Y: 1}},
			want: []Unit{{X: 0, Y: 0}, {X: 0, Y: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			require.Len(t, got, len(tt.want))

			for i := range got {
				assert.InDelta(t, tt.want[i].X, got[i].X, 1e-12)
				assert.InDelta(t, tt.want[i].Y, got[i].Y, 1e-12)
			}
		})
	}
}

func TestViewport(t *testing.T) {
	vp := Viewport{Width: 1000, Height: 500, Margin: DefaultMargin}
	require.NoError(t, vp.Validate())

	x, y := vp.Map(Unit{X: 0, Y: 0})
	assert.InDelta(t, 50, x, 1e-9)
	assert.InDelta(t, 25, y, 1e-9)

	x, y = vp.Map(Unit{X: 1, Y: 1})
	assert.InDelta(t, 950, x, 1e-9)
	assert.InDelta(t, 475, y, 1e-9)

	x, y = vp.Map(Unit{X: 0.5, Y: 0.5})
	assert.InDelta(t, 500, x, 1e-9)
	assert.InDelta(t, 250, y, 1e-9)

	assert.ErrorIs(t, Viewport{Width: 0, Height: 10}.Validate(), ErrInvalidViewport)
	assert.ErrorIs(t, Viewport{Width: 10, Height: 10, Margin: 0.5}.Validate(), ErrInvalidViewport)
	assert.ErrorIs(t, Viewport{Width: 10, Height: 10, Margin: -0.1}.Validate(), ErrInvalidViewport)
}

func TestBuildEdges(t *testing.T) {
	opts := DefaultEdgeOptions()

	t.Run("coincident points get maximal edge", func(t *testing.T) {
		edges := BuildEdges([]Point{{ID: 1, ViewX: 10, ViewY: 10}, {ID: 2, ViewX: 10, ViewY: 10}}, opts)
		require.Len(t, edges, 1)
		assert.Equal(t, int64(1), edges[0].Source)
		assert.Equal(t, int64(2), edges[0].Target)
		assert.InDelta(t, 0, edges[0].Distance, 1e-12)
		assert.InDelta(t, 1, edges[0].Opacity, 1e-12)
		assert.InDelta(t, 2, edges[0].Width, 1e-12)
	})

	t.Run("distance at threshold emits nothing", func(t *testing.T) {
		edges := BuildEdges([]Point{{ID: 1}, {ID: 2, ViewX: 150}}, opts)
		assert.Empty(t, edges)
	})

	t.Run("weights fall off linearly", func(t *testing.T) {
		edges := BuildEdges([]Point{{ID: 1}, {ID: 2, ViewX: 90, ViewY: 120}}, opts)
		require.Len(t, edges, 0)

		edges = BuildEdges([]Point{{ID: 1}, {ID: 2, ViewX: 30, ViewY: 40}}, opts)
		require.Len(t, edges, 1)
		assert.InDelta(t, 50, edges[0].Distance, 1e-9)
		assert.InDelta(t, 2.0/3.0, edges[0].Opacity, 1e-9)
		assert.InDelta(t, 4.0/3.0, edges[0].Width, 1e-9)
	})

	t.Run("width floors at minimum", func(t *testing.T) {
		edges := BuildEdges([]Point{{ID: 1}, {ID: 2, ViewX: 140}}, opts)
		require.Len(t, edges, 1)
		assert.InDelta(t, DefaultEdgeMinWidth, edges[0].Width, 1e-12)
	})

	t.Run("each pair once", func(t *testing.T) {
		points := []Point{{ID: 1}, {ID: 2, ViewX: 1}, {ID: 3, ViewY: 1}}
		edges := BuildEdges(points, opts)
		assert.Len(t, edges, 3)

		for _, e := range edges {
			assert.Less(t, e.Source, e.Target)
		}
	})

	t.Run("non-positive threshold", func(t *testing.T) {
		edges := BuildEdges([]Point{{ID: 1}, {ID: 2}}, EdgeOptions{})
		assert.NotNil(t, edges)
		assert.Empty(t, edges)
	})
}

func records(vectors ...any) []ingest.Record {
	out := make([]ingest.Record, len(vectors))
	for i, v := range vectors {
		out[i] = ingest.Record{ID: int64(i + 1), Author: "a", Content: "idea", Embedding: v}
	}

	return out
}

func testOptions(seed int64) Options {
	params := projection.DefaultParams()
	params.Rand = rand.New(rand.NewSource(seed))

	return Options{
		Projection: params,
		Viewport:   Viewport{Width: 800, Height: 600, Margin: DefaultMargin},
		Edges:      DefaultEdgeOptions(),
	}
}

func TestBuild(t *testing.T) {
	t.Run("points land in the unit square", func(t *testing.T) {
		recs := records(
			"[0.1, 0.2, 0.3, 0.4]",
			[]float64{0.2, 0.1, 0.4, 0.3},
			[]float32{0.9, 0.8, 0.1, 0.0},
			"[1, 0, 0, 1]",
			"not a vector",
		)

		got, err := Build(context.Background(), recs, testOptions(1))
		require.NoError(t, err)

		assert.Equal(t, StatusOK, got.Status)
		assert.Equal(t, 4, got.Accepted)
		assert.Equal(t, 1, got.Dropped[ingest.DropMalformed])
		assert.Equal(t, 4, got.Dim)
		require.Len(t, got.Points, 4)

		for _, p := range got.Points {
			assert.GreaterOrEqual(t, p.X, 0.0)
			assert.LessOrEqual(t, p.X, 1.0)
			assert.GreaterOrEqual(t, p.Y, 0.0)
			assert.LessOrEqual(t, p.Y, 1.0)
			assert.GreaterOrEqual(t, p.ViewX, 40.0)
			assert.LessOrEqual(t, p.ViewX, 760.0)
		}

		assert.Equal(t, []int64{1, 2, 3, 4}, []int64{got.Points[0].ID, got.Points[1].ID, got.Points[2].ID, got.Points[3].ID})
	})

	t.Run("too few records never project", func(t *testing.T) {
		opts := testOptions(1)
		opts.Projection.MinDist = 5 // invalid; would fail if projection ran

		got, err := Build(context.Background(), records("[1,2]", "[3,4]", nil), opts)
		require.NoError(t, err)

		assert.Equal(t, StatusInsufficientData, got.Status)
		assert.Empty(t, got.Points)
		assert.NotNil(t, got.Points)
		assert.NotNil(t, got.Edges)
		assert.Equal(t, 2, got.Accepted)
		assert.Equal(t, 1, got.Dropped[ingest.DropMissing])
	})

	t.Run("invalid viewport", func(t *testing.T) {
		opts := testOptions(1)
		opts.Viewport.Margin = 0.9

		_, err := Build(context.Background(), records("[1]", "[2]", "[3]"), opts)
		require.ErrorIs(t, err, ErrInvalidViewport)
	})

	t.Run("projection failure surfaces", func(t *testing.T) {
		opts := testOptions(1)
		opts.Projection.Metric = "manhattan"

		_, err := Build(context.Background(), records("[1]", "[2]", "[3]"), opts)
		require.ErrorIs(t, err, projection.ErrInvalidParams)
	})
}
