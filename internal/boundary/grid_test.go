package boundary

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/knn/internal/geom"
)

func clusters() geom.Dataset {
	return geom.Dataset{
		geom.NewLabeledPoint(20, 20, "A"),
		geom.NewLabeledPoint(25, 30, "A"),
		geom.NewLabeledPoint(30, 22, "A"),
		geom.NewLabeledPoint(35, 28, "A"),
		geom.NewLabeledPoint(40, 25, "A"),
		geom.NewLabeledPoint(65, 70, "B"),
		geom.NewLabeledPoint(70, 65, "B"),
		geom.NewLabeledPoint(72, 78, "B"),
		geom.NewLabeledPoint(78, 72, "B"),
		geom.NewLabeledPoint(80, 80, "B"),
	}
}

func defaultParams() Params {
	return Params{K: 3, Metric: geom.MetricEuclidean, P: geom.DefaultP, GridSize: DefaultGridSize}
}

func TestCompute_SingleLabel(t *testing.T) {
	t.Parallel()
	ds := geom.Dataset{
		geom.NewLabeledPoint(10, 10, "A"),
		geom.NewLabeledPoint(90, 15, "A"),
		geom.NewLabeledPoint(50, 60, "A"),
	}
	for _, m := range geom.Metrics() {
		params := defaultParams()
		params.Metric = m
		grid, err := Compute(context.Background(), ds, params, DefaultBounds)
		require.NoError(t, err)
		require.Equal(t, DefaultGridSize*DefaultGridSize, grid.Len())
		for _, c := range grid.Cells() {
			if !c.Predicted || c.Label != "A" {
				t.Fatalf("%s: cell (%d, %d) got: %q (%v), expected: A", m, c.GX, c.GY, c.Label, c.Predicted)
			}
		}
		assert.Equal(t, map[string]float64{"A": 1}, grid.Shares())
		assert.True(t, grid.Edges().IsEmpty())
	}
}

func TestCompute_EmptyDataset(t *testing.T) {
	t.Parallel()
	grid, err := Compute(context.Background(), geom.Dataset{}, defaultParams(), DefaultBounds)
	require.NoError(t, err)
	assert.True(t, grid.Empty())
	assert.Equal(t, 0, grid.Len())
	assert.Empty(t, grid.Regions())
	assert.Empty(t, grid.Shares())
	_, ok := grid.At(0, 0)
	assert.False(t, ok)
}

func TestCompute_Geometry(t *testing.T) {
	t.Parallel()
	params := defaultParams()
	params.GridSize = 4
	grid, err := Compute(context.Background(), clusters(), params, DefaultBounds)
	require.NoError(t, err)
	require.Equal(t, 4, grid.Size())

	c, ok := grid.At(0, 0)
	require.True(t, ok)
	assert.Equal(t, Cell{GX: 0, GY: 0, X: 0, Y: 0, Width: 25, Height: 25, Label: "A", Predicted: true}, c)
	assert.Equal(t, 25.0, c.Size())

	c, ok = grid.At(3, 2)
	require.True(t, ok)
	assert.Equal(t, 75.0, c.X)
	assert.Equal(t, 50.0, c.Y)
	assert.Equal(t, geom.Point{X: 87.5, Y: 62.5}, c.Center())
	assert.Equal(t, "B", c.Label)

	for i, cell := range grid.Cells() {
		assert.Equal(t, i, cell.GY*4+cell.GX)
	}
	_, ok = grid.At(4, 0)
	assert.False(t, ok)
}

func TestCompute_NonSquareBounds(t *testing.T) {
	t.Parallel()
	params := defaultParams()
	params.GridSize = 5
	bounds := Bounds{MinX: -50, MaxX: 50, MinY: 0, MaxY: 10}
	grid, err := Compute(context.Background(), clusters(), params, bounds)
	require.NoError(t, err)
	c, _ := grid.At(4, 4)
	assert.Equal(t, 20.0, c.Width)
	assert.Equal(t, 2.0, c.Height)
	assert.Equal(t, 30.0, c.X)
	assert.Equal(t, 8.0, c.Y)
}

func TestCompute_MatchesClassifyPerCell(t *testing.T) {
	t.Parallel()
	params := Params{K: 5, Metric: geom.MetricMinkowski, P: 4, GridSize: 12}
	ds := clusters()
	sequential, err := Compute(context.Background(), ds, params, DefaultBounds, WithWorkers(1))
	require.NoError(t, err)
	parallel, err := Compute(context.Background(), ds, params, DefaultBounds, WithWorkers(8))
	require.NoError(t, err)
	unbounded, err := Compute(context.Background(), ds, params, DefaultBounds, WithWorkers(0))
	require.NoError(t, err)
	if !reflect.DeepEqual(sequential.Cells(), parallel.Cells()) || !reflect.DeepEqual(sequential.Cells(), unbounded.Cells()) {
		t.Fatalf("parallel grid differs from sequential grid")
	}
	assert.Contains(t, sequential.Labels(), "A")
	assert.Contains(t, sequential.Labels(), "B")
	assert.False(t, sequential.Edges().IsEmpty())
}

func TestCompute_IndexMatchesExhaustive(t *testing.T) {
	t.Parallel()
	ds := make(geom.Dataset, 0, 200)
	labels := []string{"A", "B", "C"}
	for i := 0; i < 200; i++ {
		// integer coordinates with repeats make distance ties common
		ds = append(ds, geom.NewLabeledPoint(float64((i*37)%23)*4, float64((i*11)%17)*5, labels[(i*7)%3]))
	}
	for _, m := range geom.Metrics() {
		for _, k := range []int{1, 4, 9} {
			params := Params{K: k, Metric: m, P: 3, GridSize: 25}
			indexed, err := Compute(context.Background(), ds, params, DefaultBounds)
			require.NoError(t, err)
			scanned, err := Compute(context.Background(), ds, params, DefaultBounds, WithExhaustive())
			require.NoError(t, err)
			if !reflect.DeepEqual(indexed.Cells(), scanned.Cells()) {
				t.Fatalf("%s k=%d: indexed grid differs from exhaustive grid", m, k)
			}
		}
	}
}

func TestCompute_KClamping(t *testing.T) {
	t.Parallel()
	params := defaultParams()
	params.GridSize = 3
	params.K = 100
	grid, err := Compute(context.Background(), clusters(), params, DefaultBounds)
	require.NoError(t, err)
	for _, c := range grid.Cells() {
		assert.True(t, c.Predicted)
	}

	params.K = 0
	grid, err = Compute(context.Background(), clusters(), params, DefaultBounds)
	require.NoError(t, err)
	require.Equal(t, 9, grid.Len())
	for _, c := range grid.Cells() {
		assert.False(t, c.Predicted)
	}
	assert.Empty(t, grid.Shares())
}

func TestCompute_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		params   Params
		bounds   Bounds
		expected error
	}{
		{name: "grid_zero", params: Params{K: 3, Metric: geom.MetricEuclidean, GridSize: 0}, bounds: DefaultBounds, expected: ErrInvalidGridSize},
		{name: "grid_too_large", params: Params{K: 3, Metric: geom.MetricEuclidean, GridSize: MaxGridSize + 1}, bounds: DefaultBounds, expected: ErrInvalidGridSize},
		{name: "metric", params: Params{K: 3, Metric: "cosine", GridSize: 3}, bounds: DefaultBounds, expected: geom.ErrInvalidMetric},
		{name: "p", params: Params{K: 3, Metric: geom.MetricMinkowski, P: 0.3, GridSize: 3}, bounds: DefaultBounds, expected: geom.ErrInvalidP},
		{name: "inverted_bounds", params: defaultParams(), bounds: Bounds{MinX: 10, MaxX: 0, MinY: 0, MaxY: 10}, expected: ErrInvalidBounds},
		{name: "flat_bounds", params: defaultParams(), bounds: Bounds{MinX: 0, MaxX: 10, MinY: 5, MaxY: 5}, expected: ErrInvalidBounds},
		{name: "nan_bounds", params: defaultParams(), bounds: Bounds{MinX: math.NaN(), MaxX: 10, MinY: 0, MaxY: 5}, expected: ErrInvalidBounds},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := Compute(context.Background(), clusters(), test.params, test.bounds)
			if !errors.Is(err, test.expected) {
				t.Errorf("compute error, got: %v, expected: %v", err, test.expected)
			}
			_, err = Compute(context.Background(), geom.Dataset{}, test.params, test.bounds)
			if !errors.Is(err, test.expected) {
				t.Errorf("compute on empty dataset must validate too, got: %v, expected: %v", err, test.expected)
			}
		})
	}
}

func TestCompute_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Compute(ctx, clusters(), defaultParams(), DefaultBounds)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompute_Idempotent(t *testing.T) {
	t.Parallel()
	first, err := Compute(context.Background(), clusters(), defaultParams(), DefaultBounds)
	require.NoError(t, err)
	second, err := Compute(context.Background(), clusters(), defaultParams(), DefaultBounds)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFromCells(t *testing.T) {
	t.Parallel()
	cells := []Cell{
		{GX: 0, GY: 0, Label: "A", Predicted: true},
		{GX: 1, GY: 0, Label: "A", Predicted: true},
		{GX: 0, GY: 1, Label: "B", Predicted: true},
		{GX: 1, GY: 1, Label: "B", Predicted: true},
	}
	grid, err := FromCells(DefaultBounds, 2, cells)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"A": 0.5, "B": 0.5}, grid.Shares())
	assert.Equal(t, []uint32{0, 1, 2, 3}, grid.Edges().ToArray())
	assert.Equal(t, []uint32{0, 1}, grid.Regions()["A"].ToArray())
	assert.Equal(t, []string{"A", "B"}, grid.Labels())

	_, err = FromCells(DefaultBounds, 3, cells)
	assert.Error(t, err)
	_, err = FromCells(DefaultBounds, 2, []Cell{cells[1], cells[0], cells[2], cells[3]})
	assert.Error(t, err)
}

func TestCell_JSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		cell     Cell
		expected string
	}{
		{
			name:     "predicted",
			cell:     Cell{GX: 1, GY: 2, X: 10, Y: 20, Width: 10, Height: 10, Label: "A", Predicted: true},
			expected: `{"gx":1,"gy":2,"x":10,"y":20,"width":10,"height":10,"label":"A","size":10}`,
		},
		{
			name:     "no_prediction",
			cell:     Cell{GX: 0, GY: 0, X: 0, Y: 0, Width: 5, Height: 5},
			expected: `{"gx":0,"gy":0,"x":0,"y":0,"width":5,"height":5,"label":null,"size":5}`,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			bytes, err := json.Marshal(test.cell)
			require.NoError(t, err)
			assert.JSONEq(t, test.expected, string(bytes))
			var back Cell
			require.NoError(t, json.Unmarshal(bytes, &back))
			assert.Equal(t, test.cell, back)
		})
	}
}

func TestCover(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultBounds, Cover(nil, 5))
	b := Cover(clusters(), 5)
	assert.Equal(t, Bounds{MinX: 15, MaxX: 85, MinY: 15, MaxY: 85}, b)
	assert.True(t, b.Contains(geom.Point{X: 50, Y: 50}))
	assert.False(t, b.Contains(geom.Point{X: 0, Y: 50}))
	single := Cover(geom.Dataset{geom.NewLabeledPoint(3, 3, "A")}, 0)
	assert.NoError(t, single.Validate())
}
