package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/knn/internal/boundary"
	"github.com/go-sod/knn/internal/dataset"
	"github.com/go-sod/knn/internal/geom"
)

func seedGrid(t *testing.T, size int) *boundary.Grid {
	t.Helper()
	grid, err := boundary.Compute(context.Background(), dataset.Seed(),
		boundary.Params{K: 3, Metric: geom.MetricEuclidean, GridSize: size}, boundary.DefaultBounds)
	require.NoError(t, err)
	return grid
}

func TestASCII(t *testing.T) {
	grid := seedGrid(t, 4)
	out := ASCII(grid, geom.Dataset{geom.NewLabeledPoint(99, 99, "B")})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "BBB*", lines[0])
	assert.Equal(t, 'A', rune(lines[3][0]))

	assert.Equal(t, "", ASCII(&boundary.Grid{}, nil))
}

func TestASCII_NoPrediction(t *testing.T) {
	cells := []boundary.Cell{
		{GX: 0, GY: 0, Label: "A", Predicted: true},
		{GX: 1, GY: 0},
		{GX: 0, GY: 1, Label: "Blue", Predicted: true},
		{GX: 1, GY: 1, Label: "Blue", Predicted: true},
	}
	grid, err := boundary.FromCells(boundary.DefaultBounds, 2, cells)
	require.NoError(t, err)
	assert.Equal(t, "BB\nA.\n", ASCII(grid, nil))
}

func TestShares(t *testing.T) {
	cells := []boundary.Cell{
		{GX: 0, GY: 0, Label: "A", Predicted: true},
		{GX: 1, GY: 0, Label: "B", Predicted: true},
		{GX: 0, GY: 1, Label: "B", Predicted: true},
		{GX: 1, GY: 1, Label: "B", Predicted: true},
	}
	grid, err := boundary.FromCells(boundary.DefaultBounds, 2, cells)
	require.NoError(t, err)
	assert.Equal(t, "A\t 25.00%\nB\t 75.00%\n", Shares(grid))
}

func TestColors(t *testing.T) {
	colors := Colors([]string{"B", "A", "A"})
	assert.Len(t, colors, 2)
	assert.Equal(t, palette[0], colors["A"])
	assert.Equal(t, palette[1], colors["B"])
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boundary.png")
	require.NoError(t, SavePNG(seedGrid(t, 10), dataset.Seed(), "seed", path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
