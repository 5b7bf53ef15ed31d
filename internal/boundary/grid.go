package boundary

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/predictor/knn"
)

// Params are the classification parameters applied at every cell.
type Params struct {
	K        int         `json:"k"`
	Metric   geom.Metric `json:"metric"`
	P        float64     `json:"p"`
	GridSize int         `json:"gridSize"`
}

func (p Params) Validate() error {
	if p.GridSize < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidGridSize, p.GridSize)
	}
	if p.GridSize > MaxGridSize {
		return fmt.Errorf("%w, got %d above max %d", ErrInvalidGridSize, p.GridSize, MaxGridSize)
	}
	if err := p.Metric.Validate(); err != nil {
		return err
	}
	return geom.ValidateP(p.Metric, p.P)
}

// Cell is one square of the sampling grid. X and Y are the lower-left corner.
// Label is meaningful only when Predicted is true.
type Cell struct {
	GX        int     `json:"gx"`
	GY        int     `json:"gy"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Label     string  `json:"label"`
	Predicted bool    `json:"-"`
}

// Size returns the cell side. For non-square bounds it is the width.
func (c Cell) Size() float64 {
	return c.Width
}

func (c Cell) Center() geom.Point {
	return geom.Point{X: c.X + c.Width/2, Y: c.Y + c.Height/2}
}

func (c Cell) MarshalJSON() ([]byte, error) {
	type alias Cell
	var label *string
	if c.Predicted {
		label = &c.Label
	}
	return json.Marshal(struct {
		alias
		Label *string `json:"label"`
		Size  float64 `json:"size"`
	}{alias: alias(c), Label: label, Size: c.Size()})
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	type alias Cell
	var raw struct {
		alias
		Label *string `json:"label"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Cell(raw.alias)
	c.Label, c.Predicted = "", raw.Label != nil
	if raw.Label != nil {
		c.Label = *raw.Label
	}
	return nil
}

// Grid is a computed decision-boundary map. Cells are stored row-major at gy*size+gx.
type Grid struct {
	bounds Bounds
	size   int
	cells  []Cell
}

// FromCells rebuilds a grid from row-major cells, as produced by Grid.Cells.
func FromCells(bounds Bounds, size int, cells []Cell) (*Grid, error) {
	if len(cells) != 0 && len(cells) != size*size {
		return nil, fmt.Errorf("grid of size %d needs %d cells, got %d", size, size*size, len(cells))
	}
	for i := range cells {
		if cells[i].GY*size+cells[i].GX != i {
			return nil, fmt.Errorf("cell %d is out of place at (%d, %d)", i, cells[i].GX, cells[i].GY)
		}
	}
	return &Grid{bounds: bounds, size: size, cells: cells}, nil
}

func (g *Grid) Bounds() Bounds { return g.bounds }

// Size returns the number of cells along each axis.
func (g *Grid) Size() int { return g.size }

func (g *Grid) Len() int { return len(g.cells) }

func (g *Grid) Empty() bool { return len(g.cells) == 0 }

// Cells returns the cells in row-major order.
func (g *Grid) Cells() []Cell { return g.cells }

func (g *Grid) At(gx, gy int) (Cell, bool) {
	if g.Empty() || gx < 0 || gy < 0 || gx >= g.size || gy >= g.size {
		return Cell{}, false
	}
	return g.cells[gy*g.size+gx], true
}

type Option func(*options)

type options struct {
	workers    int
	exhaustive bool
}

// indexMinPoints is the dataset size from which cells are classified through a kd-tree.
const indexMinPoints = 32

// WithWorkers bounds the number of rows computed concurrently.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithExhaustive classifies every cell by scanning the whole dataset, never through a kd-tree.
func WithExhaustive() Option {
	return func(o *options) {
		o.exhaustive = true
	}
}

// Compute classifies the center of every cell of a params.GridSize square grid over bounds.
// An empty dataset yields an empty grid. The result does not depend on the worker count.
func Compute(ctx context.Context, ds geom.Dataset, params Params, bounds Bounds, opts ...Option) (*Grid, error) {
	o := options{workers: runtime.GOMAXPROCS(0)}
	for _, f := range opts {
		f(&o)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("unable to compute boundary: %w", err)
	}
	if err := bounds.Validate(); err != nil {
		return nil, fmt.Errorf("unable to compute boundary: %w", err)
	}
	n := params.GridSize
	if len(ds) == 0 {
		return &Grid{bounds: bounds, size: n, cells: []Cell{}}, nil
	}
	k := params.K
	if k > len(ds) {
		k = len(ds)
	}
	classify, err := classifierFor(ds, k, params, o.exhaustive)
	if err != nil {
		return nil, fmt.Errorf("unable to compute boundary: %w", err)
	}

	w, h := bounds.Width()/float64(n), bounds.Height()/float64(n)
	cells := make([]Cell, n*n)
	grp, gctx := errgroup.WithContext(ctx)
	if o.workers > 0 {
		grp.SetLimit(o.workers)
	}
	for gy := 0; gy < n; gy++ {
		gy := gy
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row := cells[gy*n : (gy+1)*n]
			for gx := range row {
				c := Cell{
					GX:     gx,
					GY:     gy,
					X:      bounds.MinX + float64(gx)*w,
					Y:      bounds.MinY + float64(gy)*h,
					Width:  w,
					Height: h,
				}
				if label, ok := classify(c.Center()).Label(); ok {
					c.Label, c.Predicted = label, true
				}
				row[gx] = c
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, fmt.Errorf("boundary computation aborted: %w", err)
	}
	return &Grid{bounds: bounds, size: n, cells: cells}, nil
}

func classifierFor(ds geom.Dataset, k int, params Params, exhaustive bool) (func(geom.Point) *knn.Prediction, error) {
	if exhaustive || len(ds) < indexMinPoints {
		c, err := knn.NewClassifier(k, params.Metric, params.P)
		if err != nil {
			return nil, err
		}
		return func(q geom.Point) *knn.Prediction { return c.Classify(q, ds) }, nil
	}
	ix, err := knn.NewIndex(ds, k, params.Metric, params.P)
	if err != nil {
		return nil, err
	}
	return ix.Classify, nil
}
