package boundary

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-sod/knn/internal/geom"
)

var (
	ErrInvalidBounds   = errors.New("invalid feature space bounds")
	ErrInvalidGridSize = errors.New("grid size must be >= 1")
)

const (
	DefaultGridSize = 30
	MaxGridSize     = 1024
)

// Bounds is the rectangle of feature space covered by the grid.
type Bounds struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinY float64 `json:"minY"`
	MaxY float64 `json:"maxY"`
}

// DefaultBounds is the 0-100 square feature space.
var DefaultBounds = Bounds{MinX: 0, MaxX: 100, MinY: 0, MaxY: 100}

func (b Bounds) Validate() error {
	for _, v := range []float64{b.MinX, b.MaxX, b.MinY, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value in %+v", ErrInvalidBounds, b)
		}
	}
	if b.MaxX <= b.MinX || b.MaxY <= b.MinY {
		return fmt.Errorf("%w: empty extent %+v", ErrInvalidBounds, b)
	}
	return nil
}

func (b Bounds) Width() float64 {
	return b.MaxX - b.MinX
}

func (b Bounds) Height() float64 {
	return b.MaxY - b.MinY
}

// Contains reports whether p lies inside the bounds, edges included.
func (b Bounds) Contains(p geom.Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Cover returns the bounding box of the dataset, padded by pad on each side.
// An empty dataset gives DefaultBounds.
func Cover(ds geom.Dataset, pad float64) Bounds {
	if len(ds) == 0 {
		return DefaultBounds
	}
	b := Bounds{MinX: ds[0].X, MaxX: ds[0].X, MinY: ds[0].Y, MaxY: ds[0].Y}
	for _, lp := range ds[1:] {
		b.MinX = math.Min(b.MinX, lp.X)
		b.MaxX = math.Max(b.MaxX, lp.X)
		b.MinY = math.Min(b.MinY, lp.Y)
		b.MaxY = math.Max(b.MaxY, lp.Y)
	}
	if pad <= 0 {
		pad = 1
	}
	b.MinX -= pad
	b.MaxX += pad
	b.MinY -= pad
	b.MaxY += pad
	return b
}
