// Package codec encodes decision-boundary grids as XDR, optionally lz4-compressed for storage.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	xdr "github.com/davecgh/go-xdr/xdr2"
	"github.com/pierrec/lz4/v4"

	"github.com/go-sod/knn/internal/boundary"
	"github.com/go-sod/knn/internal/util"
)

const (
	ContentTypeXDR = "application/xdr"

	version uint32 = 1
)

var ErrVersion = errors.New("unsupported grid encoding version")

type wireBounds struct {
	MinX, MaxX, MinY, MaxY float64
}

type wireCell struct {
	GX, GY        int32
	X, Y          float64
	Width, Height float64
	Predicted     bool
	Label         string
}

type wireGrid struct {
	Version uint32
	Bounds  wireBounds
	Size    int32
	Cells   []wireCell
}

// MarshalXDR writes grid as XDR to w.
func MarshalXDR(w io.Writer, grid *boundary.Grid) error {
	b := grid.Bounds()
	wg := wireGrid{
		Version: version,
		Bounds:  wireBounds{MinX: b.MinX, MaxX: b.MaxX, MinY: b.MinY, MaxY: b.MaxY},
		Size:    int32(grid.Size()),
		Cells:   make([]wireCell, grid.Len()),
	}
	for i, c := range grid.Cells() {
		wg.Cells[i] = wireCell{
			GX:        int32(c.GX),
			GY:        int32(c.GY),
			X:         c.X,
			Y:         c.Y,
			Width:     c.Width,
			Height:    c.Height,
			Predicted: c.Predicted,
			Label:     c.Label,
		}
	}
	if _, err := xdr.Marshal(w, &wg); err != nil {
		return fmt.Errorf("xdr marshal grid: %w", err)
	}
	return nil
}

// UnmarshalXDR reads a grid written by MarshalXDR.
func UnmarshalXDR(r io.Reader) (*boundary.Grid, error) {
	var wg wireGrid
	if _, err := xdr.Unmarshal(r, &wg); err != nil {
		return nil, fmt.Errorf("xdr unmarshal grid: %w", err)
	}
	if wg.Version != version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, wg.Version)
	}
	cells := make([]boundary.Cell, len(wg.Cells))
	for i, c := range wg.Cells {
		cells[i] = boundary.Cell{
			GX:        int(c.GX),
			GY:        int(c.GY),
			X:         c.X,
			Y:         c.Y,
			Width:     c.Width,
			Height:    c.Height,
			Predicted: c.Predicted,
			Label:     c.Label,
		}
	}
	b := boundary.Bounds{MinX: wg.Bounds.MinX, MaxX: wg.Bounds.MaxX, MinY: wg.Bounds.MinY, MaxY: wg.Bounds.MaxY}
	return boundary.FromCells(b, int(wg.Size), cells)
}

// Encode returns the lz4-compressed XDR form of grid.
func Encode(grid *boundary.Grid) ([]byte, error) {
	buf := util.GetBytesBuffer()
	defer util.PutBytesBuffer(buf)

	var out bytes.Buffer
	zw := lz4.NewWriter(&out)
	if err := MarshalXDR(buf, grid); err != nil {
		return nil, err
	}
	if _, err := zw.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("lz4 compress grid: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress grid: %w", err)
	}
	return out.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*boundary.Grid, error) {
	buf := util.GetBytesBuffer()
	defer util.PutBytesBuffer(buf)

	if _, err := buf.ReadFrom(lz4.NewReader(bytes.NewReader(data))); err != nil {
		return nil, fmt.Errorf("lz4 decompress grid: %w", err)
	}
	return UnmarshalXDR(buf)
}
