// Package render draws decision boundary grids for the terminal and as images.
package render

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/go-sod/knn/internal/boundary"
	"github.com/go-sod/knn/internal/geom"
)

const (
	emptyCell = '.'
	pointCell = '*'
)

var palette = []color.RGBA{
	{R: 220, G: 60, B: 60, A: 255},
	{R: 50, G: 110, B: 220, A: 255},
	{R: 40, G: 160, B: 80, A: 255},
	{R: 230, G: 160, B: 30, A: 255},
	{R: 140, G: 70, B: 190, A: 255},
	{R: 20, G: 170, B: 170, A: 255},
}

// Colors assigns a palette color to every label, in lexical order.
func Colors(labels []string) map[string]color.RGBA {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	out := make(map[string]color.RGBA, len(sorted))
	for _, l := range sorted {
		if _, ok := out[l]; ok {
			continue
		}
		out[l] = palette[len(out)%len(palette)]
	}
	return out
}

func labelsOf(grid *boundary.Grid, ds geom.Dataset) []string {
	seen := map[string]struct{}{}
	for _, l := range grid.Labels() {
		seen[l] = struct{}{}
	}
	for _, l := range ds.Labels() {
		seen[l] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// ASCII draws one rune per cell, highest row first. A cell shows the first rune of its
// label, '.' without a prediction and '*' where a dataset point falls.
func ASCII(grid *boundary.Grid, ds geom.Dataset) string {
	size := grid.Size()
	if grid.Empty() {
		return ""
	}
	rows := make([][]rune, size)
	for gy := 0; gy < size; gy++ {
		rows[gy] = make([]rune, size)
	}
	for _, c := range grid.Cells() {
		r := rune(emptyCell)
		if c.Predicted {
			r, _ = utf8.DecodeRuneInString(c.Label)
		}
		rows[c.GY][c.GX] = r
	}

	b := grid.Bounds()
	for _, p := range ds {
		if !b.Contains(p.Point) {
			continue
		}
		gx := clampIndex(int((p.X-b.MinX)/b.Width()*float64(size)), size)
		gy := clampIndex(int((p.Y-b.MinY)/b.Height()*float64(size)), size)
		rows[gy][gx] = pointCell
	}

	var sb strings.Builder
	for gy := size - 1; gy >= 0; gy-- {
		sb.WriteString(string(rows[gy]))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func clampIndex(i, size int) int {
	if i >= size {
		return size - 1
	}
	if i < 0 {
		return 0
	}
	return i
}

// Shares formats the label shares of grid one per line, labels in lexical order.
func Shares(grid *boundary.Grid) string {
	shares := grid.Shares()
	var sb strings.Builder
	for _, l := range grid.Labels() {
		_, _ = fmt.Fprintf(&sb, "%s\t%6.2f%%\n", l, shares[l]*100)
	}
	return sb.String()
}

// Plot builds a gonum plot of the grid cells, tinted by label, under the dataset points.
func Plot(grid *boundary.Grid, ds geom.Dataset, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	colors := Colors(labelsOf(grid, ds))
	for _, c := range grid.Cells() {
		if !c.Predicted {
			continue
		}
		poly, err := plotter.NewPolygon(plotter.XYs{
			{X: c.X, Y: c.Y},
			{X: c.X + c.Width, Y: c.Y},
			{X: c.X + c.Width, Y: c.Y + c.Height},
			{X: c.X, Y: c.Y + c.Height},
		})
		if err != nil {
			return nil, fmt.Errorf("cell (%d, %d) polygon: %w", c.GX, c.GY, err)
		}
		fill := colors[c.Label]
		fill.A = 70
		poly.Color = fill
		poly.LineStyle.Width = 0
		p.Add(poly)
	}

	for _, label := range ds.Labels() {
		xys := make(plotter.XYs, 0, ds.Len())
		for _, pt := range ds {
			if pt.Label == label {
				xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
			}
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("label %s scatter: %w", label, err)
		}
		sc.GlyphStyle.Color = colors[label]
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add(label, sc)
	}

	b := grid.Bounds()
	if grid.Empty() {
		b = boundary.Cover(ds, 5)
	}
	p.X.Min, p.X.Max = b.MinX, b.MaxX
	p.Y.Min, p.Y.Max = b.MinY, b.MaxY
	return p, nil
}

// SavePNG writes Plot to path. The format follows the file extension.
func SavePNG(grid *boundary.Grid, ds geom.Dataset, title, path string) error {
	p, err := Plot(grid, ds, title)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
