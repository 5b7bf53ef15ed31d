package boundary

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Regions returns, per predicted label, the bitmap of cell indices (gy*size+gx) carrying it.
func (g *Grid) Regions() map[string]*roaring.Bitmap {
	regions := make(map[string]*roaring.Bitmap)
	for i := range g.cells {
		if !g.cells[i].Predicted {
			continue
		}
		bm, ok := regions[g.cells[i].Label]
		if !ok {
			bm = roaring.New()
			regions[g.cells[i].Label] = bm
		}
		bm.Add(uint32(i))
	}
	return regions
}

// Labels returns the predicted labels present on the grid in lexical order.
func (g *Grid) Labels() []string {
	regions := g.Regions()
	labels := make([]string, 0, len(regions))
	for label := range regions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Shares returns the fraction of predicted cells carrying each label.
func (g *Grid) Shares() map[string]float64 {
	regions := g.Regions()
	var total uint64
	for _, bm := range regions {
		total += bm.GetCardinality()
	}
	shares := make(map[string]float64, len(regions))
	if total == 0 {
		return shares
	}
	for label, bm := range regions {
		shares[label] = float64(bm.GetCardinality()) / float64(total)
	}
	return shares
}

// Edges returns the cells that touch a horizontally or vertically adjacent cell with a
// different outcome. These cells trace the decision boundary.
func (g *Grid) Edges() *roaring.Bitmap {
	edges := roaring.New()
	n := g.size
	if g.Empty() {
		return edges
	}
	differs := func(a, b Cell) bool {
		return a.Predicted != b.Predicted || a.Label != b.Label
	}
	for gy := 0; gy < n; gy++ {
		for gx := 0; gx < n; gx++ {
			idx := gy*n + gx
			if gx+1 < n && differs(g.cells[idx], g.cells[idx+1]) {
				edges.Add(uint32(idx))
				edges.Add(uint32(idx + 1))
			}
			if gy+1 < n && differs(g.cells[idx], g.cells[idx+n]) {
				edges.Add(uint32(idx))
				edges.Add(uint32(idx + n))
			}
		}
	}
	return edges
}
