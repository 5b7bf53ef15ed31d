package knn

import (
	"fmt"

	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/pkg/container/kdtree"
)

// Index answers repeated queries over one dataset with a kd-tree. Its results are identical
// to Nearest and Classify over the same dataset.
type Index struct {
	ds     geom.Dataset
	k      int
	tree   *kdtree.Tree
	distFn kdtree.DistanceFn
}

func NewIndex(ds geom.Dataset, k int, m geom.Metric, p float64) (*Index, error) {
	distFn, err := geom.DistanceFunc(m, p)
	if err != nil {
		return nil, fmt.Errorf("unable to build index: %w", err)
	}
	items := make([]kdtree.Item, len(ds))
	for i := range ds {
		items[i] = ds[i].Point
	}
	tree := kdtree.New()
	tree.Build(items...)
	return &Index{
		ds:   ds,
		k:    k,
		tree: tree,
		distFn: func(item, query kdtree.Item) float64 {
			return distFn(item.(geom.Point), query.(geom.Point))
		},
	}, nil
}

func (ix *Index) Len() int {
	return ix.tree.Len()
}

func (ix *Index) Nearest(query geom.Point) []Neighbor {
	found := ix.tree.KNN(query, ix.k, ix.distFn)
	neighbors := make([]Neighbor, len(found))
	for i, r := range found {
		neighbors[i] = Neighbor{LabeledPoint: ix.ds[r.Index], Distance: r.Distance, Index: r.Index}
	}
	return neighbors
}

func (ix *Index) Classify(query geom.Point) *Prediction {
	neighbors := ix.Nearest(query)
	return &Prediction{Query: query, Neighbors: neighbors, Vote: Vote(neighbors)}
}
