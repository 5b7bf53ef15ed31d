package knn

import (
	"fmt"

	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/pkg/pqueue"
)

// Neighbor is a dataset entry paired with its distance to the query and its index in the dataset.
type Neighbor struct {
	geom.LabeledPoint
	Distance float64 `json:"distance"`
	Index    int     `json:"index"`
}

// Nearest returns the min(k, len(ds)) entries closest to query in ascending distance order.
// Entries at equal distance keep their dataset order. k <= 0 and an empty dataset both give
// an empty result.
func Nearest(query geom.Point, ds geom.Dataset, k int, m geom.Metric, p float64) ([]Neighbor, error) {
	distFn, err := geom.DistanceFunc(m, p)
	if err != nil {
		return nil, fmt.Errorf("unable to compute neighbors of %v: %w", query, err)
	}
	return nearest(query, ds, k, distFn), nil
}

func nearest(query geom.Point, ds geom.Dataset, k int, distFn func(a, b geom.Point) float64) []Neighbor {
	if k <= 0 || len(ds) == 0 {
		return []Neighbor{}
	}
	if k > len(ds) {
		k = len(ds)
	}
	pq := pqueue.New(pqueue.WithCap(uint(k)))
	for i := range ds {
		distance := distFn(ds[i].Point, query)
		pq.Push(Neighbor{LabeledPoint: ds[i], Distance: distance, Index: i}, distance)
	}
	knn := make([]Neighbor, pq.Len())
	for i, pData := range pq.PopAll() {
		knn[i] = pData.(Neighbor)
	}
	return knn
}

// ClampK clamps k into [1, n], or returns 0 when there is nothing to search.
func ClampK(k, n int) int {
	switch {
	case n <= 0:
		return 0
	case k < 1:
		return 1
	case k > n:
		return n
	}
	return k
}
