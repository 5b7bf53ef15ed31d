package kdtree

import (
	"math"
	"reflect"
	"sort"
	"testing"
)

type vec [2]float64

func (v vec) Dim(idx int) float64 { return v[idx] }
func (v vec) Dimensions() int      { return 2 }

func manhattan(a, b Item) float64 {
	return math.Abs(a.Dim(0)-b.Dim(0)) + math.Abs(a.Dim(1)-b.Dim(1))
}

func bruteKNN(items []Item, query Item, k int) []Result {
	results := make([]Result, len(items))
	for i, it := range items {
		results[i] = Result{Item: it, Index: i, Distance: manhattan(it, query)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// grid points on integer coordinates produce many equal distances.
func gridItems() []Item {
	var items []Item
	for i := 0; i < 60; i++ {
		items = append(items, vec{float64((i * 7) % 9), float64((i * 5) % 8)})
	}
	return items
}

func TestTree_KNNMatchesExhaustiveScan(t *testing.T) {
	t.Parallel()
	items := gridItems()
	tree := New()
	tree.Build(items...)

	inserted := New()
	for _, it := range items {
		inserted.Insert(it)
	}
	rebalanced := New()
	for _, it := range items {
		rebalanced.Insert(it)
	}
	rebalanced.Balance()

	for _, k := range []int{1, 3, 7, 60, 100} {
		for x := -1.0; x <= 9; x += 0.5 {
			for y := -1.0; y <= 8; y += 1.5 {
				query := vec{x, y}
				expected := bruteKNN(items, query, k)
				for name, tr := range map[string]*Tree{"built": tree, "inserted": inserted, "rebalanced": rebalanced} {
					got := tr.KNN(query, k, manhattan)
					if !reflect.DeepEqual(got, expected) {
						t.Fatalf("%s knn k=%d query %v, got: %v, expected: %v", name, k, query, got, expected)
					}
				}
			}
		}
	}
}

func TestTree_Empty(t *testing.T) {
	t.Parallel()
	tree := New()
	if got := tree.KNN(vec{0, 0}, 3, manhattan); len(got) != 0 {
		t.Errorf("knn on empty tree, got: %v, expected: []", got)
	}
	tree.Build(vec{1, 1})
	if got := tree.KNN(vec{0, 0}, 0, manhattan); len(got) != 0 {
		t.Errorf("knn with k=0, got: %v, expected: []", got)
	}
	if got := tree.Depth(); got != 1 {
		t.Errorf("depth, got: %d, expected: 1", got)
	}
}

func TestTree_ItemsAndDepth(t *testing.T) {
	t.Parallel()
	items := []Item{vec{5, 5}, vec{1, 2}, vec{8, 1}, vec{3, 7}, vec{5, 5}}
	tree := New()
	tree.Build(items...)
	if got := tree.Items(); !reflect.DeepEqual(got, items) {
		t.Errorf("items, got: %v, expected: %v", got, items)
	}
	if tree.Len() != len(items) {
		t.Errorf("len, got: %d, expected: %d", tree.Len(), len(items))
	}

	if got := tree.Depth(); got != 3 {
		t.Errorf("balanced depth, got: %d, expected: 3", got)
	}

	chain := New()
	for i := 0; i < 6; i++ {
		chain.Insert(vec{float64(i), float64(i)})
	}
	if got := chain.Depth(); got != 6 {
		t.Errorf("inserted depth, got: %d, expected: 6", got)
	}
	chain.Balance()
	if got := chain.Depth(); got != 3 {
		t.Errorf("rebalanced depth, got: %d, expected: 3", got)
	}
}
