/*
 * Copyright 2020 Dennis Kuhnert
 * Copyright 2020 Ivanov Nikita
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */
package kdtree

import (
	"math"
	"sort"

	"github.com/go-sod/knn/pkg/pqueue"
)

// pruneSlack widens the search radius so rounding in the distance function never drops
// a point at exactly the k-th distance.
const pruneSlack = 1e-9

type Item interface {
	Dim(idx int) float64
	Dimensions() int
}

// DistanceFn must never return less than the coordinate difference along any single
// dimension. Every Lp distance with p >= 1 satisfies it.
type DistanceFn func(item, query Item) float64

// Result is an item found by KNN. Index is the position the item was added at.
type Result struct {
	Item     Item
	Index    int
	Distance float64
}

func New() *Tree {
	return &Tree{}
}

// Tree is a kd-tree whose items are identified by the order they were added in.
type Tree struct {
	root *node
	len  int
}

// Build replaces the tree with a balanced one over items, indexed by their position.
func (t *Tree) Build(items ...Item) {
	nodes := make([]*node, len(items))
	for i, it := range items {
		nodes[i] = &node{Key: it, Index: i}
	}
	t.len = len(items)
	t.root = buildTreeRecursive(nodes, 0)
}

func (t *Tree) Len() int {
	return t.len
}

// Insert adds item with the next index.
func (t *Tree) Insert(item Item) {
	n := &node{Key: item, Index: t.len}
	if t.root == nil {
		t.root = n
	} else {
		t.root.insert(n, 0)
	}
	t.len += 1
}

// Depth is the height of the tree, 0 when empty.
func (t *Tree) Depth() int {
	return t.root.depth()
}

func (t *Tree) Balance() {
	if t.root == nil {
		return
	}
	t.root = buildTreeRecursive(t.root.nodes(nil), 0)
}

// Items returns the items in insertion order.
func (t *Tree) Items() []Item {
	if t.root == nil {
		return []Item{}
	}
	items := make([]Item, t.len)
	for _, n := range t.root.nodes(nil) {
		items[n.Index] = n.Key
	}
	return items
}

// KNN returns the min(k, Len) items closest to query, ascending by distance and then by
// index, the same order an exhaustive scan in index order produces.
func (t *Tree) KNN(query Item, k int, distFn DistanceFn) []Result {
	if t.root == nil || k <= 0 {
		return []Result{}
	}
	if k > t.len {
		k = t.len
	}

	queue := pqueue.New(pqueue.WithCap(uint(k)))
	t.knn(query, t.root, 0, queue, distFn)

	results := make([]Result, queue.Len())
	for i, v := range queue.PopAll() {
		results[i] = v.(Result)
	}
	return results
}

func (t *Tree) knn(query Item, n *node, dim int, queue *pqueue.Queue, distFn DistanceFn) {
	if n == nil {
		return
	}
	distance := distFn(n.Key, query)
	queue.PushSeq(Result{Item: n.Key, Index: n.Index, Distance: distance}, distance, n.Index)

	diff := query.Dim(dim) - n.Key.Dim(dim)
	near, far := n.Left, n.Right
	if diff >= 0 {
		near, far = n.Right, n.Left
	}
	next := (dim + 1) % query.Dimensions()
	t.knn(query, near, next, queue, distFn)

	if far == nil {
		return
	}
	if queue.Full() {
		_, worst := queue.Seek(queue.Len() - 1)
		if math.Abs(diff) > worst+worst*pruneSlack {
			return
		}
	}
	t.knn(query, far, next, queue, distFn)
}

func buildTreeRecursive(nodes []*node, dim int) *node {
	if len(nodes) == 0 {
		return nil
	}
	if len(nodes) == 1 {
		n := nodes[0]
		n.Left, n.Right = nil, nil
		return n
	}

	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i].Key.Dim(dim), nodes[j].Key.Dim(dim)
		if a == b {
			return nodes[i].Index < nodes[j].Index
		}
		return a < b
	})
	mid := len(nodes) / 2
	root := nodes[mid]
	nextDim := (dim + 1) % root.Key.Dimensions()
	root.Left = buildTreeRecursive(nodes[:mid], nextDim)
	root.Right = buildTreeRecursive(nodes[mid+1:], nextDim)
	return root
}
