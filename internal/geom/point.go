package geom

import (
	"fmt"
	"sort"
)

// Point is a location in the 2D feature space.
type Point struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
}

func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Dimensions() int {
	return 2
}

func (p Point) Dim(idx int) float64 {
	if idx == 0 {
		return p.X
	}
	return p.Y
}

func (p Point) Points() []float64 {
	return []float64{p.X, p.Y}
}

func (p Point) Equal(p1 Point) bool {
	return p.X == p1.X && p.Y == p1.Y
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// LabeledPoint is one training example.
type LabeledPoint struct {
	Point
	Label string `json:"label" toml:"label"`
}

func NewLabeledPoint(x, y float64, label string) LabeledPoint {
	return LabeledPoint{Point: Point{X: x, Y: y}, Label: label}
}

// Dataset is an ordered sequence of training examples. Insertion order carries no meaning
// for classification but decides which entry wins a distance tie.
type Dataset []LabeledPoint

func (d Dataset) Len() int {
	return len(d)
}

func (d Dataset) Empty() bool {
	return len(d) == 0
}

func (d Dataset) Clone() Dataset {
	var d1 = make(Dataset, len(d))
	copy(d1, d)
	return d1
}

// Append returns a new dataset with the points added at the end.
func (d Dataset) Append(points ...LabeledPoint) Dataset {
	d1 := make(Dataset, 0, len(d)+len(points))
	d1 = append(d1, d...)
	return append(d1, points...)
}

// Remove returns a new dataset without the entry at idx.
func (d Dataset) Remove(idx int) (Dataset, error) {
	if idx < 0 || idx >= len(d) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(d))
	}
	d1 := make(Dataset, 0, len(d)-1)
	d1 = append(d1, d[:idx]...)
	return append(d1, d[idx+1:]...), nil
}

// Labels returns the distinct labels in lexical order.
func (d Dataset) Labels() []string {
	seen := map[string]struct{}{}
	for i := range d {
		seen[d[i].Label] = struct{}{}
	}
	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// CountByLabel returns the number of entries per label.
func (d Dataset) CountByLabel() map[string]int {
	counts := make(map[string]int)
	for i := range d {
		counts[d[i].Label]++
	}
	return counts
}
