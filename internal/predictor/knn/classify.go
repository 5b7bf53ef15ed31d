package knn

import (
	"github.com/go-sod/knn/internal/geom"
)

// Prediction bundles the neighbors of a query with their vote. Vote is nil when there are no neighbors.
type Prediction struct {
	Query     geom.Point  `json:"query"`
	Neighbors []Neighbor  `json:"neighbors"`
	Vote      *VoteResult `json:"vote"`
}

// Predicted reports whether a label was chosen.
func (p *Prediction) Predicted() bool {
	return p != nil && p.Vote != nil
}

// Label returns the winning label and whether there was one.
func (p *Prediction) Label() (string, bool) {
	if !p.Predicted() {
		return "", false
	}
	return p.Vote.Label, true
}

// Classify runs Nearest followed by Vote.
func Classify(query geom.Point, ds geom.Dataset, k int, m geom.Metric, p float64) (*Prediction, error) {
	neighbors, err := Nearest(query, ds, k, m, p)
	if err != nil {
		return nil, err
	}
	return &Prediction{Query: query, Neighbors: neighbors, Vote: Vote(neighbors)}, nil
}

// Classifier binds a metric, p and k so repeated queries skip validation.
type Classifier struct {
	k      int
	distFn func(a, b geom.Point) float64
}

func NewClassifier(k int, m geom.Metric, p float64) (*Classifier, error) {
	distFn, err := geom.DistanceFunc(m, p)
	if err != nil {
		return nil, err
	}
	return &Classifier{k: k, distFn: distFn}, nil
}

func (c *Classifier) K() int {
	return c.k
}

func (c *Classifier) Nearest(query geom.Point, ds geom.Dataset) []Neighbor {
	return nearest(query, ds, c.k, c.distFn)
}

func (c *Classifier) Classify(query geom.Point, ds geom.Dataset) *Prediction {
	neighbors := c.Nearest(query, ds)
	return &Prediction{Query: query, Neighbors: neighbors, Vote: Vote(neighbors)}
}
