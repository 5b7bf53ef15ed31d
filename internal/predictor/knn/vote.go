package knn

import (
	"sort"
)

// VoteResult is the outcome of a majority vote among neighbors.
type VoteResult struct {
	Label  string         `json:"label"`
	Counts map[string]int `json:"counts"`
}

type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Vote tallies labels among neighbors and picks the most frequent one. When several labels share
// the highest count the label of the earliest neighbor among them wins, so neighbors are expected
// in ascending distance order, as Nearest returns them. Vote returns nil for no neighbors.
func Vote(neighbors []Neighbor) *VoteResult {
	if len(neighbors) == 0 {
		return nil
	}
	counts := make(map[string]int)
	max := 0
	for i := range neighbors {
		counts[neighbors[i].Label]++
		if c := counts[neighbors[i].Label]; c > max {
			max = c
		}
	}
	var winner string
	for i := range neighbors {
		if counts[neighbors[i].Label] == max {
			winner = neighbors[i].Label
			break
		}
	}
	return &VoteResult{Label: winner, Counts: counts}
}

// Labels returns the voted labels in lexical order.
func (v *VoteResult) Labels() []string {
	if v == nil {
		return nil
	}
	labels := make([]string, 0, len(v.Counts))
	for label := range v.Counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Tally returns the counts in lexical label order.
func (v *VoteResult) Tally() []LabelCount {
	labels := v.Labels()
	tally := make([]LabelCount, len(labels))
	for i, label := range labels {
		tally[i] = LabelCount{Label: label, Count: v.Counts[label]}
	}
	return tally
}
