package geom

import (
	"reflect"
	"testing"
)

func TestPoint_Dim(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		p        Point
		expected float64
		idx      int
	}{
		{name: "positive", p: NewPoint(1, 2), idx: 0, expected: 1},
		{name: "positive", p: NewPoint(1, 2), idx: 1, expected: 2},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := test.p.Dim(test.idx)
			if test.expected != got {
				t.Errorf("dimension specified incorrectly, got: %f, expected: %f", got, test.expected)
			}
		})
	}
}

func TestPoint_Equal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		p        Point
		p1       Point
		expected bool
	}{
		{name: "positive", p: Point{10, 10}, p1: Point{10, 10}, expected: true},
		{name: "negative", p: Point{10, 10}, p1: Point{11, 10}, expected: false},
	}
	for _, test := range tests {
		if test.p.Equal(test.p1) != test.expected {
			t.Errorf("the comparison of points, got: %v, expected: %v", test.p.Equal(test.p1), test.expected)
		}
	}
}

func TestDataset_Remove(t *testing.T) {
	t.Parallel()
	ds := Dataset{
		NewLabeledPoint(1, 1, "A"),
		NewLabeledPoint(2, 2, "B"),
		NewLabeledPoint(3, 3, "C"),
	}
	got, err := ds.Remove(1)
	if err != nil {
		t.Fatalf("the error should not be returned, got: %v", err)
	}
	expected := Dataset{NewLabeledPoint(1, 1, "A"), NewLabeledPoint(3, 3, "C")}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("remove, got: %v, expected: %v", got, expected)
	}
	if ds.Len() != 3 || ds[1].Label != "B" {
		t.Errorf("remove must not mutate the source dataset, got: %v", ds)
	}
	if _, err := ds.Remove(3); err == nil {
		t.Errorf("remove out of range must return an error")
	}
	if _, err := ds.Remove(-1); err == nil {
		t.Errorf("remove negative index must return an error")
	}
}

func TestDataset_Append(t *testing.T) {
	t.Parallel()
	ds := make(Dataset, 1, 8)
	ds[0] = NewLabeledPoint(1, 1, "A")
	got := ds.Append(NewLabeledPoint(2, 2, "B"))
	_ = ds.Append(NewLabeledPoint(3, 3, "C"))
	if got.Len() != 2 || got[1].Label != "B" {
		t.Errorf("append must not share the backing array, got: %v", got)
	}
}

func TestDataset_Labels(t *testing.T) {
	t.Parallel()
	ds := Dataset{
		NewLabeledPoint(1, 1, "cat"),
		NewLabeledPoint(2, 2, "B"),
		NewLabeledPoint(3, 3, "cat"),
		NewLabeledPoint(4, 4, "A"),
	}
	expected := []string{"A", "B", "cat"}
	if got := ds.Labels(); !reflect.DeepEqual(got, expected) {
		t.Errorf("labels, got: %v, expected: %v", got, expected)
	}
	counts := ds.CountByLabel()
	if counts["cat"] != 2 || counts["A"] != 1 || counts["B"] != 1 {
		t.Errorf("count by label, got: %v", counts)
	}
	if got := (Dataset{}).Labels(); len(got) != 0 {
		t.Errorf("labels of an empty dataset, got: %v", got)
	}
}
