// Package dataset provides the datasets the engine starts from: the built-in seed,
// TOML point files and random samples.
package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/valyala/fastrand"

	"github.com/go-sod/knn/internal/boundary"
	"github.com/go-sod/knn/internal/geom"
)

// DefaultLabels is the palette new points are labeled from.
var DefaultLabels = []string{"A", "B", "C"}

var ErrNoLabels = errors.New("dataset: no labels to draw from")

// Seed returns two well separated clusters, "A" around (30, 25) and "B" around (73, 73).
func Seed() geom.Dataset {
	return geom.Dataset{
		geom.NewLabeledPoint(20, 20, "A"),
		geom.NewLabeledPoint(25, 30, "A"),
		geom.NewLabeledPoint(30, 22, "A"),
		geom.NewLabeledPoint(35, 28, "A"),
		geom.NewLabeledPoint(40, 25, "A"),
		geom.NewLabeledPoint(65, 70, "B"),
		geom.NewLabeledPoint(70, 65, "B"),
		geom.NewLabeledPoint(72, 78, "B"),
		geom.NewLabeledPoint(78, 72, "B"),
		geom.NewLabeledPoint(80, 80, "B"),
	}
}

// coord accepts both integer and float TOML values.
type coord float64

func (c *coord) UnmarshalTOML(v interface{}) error {
	switch n := v.(type) {
	case int64:
		*c = coord(n)
	case float64:
		*c = coord(n)
	default:
		return fmt.Errorf("coordinate must be a number, got %T", v)
	}
	return nil
}

type filePoint struct {
	X     coord  `toml:"x"`
	Y     coord  `toml:"y"`
	Label string `toml:"label"`
}

type file struct {
	Points []filePoint `toml:"point"`
}

// LoadFile reads a dataset from a TOML file of [[point]] tables with x, y and label keys.
func LoadFile(path string) (geom.Dataset, error) {
	var f file
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("decode dataset %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	ds := make(geom.Dataset, 0, len(f.Points))
	for i, p := range f.Points {
		if p.Label == "" {
			return nil, fmt.Errorf("decode dataset %s: point %d has no label", path, i)
		}
		ds = append(ds, geom.NewLabeledPoint(float64(p.X), float64(p.Y), p.Label))
	}
	return ds, nil
}

type options struct {
	seed uint32
}

type Option func(*options)

// WithSeed makes Random deterministic.
func WithSeed(seed uint32) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// Random draws n points uniformly inside bounds, labels round-robin from labels.
func Random(n int, labels []string, bounds boundary.Bounds, opts ...Option) (geom.Dataset, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, f := range opts {
		f(&o)
	}

	var rng fastrand.RNG
	if o.seed != 0 {
		rng.Seed(o.seed)
	}

	if n < 0 {
		n = 0
	}
	ds := make(geom.Dataset, 0, n)
	for i := 0; i < n; i++ {
		x := bounds.MinX + unit(&rng)*bounds.Width()
		y := bounds.MinY + unit(&rng)*bounds.Height()
		ds = append(ds, geom.NewLabeledPoint(x, y, labels[i%len(labels)]))
	}
	return ds, nil
}

const unitSteps = 1 << 24

// unit returns a float in [0, 1).
func unit(rng *fastrand.RNG) float64 {
	return float64(rng.Uint32n(unitSteps)) / unitSteps
}
