package geom

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidMetric = errors.New("invalid distance metric")
	ErrInvalidP      = fmt.Errorf("%w: minkowski p must be a number >= 1", ErrInvalidMetric)
)

const (
	DefaultP = 3.0
	MinP     = 1.0
	MaxP     = 6.0
)

type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricManhattan Metric = "manhattan"
	MetricMinkowski Metric = "minkowski"
	MetricChebyshev Metric = "chebyshev"
)

var metrics = []Metric{MetricEuclidean, MetricManhattan, MetricMinkowski, MetricChebyshev}

// Metrics lists every supported metric kind.
func Metrics() []Metric {
	out := make([]Metric, len(metrics))
	copy(out, metrics)
	return out
}

func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

func (m Metric) Validate() error {
	for _, known := range metrics {
		if m == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidMetric, string(m))
}

func (m Metric) String() string {
	return string(m)
}

// Decode lets envconfig parse metric names.
func (m *Metric) Decode(value string) error {
	parsed, err := ParseMetric(value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ValidateP checks the minkowski exponent. Only minkowski reads p.
func ValidateP(m Metric, p float64) error {
	if m != MetricMinkowski {
		return nil
	}
	if math.IsNaN(p) || p < MinP {
		return fmt.Errorf("%w, got %v", ErrInvalidP, p)
	}
	return nil
}

// ClampP clamps p into [MinP, MaxP]. NaN becomes DefaultP.
func ClampP(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return DefaultP
	case p < MinP:
		return MinP
	case p > MaxP:
		return MaxP
	}
	return p
}

// Distance computes the distance between a and b under metric m. p is read only by minkowski.
func Distance(a, b Point, m Metric, p float64) (float64, error) {
	dx, dy := math.Abs(a.X-b.X), math.Abs(a.Y-b.Y)
	switch m {
	case MetricEuclidean:
		return euclidean(dx, dy), nil
	case MetricManhattan:
		return manhattan(dx, dy), nil
	case MetricChebyshev:
		return chebyshev(dx, dy), nil
	case MetricMinkowski:
		if err := ValidateP(m, p); err != nil {
			return 0, err
		}
		return minkowski(dx, dy, p), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMetric, string(m))
	}
}

// DistanceFunc binds a metric and p into a function, validating them once.
func DistanceFunc(m Metric, p float64) (func(a, b Point) float64, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateP(m, p); err != nil {
		return nil, err
	}
	return func(a, b Point) float64 {
		dx, dy := math.Abs(a.X-b.X), math.Abs(a.Y-b.Y)
		switch m {
		case MetricManhattan:
			return manhattan(dx, dy)
		case MetricChebyshev:
			return chebyshev(dx, dy)
		case MetricMinkowski:
			return minkowski(dx, dy, p)
		default:
			return euclidean(dx, dy)
		}
	}, nil
}

func euclidean(dx, dy float64) float64 {
	return math.Sqrt(dx*dx + dy*dy)
}

func manhattan(dx, dy float64) float64 {
	return dx + dy
}

func chebyshev(dx, dy float64) float64 {
	return math.Max(dx, dy)
}

// minkowski scales by the larger component so dx^p cannot overflow for large p.
// p == 1 and p == 2 take the exact manhattan and euclidean paths.
func minkowski(dx, dy, p float64) float64 {
	switch p {
	case 1:
		return manhattan(dx, dy)
	case 2:
		return euclidean(dx, dy)
	}
	m := math.Max(dx, dy)
	if m == 0 {
		return 0
	}
	if math.IsInf(m, 1) {
		return m
	}
	return m * math.Pow(math.Pow(dx/m, p)+math.Pow(dy/m, p), 1/p)
}
