package predictor

import (
	"github.com/go-sod/knn/internal/boundary"
	"github.com/go-sod/knn/internal/geom"
)

type Config struct {
	K        int         `envconfig:"KNN_K" default:"3"`
	Metric   geom.Metric `envconfig:"KNN_METRIC" default:"euclidean"`
	P        float64     `envconfig:"KNN_P" default:"3"`
	GridSize int         `envconfig:"KNN_GRID_SIZE" default:"30"`
	Workers  int         `envconfig:"KNN_WORKERS" default:"0"`
	ClampK   bool        `envconfig:"KNN_CLAMP_K" default:"false"`
	ClampP   bool        `envconfig:"KNN_CLAMP_P" default:"false"`
	MinX     float64     `envconfig:"KNN_BOUNDS_MIN_X" default:"0"`
	MaxX     float64     `envconfig:"KNN_BOUNDS_MAX_X" default:"100"`
	MinY     float64     `envconfig:"KNN_BOUNDS_MIN_Y" default:"0"`
	MaxY     float64     `envconfig:"KNN_BOUNDS_MAX_Y" default:"100"`
}

func (c *Config) Bounds() boundary.Bounds {
	return boundary.Bounds{MinX: c.MinX, MaxX: c.MaxX, MinY: c.MinY, MaxY: c.MaxY}
}

// Options converts the config into constructor options.
func (c *Config) Options() []Option {
	return []Option{
		WithK(c.K),
		WithMetric(c.Metric),
		WithP(c.P),
		WithGridSize(c.GridSize),
		WithWorkers(c.Workers),
		WithClampK(c.ClampK),
		WithClampP(c.ClampP),
		WithBounds(c.Bounds()),
	}
}
