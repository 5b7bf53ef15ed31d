package decision

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"KNN_BOUNDARY_REQUEST_TIMEOUT" default:"60s"`
	MaxDatasetLen  int           `envconfig:"KNN_BOUNDARY_MAX_DATASET_LEN" default:"10000"`
	MaxGridSize    int           `envconfig:"KNN_BOUNDARY_MAX_GRID_SIZE" default:"256"`
	MaxBodyBytes   int64         `envconfig:"KNN_BOUNDARY_MAX_BODY_BYTES" default:"4194304"`
	RateLimit      float64       `envconfig:"KNN_BOUNDARY_RATE_LIMIT" default:"10"`
	RateBurst      int           `envconfig:"KNN_BOUNDARY_RATE_BURST" default:"20"`
	Show           bool          `envconfig:"KNN_BOUNDARY_SHOW" default:"true"`
}
