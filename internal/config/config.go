package config

import (
	"time"

	boundarydb "github.com/go-sod/knn/internal/boundary/database"
	"github.com/go-sod/knn/internal/database"
	"github.com/go-sod/knn/internal/decision"
	"github.com/go-sod/knn/internal/metrics"
	"github.com/go-sod/knn/internal/predict"
	"github.com/go-sod/knn/internal/predictor"
	"github.com/go-sod/knn/internal/setup"
)

var (
	_ setup.PredictorConfigProvider   = (*Config)(nil)
	_ setup.DatabaseConfigProvider    = (*Config)(nil)
	_ setup.CacheConfigProvider       = (*Config)(nil)
	_ setup.CacheWriterConfigProvider = (*Config)(nil)
	_ setup.MetricsConfigProvider     = (*Config)(nil)
)

type Config struct {
	SrvAddr         string        `envconfig:"KNN_ADDR" default:":8787"`
	DebugAddr       string        `envconfig:"KNN_DEBUG_ADDR"`
	ShutdownTimeout time.Duration `envconfig:"KNN_SHUTDOWN_TIMEOUT" default:"5s"`
	Predict         predict.Config
	Boundary        decision.Config
	Database        database.Config
	Cache           boundarydb.SchedulerConfig
	CacheWriter     boundarydb.WriterConfig
	Predictor       predictor.Config
	Metrics         metrics.Config
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c *Config) CacheConfig() *boundarydb.SchedulerConfig {
	return &c.Cache
}

func (c *Config) CacheWriterConfig() *boundarydb.WriterConfig {
	return &c.CacheWriter
}

func (c *Config) PredictorConfig() *predictor.Config {
	return &c.Predictor
}

func (c *Config) MetricsConfig() *metrics.Config {
	return &c.Metrics
}
