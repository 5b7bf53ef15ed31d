package setup

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	boundarydb "github.com/go-sod/knn/internal/boundary/database"
	"github.com/go-sod/knn/internal/database"
	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/metrics"
	"github.com/go-sod/knn/internal/predictor"
	"github.com/go-sod/knn/internal/srvenv"
)

type PredictorConfigProvider interface {
	PredictorConfig() *predictor.Config
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

type CacheConfigProvider interface {
	CacheConfig() *boundarydb.SchedulerConfig
}

type CacheWriterConfigProvider interface {
	CacheWriterConfig() *boundarydb.WriterConfig
}

type MetricsConfigProvider interface {
	MetricsConfig() *metrics.Config
}

func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var (
		db    *database.DB
		cache predictor.GridCache
	)
	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok && dbConfigProvider.DatabaseConfig().Enabled {
		logger.Info("Configuring db")
		dbFromEnv, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		db = dbFromEnv
		gridDB := boundarydb.New(db)
		cache = gridDB
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))

		if cacheConfigProvider, ok := config.(CacheConfigProvider); ok {
			logger.Info("Configuring boundary cache scheduler")
			scheduler := boundarydb.NewScheduler(gridDB, *cacheConfigProvider.CacheConfig())
			serverEnvOpts = append(serverEnvOpts, srvenv.WithCacheScheduler(scheduler))
		}
		if writerConfigProvider, ok := config.(CacheWriterConfigProvider); ok {
			logger.Info("Configuring boundary cache writer")
			writer := boundarydb.NewWriter(gridDB, *writerConfigProvider.CacheWriterConfig())
			cache = writer
			serverEnvOpts = append(serverEnvOpts, srvenv.WithCacheWriter(writer))
		}
	}

	if predictorConfigProvider, ok := config.(PredictorConfigProvider); ok {
		logger.Info("Configuring predictor")
		provideFn, err := ProvidePredictorFor(predictorConfigProvider.PredictorConfig(), cache)
		if err != nil {
			return nil, fmt.Errorf("unable create predictor provide function: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithPredictor(provideFn))
	}

	if metricsConfigProvider, ok := config.(MetricsConfigProvider); ok && metricsConfigProvider.MetricsConfig().Enabled {
		logger.Info("Configuring metrics exporter")
		exporter, err := metrics.Register(ctx, metricsConfigProvider.MetricsConfig().Namespace)
		if err != nil {
			return nil, fmt.Errorf("unable to register metrics: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithExporter(exporter))
	}
	return srvenv.New(serverEnvOpts...), nil
}

// ProvidePredictorFor validates cfg and returns a constructor for the engine. A nil cache
// disables boundary caching.
func ProvidePredictorFor(cfg *predictor.Config, cache predictor.GridCache) (predictor.ProvideFn, error) {
	opts := cfg.Options()
	if cache != nil {
		opts = append(opts, predictor.WithCache(cache))
	}
	if _, err := predictor.New(opts...); err != nil {
		return nil, err
	}
	return func() (*predictor.Predictor, error) {
		p, err := predictor.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("unable create predictor instance: %w", err)
		}
		return p, nil
	}, nil
}
