package srvenv

import (
	"context"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats/view"

	boundarydb "github.com/go-sod/knn/internal/boundary/database"
	"github.com/go-sod/knn/internal/database"
	"github.com/go-sod/knn/internal/predictor"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	database  *database.DB
	predictor predictor.ProvideFn
	scheduler *boundarydb.Scheduler
	writer    *boundarydb.Writer
	exporter  *prometheus.Exporter
}

func (s *SrvEnv) ProvidePredictor() predictor.ProvideFn {
	return s.predictor
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

// CacheScheduler is nil when the database is disabled.
func (s *SrvEnv) CacheScheduler() *boundarydb.Scheduler {
	return s.scheduler
}

// CacheWriter is nil when the database is disabled.
func (s *SrvEnv) CacheWriter() *boundarydb.Writer {
	return s.writer
}

// Exporter is nil when metrics are disabled.
func (s *SrvEnv) Exporter() *prometheus.Exporter {
	return s.exporter
}

func WithPredictor(fn predictor.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.predictor = fn
		return s
	}
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

func WithCacheScheduler(scheduler *boundarydb.Scheduler) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.scheduler = scheduler
		return s
	}
}

func WithCacheWriter(writer *boundarydb.Writer) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.writer = writer
		return s
	}
}

func WithExporter(exporter *prometheus.Exporter) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.exporter = exporter
		return s
	}
}

// Close detaches the metrics exporter and closes the database. The cache writer has to be
// flushed before.
func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if s.exporter != nil {
		view.UnregisterExporter(s.exporter)
	}
	if s.database != nil {
		return s.database.Close(ctx)
	}
	return nil
}
