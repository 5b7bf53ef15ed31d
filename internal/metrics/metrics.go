// Package metrics defines the opencensus measures and views of the engine.
package metrics

import (
	"context"
	"fmt"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"

	"github.com/go-sod/knn/internal/logging"
)

const (
	OutcomeComputed   = "computed"
	OutcomeCached     = "cached"
	OutcomeSuperseded = "superseded"
	OutcomeFailed     = "failed"
)

var (
	MetricKey  = tag.MustNewKey("metric")
	OutcomeKey = tag.MustNewKey("outcome")
)

var (
	PredictLatency = stats.Float64(
		"knn/predict/latency", "Time to classify one query", stats.UnitMilliseconds)
	PredictNeighbors = stats.Int64(
		"knn/predict/neighbors", "Neighbors returned per query", stats.UnitDimensionless)
	BoundaryLatency = stats.Float64(
		"knn/boundary/latency", "Time to produce a decision boundary grid", stats.UnitMilliseconds)
	BoundaryCells = stats.Int64(
		"knn/boundary/cells", "Cells per decision boundary grid", stats.UnitDimensionless)
)

var latencyBuckets = view.Distribution(0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000)

func Views() []*view.View {
	return []*view.View{
		{
			Name:        "knn/predict/latency",
			Measure:     PredictLatency,
			Description: "Distribution of classification latency",
			TagKeys:     []tag.Key{MetricKey},
			Aggregation: latencyBuckets,
		},
		{
			Name:        "knn/predict/count",
			Measure:     PredictLatency,
			Description: "Number of classified queries",
			TagKeys:     []tag.Key{MetricKey},
			Aggregation: view.Count(),
		},
		{
			Name:        "knn/predict/neighbors",
			Measure:     PredictNeighbors,
			Description: "Distribution of neighbors per query",
			TagKeys:     []tag.Key{MetricKey},
			Aggregation: view.Distribution(1, 3, 5, 10, 25, 50, 100),
		},
		{
			Name:        "knn/boundary/latency",
			Measure:     BoundaryLatency,
			Description: "Distribution of decision boundary latency",
			TagKeys:     []tag.Key{MetricKey, OutcomeKey},
			Aggregation: latencyBuckets,
		},
		{
			Name:        "knn/boundary/cells",
			Measure:     BoundaryCells,
			Description: "Total cells produced",
			TagKeys:     []tag.Key{MetricKey},
			Aggregation: view.Sum(),
		},
	}
}

// Register registers the views and returns a prometheus exporter serving them.
func Register(ctx context.Context, namespace string) (*prometheus.Exporter, error) {
	logger := logging.FromContext(ctx)
	if err := view.Register(Views()...); err != nil {
		return nil, fmt.Errorf("unable to register views: %w", err)
	}
	pe, err := prometheus.NewExporter(prometheus.Options{
		Namespace: namespace,
		OnError: func(err error) {
			logger.Errorf("prometheus exporter: %v", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create prometheus exporter: %w", err)
	}
	view.RegisterExporter(pe)
	return pe, nil
}

func RecordPredict(ctx context.Context, metric string, elapsed time.Duration, neighbors int) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(MetricKey, metric)},
		PredictLatency.M(milliseconds(elapsed)),
		PredictNeighbors.M(int64(neighbors)),
	)
}

func RecordBoundary(ctx context.Context, metric, outcome string, elapsed time.Duration, cells int) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(MetricKey, metric), tag.Upsert(OutcomeKey, outcome)},
		BoundaryLatency.M(milliseconds(elapsed)),
		BoundaryCells.M(int64(cells)),
	)
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type Config struct {
	Enabled   bool   `envconfig:"KNN_METRICS_ENABLED" default:"true"`
	Namespace string `envconfig:"KNN_METRICS_NAMESPACE" default:"knn"`
}
