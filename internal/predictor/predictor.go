// Package predictor is the engine facade used by the service and the CLI. It resolves
// per-call settings against configured defaults, classifies queries and produces
// decision boundaries through per-session trackers and an optional grid cache.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/go-sod/knn/internal/boundary"
	boundarydb "github.com/go-sod/knn/internal/boundary/database"
	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/metrics"
	"github.com/go-sod/knn/internal/predictor/knn"
)

type ProvideFn func() (*Predictor, error)

// GridCache stores computed grids by boundarydb.Key.
type GridCache interface {
	Find(ctx context.Context, key string) (*boundary.Grid, bool, error)
	Store(ctx context.Context, key string, grid *boundary.Grid) error
}

// Overrides are per-call settings. Nil fields and an empty metric fall back to the configured defaults.
type Overrides struct {
	K        *int
	Metric   geom.Metric
	P        *float64
	GridSize *int
	Bounds   *boundary.Bounds
	// Hide skips the computation and answers with an empty grid.
	Hide bool
}

// Boundary is a decision boundary answer.
type Boundary struct {
	ID         uuid.UUID
	Generation uint64
	Cached     bool
	Params     boundary.Params
	Bounds     boundary.Bounds
	Grid       *boundary.Grid
}

type Option func(*Predictor)

func WithK(k int) Option {
	return func(p *Predictor) {
		p.opts.k = k
	}
}

func WithMetric(m geom.Metric) Option {
	return func(p *Predictor) {
		p.opts.metric = m
	}
}

func WithP(v float64) Option {
	return func(p *Predictor) {
		p.opts.p = v
	}
}

func WithGridSize(n int) Option {
	return func(p *Predictor) {
		p.opts.gridSize = n
	}
}

func WithWorkers(n int) Option {
	return func(p *Predictor) {
		p.opts.workers = n
	}
}

// WithClampK pulls k into [1, len(dataset)] instead of returning empty results for k <= 0.
func WithClampK(v bool) Option {
	return func(p *Predictor) {
		p.opts.clampK = v
	}
}

// WithClampP pulls minkowski p into [geom.MinP, geom.MaxP] instead of rejecting it.
func WithClampP(v bool) Option {
	return func(p *Predictor) {
		p.opts.clampP = v
	}
}

func WithBounds(b boundary.Bounds) Option {
	return func(p *Predictor) {
		p.opts.bounds = b
	}
}

func WithCache(c GridCache) Option {
	return func(p *Predictor) {
		p.cache = c
	}
}

var defaultOptions = Options{
	k:        3,
	metric:   geom.MetricEuclidean,
	p:        geom.DefaultP,
	gridSize: boundary.DefaultGridSize,
	bounds:   boundary.DefaultBounds,
}

type Options struct {
	k        int
	metric   geom.Metric
	p        float64
	gridSize int
	workers  int
	clampK   bool
	clampP   bool
	bounds   boundary.Bounds
}

type Predictor struct {
	opts     Options
	cache    GridCache
	sessions *boundary.Sessions
}

func New(opts ...Option) (*Predictor, error) {
	p := &Predictor{opts: defaultOptions}
	for _, f := range opts {
		f(p)
	}
	if _, err := p.Resolve(Overrides{}); err != nil {
		return nil, fmt.Errorf("unable creating predictor instance, %w", err)
	}
	if err := p.opts.bounds.Validate(); err != nil {
		return nil, fmt.Errorf("unable creating predictor instance, %w", err)
	}
	p.sessions = boundary.NewSessions(boundary.WithWorkers(p.opts.workers))
	return p, nil
}

// Resolve merges overrides into the defaults and validates the result.
func (p *Predictor) Resolve(o Overrides) (boundary.Params, error) {
	params := boundary.Params{
		K:        p.opts.k,
		Metric:   p.opts.metric,
		P:        p.opts.p,
		GridSize: p.opts.gridSize,
	}
	if o.K != nil {
		params.K = *o.K
	}
	if o.Metric != "" {
		m, err := geom.ParseMetric(o.Metric.String())
		if err != nil {
			return boundary.Params{}, err
		}
		params.Metric = m
	}
	if o.P != nil {
		params.P = *o.P
	}
	if o.GridSize != nil {
		params.GridSize = *o.GridSize
	}
	if p.opts.clampP {
		params.P = geom.ClampP(params.P)
	}
	if err := params.Validate(); err != nil {
		return boundary.Params{}, err
	}
	return params, nil
}

func (p *Predictor) bounds(o Overrides) (boundary.Bounds, error) {
	b := p.opts.bounds
	if o.Bounds != nil {
		b = *o.Bounds
	}
	if err := b.Validate(); err != nil {
		return boundary.Bounds{}, err
	}
	return b, nil
}

func (p *Predictor) k(params boundary.Params, n int) int {
	if p.opts.clampK {
		return knn.ClampK(params.K, n)
	}
	return params.K
}

// Predict classifies query against ds.
func (p *Predictor) Predict(ctx context.Context, query geom.Point, ds geom.Dataset, o Overrides) (*knn.Prediction, error) {
	logger := logging.FromContext(ctx)
	params, err := p.Resolve(o)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	prediction, err := knn.Classify(query, ds, p.k(params, ds.Len()), params.Metric, params.P)
	if err != nil {
		return nil, fmt.Errorf("classify %v: %w", query, err)
	}
	metrics.RecordPredict(ctx, params.Metric.String(), time.Since(start), len(prediction.Neighbors))

	if label, ok := prediction.Label(); ok {
		logger.Debugf("classified %v as %s with k=%d metric=%s", query, label, params.K, params.Metric)
	} else {
		logger.Debugf("no prediction for %v with k=%d over %d points", query, params.K, ds.Len())
	}
	return prediction, nil
}

// Boundary produces the decision boundary of ds. Calls sharing a non-empty session
// supersede each other: an older call still running returns boundary.ErrSuperseded, also
// when the newer one is answered from the cache or without computing.
func (p *Predictor) Boundary(ctx context.Context, session string, ds geom.Dataset, o Overrides) (*Boundary, error) {
	logger := logging.FromContext(ctx)
	params, err := p.Resolve(o)
	if err != nil {
		return nil, err
	}
	params.K = p.k(params, ds.Len())
	bounds, err := p.bounds(o)
	if err != nil {
		return nil, err
	}
	if o.Hide || ds.Len() == 0 {
		grid, err := boundary.FromCells(bounds, 0, nil)
		if err != nil {
			return nil, err
		}
		gen := p.sessions.Supersede(session)
		return &Boundary{ID: uuid.New(), Generation: gen, Params: params, Bounds: bounds, Grid: grid}, nil
	}

	start := time.Now()
	metric := params.Metric.String()
	key := boundarydb.Key(ds, params, bounds)
	if p.cache != nil {
		grid, ok, err := p.cache.Find(ctx, key)
		if err != nil {
			logger.Errorf("boundary cache lookup %s: %v", key, err)
		} else if ok {
			gen := p.sessions.Supersede(session)
			metrics.RecordBoundary(ctx, metric, metrics.OutcomeCached, time.Since(start), grid.Len())
			logger.Debugf("boundary cache hit %s", key)
			return &Boundary{ID: uuid.New(), Generation: gen, Cached: true, Params: params, Bounds: bounds, Grid: grid}, nil
		}
	}

	res, err := p.sessions.Compute(ctx, session, ds, params, bounds)
	if err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, boundary.ErrSuperseded) {
			outcome = metrics.OutcomeSuperseded
		}
		metrics.RecordBoundary(ctx, metric, outcome, time.Since(start), 0)
		return nil, err
	}
	metrics.RecordBoundary(ctx, metric, metrics.OutcomeComputed, time.Since(start), res.Grid.Len())
	logger.Debugf("boundary %s computed: %d cells, generation %d", res.ID, res.Grid.Len(), res.Generation)

	if p.cache != nil {
		if err := p.cache.Store(ctx, key, res.Grid); err != nil {
			logger.Errorf("boundary cache store %s: %v", key, err)
		}
	}
	return &Boundary{
		ID:         res.ID,
		Generation: res.Generation,
		Params:     params,
		Bounds:     bounds,
		Grid:       res.Grid,
	}, nil
}
