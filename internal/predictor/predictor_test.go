package predictor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/knn/internal/boundary"
	"github.com/go-sod/knn/internal/dataset"
	"github.com/go-sod/knn/internal/geom"
)

type memCache struct {
	mtx    sync.Mutex
	grids  map[string]*boundary.Grid
	finds  int
	stores int
}

func newMemCache() *memCache {
	return &memCache{grids: map[string]*boundary.Grid{}}
}

func (m *memCache) Find(_ context.Context, key string) (*boundary.Grid, bool, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.finds++
	g, ok := m.grids[key]
	return g, ok, nil
}

func (m *memCache) Store(_ context.Context, key string, grid *boundary.Grid) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.stores++
	m.grids[key] = grid
	return nil
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		expected error
	}{
		{name: "defaults"},
		{name: "bad_metric", opts: []Option{WithMetric("cosine")}, expected: geom.ErrInvalidMetric},
		{name: "bad_p", opts: []Option{WithMetric(geom.MetricMinkowski), WithP(0.5)}, expected: geom.ErrInvalidP},
		{name: "clamped_p", opts: []Option{WithMetric(geom.MetricMinkowski), WithP(0.5), WithClampP(true)}},
		{name: "bad_grid", opts: []Option{WithGridSize(0)}, expected: boundary.ErrInvalidGridSize},
		{name: "bad_bounds", opts: []Option{WithBounds(boundary.Bounds{MinX: 1, MaxX: 1, MinY: 0, MaxY: 1})}, expected: boundary.ErrInvalidBounds},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.opts...)
			if test.expected == nil {
				require.NoError(t, err)
				return
			}
			if !errors.Is(err, test.expected) {
				t.Errorf("new predictor, got: %v, expected: %v", err, test.expected)
			}
		})
	}
}

func TestConfig_Options(t *testing.T) {
	cfg := Config{
		K:        5,
		Metric:   geom.MetricManhattan,
		P:        3,
		GridSize: 10,
		Workers:  2,
		MaxX:     100,
		MaxY:     100,
	}
	p, err := New(cfg.Options()...)
	require.NoError(t, err)
	params, err := p.Resolve(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, boundary.Params{K: 5, Metric: geom.MetricManhattan, P: 3, GridSize: 10}, params)
}

func TestResolve(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	params, err := p.Resolve(Overrides{K: intPtr(7), Metric: "Minkowski", P: floatPtr(2.5), GridSize: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, boundary.Params{K: 7, Metric: geom.MetricMinkowski, P: 2.5, GridSize: 4}, params)

	_, err = p.Resolve(Overrides{Metric: "cosine"})
	assert.ErrorIs(t, err, geom.ErrInvalidMetric)

	_, err = p.Resolve(Overrides{Metric: geom.MetricMinkowski, P: floatPtr(0)})
	assert.ErrorIs(t, err, geom.ErrInvalidP)

	clamped, err := New(WithClampP(true))
	require.NoError(t, err)
	params, err = clamped.Resolve(Overrides{Metric: geom.MetricMinkowski, P: floatPtr(42)})
	require.NoError(t, err)
	assert.Equal(t, float64(geom.MaxP), params.P)
}

func TestPredict(t *testing.T) {
	ctx := context.Background()
	p, err := New()
	require.NoError(t, err)

	prediction, err := p.Predict(ctx, geom.Point{X: 30, Y: 25}, dataset.Seed(), Overrides{})
	require.NoError(t, err)
	label, ok := prediction.Label()
	require.True(t, ok)
	assert.Equal(t, "A", label)
	assert.Len(t, prediction.Neighbors, 3)

	prediction, err = p.Predict(ctx, geom.Point{X: 72, Y: 74}, dataset.Seed(), Overrides{K: intPtr(5), Metric: geom.MetricManhattan})
	require.NoError(t, err)
	label, _ = prediction.Label()
	assert.Equal(t, "B", label)

	prediction, err = p.Predict(ctx, geom.Point{X: 50, Y: 50}, dataset.Seed(), Overrides{K: intPtr(0)})
	require.NoError(t, err)
	assert.False(t, prediction.Predicted())
	assert.Empty(t, prediction.Neighbors)

	prediction, err = p.Predict(ctx, geom.Point{X: 50, Y: 50}, geom.Dataset{}, Overrides{})
	require.NoError(t, err)
	assert.False(t, prediction.Predicted())

	_, err = p.Predict(ctx, geom.Point{}, dataset.Seed(), Overrides{Metric: "cosine"})
	assert.ErrorIs(t, err, geom.ErrInvalidMetric)
}

func TestPredict_ClampK(t *testing.T) {
	p, err := New(WithClampK(true))
	require.NoError(t, err)
	prediction, err := p.Predict(context.Background(), geom.Point{X: 30, Y: 25}, dataset.Seed(), Overrides{K: intPtr(0)})
	require.NoError(t, err)
	assert.Len(t, prediction.Neighbors, 1)
	assert.True(t, prediction.Predicted())
}

func TestBoundary_Cache(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	p, err := New(WithGridSize(8), WithCache(cache))
	require.NoError(t, err)

	first, err := p.Boundary(ctx, "", dataset.Seed(), Overrides{})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 64, first.Grid.Len())
	assert.Equal(t, boundary.DefaultBounds, first.Bounds)
	assert.Equal(t, 1, cache.stores)

	second, err := p.Boundary(ctx, "", dataset.Seed(), Overrides{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Grid, second.Grid)
	assert.Equal(t, 1, cache.stores)

	third, err := p.Boundary(ctx, "", dataset.Seed(), Overrides{K: intPtr(1)})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, cache.stores)
}

func TestBoundary_Errors(t *testing.T) {
	ctx := context.Background()
	p, err := New()
	require.NoError(t, err)

	_, err = p.Boundary(ctx, "s", dataset.Seed(), Overrides{GridSize: intPtr(boundary.MaxGridSize + 1)})
	assert.ErrorIs(t, err, boundary.ErrInvalidGridSize)

	_, err = p.Boundary(ctx, "s", dataset.Seed(), Overrides{Bounds: &boundary.Bounds{MinX: 5, MaxX: 0, MinY: 0, MaxY: 1}})
	assert.ErrorIs(t, err, boundary.ErrInvalidBounds)

	res, err := p.Boundary(ctx, "s", geom.Dataset{}, Overrides{})
	require.NoError(t, err)
	assert.True(t, res.Grid.Empty())
}

func TestBoundary_Hide(t *testing.T) {
	cache := newMemCache()
	p, err := New(WithCache(cache))
	require.NoError(t, err)

	res, err := p.Boundary(context.Background(), "", dataset.Seed(), Overrides{Hide: true, K: intPtr(5)})
	require.NoError(t, err)
	assert.True(t, res.Grid.Empty())
	assert.Equal(t, 5, res.Params.K)
	assert.Equal(t, 0, cache.stores)

	_, err = p.Boundary(context.Background(), "", dataset.Seed(), Overrides{Hide: true, Metric: "nope"})
	assert.ErrorIs(t, err, geom.ErrInvalidMetric)
}

func spread(n int) geom.Dataset {
	ds := make(geom.Dataset, 0, n)
	for i := 0; i < n; i++ {
		label := "A"
		if i%2 == 1 {
			label = "B"
		}
		ds = append(ds, geom.NewLabeledPoint(float64(i%100), float64(i/40), label))
	}
	return ds
}

func TestBoundary_SupersedesWithoutComputing(t *testing.T) {
	ctx := context.Background()
	small := Overrides{GridSize: intPtr(4)}
	heavy := Overrides{K: intPtr(7), Metric: geom.MetricMinkowski, P: floatPtr(3), GridSize: intPtr(boundary.MaxGridSize)}
	tests := []struct {
		name   string
		newer  Overrides
		cached bool
	}{
		{name: "cache_hit", newer: small, cached: true},
		{name: "hidden", newer: Overrides{Hide: true}},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			p, err := New(WithCache(newMemCache()))
			require.NoError(t, err)
			p.sessions = boundary.NewSessions(boundary.WithWorkers(1), boundary.WithExhaustive())
			_, err = p.Boundary(ctx, "", dataset.Seed(), small)
			require.NoError(t, err)

			errCh := make(chan error, 1)
			go func() {
				_, err := p.Boundary(ctx, "s1", spread(4000), heavy)
				errCh <- err
			}()
			deadline := time.Now().Add(5 * time.Second)
			for p.sessions.Len() < 1 {
				if time.Now().After(deadline) {
					t.Fatalf("older computation never started")
				}
				time.Sleep(time.Millisecond)
			}

			newer, err := p.Boundary(ctx, "s1", dataset.Seed(), test.newer)
			require.NoError(t, err)
			assert.Equal(t, test.cached, newer.Cached)
			assert.Equal(t, uint64(2), newer.Generation)

			select {
			case err := <-errCh:
				assert.ErrorIs(t, err, boundary.ErrSuperseded)
			case <-time.After(30 * time.Second):
				t.Fatalf("older computation was not superseded")
			}
		})
	}
}
