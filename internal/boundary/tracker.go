package boundary

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/go-sod/knn/internal/geom"
)

// ErrSuperseded is returned for a computation that a newer one replaced before it finished.
var ErrSuperseded = errors.New("boundary computation superseded")

// Result is a grid produced by a Tracker.
type Result struct {
	ID         uuid.UUID
	Generation uint64
	Grid       *Grid
}

// Tracker runs boundary computations where only the latest one matters. Starting a new
// computation cancels the one in flight and its caller gets ErrSuperseded.
type Tracker struct {
	mtx        sync.Mutex
	generation uint64
	running    int
	cancel     context.CancelFunc
	opts       []Option
}

func NewTracker(opts ...Option) *Tracker {
	return &Tracker{opts: opts}
}

func (t *Tracker) Generation() uint64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.generation
}

// Idle reports whether no computation is running.
func (t *Tracker) Idle() bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.running == 0
}

func (t *Tracker) Compute(ctx context.Context, ds geom.Dataset, params Params, bounds Bounds) (*Result, error) {
	ctx, cancel, gen := t.begin(ctx)
	return t.finish(ctx, cancel, gen, ds, params, bounds)
}

// Supersede makes the computation in flight stale without starting a new one, for callers
// that answer the newer request some other way. It returns the new generation.
func (t *Tracker) Supersede() uint64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.generation++
	return t.generation
}

func (t *Tracker) begin(ctx context.Context) (context.Context, context.CancelFunc, uint64) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.generation++
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running++
	return ctx, cancel, t.generation
}

func (t *Tracker) finish(ctx context.Context, cancel context.CancelFunc, gen uint64, ds geom.Dataset, params Params, bounds Bounds) (*Result, error) {
	grid, err := Compute(ctx, ds, params, bounds, t.opts...)

	t.mtx.Lock()
	t.running--
	current := t.generation == gen
	if current {
		t.cancel = nil
	}
	t.mtx.Unlock()
	cancel()

	if !current {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return &Result{ID: uuid.New(), Generation: gen, Grid: grid}, nil
}

// Sessions keeps one Tracker per caller key, so each interactive client supersedes only
// its own computations.
type Sessions struct {
	mtx      sync.Mutex
	trackers map[string]*Tracker
	refs     map[string]int
	opts     []Option
}

func NewSessions(opts ...Option) *Sessions {
	return &Sessions{trackers: map[string]*Tracker{}, refs: map[string]int{}, opts: opts}
}

// Compute runs params on the tracker for key. An empty key gets a private tracker.
func (s *Sessions) Compute(ctx context.Context, key string, ds geom.Dataset, params Params, bounds Bounds) (*Result, error) {
	if key == "" {
		return NewTracker(s.opts...).Compute(ctx, ds, params, bounds)
	}
	s.mtx.Lock()
	t, ok := s.trackers[key]
	if !ok {
		t = NewTracker(s.opts...)
		s.trackers[key] = t
	}
	s.refs[key]++
	ctx, cancel, gen := t.begin(ctx)
	s.mtx.Unlock()

	defer s.release(key)
	return t.finish(ctx, cancel, gen, ds, params, bounds)
}

// Supersede makes the computation running for key stale, if any. It returns the generation
// the newer request holds, 0 when nothing was running for key.
func (s *Sessions) Supersede(key string) uint64 {
	if key == "" {
		return 0
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	t, ok := s.trackers[key]
	if !ok {
		return 0
	}
	return t.Supersede()
}

func (s *Sessions) Len() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.trackers)
}

func (s *Sessions) release(key string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.refs[key]--
	if s.refs[key] <= 0 {
		delete(s.refs, key)
		delete(s.trackers, key)
	}
}
