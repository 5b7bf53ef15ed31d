package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-sod/knn/internal/boundary"
	"github.com/go-sod/knn/internal/logging"
)

type WriterConfig struct {
	FlushSize int           `envconfig:"KNN_CACHE_FLUSH_SIZE" default:"16"`
	FlushTime time.Duration `envconfig:"KNN_CACHE_FLUSH_TIME" default:"2s"`
}

// abstraction layer for writing a batch of grids
type storeManyFn func(context.Context, []Pending) error

// abstraction layer for reading one grid
type findFn func(context.Context, string) (*boundary.Grid, bool, error)

func NewWriter(db *DB, config WriterConfig) *Writer {
	return &Writer{opts: config, storeMany: db.StoreMany, find: db.Find, pending: map[string]*boundary.Grid{}}
}

// Writer buffers stored grids and writes them to the cache in bulk, when the buffer
// reaches FlushSize and every FlushTime. Buffered grids are visible to Find right away.
type Writer struct {
	mtx sync.Mutex

	opts      WriterConfig
	storeMany storeManyFn
	find      findFn
	order     []string
	pending   map[string]*boundary.Grid
}

// Store buffers grid under key.
func (w *Writer) Store(ctx context.Context, key string, grid *boundary.Grid) error {
	w.mtx.Lock()
	if _, ok := w.pending[key]; !ok {
		w.order = append(w.order, key)
	}
	w.pending[key] = grid
	full := w.opts.FlushSize > 0 && len(w.order) >= w.opts.FlushSize
	w.mtx.Unlock()

	if full {
		return w.Flush(ctx)
	}
	return nil
}

func (w *Writer) Find(ctx context.Context, key string) (*boundary.Grid, bool, error) {
	w.mtx.Lock()
	grid, ok := w.pending[key]
	w.mtx.Unlock()
	if ok {
		return grid, true, nil
	}
	return w.find(ctx, key)
}

// Pending is the number of buffered grids.
func (w *Writer) Pending() int {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return len(w.order)
}

// Flush writes the buffer in one transaction. On failure the grids stay buffered.
func (w *Writer) Flush(ctx context.Context) error {
	w.mtx.Lock()
	if len(w.order) == 0 {
		w.mtx.Unlock()
		return nil
	}
	batch := make([]Pending, len(w.order))
	for i, key := range w.order {
		batch[i] = Pending{Key: key, Grid: w.pending[key]}
	}
	w.mtx.Unlock()

	if err := w.storeMany(ctx, batch); err != nil {
		return fmt.Errorf("unable to flush %d grids: %w", len(batch), err)
	}

	w.mtx.Lock()
	defer w.mtx.Unlock()
	kept := w.order[:0]
	for _, key := range w.order {
		if stored(batch, key, w.pending[key]) {
			delete(w.pending, key)
			continue
		}
		kept = append(kept, key)
	}
	w.order = kept
	return nil
}

// stored reports whether batch wrote exactly grid under key. A grid replaced during the
// flush stays pending.
func stored(batch []Pending, key string, grid *boundary.Grid) bool {
	for _, p := range batch {
		if p.Key == key {
			return p.Grid == grid
		}
	}
	return false
}

// Run flushes every FlushTime until ctx is done, then flushes what is left.
func (w *Writer) Run(ctx context.Context) {
	logger := logging.FromContext(ctx)
	defer func() {
		if err := w.Flush(context.Background()); err != nil {
			logger.Errorf("final cache flush: %v", err)
		}
	}()
	if w.opts.FlushTime <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(w.opts.FlushTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				logger.Errorf("cache flush: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
