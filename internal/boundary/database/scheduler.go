package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sod/knn/internal/logging"
)

type SchedulerConfig struct {
	MaxItemsStored int           `envconfig:"KNN_CACHE_MAX_ITEMS" default:"512"`
	MaxStorageTime time.Duration `envconfig:"KNN_CACHE_MAX_STORAGE_TIME" default:"1h"`
	RebuildDBTime  time.Duration `envconfig:"KNN_CACHE_REBUILD_TIME" default:"1m"`
}

// abstraction level for fetching cache entries
type fetchEntriesFn func(context.Context) ([]Entry, error)

// abstraction layer for deleting a group of entries
type deleteEntriesFn func(context.Context, []string) error

func NewScheduler(db *DB, config SchedulerConfig) *Scheduler {
	return &Scheduler{opts: config, fetch: db.Entries, delete: db.DeleteMany, size: db.sDB.Size}
}

// Scheduler keeps the grid cache bounded in size and age.
type Scheduler struct {
	opts   SchedulerConfig
	fetch  fetchEntriesFn
	delete deleteEntriesFn
	size   func() (int64, error)
}

// processOutdated deletes entries older than MaxStorageTime.
func (s *Scheduler) processOutdated(ctx context.Context, now time.Time) error {
	entries, err := s.fetch(ctx)
	if err != nil {
		return fmt.Errorf("unable to fetch cache entries: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if now.Sub(e.CreatedAt) > s.opts.MaxStorageTime {
			keys = append(keys, e.Key)
		}
	}
	if err := s.delete(ctx, keys); err != nil {
		return fmt.Errorf("unable delete outdated entries: %w", err)
	}
	return nil
}

// processOverSize deletes the oldest entries above MaxItemsStored.
func (s *Scheduler) processOverSize(ctx context.Context) error {
	entries, err := s.fetch(ctx)
	if err != nil {
		return fmt.Errorf("unable to fetch cache entries: %w", err)
	}
	if len(entries) <= s.opts.MaxItemsStored {
		return nil
	}
	// entries come oldest first
	over := entries[:len(entries)-s.opts.MaxItemsStored]
	keys := make([]string, len(over))
	for i := range over {
		keys[i] = over[i].Key
	}
	if err := s.delete(ctx, keys); err != nil {
		return fmt.Errorf("unable delete oversize entries: %w", err)
	}
	return nil
}

// Rebuild runs one pruning pass.
func (s *Scheduler) Rebuild(ctx context.Context) error {
	if s.opts.MaxItemsStored > 0 {
		if err := s.processOverSize(ctx); err != nil {
			return err
		}
	}
	if s.opts.MaxStorageTime > 0 {
		if err := s.processOutdated(ctx, time.Now()); err != nil {
			return err
		}
	}
	return nil
}

// Schedule prunes the cache every RebuildDBTime until ctx is done.
func (s *Scheduler) Schedule(ctx context.Context) {
	logger := logging.FromContext(ctx)
	if s.opts.RebuildDBTime <= 0 {
		return
	}
	ticker := time.NewTicker(s.opts.RebuildDBTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Rebuild(ctx); err != nil {
				logger.Errorf("unable db rebuild: %v", err)
				continue
			}
			if s.size != nil {
				if size, err := s.size(); err == nil {
					logger.Debugf("boundary cache pruned, %d bytes on disk", size)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
