// Package database opens the bbolt file that backs the boundary cache.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/go-sod/knn/internal/logging"
)

type Config struct {
	Enabled     bool          `envconfig:"KNN_DB_ENABLED" default:"true"`
	FileName    string        `envconfig:"KNN_DB_FILE" default:"knn.db"`
	OpenTimeout time.Duration `envconfig:"KNN_DB_OPEN_TIMEOUT" default:"1s"`
	// NoSync skips fsync after each commit. A crash may lose recent cache entries.
	NoSync bool `envconfig:"KNN_DB_NO_SYNC" default:"false"`
}

type DB struct {
	DB *bolt.DB
}

// NewFromEnv opens config.FileName, creating its directory when missing.
func NewFromEnv(ctx context.Context, config *Config) (*DB, error) {
	logger := logging.FromContext(ctx)
	if dir := filepath.Dir(config.FileName); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db directory %s: %w", dir, err)
		}
	}

	logger.Infof("opening boundary cache %s", config.FileName)
	db, err := bolt.Open(config.FileName, 0o600, &bolt.Options{Timeout: config.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", config.FileName, err)
	}
	db.NoSync = config.NoSync
	return &DB{DB: db}, nil
}

// Size is the size in bytes of the data file as of the last commit.
func (db *DB) Size() (int64, error) {
	var size int64
	err := db.DB.View(func(tx *bolt.Tx) error {
		size = tx.Size()
		return nil
	})
	return size, err
}

func (db *DB) Close(ctx context.Context) error {
	logging.FromContext(ctx).Infof("closing boundary cache %s", db.DB.Path())
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}
