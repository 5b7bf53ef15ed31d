package database

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/go-sod/knn/internal/boundary"
	"github.com/go-sod/knn/internal/codec"
	"github.com/go-sod/knn/internal/database"
	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/util"
)

const bucket = "boundary:grids:"

// header is the creation time prefixed to every stored grid.
const header = 8

// Key identifies a boundary computation by everything that determines its cells. k enters
// as the number of neighbors actually used, so every k >= len(ds) shares one key.
func Key(ds geom.Dataset, params boundary.Params, bounds boundary.Bounds) string {
	k := params.K
	if k < 0 {
		k = 0
	}
	if k > len(ds) {
		k = len(ds)
	}
	h := new(util.Hasher).
		Int(k).
		String(params.Metric.String()).
		Int(params.GridSize).
		Float(bounds.MinX).Float(bounds.MaxX).Float(bounds.MinY).Float(bounds.MaxY)
	if params.Metric == geom.MetricMinkowski {
		h.Float(params.P)
	}
	h.Int(len(ds))
	for i := range ds {
		h.Float(ds[i].X).Float(ds[i].Y).String(ds[i].Label)
	}
	sum := h.Sum()
	return hex.EncodeToString(sum[:])
}

type Entry struct {
	Key       string
	CreatedAt time.Time
}

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

// DB caches computed grids in bbolt.
type DB struct {
	sDB *database.DB
	now func() time.Time
}

func (db *DB) clock() time.Time {
	if db.now != nil {
		return db.now()
	}
	return time.Now()
}

func (db *DB) Store(ctx context.Context, key string, grid *boundary.Grid) error {
	return db.StoreMany(ctx, []Pending{{Key: key, Grid: grid}})
}

// Pending is a grid waiting to be stored under Key.
type Pending struct {
	Key  string
	Grid *boundary.Grid
}

// StoreMany stores every pending grid in one transaction.
func (db *DB) StoreMany(_ context.Context, pending []Pending) error {
	if len(pending) == 0 {
		return nil
	}
	now := uint64(db.clock().UnixNano())
	values := make([][]byte, len(pending))
	for i, p := range pending {
		encoded, err := codec.Encode(p.Grid)
		if err != nil {
			return fmt.Errorf("encode grid %s: %w", p.Key, err)
		}
		values[i] = make([]byte, header+len(encoded))
		binary.BigEndian.PutUint64(values[i], now)
		copy(values[i][header:], encoded)
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		for i, p := range pending {
			if err := b.Put([]byte(p.Key), values[i]); err != nil {
				return fmt.Errorf("put to bucket error: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

// Find returns the grid stored under key. The second result is false on a miss.
func (db *DB) Find(_ context.Context, key string) (*boundary.Grid, bool, error) {
	var value []byte
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	}); err != nil {
		return nil, false, fmt.Errorf("view transaction error: %w", err)
	}
	if value == nil {
		return nil, false, nil
	}
	if len(value) < header {
		return nil, false, fmt.Errorf("corrupted grid entry %s", key)
	}
	grid, err := codec.Decode(value[header:])
	if err != nil {
		return nil, false, fmt.Errorf("decode grid %s: %w", key, err)
	}
	return grid, true, nil
}

func (db *DB) DeleteMany(_ context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return fmt.Errorf("unable delete: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

// Entries lists the stored keys with their creation time, oldest first.
func (db *DB) Entries(_ context.Context) ([]Entry, error) {
	var entries []Entry
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(v) < header {
				continue
			}
			entries = append(entries, Entry{
				Key:       string(k),
				CreatedAt: time.Unix(0, int64(binary.BigEndian.Uint64(v))),
			})
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}

func (db *DB) Len() (int, error) {
	var length int
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		length = b.Stats().KeyN
		return nil
	}); err != nil {
		return 0, fmt.Errorf("view transaction error: %w", err)
	}

	return length, nil
}
