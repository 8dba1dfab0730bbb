// Package badgercache remembers analyses in a badger store keyed by a hash
// of the uploaded bytes.
package badgercache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
	"github.com/ewilliams-labs/loopmatch/internal/core/ports"
)

const keyPrefix = "analysis/"

// Cache implements ports.AnalysisCache.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
	log zerolog.Logger
}

var _ ports.AnalysisCache = (*Cache)(nil)

// Open opens (or creates) the store in dir. An empty dir keeps everything
// in memory. ttl <= 0 means entries never expire.
func Open(dir string, ttl time.Duration, log zerolog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgercache: open %q: %w", dir, err)
	}
	return &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "analysis_cache").Logger(),
	}, nil
}

// Close flushes and closes the store.
func (c *Cache) Close() error {
	return c.db.Close()
}

// key is the prefix, the xxhash of the bytes and their length, so two
// uploads only collide if both the hash and the size match.
func key(audio []byte) []byte {
	k := make([]byte, len(keyPrefix)+16)
	copy(k, keyPrefix)
	binary.BigEndian.PutUint64(k[len(keyPrefix):], xxhash.Checksum64(audio))
	binary.BigEndian.PutUint64(k[len(keyPrefix)+8:], uint64(len(audio)))
	return k
}

// Get returns the stored analysis for audio, if any.
func (c *Cache) Get(ctx context.Context, audio []byte) (domain.Analysis, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Analysis{}, false, err
	}
	var a domain.Analysis
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(audio))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Analysis{}, false, nil
	}
	if err != nil {
		return domain.Analysis{}, false, fmt.Errorf("badgercache: get: %w", err)
	}
	return a, true, nil
}

// Put stores a under the hash of audio.
func (c *Cache) Put(ctx context.Context, audio []byte, a domain.Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("badgercache: encode: %w", err)
	}
	entry := badger.NewEntry(key(audio), val)
	if c.ttl > 0 {
		entry = entry.WithTTL(c.ttl)
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	}); err != nil {
		return fmt.Errorf("badgercache: put: %w", err)
	}
	c.log.Debug().Int("bytes", len(audio)).Msg("cached analysis")
	return nil
}
