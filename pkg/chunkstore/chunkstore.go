// Package chunkstore orchestrates the hot-tier LRU cache and the sharded
// cold store into a single cache-aside chunk read/write API.
package chunkstore

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/meridianos/strata/pkg/cache"
	"github.com/meridianos/strata/pkg/keyval"
)

// DefaultShardCount is the number of cold-store shards. Changing it
// invalidates every existing shard assignment, so it is fixed for the
// lifetime of a store.
const DefaultShardCount = 4

// Options configures the tiered store.
type Options struct {
	// Shards is the cold-tier shard count. Must stay constant across the
	// lifetime of the backing store.
	Shards int
	// CacheCapacity is the hot-tier entry bound.
	CacheCapacity int
	// Compression enables transparent lzma compression of cold-tier chunk
	// values. The chunk hash always covers the uncompressed bytes.
	Compression bool
	Logger      *logrus.Logger
}

// Store is the tiered chunk store. Writes land in the cold shard selected by
// the hash-prefix rule and in the hot cache; reads check the cache first and
// promote cold hits.
type Store struct {
	cold     keyval.Store
	hot      *cache.LRU
	shards   int
	compress bool
	log      *logrus.Logger
}

// New builds a tiered store over the given cold backend.
func New(cold keyval.Store, opts Options) (*Store, error) {
	if opts.Shards == 0 {
		opts.Shards = DefaultShardCount
	}
	if opts.Shards < 1 || opts.Shards > 256 {
		return nil, fmt.Errorf("chunkstore: invalid shard count %d", opts.Shards)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Store{
		cold:     cold,
		hot:      cache.NewLRU(opts.CacheCapacity),
		shards:   opts.Shards,
		compress: opts.Compression,
		log:      opts.Logger,
	}, nil
}

// ShardNamespace returns the cold-store namespace owning hash. The owning
// shard is hash[0] mod shard count and must be computed identically on write
// and read.
func (s *Store) ShardNamespace(hash []byte) string {
	return fmt.Sprintf("shard_%d", int(hash[0])%s.shards)
}

// Put persists a chunk durably in its owning shard and then caches it. The
// cold write happens first so the cache never holds a chunk the cold tier
// does not.
func (s *Store) Put(hash, data []byte) error {
	if len(hash) == 0 {
		return fmt.Errorf("chunkstore: empty chunk hash")
	}

	value := data
	if s.compress {
		compressed, err := compressWithLzma(data)
		if err != nil {
			return fmt.Errorf("compress chunk %x: %w", hash, err)
		}
		value = compressed
	}

	shard := s.ShardNamespace(hash)
	if err := s.cold.Put(shard, hash, value); err != nil {
		return fmt.Errorf("persist chunk %x to %s: %w", hash, shard, err)
	}

	s.hot.Put(hash, data)
	return nil
}

// Get returns the chunk bytes for hash, or ok == false when the chunk is
// unknown. Cold hits are promoted into the hot cache before returning.
func (s *Store) Get(hash []byte) ([]byte, bool, error) {
	if len(hash) == 0 {
		return nil, false, fmt.Errorf("chunkstore: empty chunk hash")
	}

	if data, ok := s.hot.Get(hash); ok {
		return data, true, nil
	}

	shard := s.ShardNamespace(hash)
	value, ok, err := s.cold.Get(shard, hash)
	if err != nil {
		return nil, false, fmt.Errorf("read chunk %x from %s: %w", hash, shard, err)
	}
	if !ok {
		return nil, false, nil
	}

	data := value
	if s.compress {
		data, err = decompressWithLzma(value)
		if err != nil {
			return nil, false, fmt.Errorf("decompress chunk %x from %s: %w", hash, shard, err)
		}
	}

	s.hot.Put(hash, data)
	return data, true, nil
}

// CacheStats returns the hot-tier hit and miss counters.
func (s *Store) CacheStats() (hits, misses int64) {
	return s.hot.Stats()
}

// CacheLen returns the number of chunks currently in the hot tier.
func (s *Store) CacheLen() int {
	return s.hot.Len()
}

// Shards returns the configured shard count.
func (s *Store) Shards() int {
	return s.shards
}
