// Package strata is the persistent storage engine of the device platform: it
// commits arbitrary byte payloads with a Merkle root, stores the chunks in a
// tiered (LRU + sharded BadgerDB) backing store and maintains a persisted
// similarity index over the payloads' semantic embeddings.
package strata

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/meridianos/strata/pkg/chunkstore"
	"github.com/meridianos/strata/pkg/keyval"
	"github.com/meridianos/strata/pkg/merkle"
	"github.com/meridianos/strata/pkg/vectorindex"
)

var (
	ErrNotStarted = errors.New("strata: engine not started")
	ErrClosed     = errors.New("strata: engine closed")
)

// Cold-store namespaces owned by the facade. The chunk shards and the vector
// namespace are managed by their components.
const (
	blocksNamespace = "blocks"
	rootsNamespace  = "roots"
)

// persistConcurrency bounds the chunk fan-out per write.
const persistConcurrency = 16

// StorageBlob is the result of one write: the commitment, the chunk count,
// the raw input and the attestation over the first chunk. It is returned to
// the caller and not retained by the engine.
type StorageBlob struct {
	MerkleRoot  []byte
	ChunkCount  int
	LeafHashes  [][]byte
	RawData     []byte
	Attestation []byte
}

// Engine composes the chunker/committer, the tiered chunk store, the vector
// index and structured-record access behind one write/read path.
type Engine struct {
	log    *logrus.Logger
	config Config
	collab Collaborators

	kv      keyval.Store
	ownsKV  bool
	chunks  *chunkstore.Store
	vectors *vectorindex.Index

	started   atomic.Bool
	startOnce sync.Once
	closeOnce sync.Once
}

// New constructs an engine handle. New does no I/O; call Start to open the
// cold store and restore the vector index.
func New(config Config, collab Collaborators) (*Engine, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("strata: config.Path must be set")
	}
	config.applyDefaults()
	return &Engine{
		log:    config.Logger,
		config: config,
		collab: collab,
		ownsKV: true,
	}, nil
}

// NewWithStore constructs an engine over an externally owned cold store,
// bypassing the Badger setup. Used with keyval.Memory in tests and by hosts
// that share one backend between subsystems.
func NewWithStore(config Config, collab Collaborators, store keyval.Store) (*Engine, error) {
	config.applyDefaults()
	return &Engine{
		log:    config.Logger,
		config: config,
		collab: collab,
		kv:     store,
	}, nil
}

// Start opens the cold store, builds the tiered chunk store and restores the
// vector index. The restore completes before Start returns, so inserts never
// reuse an ID from a previous run. Start is safe to call more than once; only
// the first call has effect.
func (e *Engine) Start(ctx context.Context) error {
	var startErr error
	e.startOnce.Do(func() {
		if err := ctx.Err(); err != nil {
			startErr = err
			return
		}

		if e.kv == nil {
			kv, err := keyval.Open(keyval.StoreConfig{
				Path:          e.config.Path,
				MinimumFreeGB: e.config.MinimumFreeGB,
				SyncWrites:    e.config.SyncWrites,
				Logger:        e.log,
			})
			if err != nil {
				startErr = fmt.Errorf("open cold store: %w", err)
				return
			}
			e.kv = kv
		}

		chunks, err := chunkstore.New(e.kv, chunkstore.Options{
			Shards:        e.config.ShardCount,
			CacheCapacity: e.config.CacheCapacity,
			Compression:   !e.config.NoCompression,
			Logger:        e.log,
		})
		if err != nil {
			startErr = err
			return
		}
		e.chunks = chunks

		vectors, err := vectorindex.New(e.kv, e.log)
		if err != nil {
			startErr = err
			return
		}
		e.vectors = vectors

		e.started.Store(true)
		e.log.WithFields(logrus.Fields{
			"path":   e.config.Path,
			"shards": e.config.ShardCount,
		}).Info("Storage engine started")
	})
	return startErr
}

// Close releases the cold store. Close is idempotent.
func (e *Engine) Close() error {
	var closeErr error
	e.closeOnce.Do(func() {
		e.started.Store(false)
		if e.kv != nil {
			if err := e.kv.Close(); err != nil {
				closeErr = fmt.Errorf("close cold store: %w", err)
			}
		}
		e.log.Info("Storage engine closed")
	})
	return closeErr
}

func (e *Engine) ready() error {
	if !e.started.Load() {
		return ErrNotStarted
	}
	return nil
}

// Write commits data and persists it durably. The sequence is an optional
// enrichment stage (summary, tuning advice, embedding; failures degrade, see
// Collaborators), then the mandatory commit stage: Merkle commitment, chunk
// persistence across the shards, root marker, attestation. A mid-loop I/O
// failure can leave some chunks persisted; re-running the same write is safe
// because chunks are content-addressed.
func (e *Engine) Write(ctx context.Context, data []byte, label string) (StorageBlob, error) {
	if err := ctx.Err(); err != nil {
		return StorageBlob{}, err
	}
	if err := e.ready(); err != nil {
		return StorageBlob{}, err
	}

	embedding := e.enrich(data, label)
	if len(embedding) > 0 {
		id, err := e.vectors.Insert(embedding)
		if err != nil {
			return StorageBlob{}, fmt.Errorf("index embedding: %w", err)
		}
		e.log.WithFields(logrus.Fields{
			"id":  id,
			"dim": len(embedding),
		}).Info("Indexed embedding")
	}

	return e.commit(ctx, data)
}

// enrich runs the best-effort stage of a write: the debug side channel, the
// summary and tuning-advice calls and embedding generation. It only ever
// returns an embedding (possibly nil); nothing here can fail the write.
func (e *Engine) enrich(data []byte, label string) []float32 {
	e.writeSideChannel(label, data)

	text := string(data)
	if e.collab.Summarizer != nil {
		summary, err := e.collab.Summarizer.Summarize(text)
		if err != nil {
			e.log.WithError(err).Warn("Summarizer failed, continuing without summary")
		} else {
			e.log.WithFields(logrus.Fields{"label": label}).Infof("Storage index summary: %s", summary)

			advice, err := e.collab.Summarizer.Summarize(fmt.Sprintf("Tune/compress this data summary: '%s'", summary))
			if err != nil {
				e.log.WithError(err).Warn("Tuning advice failed")
			} else {
				e.log.Infof("Storage tuning advice: %s", advice)
			}
		}
	}

	if e.collab.Embedder == nil {
		return nil
	}
	embedding, err := e.collab.Embedder.Embed(text)
	if err != nil {
		e.log.WithError(err).Warn("Embedder failed, write continues unindexed")
		return nil
	}
	return embedding
}

// commit is the mandatory stage: build the commitment, persist every chunk
// into its shard, record the root marker and attest the first chunk.
func (e *Engine) commit(ctx context.Context, data []byte) (StorageBlob, error) {
	tree := merkle.Build(data, e.config.ChunkSize)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(persistConcurrency)
	for _, chunk := range tree.Chunks {
		chunk := chunk
		g.Go(func() error {
			return e.chunks.Put(chunk.Hash[:], chunk.Data)
		})
	}
	if err := g.Wait(); err != nil {
		return StorageBlob{}, fmt.Errorf("persist chunks: %w", err)
	}

	if len(tree.Root) > 0 {
		marker := make([]byte, 8)
		binary.BigEndian.PutUint64(marker, uint64(len(tree.Chunks)))
		if err := e.kv.Put(rootsNamespace, tree.Root, marker); err != nil {
			return StorageBlob{}, fmt.Errorf("persist root marker: %w", err)
		}
	}

	var attestation []byte
	if e.collab.Attestor != nil {
		var first []byte
		if len(tree.Chunks) > 0 {
			first = tree.Chunks[0].Data
		}
		var err error
		attestation, err = e.collab.Attestor.Attest(first, tree.Root)
		if err != nil {
			// Chunks are already durable at this point, but the caller's
			// StorageBlob contract includes the attestation bytes.
			return StorageBlob{}, fmt.Errorf("attest write: %w", err)
		}
	}

	e.log.WithFields(logrus.Fields{
		"root":   fmt.Sprintf("%x", tree.Root),
		"chunks": len(tree.Chunks),
	}).Info("Write committed")

	return StorageBlob{
		MerkleRoot:  tree.Root,
		ChunkCount:  len(tree.Chunks),
		LeafHashes:  tree.LeafHashes(),
		RawData:     data,
		Attestation: attestation,
	}, nil
}

// ReadChunk returns the bytes of a single chunk by hash, or ok == false when
// the chunk is unknown. A cold hit is promoted into the hot cache.
func (e *Engine) ReadChunk(ctx context.Context, hash []byte) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	return e.chunks.Get(hash)
}

// Known reports whether a buffer with the given Merkle root has been written
// before.
func (e *Engine) Known(ctx context.Context, root []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := e.ready(); err != nil {
		return false, err
	}
	if len(root) == 0 {
		return false, nil
	}
	_, ok, err := e.kv.Get(rootsNamespace, root)
	if err != nil {
		return false, fmt.Errorf("read root marker %x: %w", root, err)
	}
	return ok, nil
}

// Search embeds the query and returns up to TopK formatted hits ordered by
// descending cosine similarity. An unavailable or failing embedder yields an
// empty result, not an error.
func (e *Engine) Search(ctx context.Context, query string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.ready(); err != nil {
		return nil, err
	}

	if e.collab.Embedder == nil {
		e.log.Warn("Search without embedder configured")
		return nil, nil
	}
	embedding, err := e.collab.Embedder.Embed(query)
	if err != nil {
		e.log.WithError(err).Warn("Embedder failed for search query")
		return nil, nil
	}
	if len(embedding) == 0 {
		return nil, nil
	}

	results := e.vectors.Search(embedding, e.config.TopK)
	hits := make([]string, len(results))
	for i, r := range results {
		hits[i] = fmt.Sprintf("id=%d score=%.4f", r.ID, r.Score)
	}
	return hits, nil
}

// PersistBlock stores an opaque, caller-serialized record under a string key
// in the structured-record namespace. No chunking or hashing is applied.
func (e *Engine) PersistBlock(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.ready(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("strata: empty block key")
	}
	if err := e.kv.Put(blocksNamespace, []byte(key), value); err != nil {
		return fmt.Errorf("persist block %q: %w", key, err)
	}
	return nil
}

// GetBlock returns the record stored under key, or ok == false when absent.
func (e *Engine) GetBlock(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	value, ok, err := e.kv.Get(blocksNamespace, []byte(key))
	if err != nil {
		return nil, false, fmt.Errorf("read block %q: %w", key, err)
	}
	return value, ok, nil
}

// VectorCount returns the number of entries in the similarity index.
func (e *Engine) VectorCount() int {
	if !e.started.Load() {
		return 0
	}
	return e.vectors.Len()
}
