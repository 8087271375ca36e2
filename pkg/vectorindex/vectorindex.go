// Package vectorindex holds the append-only similarity index over semantic
// embeddings. Entries live in memory for linear-scan search and are mirrored
// to a cold-store namespace so the index survives restarts.
package vectorindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/meridianos/strata/pkg/keyval"
)

// Namespace is the cold-store namespace holding persisted vectors, keyed by
// the big-endian encoding of the entry ID.
const Namespace = "vector_index"

// Entry is one stored (id, embedding) pair. Entries are never mutated or
// individually deleted.
type Entry struct {
	ID        uint64
	Embedding []float32
}

// Result is one search hit.
type Result struct {
	ID    uint64
	Score float32
}

// idAllocator hands out monotonically increasing IDs. It is owned by the
// Index and seeded from durable storage before any insert is accepted.
type idAllocator struct {
	next uint64
}

// Index is the vector similarity index. A single mutex guards the in-memory
// entry list and the ID allocator; critical sections are short.
type Index struct {
	mu      sync.Mutex
	kv      keyval.Store
	entries []Entry
	alloc   idAllocator
	log     *logrus.Logger
}

// New restores the index from the cold store's vector namespace and seeds the
// ID allocator with max(restored IDs)+1, or 1 when the namespace is empty.
// Restore completes before New returns, so ID uniqueness holds across
// restarts.
func New(kv keyval.Store, logger *logrus.Logger) (*Index, error) {
	if logger == nil {
		logger = logrus.New()
	}

	idx := &Index{
		kv:    kv,
		alloc: idAllocator{next: 1},
		log:   logger,
	}

	var maxID uint64
	err := kv.Iterate(Namespace, func(key, value []byte) error {
		id, err := decodeID(key)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"key": fmt.Sprintf("%x", key),
			}).Warnf("Skipping malformed vector key: %v", err)
			return nil
		}
		// The ID is taken durably even when its value is unreadable, so it
		// must still seed the allocator.
		if id > maxID {
			maxID = id
		}

		embedding, err := decodeVector(value)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"id": id,
			}).Warnf("Skipping malformed vector value: %v", err)
			return nil
		}
		idx.entries = append(idx.entries, Entry{ID: id, Embedding: embedding})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("restore vector index: %w", err)
	}

	if maxID > 0 {
		idx.alloc.next = maxID + 1
	}
	logger.WithFields(logrus.Fields{
		"vectors": len(idx.entries),
		"nextID":  idx.alloc.next,
	}).Info("Vector index restored")

	return idx, nil
}

// Insert allocates the next ID, durably persists the (id, embedding) pair and
// appends it to the in-memory list. Persistence completes before Insert
// returns; on a persist failure neither the ID nor the in-memory entry is
// consumed.
func (idx *Index) Insert(embedding []float32) (uint64, error) {
	if len(embedding) == 0 {
		return 0, fmt.Errorf("vectorindex: empty embedding")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	id := idx.alloc.next
	if err := idx.kv.Put(Namespace, encodeID(id), encodeVector(embedding)); err != nil {
		return 0, fmt.Errorf("persist vector %d: %w", id, err)
	}
	idx.alloc.next++

	stored := make([]float32, len(embedding))
	copy(stored, embedding)
	idx.entries = append(idx.entries, Entry{ID: id, Embedding: stored})

	return id, nil
}

// Search scans every stored embedding, scores it against query with cosine
// similarity and returns the top k results by descending score. Fewer than k
// results are returned when the index is smaller.
func (idx *Index) Search(query []float32, k int) []Result {
	if k <= 0 {
		return nil
	}

	idx.mu.Lock()
	results := make([]Result, 0, len(idx.entries))
	for _, ent := range idx.entries {
		results = append(results, Result{ID: ent.ID, Score: Cosine(query, ent.Embedding)})
	}
	idx.mu.Unlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.entries)
}

// NextID returns the ID the next insert will use.
func (idx *Index) NextID() uint64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.alloc.next
}
