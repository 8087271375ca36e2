package vectorindex_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianos/strata/pkg/keyval"
	"github.com/meridianos/strata/pkg/vectorindex"
)

func newIndex(tb testing.TB, kv keyval.Store) *vectorindex.Index {
	tb.Helper()
	idx, err := vectorindex.New(kv, nil)
	require.NoError(tb, err)
	return idx
}

func TestIndex_InsertAllocatesMonotonicIDs(t *testing.T) {
	idx := newIndex(t, keyval.NewMemory())

	for want := uint64(1); want <= 5; want++ {
		id, err := idx.Insert([]float32{float32(want), 0, 0})
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, 5, idx.Len())
}

func TestIndex_RejectsEmptyEmbedding(t *testing.T) {
	idx := newIndex(t, keyval.NewMemory())

	_, err := idx.Insert(nil)
	assert.Error(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestIndex_IDMonotonicityAcrossRestart(t *testing.T) {
	kv := keyval.NewMemory()

	first := newIndex(t, kv)
	var lastID uint64
	for i := 0; i < 7; i++ {
		id, err := first.Insert([]float32{float32(i), 1})
		require.NoError(t, err)
		lastID = id
	}

	// Simulated restart: a fresh index restores from the same cold store.
	second := newIndex(t, kv)
	assert.Equal(t, 7, second.Len())

	id, err := second.Insert([]float32{42, 42})
	require.NoError(t, err)
	assert.Greater(t, id, lastID)
}

func TestIndex_RestoreOfEmptyNamespaceStartsAtOne(t *testing.T) {
	idx := newIndex(t, keyval.NewMemory())
	assert.Equal(t, uint64(1), idx.NextID())
	assert.Equal(t, 0, idx.Len())
}

func TestIndex_SimilarityRanking(t *testing.T) {
	idx := newIndex(t, keyval.NewMemory())

	query := []float32{1, 0, 0}
	identicalID, err := idx.Insert([]float32{2, 0, 0}) // parallel to query
	require.NoError(t, err)
	orthogonalID, err := idx.Insert([]float32{0, 3, 0})
	require.NoError(t, err)
	antiParallelID, err := idx.Insert([]float32{-1, 0, 0})
	require.NoError(t, err)

	results := idx.Search(query, 3)
	require.Len(t, results, 3)

	assert.Equal(t, identicalID, results[0].ID)
	assert.Equal(t, orthogonalID, results[1].ID)
	assert.Equal(t, antiParallelID, results[2].ID)

	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.0, results[1].Score, 1e-6)
	assert.InDelta(t, -1.0, results[2].Score, 1e-6)
}

func TestIndex_SearchReturnsAtMostK(t *testing.T) {
	idx := newIndex(t, keyval.NewMemory())

	for i := 0; i < 10; i++ {
		_, err := idx.Insert([]float32{float32(i + 1), 1})
		require.NoError(t, err)
	}

	assert.Len(t, idx.Search([]float32{1, 1}, 3), 3)
	assert.Len(t, idx.Search([]float32{1, 1}, 50), 10)
	assert.Empty(t, idx.Search([]float32{1, 1}, 0))
}

func TestIndex_RestorePreservesEmbeddings(t *testing.T) {
	kv := keyval.NewMemory()

	first := newIndex(t, kv)
	want := []float32{0.25, -1.5, 3.75}
	id, err := first.Insert(want)
	require.NoError(t, err)

	second := newIndex(t, kv)
	results := second.Search(want, 1)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestIndex_RestoreSkipsMalformedEntries(t *testing.T) {
	kv := keyval.NewMemory()
	require.NoError(t, kv.Put(vectorindex.Namespace, []byte("bad-key"), []byte{0, 0, 0, 0}))
	require.NoError(t, kv.Put(vectorindex.Namespace, []byte{0, 0, 0, 0, 0, 0, 0, 9}, []byte{1, 2, 3})) // not a float32 multiple

	idx := newIndex(t, kv)
	assert.Equal(t, 0, idx.Len())

	// The valid 8-byte key still seeds the allocator above the stored ID.
	assert.Equal(t, uint64(10), idx.NextID())
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 0}, []float32{7, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"antiparallel", []float32{1, 0}, []float32{-4, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0},
		{"both zero", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, vectorindex.Cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestIndex_InsertPersistFailureLeavesNoEntry(t *testing.T) {
	kv := &failingStore{Store: keyval.NewMemory()}
	idx := newIndex(t, kv)

	kv.fail = true
	_, err := idx.Insert([]float32{1, 2})
	assert.Error(t, err)
	assert.Equal(t, 0, idx.Len())

	// The failed attempt must not have consumed an ID.
	kv.fail = false
	id, err := idx.Insert([]float32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

type failingStore struct {
	keyval.Store
	fail bool
}

func (f *failingStore) Put(namespace string, key, value []byte) error {
	if f.fail {
		return fmt.Errorf("disk full")
	}
	return f.Store.Put(namespace, key, value)
}
