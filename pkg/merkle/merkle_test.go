package merkle_test

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianos/strata/pkg/merkle"
)

func TestBuild_Deterministic(t *testing.T) {
	data := bytes.Repeat([]byte("determinism"), 100)

	first := merkle.Build(data, 256)
	second := merkle.Build(data, 256)

	assert.Equal(t, first.Root, second.Root)
	assert.Equal(t, len(first.Chunks), len(second.Chunks))
}

func TestBuild_TamperSensitivity(t *testing.T) {
	data := bytes.Repeat([]byte("tamper me"), 120)
	original := merkle.Build(data, 256)

	for _, pos := range []int{0, len(data) / 2, len(data) - 1} {
		mutated := make([]byte, len(data))
		copy(mutated, data)
		mutated[pos] ^= 0x01

		assert.NotEqual(t, original.Root, merkle.Build(mutated, 256).Root,
			"single-byte mutation at %d must change the root", pos)
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	tree := merkle.Build(nil, 256)

	assert.Empty(t, tree.Chunks)
	assert.Len(t, tree.Root, 0)

	// Stable across calls and equal for nil and empty slice.
	assert.Equal(t, tree.Root, merkle.Build([]byte{}, 256).Root)
}

func TestBuild_SingleChunkRootIsLeafHash(t *testing.T) {
	data := []byte("fits in one chunk")
	tree := merkle.Build(data, 256)

	require.Len(t, tree.Chunks, 1)
	leaf := sha256.Sum256(data)
	assert.Equal(t, leaf[:], tree.Root)
}

func TestBuild_OddLevelDuplicatesLastNode(t *testing.T) {
	// Three chunks: the unpaired third leaf must be hashed with itself, not
	// carried forward unchanged.
	data := bytes.Repeat([]byte{0xab}, 3*16)
	tree := merkle.Build(data, 16)
	require.Len(t, tree.Chunks, 3)

	h0 := sha256.Sum256(data[0:16])
	h1 := sha256.Sum256(data[16:32])
	h2 := sha256.Sum256(data[32:48])

	combine := func(l, r [sha256.Size]byte) [sha256.Size]byte {
		return sha256.Sum256(append(l[:], r[:]...))
	}

	left := combine(h0, h1)
	right := combine(h2, h2)
	root := combine(left, right)

	assert.Equal(t, root[:], tree.Root)
}

func TestBuild_ChunkBoundariesAndOrder(t *testing.T) {
	data := bytes.Repeat([]byte("hello world"), 50) // 550 bytes
	tree := merkle.Build(data, 256)

	require.Len(t, tree.Chunks, 3)
	assert.Len(t, tree.Chunks[0].Data, 256)
	assert.Len(t, tree.Chunks[1].Data, 256)
	assert.Len(t, tree.Chunks[2].Data, 38)
	assert.NotEmpty(t, tree.Root)

	var reassembled []byte
	for _, chunk := range tree.Chunks {
		hash := sha256.Sum256(chunk.Data)
		assert.Equal(t, hash, chunk.Hash)
		reassembled = append(reassembled, chunk.Data...)
	}
	assert.Equal(t, data, reassembled)
}

func TestBuild_ChunkOrderChangesRoot(t *testing.T) {
	a := append(bytes.Repeat([]byte{1}, 16), bytes.Repeat([]byte{2}, 16)...)
	b := append(bytes.Repeat([]byte{2}, 16), bytes.Repeat([]byte{1}, 16)...)

	assert.NotEqual(t, merkle.Build(a, 16).Root, merkle.Build(b, 16).Root)
}

func TestBuild_DefaultChunkSize(t *testing.T) {
	data := bytes.Repeat([]byte{7}, merkle.DefaultChunkSize+1)
	tree := merkle.Build(data, 0)
	assert.Len(t, tree.Chunks, 2)
}

func TestTree_LeafHashes(t *testing.T) {
	data := bytes.Repeat([]byte("leaves"), 100)
	tree := merkle.Build(data, 128)

	hashes := tree.LeafHashes()
	require.Len(t, hashes, len(tree.Chunks))
	for i, chunk := range tree.Chunks {
		assert.Equal(t, chunk.Hash[:], hashes[i])
	}
}
