// Package merkle splits byte buffers into fixed-size chunks and commits to
// them with a binary Merkle tree over the chunk hashes.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DefaultChunkSize is the chunk size used when none is configured. Production
// deployments scale this up (e.g. 256 KiB); the commitment scheme is the same.
const DefaultChunkSize = 256

// Chunk is one fixed-size slice of an input buffer. Its identity is the
// SHA-256 hash of its bytes, so an already-stored chunk can be re-written
// safely.
type Chunk struct {
	Hash [sha256.Size]byte
	Data []byte
}

func (c Chunk) PrettyPrint() string {
	return fmt.Sprintf("Chunk{Hash: %s, Data(length): %d}", hex.EncodeToString(c.Hash[:]), len(c.Data))
}

// Tree is the commitment over one input buffer. Chunks appear in source
// order; Root is uniquely determined by the ordered chunk contents. An empty
// input yields zero chunks and a zero-length root.
type Tree struct {
	Root   []byte
	Chunks []Chunk
}

// LeafHashes returns the chunk hashes in source order.
func (t Tree) LeafHashes() [][]byte {
	hashes := make([][]byte, len(t.Chunks))
	for i, c := range t.Chunks {
		h := c.Hash
		hashes[i] = h[:]
	}
	return hashes
}

// Build chunks data into consecutive chunkSize slices (the last chunk may be
// shorter) and folds the leaf hashes pairwise into a single root. On levels
// with an odd node count the final node is hashed with itself, so every level
// transition re-hashes.
func Build(data []byte, chunkSize int) Tree {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var chunks []Chunk
	var level [][]byte
	for offset := 0; offset < len(data); offset += chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := make([]byte, end-offset)
		copy(chunk, data[offset:end])

		hash := sha256.Sum256(chunk)
		chunks = append(chunks, Chunk{Hash: hash, Data: chunk})
		level = append(level, hash[:])
	}

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			combined := sha256.New()
			combined.Write(left)
			combined.Write(right)
			next = append(next, combined.Sum(nil))
		}
		level = next
	}

	tree := Tree{Chunks: chunks}
	if len(level) == 1 {
		tree.Root = level[0]
	} else {
		tree.Root = []byte{}
	}
	return tree
}
