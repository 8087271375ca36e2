package vectorindex

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Vectors are persisted as a sequence of big-endian float32 words; IDs as
// big-endian uint64. Big-endian keys keep prefix iteration in ID order.

func encodeID(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

func decodeID(key []byte) (uint64, error) {
	if len(key) != 8 {
		return 0, fmt.Errorf("vector key must be 8 bytes, got %d", len(key))
	}
	return binary.BigEndian.Uint64(key), nil
}

func encodeVector(embedding []float32) []byte {
	value := make([]byte, 4*len(embedding))
	for i, f := range embedding {
		binary.BigEndian.PutUint32(value[4*i:], math.Float32bits(f))
	}
	return value
}

func decodeVector(value []byte) ([]float32, error) {
	if len(value)%4 != 0 {
		return nil, fmt.Errorf("vector value length %d is not a multiple of 4", len(value))
	}
	embedding := make([]float32, len(value)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.BigEndian.Uint32(value[4*i:]))
	}
	return embedding, nil
}
