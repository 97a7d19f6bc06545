package memory

import (
	"encoding/binary"
	"math"
)

// EncodeVector converts a float32 slice to little-endian bytes.
func EncodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector converts little-endian bytes back to a float32 slice.
func DecodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched or zero-length vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// MeanVector averages the non-empty vectors that share the first vector's
// dimension. It returns nil when there is nothing to average.
func MeanVector(vectors [][]float32) []float32 {
	var (
		sum []float64
		n   int
	)
	for _, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(v))
		}
		if len(v) != len(sum) {
			continue
		}
		for i, f := range v {
			sum[i] += float64(f)
		}
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]float32, len(sum))
	for i, s := range sum {
		out[i] = float32(s / float64(n))
	}
	return out
}
