package memory

import (
	"hash/fnv"
	"math"
)

// DefaultDimension is the vector size of the fallback encoder.
const DefaultDimension = 512

// FallbackEncoder is a deterministic hashing bag-of-words encoder. It needs
// no network and no model: each token is hashed to a vector index, counts are
// accumulated, and the result is L2-normalized so cosine scores land in the
// same range as real model embeddings.
type FallbackEncoder struct {
	dim int
}

// NewFallbackEncoder creates an encoder with the given dimension.
// Non-positive dimensions fall back to DefaultDimension.
func NewFallbackEncoder(dim int) *FallbackEncoder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &FallbackEncoder{dim: dim}
}

// Dimension returns the vector size this encoder produces.
func (f *FallbackEncoder) Dimension() int {
	return f.dim
}

// Encode converts text to a vector. Identical text always yields an identical
// vector. The result is never zero-length; text with no tokens encodes to the
// zero vector of the configured dimension.
func (f *FallbackEncoder) Encode(text string) []float64 {
	vec := make([]float64, f.dim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%f.dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
