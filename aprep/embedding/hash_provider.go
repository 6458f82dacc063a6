package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// DefaultDims is the width used when a provider is built with dims <= 0.
const DefaultDims = 384

// HashProvider maps a sentence to a signed, L2-normalized bag of hashed
// tokens. Tokens are split on whitespace, so inputs should already be
// normalized.
type HashProvider struct{ dims int }

func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = DefaultDims
	}
	return &HashProvider{dims: dims}
}

func (h *HashProvider) Dimensions() int { return h.dims }

func (h *HashProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = h.embed(s)
	}
	return out, nil
}

func (h *HashProvider) embed(s string) []float32 {
	vec := make([]float32, h.dims)
	for _, tok := range strings.Fields(s) {
		sum := sha256.Sum256([]byte(tok))
		bucket := binary.LittleEndian.Uint64(sum[:8]) % uint64(h.dims)
		if sum[8]&1 == 0 {
			vec[bucket]++
		} else {
			vec[bucket]--
		}
	}

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for j := range vec {
		vec[j] *= scale
	}
	return vec
}
