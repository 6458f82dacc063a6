package embedding

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Provider produces fixed-dimension vectors from normalized sentences.
type Provider interface {
	Dimensions() int
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// NewProvider selects a provider by name. Only "hash" is built in; other
// names are rejected.
func NewProvider(name string, dims int) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hash", "":
		return NewHashProvider(dims), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", name)
	}
}

// Matrix embeds inputs into a len(inputs) x dims matrix, truncating or
// zero-padding each vector to dims. dims <= 0 keeps the provider's width.
func Matrix(ctx context.Context, p Provider, inputs []string, dims int) (*mat.Dense, error) {
	if len(inputs) == 0 {
		return &mat.Dense{}, nil
	}
	vecs, err := p.Embed(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if dims <= 0 {
		dims = p.Dimensions()
	}
	m := mat.NewDense(len(vecs), dims, nil)
	for i, v := range vecs {
		for j, x := range AdjustToDims(v, dims) {
			m.Set(i, j, float64(x))
		}
	}
	return m, nil
}

// AdjustToDims truncates or pads a vector to the target dimension.
// If target <= 0, returns the original slice.
func AdjustToDims(vec []float32, target int) []float32 {
	if target <= 0 || len(vec) == target {
		return vec
	}
	if len(vec) > target {
		return vec[:target]
	}
	out := make([]float32, target)
	copy(out, vec)
	return out
}
