package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPad(t *testing.T) {
	t.Run("width is the batch max", func(t *testing.T) {
		got := Pad([][]int{{1, 2, 3}, {4, 5, 6, 7, 8}, {9, 10}}, 0)
		require.Len(t, got, 3)
		for _, row := range got {
			assert.Len(t, row, 5)
		}
		assert.Equal(t, []int{1, 2, 3, 0, 0}, got[0])
		assert.Equal(t, []int{4, 5, 6, 7, 8}, got[1])
		assert.Equal(t, []int{9, 10, 0, 0, 0}, got[2])
	})

	t.Run("minimum length widens", func(t *testing.T) {
		got := Pad([][]int{{1}, {2, 3}}, 4)
		assert.Equal(t, [][]int{{1, 0, 0, 0}, {2, 3, 0, 0}}, got)
	})

	t.Run("input is not aliased", func(t *testing.T) {
		in := [][]int{{1, 2}}
		got := Pad(in, 0)
		got[0][0] = 42
		assert.Equal(t, 1, in[0][0])
	})
}

func TestCollate(t *testing.T) {
	items := []Item{
		{Sequence: []int{5, 6, 7}, Length: 3, Label: 2},
		{Sequence: []int{8, 9, 10, 11, 12}, Length: 5, Label: 0},
		{Sequence: []int{13, 14}, Length: 2, Label: 4},
	}

	b, err := Collate(items, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Size())
	assert.Equal(t, 5, b.Width())
	assert.Equal(t, []int{3, 5, 2}, b.Lengths)
	assert.Equal(t, []int{2, 0, 4}, b.Labels)
	for i, it := range items {
		for j := it.Length; j < b.Width(); j++ {
			assert.Equal(t, PadValue, b.Sequences[i][j], "row %d col %d", i, j)
		}
	}

	t.Run("empty batch", func(t *testing.T) {
		_, err := Collate(nil, 0)
		assert.ErrorIs(t, err, ErrEmptyBatch)
	})

	t.Run("dense and mask", func(t *testing.T) {
		d := b.Dense()
		r, c := d.Dims()
		assert.Equal(t, 3, r)
		assert.Equal(t, 5, c)
		assert.Equal(t, 12.0, d.At(1, 4))
		assert.Equal(t, 0.0, d.At(2, 2))

		m := b.Mask()
		assert.Equal(t, []float64{1, 1, 0, 0, 0}, m.RawRowView(2))
		assert.Equal(t, 10.0, mat.Sum(m))
	})
}

func TestLastRelevant(t *testing.T) {
	// two elements, 3 timesteps, hidden size 2
	states := []*mat.Dense{
		mat.NewDense(3, 2, []float64{1, 1, 2, 2, 3, 3}),
		mat.NewDense(3, 2, []float64{4, 4, 5, 5, 6, 6}),
	}

	t.Run("selects length-1", func(t *testing.T) {
		out, err := LastRelevant(states, []int{2, 3})
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 2}, out.RawRowView(0))
		assert.Equal(t, []float64{6, 6}, out.RawRowView(1))
	})

	t.Run("zero length is rejected", func(t *testing.T) {
		_, err := LastRelevant(states, []int{0, 3})
		assert.ErrorIs(t, err, ErrZeroLength)
	})

	t.Run("length beyond timesteps", func(t *testing.T) {
		_, err := LastRelevant(states, []int{4, 1})
		assert.ErrorIs(t, err, ErrLengthOutOfRange)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := LastRelevant(states, []int{1})
		assert.ErrorIs(t, err, ErrShapeMismatch)

		odd := []*mat.Dense{states[0], mat.NewDense(3, 3, nil)}
		_, err = LastRelevant(odd, []int{1, 1})
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := LastRelevant(nil, nil)
		assert.ErrorIs(t, err, ErrEmptyBatch)
	})
}
