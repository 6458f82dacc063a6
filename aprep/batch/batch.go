package batch

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PadValue fills the cells after a sequence's last token.
const PadValue = 0

var (
	ErrEmptyBatch       = errors.New("batch has no items")
	ErrZeroLength       = errors.New("sequence length must be at least 1")
	ErrLengthOutOfRange = errors.New("sequence length exceeds available timesteps")
	ErrShapeMismatch    = errors.New("states and lengths disagree on batch size")
)

// Item is one (sequence, length, label) triple.
type Item struct {
	Sequence []int
	Length   int
	Label    int
}

// Batch is a zero-padded rectangular grid with parallel length and label
// vectors.
type Batch struct {
	Sequences [][]int
	Lengths   []int
	Labels    []int
}

// Pad right-pads every sequence with PadValue to the longest sequence, or to
// minLen when that is larger.
func Pad(seqs [][]int, minLen int) [][]int {
	width := minLen
	for _, s := range seqs {
		width = max(width, len(s))
	}
	out := make([][]int, len(seqs))
	for i, s := range seqs {
		row := make([]int, width)
		copy(row, s)
		out[i] = row
	}
	return out
}

// Collate pads the items' sequences into a batch.
func Collate(items []Item, minLen int) (*Batch, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	seqs := make([][]int, len(items))
	b := &Batch{
		Lengths: make([]int, len(items)),
		Labels:  make([]int, len(items)),
	}
	for i, it := range items {
		seqs[i] = it.Sequence
		b.Lengths[i] = it.Length
		b.Labels[i] = it.Label
	}
	b.Sequences = Pad(seqs, minLen)
	return b, nil
}

// Size is the number of rows.
func (b *Batch) Size() int { return len(b.Sequences) }

// Width is the padded sequence length.
func (b *Batch) Width() int {
	if len(b.Sequences) == 0 {
		return 0
	}
	return len(b.Sequences[0])
}

// Dense returns the padded grid as a Size x Width matrix.
func (b *Batch) Dense() *mat.Dense {
	rows, cols := b.Size(), b.Width()
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(rows, cols, nil)
	for i, row := range b.Sequences {
		for j, v := range row {
			m.Set(i, j, float64(v))
		}
	}
	return m
}

// Mask returns a Size x Width matrix with 1 over the first Lengths[i] cells
// of each row and 0 elsewhere.
func (b *Batch) Mask() *mat.Dense {
	rows, cols := b.Size(), b.Width()
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(rows, cols, nil)
	for i, n := range b.Lengths {
		for j := 0; j < min(n, cols); j++ {
			m.Set(i, j, 1)
		}
	}
	return m
}

// LastRelevant picks, for every batch element b, row lengths[b]-1 of
// states[b] (a timesteps x hidden matrix), stacking the picks into a
// batch x hidden matrix.
func LastRelevant(states []*mat.Dense, lengths []int) (*mat.Dense, error) {
	if len(states) != len(lengths) {
		return nil, fmt.Errorf("%w: %d states, %d lengths", ErrShapeMismatch, len(states), len(lengths))
	}
	if len(states) == 0 {
		return nil, ErrEmptyBatch
	}
	_, hidden := states[0].Dims()
	out := mat.NewDense(len(states), hidden, nil)
	for b, s := range states {
		steps, h := s.Dims()
		if h != hidden {
			return nil, fmt.Errorf("%w: element %d has hidden size %d, want %d", ErrShapeMismatch, b, h, hidden)
		}
		n := lengths[b]
		if n < 1 {
			return nil, fmt.Errorf("%w: element %d has length %d", ErrZeroLength, b, n)
		}
		if n > steps {
			return nil, fmt.Errorf("%w: element %d has length %d, %d timesteps", ErrLengthOutOfRange, b, n, steps)
		}
		out.SetRow(b, s.RawRowView(n-1))
	}
	return out, nil
}
