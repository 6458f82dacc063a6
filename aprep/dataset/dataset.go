package dataset

import (
	"errors"
	"fmt"

	roaring "github.com/RoaringBitmap/roaring"

	"github.com/ZanzyTHEbar/abstract-prep/aprep/batch"
)

var (
	ErrLengthMismatch   = errors.New("sequences and labels differ in length")
	ErrIndexOutOfRange  = errors.New("dataset index out of range")
	ErrInvalidBatchSize = errors.New("batch size must be positive")
)

// Dataset is an indexable collection of encoded sentences and labels.
type Dataset struct {
	x [][]int
	y []int
}

// New pairs sequences with labels.
func New(x [][]int, y []int) (*Dataset, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d sequences, %d labels", ErrLengthMismatch, len(x), len(y))
	}
	return &Dataset{x: x, y: y}, nil
}

// Len is the number of items.
func (d *Dataset) Len() int { return len(d.y) }

// Item returns (sequence, len(sequence), label) for index i.
func (d *Dataset) Item(i int) (batch.Item, error) {
	if i < 0 || i >= len(d.y) {
		return batch.Item{}, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(d.y))
	}
	return batch.Item{Sequence: d.x[i], Length: len(d.x[i]), Label: d.y[i]}, nil
}

// Collate pads items to the longest sequence among them.
func (d *Dataset) Collate(items []batch.Item) (*batch.Batch, error) {
	return batch.Collate(items, 0)
}

// Subset returns the items whose indices are in bm, in ascending order.
// Out of range indices are ignored.
func (d *Dataset) Subset(bm *roaring.Bitmap) *Dataset {
	sub := &Dataset{}
	if bm == nil {
		return sub
	}
	it := bm.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		if i >= len(d.y) {
			break
		}
		sub.x = append(sub.x, d.x[i])
		sub.y = append(sub.y, d.y[i])
	}
	return sub
}

// Labels returns a copy of the label vector.
func (d *Dataset) Labels() []int {
	return append([]int(nil), d.y...)
}
