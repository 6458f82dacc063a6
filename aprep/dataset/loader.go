package dataset

import (
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/ZanzyTHEbar/abstract-prep/aprep/batch"
)

// LoaderOptions mirrors the usual batching data-loader knobs.
type LoaderOptions struct {
	BatchSize int
	Shuffle   bool
	// DropLast discards a final batch smaller than BatchSize.
	DropLast bool
	// MinLen pads every batch to at least this width.
	MinLen int
	Seed   uint64
}

// Loader iterates a Dataset in padded batches.
type Loader struct {
	ds    *Dataset
	opts  LoaderOptions
	epoch uint64
}

// NewLoader validates opts and returns a loader over ds.
func NewLoader(ds *Dataset, opts LoaderOptions) (*Loader, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, opts.BatchSize)
	}
	return &Loader{ds: ds, opts: opts}, nil
}

// Len is the number of batches one epoch yields.
func (l *Loader) Len() int {
	n := l.ds.Len()
	if l.opts.DropLast {
		return n / l.opts.BatchSize
	}
	return (n + l.opts.BatchSize - 1) / l.opts.BatchSize
}

// Batches yields one epoch of batches. With Shuffle set every call draws a
// new permutation; the sequence of permutations is fixed by Seed.
func (l *Loader) Batches() iter.Seq2[*batch.Batch, error] {
	order := make([]int, l.ds.Len())
	for i := range order {
		order[i] = i
	}
	if l.opts.Shuffle {
		rng := rand.New(rand.NewPCG(l.opts.Seed, l.epoch))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	l.epoch++

	return func(yield func(*batch.Batch, error) bool) {
		size := l.opts.BatchSize
		for start := 0; start < len(order); start += size {
			end := min(start+size, len(order))
			if end-start < size && l.opts.DropLast {
				return
			}
			items := make([]batch.Item, 0, end-start)
			for _, i := range order[start:end] {
				it, err := l.ds.Item(i)
				if err != nil {
					yield(nil, err)
					return
				}
				items = append(items, it)
			}
			b, err := batch.Collate(items, l.opts.MinLen)
			if !yield(b, err) || err != nil {
				return
			}
		}
	}
}
