package corpus

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	roaring "github.com/RoaringBitmap/roaring"
)

// SplitOptions configures a stratified train/val/test split.
type SplitOptions struct {
	// TrainSize is the fraction of each class assigned to train.
	TrainSize float64
	// ValShare is the fraction of the remainder assigned to validation; the
	// rest goes to test.
	ValShare float64
	Seed     uint64
}

// DefaultSplitOptions yields a 70/15/15 split.
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{TrainSize: 0.7, ValShare: 0.5, Seed: 42}
}

// SplitIndices holds disjoint index sets whose union covers the input.
type SplitIndices struct {
	Train *roaring.Bitmap
	Val   *roaring.Bitmap
	Test  *roaring.Bitmap
}

// Split assigns every index of targets to exactly one of train, val or test,
// keeping each label's proportion roughly equal across the three sets.
func Split(targets []string, opts SplitOptions) (SplitIndices, error) {
	if opts.TrainSize <= 0 || opts.TrainSize >= 1 {
		return SplitIndices{}, fmt.Errorf("%w: train size %v not in (0,1)", ErrInvalidSplit, opts.TrainSize)
	}
	if opts.ValShare < 0 || opts.ValShare > 1 {
		return SplitIndices{}, fmt.Errorf("%w: val share %v not in [0,1]", ErrInvalidSplit, opts.ValShare)
	}
	if len(targets) == 0 {
		return SplitIndices{}, ErrEmptyCorpus
	}

	byLabel := make(map[string][]uint32)
	for i, t := range targets {
		byLabel[t] = append(byLabel[t], uint32(i))
	}
	// map order is random; walk labels sorted so a seed is reproducible
	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	out := SplitIndices{Train: roaring.New(), Val: roaring.New(), Test: roaring.New()}
	for _, l := range labels {
		idx := byLabel[l]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTrain := int(math.Round(float64(len(idx)) * opts.TrainSize))
		rest := idx[nTrain:]
		nVal := int(math.Round(float64(len(rest)) * opts.ValShare))

		out.Train.AddMany(idx[:nTrain])
		out.Val.AddMany(rest[:nVal])
		out.Test.AddMany(rest[nVal:])
	}
	return out, nil
}

// Select returns the samples at the indices in bm, in ascending index order.
func Select(samples []Sample, bm *roaring.Bitmap) []Sample {
	if bm == nil {
		return nil
	}
	out := make([]Sample, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		if i < len(samples) {
			out = append(out, samples[i])
		}
	}
	return out
}
