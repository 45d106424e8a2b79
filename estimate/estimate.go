// Package estimate implements the join-size estimator of spec §4.3:
// equi-join upper bounds from key columns, a small-input heuristic, and
// for large inputs a logarithmic slice sample with outlier detection and
// a random-sample fallback.
//
// The estimator calls back into whichever physical join the planner has
// already chosen, to calibrate against real sampled runs (spec §9,
// "mutual recursion between estimator and join"). To avoid an import
// cycle and to bound recursion depth at 2 as the design note requires,
// that join algorithm is injected as a JoinFunc rather than imported
// directly: the sampled call always passes an explicit Hint, so the
// recursive Estimate call inside it returns at rule 1 without sampling
// again.
package estimate

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/colbat/batjoin/jointypes"
	"github.com/colbat/batjoin/table"
)

// sliceWidth is S in spec §4.3.
const sliceWidth = 1000

// JoinFunc runs the join algorithm the planner has already selected
// over a (possibly sliced) pair of tables, returning only the resulting
// row count -- all the estimator needs.
type JoinFunc func(ctx context.Context, left, right *table.Table) (int, error)

// Sampler is the subset of storage.Service the estimator needs to take a
// real random sample for the outlier fallback.
type Sampler interface {
	RandomSample(t *table.Table, n int) (*table.Table, error)
}

// Params configures one estimation call.
type Params struct {
	// Hint, if positive, is trusted outright (spec §4.3 rule 1).
	Hint int
	// T is the sampling exponent: when 3*min(|left|, |right|) <= 2^T the
	// estimate is 3*min and no sampling happens.
	T uint
	// LeftTailKey / RightHeadKey feed the equi-join upper bounds of
	// rule 2. Leave false when the predicate is not equality.
	LeftTailKey, RightHeadKey bool
}

// Estimate predicts |join(left, right)| following spec §4.3's five
// steps in order, short-circuiting as soon as one applies.
func Estimate(ctx context.Context, left, right *table.Table, p Params, join JoinFunc, sampler Sampler, log *logrus.Entry) (int, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}

	if p.Hint > 0 {
		return p.Hint, nil
	}

	nl, nr := left.Len(), right.Len()
	if nl == 0 || nr == 0 {
		return 0, nil
	}

	upper := math.MaxInt
	if p.LeftTailKey {
		upper = min(upper, nr)
	}
	if p.RightHeadKey {
		upper = min(upper, nl)
	}

	smaller := min(nl, nr)
	if 3*smaller <= 1<<p.T {
		est := 3 * smaller
		if est > upper {
			est = upper
		}
		log.WithFields(logrus.Fields{"strategy": "small-input", "estimate": est}).Debug("join size estimate")
		return est, nil
	}

	k := int(math.Floor(math.Log2(float64(nl)))) - int(p.T)
	if k < 1 {
		k = 1
	}

	slices := takeSlices(nl, k, sliceWidth)
	counts := make([]int, 0, len(slices))
	total := 0
	sampled := 0
	for _, sl := range slices {
		view := left.Slice(sl.lo, sl.hi)
		n, err := join(ctx, view, right)
		if err != nil {
			return 0, err
		}
		counts = append(counts, n)
		total += n
		sampled += sl.hi - sl.lo
	}

	if outlier(counts, sliceWidth) {
		sampleN := min(nl/100, (1<<p.T)/3)
		if sampleN < 1 {
			sampleN = 1
		}
		sample, err := sampler.RandomSample(left, sampleN)
		if err != nil {
			return 0, jointypes.ErrOutOfMemory.New("estimator sample", sampleN)
		}
		n, err := join(ctx, sample, right)
		if err != nil {
			return 0, err
		}
		total = n
		sampled = sample.Len()
		log.WithFields(logrus.Fields{"strategy": "outlier-fallback", "sampled": sampled}).Debug("join size estimate")
	} else {
		log.WithFields(logrus.Fields{"strategy": "log-sample", "slices": len(slices), "sampled": sampled}).Debug("join size estimate")
	}

	if sampled == 0 {
		return 0, nil
	}

	est := int(math.Ceil(float64(total) * float64(nl) / (0.95 * float64(sampled))))
	if est > upper {
		est = upper
	}
	return est, nil
}

type sliceRange struct{ lo, hi int }

// takeSlices returns k equi-spaced slices of width w over [0, n).
func takeSlices(n, k, w int) []sliceRange {
	if k*w >= n {
		return []sliceRange{{0, n}}
	}
	stride := n / k
	out := make([]sliceRange, 0, k)
	for i := 0; i < k; i++ {
		lo := i * stride
		hi := lo + w
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		out = append(out, sliceRange{lo, hi})
	}
	return out
}

// outlier reports whether any slice count deviates from the mean by more
// than max(sliceWidth, mean), per spec §4.3 rule 5.
func outlier(counts []int, width int) bool {
	if len(counts) == 0 {
		return false
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	mean := float64(total) / float64(len(counts))
	threshold := math.Max(float64(width), mean)
	for _, c := range counts {
		if math.Abs(float64(c)-mean) > threshold {
			return true
		}
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
