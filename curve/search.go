package curve

import "sort"

// bracket returns the indices of the nodes around target.
//
// lo is the first occurrence of the greatest maturity <= target and hi the
// first occurrence of the least maturity >= target. The caller guarantees
// maturities[0] < target < maturities[len-1].
func bracket(maturities []float64, target float64) (lo, hi int) {
	// First index with maturity >= target.
	hi = sort.Search(len(maturities), func(i int) bool {
		return maturities[i] >= target
	})

	// Last index with maturity <= target, then rewind to the first duplicate.
	last := sort.Search(len(maturities), func(i int) bool {
		return maturities[i] > target
	}) - 1
	value := maturities[last]
	lo = sort.Search(len(maturities), func(i int) bool {
		return maturities[i] >= value
	})
	return lo, hi
}
