package outcome

// Yield — равномерное целое в [lo, hi]. При hi ≤ lo возвращает lo.
func Yield(src Source, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Int64N(hi-lo+1)
}
