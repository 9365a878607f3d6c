package datasets

import "iter"

// Spans yields consecutive, non-overlapping [start, end) windows of the given
// size over n items. With keepPartial false a trailing window shorter than
// size is dropped; with keepPartial true it is yielded as is. The sequence can
// be ranged over any number of times.
func Spans(n, size int, keepPartial bool) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		if size <= 0 {
			return
		}
		for start := 0; start < n; start += size {
			end := start + size
			if end > n {
				if !keepPartial {
					return
				}
				end = n
			}
			if !yield(start, end) {
				return
			}
		}
	}
}

// SpanCount returns how many windows Spans yields for the same arguments.
func SpanCount(n, size int, keepPartial bool) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	if keepPartial {
		return (n + size - 1) / size
	}
	return n / size
}
