// Package retention implements the exponential-decay checkpoint
// retention policy: given the sorted ids of an app's existing
// checkpoints, it decides which id a new checkpoint should take and
// which older checkpoints the new one bumps out of the window.
package retention

// Extend appends a new checkpoint id to ids (sorted ascending,
// non-empty) and returns the set of ids to keep and the set of ids to
// remove. kept and removed partition ids ∪ {last(ids)+1}.
//
// The rule: walk ids in reverse with a trailing window of four. Once
// the last four kept ids form an arithmetic progression (equal gaps),
// the second-to-last one — the one about to fall inside a denser
// region — is dropped. This halves checkpoint density roughly every
// two retentions, going back in time.
func Extend(ids []int64) (kept []int64, removed []int64) {
	newID := ids[len(ids)-1] + 1

	// buf accumulates the kept ids in reverse (newest first).
	buf := []int64{newID}

	for i := len(ids) - 1; i >= 0; i-- {
		buf = append(buf, ids[i])
		for equidistant(buf) {
			// Drop the second-to-last element of buf: the one just
			// inside the trailing window.
			cut := len(buf) - 2
			removed = append(removed, buf[cut])
			buf = append(buf[:cut], buf[cut+1:]...)
		}
	}

	kept = make([]int64, len(buf))
	for i, v := range buf {
		kept[len(buf)-1-i] = v
	}
	return kept, removed
}

// equidistant reports whether the last four elements of buf form an
// arithmetic progression. Fewer than four elements never qualifies.
func equidistant(buf []int64) bool {
	if len(buf) < 4 {
		return false
	}
	n := len(buf)
	d1 := buf[n-1] - buf[n-2]
	d2 := buf[n-2] - buf[n-3]
	d3 := buf[n-3] - buf[n-4]
	return d1 == d2 && d2 == d3
}
