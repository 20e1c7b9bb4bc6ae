package consumer

// offsetTracker computes the highest contiguous ready-to-commit offset for
// one partition, so out-of-order completion (async downstream work) never
// commits past a record that hasn't finished yet.
//
// Grounded on the teacher's runner/task/manager_impl.go per-partition
// bookkeeping (one task per partition tracking CurrentOffset), repurposed
// here as one ready-offset tracker per partition rather than one task.
type offsetTracker struct {
	next    int64 // offset of the next record expected contiguously
	pending map[int64]struct{}
}

func newOffsetTracker(startOffset int64) *offsetTracker {
	return &offsetTracker{next: startOffset, pending: make(map[int64]struct{})}
}

// mark records offset as ready-to-commit and advances next past any run of
// contiguous ready offsets starting at next.
func (t *offsetTracker) mark(offset int64) {
	if offset < t.next {
		return
	}
	t.pending[offset] = struct{}{}
	for {
		if _, ok := t.pending[t.next]; !ok {
			return
		}
		delete(t.pending, t.next)
		t.next++
	}
}

// readyOffset is the offset to commit: the next offset the consumer should
// resume from.
func (t *offsetTracker) readyOffset() int64 {
	return t.next
}
