package consumer

import "testing"

func TestOffsetTracker_AdvancesOnlyContiguously(t *testing.T) {
	tr := newOffsetTracker(0)

	tr.mark(1)
	if got := tr.readyOffset(); got != 0 {
		t.Fatalf("expected 0 (offset 0 still outstanding), got %d", got)
	}

	tr.mark(0)
	if got := tr.readyOffset(); got != 2 {
		t.Fatalf("expected 2 after 0 and 1 both marked, got %d", got)
	}

	tr.mark(5)
	if got := tr.readyOffset(); got != 2 {
		t.Fatalf("expected 2 (gap at 2,3,4), got %d", got)
	}

	tr.mark(2)
	tr.mark(3)
	tr.mark(4)
	if got := tr.readyOffset(); got != 6 {
		t.Fatalf("expected 6 after gap fills, got %d", got)
	}
}

func TestOffsetTracker_IgnoresOffsetsBelowNext(t *testing.T) {
	tr := newOffsetTracker(3)
	tr.mark(1)
	if got := tr.readyOffset(); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}
