package pipeline

import "github.com/dommurphy155/tiktokbot2/internal/core/domain"

// SeenTracker is a bounded recency window over discovered URLs. Membership
// in the set and presence in the insertion-order sequence always agree;
// identifiers leave the window strictly in insertion order.
type SeenTracker struct {
	max   int
	set   map[domain.ContentRef]struct{}
	order []domain.ContentRef
}

// NewSeenTracker creates a tracker holding at most max identifiers.
func NewSeenTracker(max int) *SeenTracker {
	return &SeenTracker{
		max: max,
		set: make(map[domain.ContentRef]struct{}, max),
	}
}

// MarkSeen records ref, evicting the oldest identifier first when the
// window is full. Already-known refs are a no-op.
func (t *SeenTracker) MarkSeen(ref domain.ContentRef) {
	if _, ok := t.set[ref]; ok {
		return
	}
	if len(t.order) >= t.max {
		t.evictOldest()
	}
	t.set[ref] = struct{}{}
	t.order = append(t.order, ref)
}

// IsSeen reports whether ref is inside the current window.
func (t *SeenTracker) IsSeen(ref domain.ContentRef) bool {
	_, ok := t.set[ref]
	return ok
}

// PruneIfNeeded trims back down to capacity. Idempotent.
func (t *SeenTracker) PruneIfNeeded() {
	for len(t.order) > t.max {
		t.evictOldest()
	}
}

// Len returns the number of identifiers in the window.
func (t *SeenTracker) Len() int { return len(t.order) }

func (t *SeenTracker) evictOldest() {
	oldest := t.order[0]
	t.order = t.order[1:]
	delete(t.set, oldest)
}
