package pipeline

import "github.com/dommurphy155/tiktokbot2/internal/core/domain"

// DiscoveryQueue is the bounded FIFO of URLs waiting to be downloaded.
// Unlike the ready cache it never evicts: the discovery loop checks
// HasRoom before pushing, and a push while full is a contract violation.
type DiscoveryQueue struct {
	capacity int
	items    []domain.ContentRef
}

// NewDiscoveryQueue creates a queue with the given capacity.
func NewDiscoveryQueue(capacity int) *DiscoveryQueue {
	return &DiscoveryQueue{capacity: capacity}
}

// HasRoom reports whether a push would be accepted.
func (q *DiscoveryQueue) HasRoom() bool { return len(q.items) < q.capacity }

// Push appends ref. Fails with domain.ErrQueueFull when at capacity.
func (q *DiscoveryQueue) Push(ref domain.ContentRef) error {
	if !q.HasRoom() {
		return domain.ErrQueueFull
	}
	q.items = append(q.items, ref)
	return nil
}

// Pop removes and returns the front. Fails with domain.ErrNotFound when
// empty; callers check Len or handle the error, it never blocks.
func (q *DiscoveryQueue) Pop() (domain.ContentRef, error) {
	if len(q.items) == 0 {
		return "", domain.ErrNotFound
	}
	ref := q.items[0]
	q.items = q.items[1:]
	return ref, nil
}

// Len returns the number of pending URLs.
func (q *DiscoveryQueue) Len() int { return len(q.items) }

// Capacity returns the configured bound.
func (q *DiscoveryQueue) Capacity() int { return q.capacity }
