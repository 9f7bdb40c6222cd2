package pipeline

import "github.com/dommurphy155/tiktokbot2/internal/core/domain"

// ReadyCache holds downloaded artifacts immediately servable. Its overflow
// policy is the opposite of the discovery queue's: pushing while full
// deletes the oldest artifact's file (and metadata) and ages it out, so
// the downloader never blocks on cache capacity.
type ReadyCache struct {
	capacity int
	store    *ArtifactStore
	items    []*domain.Artifact
}

// NewReadyCache creates a cache with the given capacity backed by store.
func NewReadyCache(capacity int, store *ArtifactStore) *ReadyCache {
	return &ReadyCache{capacity: capacity, store: store}
}

// Push inserts a, evicting and deleting the oldest entry first when full.
func (c *ReadyCache) Push(a *domain.Artifact) {
	if len(c.items) >= c.capacity {
		oldest := c.items[0]
		c.items = c.items[1:]
		c.store.SafeDelete(oldest.Path)
	}
	c.items = append(c.items, a)
}

// Pop moves the front artifact out of the cache. Fails with
// domain.ErrNotFound when empty.
func (c *ReadyCache) Pop() (*domain.Artifact, error) {
	if len(c.items) == 0 {
		return nil, domain.ErrNotFound
	}
	a := c.items[0]
	c.items = c.items[1:]
	return a, nil
}

// PopAndDelete removes the oldest entry and deletes its file. Used by the
// disk janitor. Returns false when the cache is empty.
func (c *ReadyCache) PopAndDelete() bool {
	a, err := c.Pop()
	if err != nil {
		return false
	}
	c.store.SafeDelete(a.Path)
	return true
}

// Len returns the number of ready artifacts.
func (c *ReadyCache) Len() int { return len(c.items) }

// Paths lists the file paths currently held, oldest first.
func (c *ReadyCache) Paths() []string {
	out := make([]string, 0, len(c.items))
	for _, a := range c.items {
		out = append(out, a.Path)
	}
	return out
}
