package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
)

func TestReadyCache_OverflowDeletesOldest(t *testing.T) {
	store := newTestStore(t)
	cache := NewReadyCache(1, store)

	a := writeArtifact(t, store, "a.mp4", 10)
	b := writeArtifact(t, store, "b.mp4", 10)
	store.SetMetadata(a.Path, &domain.Metadata{Caption: "first"})

	cache.Push(a)
	cache.Push(b)

	assert.Equal(t, 1, cache.Len())
	assert.False(t, fileExists(t, store, a.Path), "evicted artifact file must be deleted")
	assert.True(t, fileExists(t, store, b.Path))

	_, ok := store.Metadata(a.Path)
	assert.False(t, ok, "evicted artifact metadata must be purged")
}

func TestReadyCache_NeverExceedsCapacity(t *testing.T) {
	store := newTestStore(t)
	cache := NewReadyCache(3, store)

	for i := 0; i < 10; i++ {
		cache.Push(writeArtifact(t, store, fmt.Sprintf("v%d.mp4", i), 5))
		assert.LessOrEqual(t, cache.Len(), 3)
	}
	assert.Equal(t, 3, cache.Len())
	assert.Equal(t, []string{"/downloads/v7.mp4", "/downloads/v8.mp4", "/downloads/v9.mp4"}, cache.Paths())
}

func TestReadyCache_PopIsAMove(t *testing.T) {
	store := newTestStore(t)
	cache := NewReadyCache(3, store)
	a := writeArtifact(t, store, "a.mp4", 5)
	cache.Push(a)

	got, err := cache.Pop()
	require.NoError(t, err)
	assert.Equal(t, a, got)
	assert.Equal(t, 0, cache.Len())
	assert.True(t, fileExists(t, store, a.Path), "pop hands the file over, it must not delete it")

	_, err = cache.Pop()
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReadyCache_PopAndDelete(t *testing.T) {
	store := newTestStore(t)
	cache := NewReadyCache(3, store)
	a := writeArtifact(t, store, "a.mp4", 5)
	cache.Push(a)

	assert.True(t, cache.PopAndDelete())
	assert.False(t, fileExists(t, store, a.Path))
	assert.False(t, cache.PopAndDelete(), "empty cache has nothing to delete")
}
