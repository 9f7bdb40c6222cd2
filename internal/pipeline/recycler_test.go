package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSampler struct {
	rssMB int64
	ok    bool
}

func (f fakeSampler) ResidentMB() (int64, bool) { return f.rssMB, f.ok }

func TestRecycler_CounterThreshold(t *testing.T) {
	r := NewRecycler(3, 0, nil)

	for i := 0; i < 2; i++ {
		r.NotePreload()
		need, _ := r.NeedsRestart()
		assert.False(t, need)
	}

	r.NotePreload()
	need, reason := r.NeedsRestart()
	assert.True(t, need)
	assert.Contains(t, reason, "preloads")

	r.Reset()
	need, _ = r.NeedsRestart()
	assert.False(t, need)
	assert.Equal(t, 0, r.Preloads())
}

func TestRecycler_MemorySoftLimit(t *testing.T) {
	r := NewRecycler(0, 1200, fakeSampler{rssMB: 1500, ok: true})
	need, reason := r.NeedsRestart()
	assert.True(t, need)
	assert.Contains(t, reason, "resident memory")
}

func TestRecycler_UnknownSampleFallsBackToCounter(t *testing.T) {
	// A sampler that cannot sample is a valid state, not an error: only
	// the counter applies.
	r := NewRecycler(2, 1200, fakeSampler{ok: false})

	need, _ := r.NeedsRestart()
	assert.False(t, need)

	r.NotePreload()
	r.NotePreload()
	need, _ = r.NeedsRestart()
	assert.True(t, need)
}

func TestRecycler_DisabledTriggers(t *testing.T) {
	r := NewRecycler(0, 0, fakeSampler{rssMB: 9999, ok: true})
	r.NotePreload()
	need, _ := r.NeedsRestart()
	assert.False(t, need, "zero thresholds disable both triggers")
}
