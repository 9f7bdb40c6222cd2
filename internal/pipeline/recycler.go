package pipeline

import (
	"fmt"
	"sync"

	"github.com/dommurphy155/tiktokbot2/internal/core/ports"
)

// Recycler decides when the browser session has run long enough to be torn
// down and relaunched: either the preload counter crosses its threshold or
// sampled resident memory crosses the soft limit. Memory sampling is
// best-effort; when the sampler reports unknown, only the counter applies.
type Recycler struct {
	mu               sync.Mutex
	preloads         int
	restartThreshold int
	memSoftLimitMB   int64
	sampler          ports.MemorySampler
}

// NewRecycler creates a recycler. A restartThreshold of 0 disables the
// counter trigger; a nil sampler disables the memory trigger.
func NewRecycler(restartThreshold int, memSoftLimitMB int64, sampler ports.MemorySampler) *Recycler {
	return &Recycler{
		restartThreshold: restartThreshold,
		memSoftLimitMB:   memSoftLimitMB,
		sampler:          sampler,
	}
}

// NotePreload increments the counter, once per freshly queued URL.
func (r *Recycler) NotePreload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preloads++
}

// Preloads returns the current counter value.
func (r *Recycler) Preloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preloads
}

// Reset zeroes the counter after a restart.
func (r *Recycler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preloads = 0
}

// NeedsRestart reports whether the session should be recycled, with a
// human-readable reason for the log.
func (r *Recycler) NeedsRestart() (bool, string) {
	r.mu.Lock()
	preloads := r.preloads
	r.mu.Unlock()

	if r.restartThreshold > 0 && preloads >= r.restartThreshold {
		return true, fmt.Sprintf("%d preloads reached restart threshold %d", preloads, r.restartThreshold)
	}
	if r.sampler != nil && r.memSoftLimitMB > 0 {
		if rssMB, ok := r.sampler.ResidentMB(); ok && rssMB >= r.memSoftLimitMB {
			return true, fmt.Sprintf("resident memory %d MB reached soft limit %d MB", rssMB, r.memSoftLimitMB)
		}
	}
	return false, ""
}
