package pipeline

import (
	"github.com/dustin/go-humanize"

	"github.com/dommurphy155/tiktokbot2/internal/logging"
)

// maxReclaimIterations bounds the reclamation loop so a constraint that
// eviction can never satisfy cannot spin forever.
const maxReclaimIterations = 100

// FreeSpaceFunc reports the free bytes on the volume holding dir.
// Production uses gopsutil; tests inject a stub.
type FreeSpaceFunc func(dir string) (int64, error)

// Janitor reclaims disk space in the output directory until the tracked
// bytes fit the quota and the volume keeps its free-space reserve. It
// walks a strict ladder: stale untracked files, then the oldest
// non-current history entry, then the oldest ready artifact, then
// untracked files by age, re-checking both constraints after every single
// deletion. It never deletes the artifact on display while any other
// candidate exists.
type Janitor struct {
	store        *ArtifactStore
	history      *HistoryLog
	cache        *ReadyCache
	quotaBytes   int64
	reserveBytes int64
	freeSpace    FreeSpaceFunc
	logger       *logging.Logger
}

// NewJanitor wires the janitor over the shared containers.
func NewJanitor(store *ArtifactStore, history *HistoryLog, cache *ReadyCache, quotaBytes, reserveBytes int64, freeSpace FreeSpaceFunc, logger *logging.Logger) *Janitor {
	return &Janitor{
		store:        store,
		history:      history,
		cache:        cache,
		quotaBytes:   quotaBytes,
		reserveBytes: reserveBytes,
		freeSpace:    freeSpace,
		logger:       logger,
	}
}

// Sweep deletes tracked-extension files no container references.
func (j *Janitor) Sweep() {
	j.store.Sweep(j.keepSet())
}

// EnforceBudget runs the sweep and then the reclamation ladder. Callers
// hold the state lock; everything here is pure container and filesystem
// work.
func (j *Janitor) EnforceBudget() {
	j.Sweep()
	for i := 0; ; i++ {
		if j.constraintsOK() {
			return
		}
		if i >= maxReclaimIterations {
			j.logger.Warn("disk janitor safety stop hit", "iterations", i)
			return
		}
		if j.history.EvictOldestNonCurrent() {
			continue
		}
		if j.cache.PopAndDelete() {
			continue
		}
		if path := j.store.OldestUntracked(j.keepSet()); path != "" {
			j.store.SafeDelete(path)
			continue
		}
		j.logger.Warn("disk budget unsatisfied with nothing left to delete",
			"used", humanize.Bytes(uint64(j.store.FolderSize())),
			"quota", humanize.Bytes(uint64(j.quotaBytes)))
		return
	}
}

func (j *Janitor) constraintsOK() bool {
	if j.store.FolderSize() > j.quotaBytes {
		return false
	}
	free, err := j.freeSpace(j.store.Dir())
	if err != nil {
		// Free-space sampling is best-effort; fall back to quota only.
		j.logger.Debug("free space check unavailable", "error", err)
		return true
	}
	return free >= j.reserveBytes
}

func (j *Janitor) keepSet() map[string]struct{} {
	keep := make(map[string]struct{})
	for _, p := range j.history.Paths() {
		keep[p] = struct{}{}
	}
	for _, p := range j.cache.Paths() {
		keep[p] = struct{}{}
	}
	return keep
}
