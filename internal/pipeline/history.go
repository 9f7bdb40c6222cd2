package pipeline

import "github.com/dommurphy155/tiktokbot2/internal/core/domain"

// HistoryLog is the bounded sequence of artifacts already served, with a
// cursor marking the one currently displayed. The cursor is -1 exactly
// when the log is empty, and otherwise always a valid index. Only the
// methods here move it.
type HistoryLog struct {
	capacity int
	store    *ArtifactStore
	items    []*domain.Artifact
	cursor   int
}

// NewHistoryLog creates a log with the given capacity backed by store.
func NewHistoryLog(capacity int, store *ArtifactStore) *HistoryLog {
	return &HistoryLog{capacity: capacity, store: store, cursor: -1}
}

// PushPlayed appends a. On overflow the oldest entry is removed and its
// file deleted, unless it is the artifact just appended; the cursor shifts
// left with the slice so it keeps naming the same logical item. With
// advanceCursor the cursor then jumps to the new entry.
func (h *HistoryLog) PushPlayed(a *domain.Artifact, advanceCursor bool) {
	h.items = append(h.items, a)
	if len(h.items) > h.capacity {
		evicted := h.items[0]
		h.items = h.items[1:]
		if evicted.Path != a.Path {
			h.store.SafeDelete(evicted.Path)
		}
		if h.cursor > 0 {
			h.cursor--
		}
	}
	if advanceCursor {
		h.cursor = len(h.items) - 1
	} else if h.cursor < 0 && len(h.items) > 0 {
		h.cursor = 0
	}
}

// MovePrevious steps the cursor back one entry. Returns false at the
// oldest entry (or on an empty log); backward navigation never downloads.
func (h *HistoryLog) MovePrevious() (*domain.Artifact, int, bool) {
	if h.cursor <= 0 {
		return nil, h.cursor, false
	}
	h.cursor--
	return h.items[h.cursor], h.cursor, true
}

// Current returns the artifact under the cursor.
func (h *HistoryLog) Current() (*domain.Artifact, int, bool) {
	if h.cursor < 0 || h.cursor >= len(h.items) {
		return nil, -1, false
	}
	return h.items[h.cursor], h.cursor, true
}

// EvictOldestNonCurrent implements the janitor's history branch: delete
// the oldest entry unless it is the one on display; when it is, fall back
// to the second-oldest so the displayed file survives. Returns false when
// the current artifact is the only entry (or the log is empty).
func (h *HistoryLog) EvictOldestNonCurrent() bool {
	if len(h.items) == 0 {
		return false
	}
	currentPath := ""
	if h.cursor >= 0 && h.cursor < len(h.items) {
		currentPath = h.items[h.cursor].Path
	}
	oldest := h.items[0]
	if oldest.Path != currentPath {
		h.items = h.items[1:]
		h.store.SafeDelete(oldest.Path)
		if h.cursor > 0 {
			h.cursor--
		}
		return true
	}
	if len(h.items) >= 2 {
		second := h.items[1]
		h.items = append(h.items[:1], h.items[2:]...)
		h.store.SafeDelete(second.Path)
		if h.cursor > 1 {
			h.cursor--
		}
		return true
	}
	return false
}

// Len returns the number of entries.
func (h *HistoryLog) Len() int { return len(h.items) }

// CursorIndex returns the cursor position (-1 when empty).
func (h *HistoryLog) CursorIndex() int { return h.cursor }

// Paths lists the file paths in the log, oldest first.
func (h *HistoryLog) Paths() []string {
	out := make([]string, 0, len(h.items))
	for _, a := range h.items {
		out = append(out, a.Path)
	}
	return out
}
