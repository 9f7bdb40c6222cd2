package pipeline

import (
	"sync"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
	"github.com/dommurphy155/tiktokbot2/internal/logging"
)

// Options configures a State.
type Options struct {
	QueueCapacity   int
	CacheCapacity   int
	HistoryCapacity int
	SeenWindow      int
	DiskQuotaBytes  int64
	ReserveBytes    int64
	FreeSpace       FreeSpaceFunc
}

// State owns every bounded container and the per-chat post flows. One
// mutex serializes all mutation: operations routinely span several
// containers (evict from cache, delete the file, drop its metadata) and
// must land atomically. Nothing long-running ever runs under the lock.
type State struct {
	mu sync.Mutex

	store   *ArtifactStore
	seen    *SeenTracker
	queue   *DiscoveryQueue
	cache   *ReadyCache
	history *HistoryLog
	janitor *Janitor
	flows   map[int64]*PostFlow

	logger *logging.Logger
}

// NewState builds the container group over store.
func NewState(store *ArtifactStore, opts Options, logger *logging.Logger) *State {
	cache := NewReadyCache(opts.CacheCapacity, store)
	history := NewHistoryLog(opts.HistoryCapacity, store)
	return &State{
		store:   store,
		seen:    NewSeenTracker(opts.SeenWindow),
		queue:   NewDiscoveryQueue(opts.QueueCapacity),
		cache:   cache,
		history: history,
		janitor: NewJanitor(store, history, cache, opts.DiskQuotaBytes, opts.ReserveBytes, opts.FreeSpace, logger),
		flows:   make(map[int64]*PostFlow),
		logger:  logger,
	}
}

// ---- seen window ----

// MarkSeen records a discovered URL in the recency window.
func (s *State) MarkSeen(ref domain.ContentRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen.MarkSeen(ref)
}

// IsSeen reports whether ref was discovered within the current window.
func (s *State) IsSeen(ref domain.ContentRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen.IsSeen(ref)
}

// PruneSeen trims the window back to capacity.
func (s *State) PruneSeen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen.PruneIfNeeded()
}

// ---- discovery queue ----

// QueueHasRoom reports whether another URL may be enqueued.
func (s *State) QueueHasRoom() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.HasRoom()
}

// QueueLen returns the number of pending URLs.
func (s *State) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// EnqueueURL appends a discovered URL. The caller must have confirmed
// room; ErrQueueFull here means it did not.
func (s *State) EnqueueURL(ref domain.ContentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Push(ref)
}

// DequeueURL pops the next URL to download, or ErrNotFound.
func (s *State) DequeueURL() (domain.ContentRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Pop()
}

// ---- ready cache ----

// CacheLen returns the number of ready artifacts.
func (s *State) CacheLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// PublishArtifact lands a downloaded artifact in the ready cache, aging
// out the oldest entry when full, and records its metadata.
func (s *State) PublishArtifact(a *domain.Artifact, meta *domain.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetMetadata(a.Path, meta)
	s.cache.Push(a)
}

// ---- serving & navigation ----

// ServeNextFromCache moves the oldest ready artifact into history,
// advances the cursor onto it and sweeps stale files. ErrNotFound when
// the cache is empty.
func (s *State) ServeNextFromCache() (*domain.Artifact, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.cache.Pop()
	if err != nil {
		return nil, -1, err
	}
	s.history.PushPlayed(a, true)
	s.janitor.Sweep()
	return a, s.history.CursorIndex(), nil
}

// ServePlayed records a freshly downloaded artifact straight into history
// (the cache-empty fallback path) and advances the cursor onto it.
func (s *State) ServePlayed(a *domain.Artifact, meta *domain.Metadata) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetMetadata(a.Path, meta)
	s.history.PushPlayed(a, true)
	s.janitor.Sweep()
	return s.history.CursorIndex()
}

// StepBack moves the cursor to the previous history entry. Returns false
// at the boundary; going back never triggers a download.
func (s *State) StepBack() (*domain.Artifact, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.MovePrevious()
}

// Current returns the artifact on display.
func (s *State) Current() (*domain.Artifact, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Current()
}

// HistoryLen returns the number of history entries.
func (s *State) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

// ---- metadata ----

// Metadata returns the stored metadata for path.
func (s *State) Metadata(path string) (*domain.Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Metadata(path)
}

// SetMetadata records metadata for path.
func (s *State) SetMetadata(path string, meta *domain.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetMetadata(path, meta)
}

// ---- maintenance ----

// CleanupSweep deletes tracked files no container references.
func (s *State) CleanupSweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.janitor.Sweep()
}

// EnforceBudget runs the full disk reclamation ladder.
func (s *State) EnforceBudget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.janitor.EnforceBudget()
}

// ---- post flows ----

// BeginPostFlow opens a flow for chatID over the current artifact,
// replacing any stale flow for that chat. ErrNotFound when nothing is on
// display.
func (s *State) BeginPostFlow(chatID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, _, ok := s.history.Current()
	if !ok {
		return "", domain.ErrNotFound
	}
	s.flows[chatID] = NewPostFlow(a.Path)
	return a.Path, nil
}

// HasFlow reports whether chatID has a flow in progress.
func (s *State) HasFlow(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.flows[chatID]
	return ok
}

// AddFlowPrompt remembers a prompt message for cleanup.
func (s *State) AddFlowPrompt(chatID int64, msgID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flows[chatID]; ok {
		f.AddPromptID(msgID)
	}
}

// FlowSubmitComment advances a StageComment flow. It returns the prompt
// IDs to delete and whether the submission applied.
func (s *State) FlowSubmitComment(chatID int64, text string) ([]int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[chatID]
	if !ok || !f.SubmitComment(text) {
		return nil, false
	}
	return f.TakePromptIDs(), true
}

// FlowSubmitHashtags advances a StageHashtags flow, returning the
// assembled post request and the prompt IDs to delete.
func (s *State) FlowSubmitHashtags(chatID int64, text string) (domain.PostRequest, []int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[chatID]
	if !ok {
		return domain.PostRequest{}, nil, false
	}
	req, advanced := f.SubmitHashtags(text)
	if !advanced {
		return domain.PostRequest{}, nil, false
	}
	return req, f.TakePromptIDs(), true
}

// EndPostFlow drops the flow once the upload is handed off.
func (s *State) EndPostFlow(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, chatID)
}
