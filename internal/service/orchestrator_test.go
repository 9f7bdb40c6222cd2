package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
	"github.com/dommurphy155/tiktokbot2/internal/logging"
	"github.com/dommurphy155/tiktokbot2/internal/pipeline"
)

// ---- collaborator stubs ----

type stubDiscoverer struct {
	mu   sync.Mutex
	next int
	err  error
}

func (d *stubDiscoverer) DiscoverFresh(_ context.Context, seen func(domain.ContentRef) bool) (domain.ContentRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", d.err
	}
	for {
		d.next++
		url := fmt.Sprintf("https://www.tiktok.com/@u/video/%d", d.next)
		if !seen(url) {
			return url, nil
		}
	}
}

type stubDownloader struct {
	fs   afero.Fs
	dir  string
	err  error
	mu   sync.Mutex
	seen []domain.ContentRef
}

func (s *stubDownloader) Download(_ context.Context, ref domain.ContentRef) (*domain.Artifact, *domain.Metadata, error) {
	s.mu.Lock()
	s.seen = append(s.seen, ref)
	s.mu.Unlock()
	if s.err != nil {
		return nil, nil, s.err
	}
	name := filepath.Base(ref) + ".mp4"
	path := filepath.Join(s.dir, name)
	if err := afero.WriteFile(s.fs, path, []byte("video"), 0o644); err != nil {
		return nil, nil, err
	}
	return &domain.Artifact{Path: path, SourceURL: ref, DownloadedAt: time.Now()},
		&domain.Metadata{Duration: 20, Caption: "cap " + name}, nil
}

func (s *stubDownloader) downloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

type stubExtractor struct {
	meta *domain.Metadata
	err  error
}

func (s *stubExtractor) Extract(context.Context, domain.ContentRef) (*domain.Metadata, error) {
	return s.meta, s.err
}

type presentation struct {
	path     string
	navIndex int
	leadText string
}

type stubNotifier struct {
	mu          sync.Mutex
	presented   []presentation
	prompts     []string
	deleted     [][]int
	processing  int
	nextMsgID   int
	presentErr  error
	promptError error
}

func (n *stubNotifier) PresentArtifact(_ context.Context, a *domain.Artifact, navIndex int, leadText string, _ *domain.Metadata) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.presentErr != nil {
		return n.presentErr
	}
	n.presented = append(n.presented, presentation{path: a.Path, navIndex: navIndex, leadText: leadText})
	return nil
}

func (n *stubNotifier) SendPrompt(_ context.Context, _ int64, text string) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.promptError != nil {
		return 0, n.promptError
	}
	n.prompts = append(n.prompts, text)
	n.nextMsgID++
	return n.nextMsgID, nil
}

func (n *stubNotifier) SendProcessingNotice(context.Context, int64) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.processing++
	n.nextMsgID++
	return n.nextMsgID, nil
}

func (n *stubNotifier) DeleteMessages(_ context.Context, _ int64, ids []int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, ids)
}

func (n *stubNotifier) lastPresented(t *testing.T) presentation {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.presented)
	return n.presented[len(n.presented)-1]
}

type stubSession struct {
	mu       sync.Mutex
	starts   int
	stops    int
	applies  int
	posted   []domain.PostRequest
	postDone chan struct{}
	startErr error
}

func (s *stubSession) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.starts++
	return nil
}

func (s *stubSession) ApplyStoredCredentials(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applies++
	return nil
}

func (s *stubSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *stubSession) Post(_ context.Context, req domain.PostRequest) error {
	s.mu.Lock()
	s.posted = append(s.posted, req)
	s.mu.Unlock()
	if s.postDone != nil {
		close(s.postDone)
	}
	return nil
}

// ---- fixture ----

type fixture struct {
	orch       *Orchestrator
	state      *pipeline.State
	store      *pipeline.ArtifactStore
	fs         afero.Fs
	discoverer *stubDiscoverer
	downloader *stubDownloader
	notifier   *stubNotifier
	session    *stubSession
	recycler   *pipeline.Recycler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	logger := logging.Discard()
	store, err := pipeline.NewArtifactStore(fs, "/downloads", logger)
	require.NoError(t, err)

	state := pipeline.NewState(store, pipeline.Options{
		QueueCapacity:   3,
		CacheCapacity:   3,
		HistoryCapacity: 3,
		SeenWindow:      250,
		DiskQuotaBytes:  1 << 30,
		ReserveBytes:    0,
		FreeSpace:       func(string) (int64, error) { return 1 << 40, nil },
	}, logger)

	f := &fixture{
		state:      state,
		store:      store,
		fs:         fs,
		discoverer: &stubDiscoverer{},
		downloader: &stubDownloader{fs: fs, dir: "/downloads"},
		notifier:   &stubNotifier{},
		session:    &stubSession{},
		recycler:   pipeline.NewRecycler(200, 0, nil),
	}
	f.orch = New(state, f.recycler, f.discoverer, f.downloader, &stubExtractor{}, f.notifier, f.session, 3, logger)
	return f
}

func (f *fixture) publish(t *testing.T, name string) *domain.Artifact {
	t.Helper()
	path := filepath.Join("/downloads", name)
	require.NoError(t, afero.WriteFile(f.fs, path, []byte("video"), 0o644))
	a := &domain.Artifact{Path: path, SourceURL: "https://www.tiktok.com/video/x"}
	f.state.PublishArtifact(a, &domain.Metadata{Duration: 10})
	return a
}

// ---- tests ----

func TestStartup(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Startup(context.Background()))

	assert.Equal(t, 1, f.session.starts)
	assert.Equal(t, 1, f.session.applies)
	assert.Equal(t, 1, f.state.HistoryLen(), "first video played")
	assert.Equal(t, 1, f.state.CacheLen(), "second video held ready")
	assert.GreaterOrEqual(t, f.state.QueueLen(), 1)
	assert.Equal(t, 2, f.downloader.downloads())

	first := f.notifier.lastPresented(t)
	assert.Equal(t, 0, first.navIndex)
	assert.NotEmpty(t, first.leadText, "first presentation carries the welcome text")
	assert.Equal(t, 3, f.recycler.Preloads())
}

func TestStartup_FirstDownloadFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.downloader.err = errors.New("boom")
	err := f.orch.Startup(context.Background())
	assert.ErrorIs(t, err, domain.ErrFatal)
}

func TestStartup_NoSessionIsFatal(t *testing.T) {
	f := newFixture(t)
	f.session.startErr = fmt.Errorf("no browser: %w", domain.ErrFatal)
	err := f.orch.Startup(context.Background())
	assert.ErrorIs(t, err, domain.ErrFatal)
}

func TestOnNext_ServesFromCache(t *testing.T) {
	f := newFixture(t)
	a := f.publish(t, "ready.mp4")

	require.NoError(t, f.orch.OnNext(context.Background()))

	got := f.notifier.lastPresented(t)
	assert.Equal(t, a.Path, got.path)
	assert.Equal(t, 0, got.navIndex)
	assert.Equal(t, 0, f.state.CacheLen())
	assert.Zero(t, f.downloader.downloads(), "cache hit needs no download")
}

func TestOnNext_FallsBackToQueueDownload(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.state.EnqueueURL("https://www.tiktok.com/@u/video/55"))

	require.NoError(t, f.orch.OnNext(context.Background()))

	assert.Equal(t, 1, f.downloader.downloads())
	assert.Equal(t, 1, f.state.HistoryLen())
	got := f.notifier.lastPresented(t)
	assert.Equal(t, 0, got.navIndex)
}

func TestOnNext_NothingAvailable(t *testing.T) {
	f := newFixture(t)
	err := f.orch.OnNext(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOnPrevious(t *testing.T) {
	f := newFixture(t)

	// Boundary: empty history is a logged no-op, not an error.
	require.NoError(t, f.orch.OnPrevious(context.Background()))
	assert.Empty(t, f.notifier.presented)

	f.publish(t, "a.mp4")
	f.publish(t, "b.mp4")
	require.NoError(t, f.orch.OnNext(context.Background()))
	require.NoError(t, f.orch.OnNext(context.Background()))

	require.NoError(t, f.orch.OnPrevious(context.Background()))
	got := f.notifier.lastPresented(t)
	assert.Equal(t, 0, got.navIndex)

	// At the oldest entry now; going back again presents nothing new.
	count := len(f.notifier.presented)
	require.NoError(t, f.orch.OnPrevious(context.Background()))
	assert.Len(t, f.notifier.presented, count)
}

func TestPostFlow_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.session.postDone = make(chan struct{})
	a := f.publish(t, "clip.mp4")
	require.NoError(t, f.orch.OnNext(context.Background()))

	const chatID = int64(42)
	require.NoError(t, f.orch.OnPost(context.Background(), chatID))
	require.Equal(t, []string{"What would you like to comment?"}, f.notifier.prompts)

	require.NoError(t, f.orch.OnText(context.Background(), chatID, "my comment"))
	require.Len(t, f.notifier.prompts, 2)
	assert.Equal(t, "What would you like as your #?", f.notifier.prompts[1])
	assert.Len(t, f.notifier.deleted, 1, "answered prompt removed")

	require.NoError(t, f.orch.OnText(context.Background(), chatID, "#fyp #lol"))
	assert.Equal(t, 1, f.notifier.processing)
	assert.False(t, f.state.HasFlow(chatID), "flow deleted on handoff")

	select {
	case <-f.session.postDone:
	case <-time.After(2 * time.Second):
		t.Fatal("background post never ran")
	}
	assert.Equal(t, a.Path, f.session.posted[0].VideoPath)
	assert.Equal(t, "my comment", f.session.posted[0].Comment)
	assert.Equal(t, []string{"#fyp", "#lol"}, f.session.posted[0].Hashtags)
}

func TestOnPost_NoCurrentVideo(t *testing.T) {
	f := newFixture(t)
	err := f.orch.OnPost(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOnText_WithoutFlowIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.OnText(context.Background(), 42, "random chatter"))
	assert.Empty(t, f.notifier.prompts)
}

func TestRefillOnce_KeepsCacheAndQueueTopped(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.state.EnqueueURL("https://www.tiktok.com/@u/video/1"))

	require.NoError(t, f.orch.refillOnce(context.Background()))

	assert.Equal(t, 1, f.state.CacheLen(), "low-water mark triggered a download")
	assert.Equal(t, 3, f.state.QueueLen(), "queue topped back to capacity")
}

func TestRefillOnce_AbsorbsRejectedDownloads(t *testing.T) {
	f := newFixture(t)
	f.downloader.err = fmt.Errorf("too long: %w", domain.ErrRejected)
	require.NoError(t, f.state.EnqueueURL("https://www.tiktok.com/@u/video/1"))

	require.NoError(t, f.orch.refillOnce(context.Background()))
	assert.Equal(t, 0, f.state.CacheLen(), "rejected item skipped without failing the cycle")
}

func TestFillQueue_MarksSeenAndCountsPreloads(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.fillQueue(context.Background(), 3))

	assert.Equal(t, 3, f.state.QueueLen())
	assert.Equal(t, 3, f.recycler.Preloads())
	assert.True(t, f.state.IsSeen("https://www.tiktok.com/@u/video/1"))

	// A second fill finds only unseen URLs.
	_, err := f.state.DequeueURL()
	require.NoError(t, err)
	require.NoError(t, f.orch.fillQueue(context.Background(), 3))
	ref, err := f.state.DequeueURL()
	require.NoError(t, err)
	assert.Equal(t, "https://www.tiktok.com/@u/video/2", ref)
}

func TestRecycleIfNeeded(t *testing.T) {
	f := newFixture(t)
	recycler := pipeline.NewRecycler(1, 0, nil)
	f.orch.recycler = recycler
	recycler.NotePreload()

	f.orch.recycleIfNeeded(context.Background())

	assert.Equal(t, 1, f.session.stops)
	assert.Equal(t, 1, f.session.starts)
	assert.Equal(t, 1, f.session.applies)
	assert.Equal(t, 0, recycler.Preloads(), "counter reset after successful restart")
}

func TestShutdown(t *testing.T) {
	f := newFixture(t)
	stale := filepath.Join("/downloads", "stale.mp4")
	require.NoError(t, afero.WriteFile(f.fs, stale, []byte("x"), 0o644))

	f.orch.Shutdown()

	exists, err := afero.Exists(f.fs, stale)
	require.NoError(t, err)
	assert.False(t, exists, "final cleanup pass ran")
	assert.Equal(t, 1, f.session.stops)
}
