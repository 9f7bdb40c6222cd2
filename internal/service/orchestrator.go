// Package service drives the discover → download → cache → serve → evict
// cycle and answers the chat's navigation requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
	"github.com/dommurphy155/tiktokbot2/internal/core/ports"
	"github.com/dommurphy155/tiktokbot2/internal/logging"
	"github.com/dommurphy155/tiktokbot2/internal/pipeline"
)

const welcomeText = "Welcome to your TikTok Video Scraper! 🎉 " +
	"Enjoy seamless browsing of fresh TikTok content with our intuitive 'Next' and 'Previous' buttons. " +
	"Please note that video sending may take up to 10 seconds due to Telegram's processing."

const (
	refillInterval   = time.Second
	refillErrorPause = 5 * time.Second
	restartPause     = 500 * time.Millisecond
)

// Orchestrator owns the pipeline cycle. Collaborator calls run outside the
// state lock; results are published back through State methods.
type Orchestrator struct {
	state      *pipeline.State
	recycler   *pipeline.Recycler
	discoverer ports.ContentDiscoverer
	downloader ports.ArtifactDownloader
	extractor  ports.MetadataExtractor
	notifier   ports.Notifier
	session    ports.RuntimeSession

	queueTarget int
	logger      *logging.Logger
}

// New wires the orchestrator. queueTarget is the steady-state number of
// pending URLs (the discovery queue's capacity).
func New(
	state *pipeline.State,
	recycler *pipeline.Recycler,
	discoverer ports.ContentDiscoverer,
	downloader ports.ArtifactDownloader,
	extractor ports.MetadataExtractor,
	notifier ports.Notifier,
	session ports.RuntimeSession,
	queueTarget int,
	logger *logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		state:       state,
		recycler:    recycler,
		discoverer:  discoverer,
		downloader:  downloader,
		extractor:   extractor,
		notifier:    notifier,
		session:     session,
		queueTarget: queueTarget,
		logger:      logger,
	}
}

// Startup brings the pipeline to its serving state: session up, queue
// full, first video played and presented, second video ready in cache.
// Any failure to produce the first video is fatal.
func (o *Orchestrator) Startup(ctx context.Context) error {
	if err := o.session.Start(ctx); err != nil {
		return err
	}
	if err := o.session.ApplyStoredCredentials(ctx); err != nil {
		return fmt.Errorf("could not establish session: %w", domain.ErrFatal)
	}

	if err := o.fillQueue(ctx, o.queueTarget); err != nil {
		return fmt.Errorf("could not preload any content: %w", domain.ErrFatal)
	}
	o.logger.Info("preloaded video queue", "pending", o.state.QueueLen())

	first, meta, err := o.downloadNext(ctx)
	if err != nil {
		return fmt.Errorf("failed to download first video: %w", domain.ErrFatal)
	}
	idx := o.state.ServePlayed(first, meta)

	if second, secondMeta, err := o.downloadNext(ctx); err != nil {
		o.logger.Warn("failed to download second startup video", "error", err)
	} else {
		o.state.PublishArtifact(second, secondMeta)
		o.logger.Info("second video ready for immediate next", "path", second.Path)
	}

	if err := o.fillQueue(ctx, 1); err != nil {
		o.logger.Warn("could not top up queue after startup downloads", "error", err)
	}

	o.state.CleanupSweep()
	o.state.EnforceBudget()

	if err := o.present(ctx, first, idx, welcomeText); err != nil {
		o.logger.Error("failed to present first video", "error", err)
	}
	return nil
}

// RunRefill keeps one artifact ready and the queue topped up, on a short
// cadence. Failures pause the loop briefly and never stop it.
func (o *Orchestrator) RunRefill(ctx context.Context) {
	for {
		delay := refillInterval
		if err := o.refillOnce(ctx); err != nil {
			o.logger.Warn("refill cycle failed", "error", err)
			delay = refillErrorPause
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (o *Orchestrator) refillOnce(ctx context.Context) error {
	if o.state.CacheLen() < 1 && o.state.QueueLen() > 0 {
		artifact, meta, err := o.downloadNext(ctx)
		switch {
		case errors.Is(err, domain.ErrRejected):
			o.logger.Info("skipped video during refill", "error", err)
		case err != nil:
			return err
		default:
			o.state.PublishArtifact(artifact, meta)
			o.logger.Info("pre-downloaded next video", "path", artifact.Path)
		}
	}
	return o.fillQueue(ctx, o.queueTarget)
}

// RunMaintenance is the janitor cadence: sweep, enforce the disk budget,
// prune the seen window, recycle the browser if due. A failed cycle never
// stops future cycles.
func (o *Orchestrator) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.state.CleanupSweep()
			o.state.EnforceBudget()
			o.state.PruneSeen()
			o.recycleIfNeeded(ctx)
		}
	}
}

// Shutdown runs the teardown tail: one final cleanup pass, then the
// browser session. Each step tolerates the previous one failing. The
// caller has already stopped the work loops.
func (o *Orchestrator) Shutdown() {
	o.state.CleanupSweep()
	if err := o.session.Stop(); err != nil {
		o.logger.Warn("failed to stop browser session", "error", err)
	}
}

// OnNext serves the next video: from the ready cache when possible, via a
// direct download when not, and ErrNotFound when both the cache and the
// queue are empty.
func (o *Orchestrator) OnNext(ctx context.Context) error {
	artifact, idx, err := o.state.ServeNextFromCache()
	if errors.Is(err, domain.ErrNotFound) {
		downloaded, meta, derr := o.downloadNext(ctx)
		if derr != nil {
			if errors.Is(derr, domain.ErrNotFound) {
				return fmt.Errorf("nothing left to serve: %w", domain.ErrNotFound)
			}
			return fmt.Errorf("fallback download for next failed: %w", derr)
		}
		artifact = downloaded
		idx = o.state.ServePlayed(downloaded, meta)
	} else if err != nil {
		return err
	}
	return o.present(ctx, artifact, idx, "")
}

// OnPrevious replays the previous history entry. At the oldest entry it is
// a logged no-op; going back never downloads.
func (o *Orchestrator) OnPrevious(ctx context.Context) error {
	artifact, idx, ok := o.state.StepBack()
	if !ok {
		o.logger.Warn("already at the first video")
		return nil
	}
	o.logger.Info("moving to previous video", "index", idx)
	return o.present(ctx, artifact, idx, "")
}

// OnPost opens the two-step post conversation for chatID over the current
// artifact.
func (o *Orchestrator) OnPost(ctx context.Context, chatID int64) error {
	if _, err := o.state.BeginPostFlow(chatID); err != nil {
		return fmt.Errorf("no current video to post: %w", err)
	}
	msgID, err := o.notifier.SendPrompt(ctx, chatID, "What would you like to comment?")
	if err != nil {
		o.state.EndPostFlow(chatID)
		return err
	}
	o.state.AddFlowPrompt(chatID, msgID)
	return nil
}

// OnText advances chatID's post flow with the user's reply. Text from a
// chat without a flow is ignored.
func (o *Orchestrator) OnText(ctx context.Context, chatID int64, text string) error {
	if promptIDs, ok := o.state.FlowSubmitComment(chatID, text); ok {
		o.notifier.DeleteMessages(ctx, chatID, promptIDs)
		msgID, err := o.notifier.SendPrompt(ctx, chatID, "What would you like as your #?")
		if err != nil {
			return err
		}
		o.state.AddFlowPrompt(chatID, msgID)
		return nil
	}

	if req, promptIDs, ok := o.state.FlowSubmitHashtags(chatID, text); ok {
		o.notifier.DeleteMessages(ctx, chatID, promptIDs)
		if _, err := o.notifier.SendProcessingNotice(ctx, chatID); err != nil {
			o.logger.Warn("failed to send processing notice", "error", err)
		}
		o.state.EndPostFlow(chatID)

		go func() {
			if err := o.session.Post(context.Background(), req); err != nil {
				o.logger.Warn("background post failed", "path", req.VideoPath, "error", err)
				return
			}
			o.logger.Info("background post succeeded", "path", req.VideoPath)
		}()
		return nil
	}

	return nil
}

// downloadNext pops the next queued URL and downloads it. The job ID ties
// the log lines of one attempt together.
func (o *Orchestrator) downloadNext(ctx context.Context) (*domain.Artifact, *domain.Metadata, error) {
	ref, err := o.state.DequeueURL()
	if err != nil {
		return nil, nil, err
	}
	jobID := uuid.New().String()
	o.logger.Info("downloading", "job", jobID, "url", ref)
	artifact, meta, err := o.downloader.Download(ctx, ref)
	if err != nil {
		o.logger.Warn("download failed", "job", jobID, "url", ref, "error", err)
		return nil, nil, err
	}
	o.logger.Info("download complete", "job", jobID, "path", artifact.Path)
	return artifact, meta, nil
}

// fillQueue discovers fresh URLs until the queue holds at least min. Each
// find is marked seen and counted toward the browser's preload budget.
func (o *Orchestrator) fillQueue(ctx context.Context, min int) error {
	for o.state.QueueLen() < min && o.state.QueueHasRoom() {
		ref, err := o.discoverer.DiscoverFresh(ctx, o.state.IsSeen)
		if err != nil {
			return err
		}
		o.state.MarkSeen(ref)
		o.recycler.NotePreload()
		if err := o.state.EnqueueURL(ref); err != nil {
			return err
		}
		o.logger.Info("queued video url", "url", ref, "pending", o.state.QueueLen())
	}
	return nil
}

// present sends the artifact to the chat, resolving metadata lazily when
// the download could not provide it.
func (o *Orchestrator) present(ctx context.Context, artifact *domain.Artifact, navIndex int, leadText string) error {
	meta, ok := o.state.Metadata(artifact.Path)
	if !ok && artifact.SourceURL != "" {
		extracted, err := o.extractor.Extract(ctx, artifact.SourceURL)
		if err != nil {
			o.logger.Debug("lazy metadata extraction failed", "url", artifact.SourceURL, "error", err)
		} else {
			meta = extracted
		}
		o.state.SetMetadata(artifact.Path, meta)
	}
	return o.notifier.PresentArtifact(ctx, artifact, navIndex, leadText, meta)
}

func (o *Orchestrator) recycleIfNeeded(ctx context.Context) {
	need, reason := o.recycler.NeedsRestart()
	if !need {
		return
	}
	o.logger.Info("recycling browser session", "reason", reason)
	if err := o.session.Stop(); err != nil {
		o.logger.Warn("failed to stop session for recycle", "error", err)
	}
	time.Sleep(restartPause)
	if err := o.session.Start(ctx); err != nil {
		o.logger.Warn("failed to restart session", "error", err)
		return
	}
	if err := o.session.ApplyStoredCredentials(ctx); err != nil {
		o.logger.Warn("failed to re-apply credentials after recycle", "error", err)
		return
	}
	o.recycler.Reset()
}
