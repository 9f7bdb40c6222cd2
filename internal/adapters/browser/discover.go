package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sethvargo/go-retry"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
)

const (
	discoverAttempts = 5
	scrollSleepMin   = 1000 * time.Millisecond
	scrollSleepMax   = 1600 * time.Millisecond
)

// collectVideoLinks gathers every feed anchor pointing at a video page.
const collectVideoLinks = `Array.from(document.querySelectorAll('a[href*="/video/"]')).map(a => a.href)`

// DiscoverFresh scrolls the feed looking for a video URL not matched by
// seen. Every second failed attempt reloads the page; after the bounded
// attempts the error surfaces to the caller.
func (s *Session) DiscoverFresh(ctx context.Context, seen func(domain.ContentRef) bool) (domain.ContentRef, error) {
	attempt := 0
	var found domain.ContentRef

	backoff := retry.WithMaxRetries(discoverAttempts-1, retry.NewConstant(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		ref, err := s.discoverOnce(ctx, seen)
		if err == nil {
			found = ref
			return nil
		}
		s.logger.Warn("discovery attempt found no fresh link", "attempt", attempt, "error", err)
		if attempt%2 == 1 {
			if rerr := s.run(ctx, chromedp.Reload(), chromedp.Sleep(1200*time.Millisecond)); rerr != nil {
				s.logger.Warn("feed reload failed", "error", rerr)
			}
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return "", fmt.Errorf("failed to locate a fresh video link after %d attempts: %w", attempt, err)
	}
	return found, nil
}

func (s *Session) discoverOnce(ctx context.Context, seen func(domain.ContentRef) bool) (domain.ContentRef, error) {
	var hrefs []string
	err := s.run(ctx,
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", 400+rand.Intn(800)), nil),
		chromedp.Sleep(scrollSleep()),
		chromedp.Evaluate(collectVideoLinks, &hrefs),
	)
	if err != nil {
		return "", err
	}

	rand.Shuffle(len(hrefs), func(i, j int) { hrefs[i], hrefs[j] = hrefs[j], hrefs[i] })
	for _, href := range hrefs {
		if href != "" && !seen(href) {
			s.logger.Info("found video link", "url", href)
			return href, nil
		}
	}
	return "", fmt.Errorf("no unseen video links in view: %w", domain.ErrTransient)
}

func scrollSleep() time.Duration {
	return scrollSleepMin + time.Duration(rand.Int63n(int64(scrollSleepMax-scrollSleepMin)))
}
