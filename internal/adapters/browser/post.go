package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
)

const postTimeout = 90 * time.Second

// Post uploads the video through the site's upload form: attach the file,
// type the caption, hit Post. Runs in the background from the caller's
// point of view; a failure is logged there, never fatal.
func (s *Session) Post(ctx context.Context, req domain.PostRequest) error {
	ctx, cancel := context.WithTimeout(ctx, postTimeout)
	defer cancel()

	caption := strings.TrimSpace(req.Comment + " " + strings.Join(req.Hashtags, " "))

	err := s.run(ctx,
		chromedp.Navigate(s.homepage+"upload"),
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.WaitVisible(`input[type="file"]`, chromedp.ByQuery),
		chromedp.SetUploadFiles(`input[type="file"]`, []string{req.VideoPath}, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
		chromedp.WaitVisible(`[contenteditable="true"]`, chromedp.ByQuery),
		chromedp.SendKeys(`[contenteditable="true"]`, caption, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.Click(`//button[contains(text(), "Post")]`),
		chromedp.Sleep(5*time.Second),
	)
	if err != nil {
		return fmt.Errorf("post of %s failed: %w", req.VideoPath, err)
	}
	s.logger.Info("posted video", "path", req.VideoPath)
	return nil
}
