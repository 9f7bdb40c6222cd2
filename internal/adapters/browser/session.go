// Package browser runs the headless Chrome session the bot scrapes and
// posts through. It implements the RuntimeSession and ContentDiscoverer
// ports; the pipeline never sees chromedp directly.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/spf13/afero"

	"github.com/dommurphy155/tiktokbot2/internal/cookies"
	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
	"github.com/dommurphy155/tiktokbot2/internal/logging"
)

// Session owns one headless browser. All use of the underlying tab is
// serialized: discovery, posting and recycling share it.
type Session struct {
	fs          afero.Fs
	cookiesFile string
	homepage    string
	logger      *logging.Logger

	mu          sync.Mutex
	browserCtx  context.Context
	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
}

// NewSession creates an unstarted session. cookiesFile is the JSON cookie
// export applied on every (re)start.
func NewSession(fs afero.Fs, cookiesFile, homepage string, logger *logging.Logger) *Session {
	return &Session{
		fs:          fs,
		cookiesFile: cookiesFile,
		homepage:    homepage,
		logger:      logger,
	}
}

// Start launches the browser. Failure here is fatal for the caller at
// startup; during recycling it is retried on the next maintenance tick.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1200, 900),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("failed to start browser: %w", domain.ErrFatal)
	}

	s.browserCtx = tabCtx
	s.allocCancel = allocCancel
	s.tabCancel = tabCancel
	s.logger.Info("browser session started")
	return nil
}

// ApplyStoredCredentials loads the cookie export, navigates to the
// homepage, installs every cookie and reloads. Individual cookie failures
// are logged and skipped.
func (s *Session) ApplyStoredCredentials(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx == nil {
		return fmt.Errorf("browser not started: %w", domain.ErrFatal)
	}

	cks, err := cookies.Load(s.fs, s.cookiesFile)
	if err != nil {
		return err
	}

	run := s.runLocked
	if err := run(ctx, chromedp.Navigate(s.homepage)); err != nil {
		return fmt.Errorf("failed to open homepage: %w", err)
	}
	for _, c := range cks {
		c := c
		err := run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
			expiry := cdp.TimeSinceEpoch(time.Unix(int64(c.Expiry), 0))
			return network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithExpires(&expiry).
				Do(cctx)
		}))
		if err != nil {
			s.logger.Warn("failed to apply cookie", "name", c.Name, "error", err)
		}
	}
	if err := run(ctx, chromedp.Reload()); err != nil {
		return fmt.Errorf("failed to reload after cookies: %w", err)
	}
	s.logger.Info("cookies applied", "count", len(cks))
	return nil
}

// Stop tears the browser down. Safe to call twice.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx == nil {
		return nil
	}
	s.tabCancel()
	s.allocCancel()
	s.browserCtx = nil
	s.tabCancel = nil
	s.allocCancel = nil
	s.logger.Info("browser session closed")
	return nil
}

// run executes actions on the tab under the session lock, bounded by ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runLocked(ctx, actions...)
}

func (s *Session) runLocked(ctx context.Context, actions ...chromedp.Action) error {
	if s.browserCtx == nil {
		return fmt.Errorf("browser not started: %w", domain.ErrTransient)
	}
	tabCtx, cancel := context.WithCancel(s.browserCtx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx, actions...) }()
	select {
	case <-ctx.Done():
		cancel()
		<-done
		return fmt.Errorf("browser action: %w", domain.ErrTimeout)
	case err := <-done:
		return err
	}
}
