// internal/browser/session.go

// Package browser hosts the live-page half of the toolkit: a chromedp session
// owning the tab, and a bridge that projects the page's observation callbacks
// into Go and the controller's writes back onto the DOM.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/headerkit/internal/config"
)

// Session owns one browser process and one tab.
type Session struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// Launch starts the browser and opens a tab. The returned session must be
// closed; Close blocks until the browser process has exited.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("browser")

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Force the browser to actually start so launch failures surface here
	// rather than on the first action.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	logger.Debug("Browser launched",
		zap.Bool("headless", cfg.Headless),
		zap.Int("window_width", cfg.WindowWidth),
		zap.Int("window_height", cfg.WindowHeight))

	return &Session{
		cfg:         cfg,
		logger:      logger,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}, nil
}

// Context returns the tab context actions run against.
func (s *Session) Context() context.Context {
	return s.tabCtx
}

// Navigate loads the URL and waits for the document to become interactive,
// bounded by the configured navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx := s.tabCtx
	if s.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(navCtx, s.cfg.NavigationTimeout)
		defer cancel()
	}

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	s.logger.Info("Navigation complete", zap.String("url", url))
	return nil
}

// Close tears the tab down and waits for the browser process to exit.
func (s *Session) Close() {
	// chromedp.Cancel blocks until the process is gone, which keeps test and
	// shutdown paths free of orphaned browsers.
	if err := chromedp.Cancel(s.tabCtx); err != nil && s.allocCtx.Err() == nil {
		s.logger.Debug("Browser shutdown reported an error", zap.Error(err))
	}
	s.tabCancel()
	s.allocCancel()
}
