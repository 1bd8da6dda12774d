package browser

import (
	"context"
	"fmt"
	"log"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"rsewatch/internal/config"
)

// The target renders its tables client-side and blocks obvious
// automation, so the session hides the webdriver property before any
// page script runs.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// Session owns one headless Chrome instance. A session belongs to exactly
// one scrape run: acquired at run start, closed before the run ends.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// NewSession launches the browser and installs the stealth script.
func NewSession(parent context.Context, cfg *config.Config) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !cfg.Browser.Headful),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.Browser.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{ctx: ctx, cancel: cancel, allocCancel: allocCancel}

	// First Run starts the browser process.
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	}))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

// Context returns the chromedp context for this session.
func (s *Session) Context() context.Context { return s.ctx }

// Navigate loads the given URL and waits for the initial document.
func (s *Session) Navigate(url string) error {
	if err := chromedp.Run(s.ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// HTML captures the current page source, used for failure snapshots.
func (s *Session) HTML() (string, error) {
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture page source: %w", err)
	}
	return html, nil
}

// Close tears down the browser. Safe to call after a failed start.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
	log.Println("[INFO] browser session closed")
}
