// Package browser wraps Playwright behind the small automation surface the
// portal navigation needs: navigate, click, select, wait, read markup.
//
// One run owns exactly one Session. It is acquired with Launch and must be
// released with Close, which is safe to call more than once; the batch
// orchestrator defers it so the browser is torn down on every exit path.
package browser

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/repscollect/pkg/logging"
)

// Session is the singly-owned browser handle for one run.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	logger  *logging.Logger

	downloadsDir string
	timeout      time.Duration

	mu      sync.Mutex
	adopted map[playwright.Page]bool

	closeOnce sync.Once
	closeErr  error
}

// Launch installs the browser runtime if needed, starts Chromium, and opens
// a page that routes accepted downloads into opts.DownloadsDir under their
// suggested filenames. New tabs opened by the site inherit the routing.
func Launch(opts Options, logger *logging.Logger) (*Session, error) {
	if opts.DownloadsDir == "" {
		return nil, fmt.Errorf("downloads directory is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	// Driver output would interleave with our own log lines.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless:      playwright.Bool(opts.Headless),
		DownloadsPath: playwright.String(opts.DownloadsDir),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := b.NewContext(playwright.BrowserNewContextOptions{
		AcceptDownloads: playwright.Bool(true),
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	session := &Session{
		pw:           pw,
		browser:      b,
		context:      context,
		logger:       logger,
		downloadsDir: opts.DownloadsDir,
		timeout:      opts.Timeout,
		adopted:      make(map[playwright.Page]bool),
	}

	// Tabs the site opens itself get the same download routing.
	context.OnPage(session.adoptPage)

	page, err := context.NewPage()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	session.adoptPage(page)
	session.page = page

	logger.Infof("Browser session started (headless=%v, downloads=%s)", opts.Headless, opts.DownloadsDir)
	return session, nil
}

// adoptPage wires timeouts and download routing into a page. The context
// "page" event and the explicit NewPage path can both deliver the same page;
// the guard keeps the download handler from being registered twice.
func (s *Session) adoptPage(page playwright.Page) {
	s.mu.Lock()
	if s.adopted[page] {
		s.mu.Unlock()
		return
	}
	s.adopted[page] = true
	s.mu.Unlock()

	page.SetDefaultTimeout(float64(s.timeout.Milliseconds()))
	page.OnDownload(func(download playwright.Download) {
		target := filepath.Join(s.downloadsDir, download.SuggestedFilename())
		if err := download.SaveAs(target); err != nil {
			s.logger.Errorf("Failed to save download %q: %v", download.SuggestedFilename(), err)
			return
		}
		s.logger.Debugf("Download saved: %s", target)
	})
}

// Page returns the current active page.
func (s *Session) Page() playwright.Page {
	return s.page
}

// SwitchToLatestPage makes the most recently opened tab the active page.
// The portal opens the registry in a new tab after the login gate.
func (s *Session) SwitchToLatestPage() error {
	pages := s.context.Pages()
	if len(pages) == 0 {
		return fmt.Errorf("no open pages in browser context")
	}
	s.page = pages[len(pages)-1]
	if err := s.page.BringToFront(); err != nil {
		return fmt.Errorf("failed to focus latest page: %w", err)
	}
	return nil
}

// Navigate loads a URL in the active page.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	if _, err := s.page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Click clicks the element matching the selector.
func (s *Session) Click(opts ClickOptions) error {
	clickOpts := playwright.PageClickOptions{}
	if opts.Timeout > 0 {
		clickOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	if err := s.page.Click(opts.Selector, clickOpts); err != nil {
		return fmt.Errorf("click on %q failed: %w", opts.Selector, err)
	}
	return nil
}

// SelectValue selects a dropdown option by its value attribute.
func (s *Session) SelectValue(selector, value string, timeout time.Duration) error {
	selectOpts := playwright.PageSelectOptionOptions{}
	if timeout > 0 {
		selectOpts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}

	_, err := s.page.SelectOption(selector, playwright.SelectOptionValues{
		Values: playwright.StringSlice(value),
	}, selectOpts)
	if err != nil {
		return fmt.Errorf("selecting %q in %q failed: %w", value, selector, err)
	}
	return nil
}

// WaitFor waits for an element to reach the requested state.
func (s *Session) WaitFor(opts WaitOptions) error {
	waitOpts := playwright.PageWaitForSelectorOptions{}
	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		waitOpts.State = &state
	}
	if opts.Timeout > 0 {
		waitOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	if _, err := s.page.WaitForSelector(opts.Selector, waitOpts); err != nil {
		return fmt.Errorf("wait for %q failed: %w", opts.Selector, err)
	}
	return nil
}

// InnerHTML returns the inner markup of the element matching the selector.
func (s *Session) InnerHTML(selector string) (string, error) {
	html, err := s.page.InnerHTML(selector)
	if err != nil {
		return "", fmt.Errorf("reading markup of %q failed: %w", selector, err)
	}
	return html, nil
}

// Close releases the browser and the Playwright runtime. Exactly one
// teardown happens no matter how many times Close is called.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.context != nil {
			if err := s.context.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.pw != nil {
			if err := s.pw.Stop(); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			s.closeErr = fmt.Errorf("errors closing browser session: %v", errs)
		}
		s.logger.Infof("Browser session closed")
	})
	return s.closeErr
}
