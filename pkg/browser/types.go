package browser

import "time"

// Options configures the single browser session of a run.
type Options struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool

	// DownloadsDir is where accepted downloads are saved. Required.
	DownloadsDir string

	// Timeout is the default timeout for page operations.
	Timeout time.Duration
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful.
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout overrides the session default (0 means default).
	Timeout time.Duration
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	// Selector identifies the element to click
	Selector string

	// Timeout overrides the session default (0 means default).
	Timeout time.Duration
}

// WaitOptions configures waiting for an element.
type WaitOptions struct {
	// Selector to wait for
	Selector string

	// State to wait for: "attached", "detached", "visible", "hidden"
	State string

	// Timeout overrides the session default (0 means default).
	Timeout time.Duration
}

// Default values for session operations.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)
