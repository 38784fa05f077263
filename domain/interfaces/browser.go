package interfaces

import (
	"context"
	"time"
)

// LaunchOptions describes the visible, persistent session the probe drives
type LaunchOptions struct {
	Channel        string
	Headless       bool
	SlowMo         time.Duration
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	Locale         string
	TimezoneID     string
	Headers        map[string]string
	UserDataDir    string
	Args           []string
}

// Launcher starts a browser session
type Launcher interface {
	// Launch opens a persistent session and returns its single page
	Launch(ctx context.Context, opts LaunchOptions) (Page, error)
}

// Page defines the browser operations the sequencer relies on
type Page interface {
	// Navigate loads url and waits for network idle, bounded by timeout
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitVisible waits up to timeout for the first element matching selector to become visible
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// IsVisible reports whether an element matching selector is visible right now
	IsVisible(ctx context.Context, selector string) (bool, error)

	// QueryAll returns every element matching selector in document order
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// PressKey dispatches a single key press to the focused element
	PressKey(ctx context.Context, key string) error

	// Screenshot captures the viewport (or the full page) to path
	Screenshot(ctx context.Context, path string, fullPage bool) error

	// URL returns the current page URL
	URL() string

	// Close closes the session
	Close() error
}

// Element is a handle to a resolved DOM node
type Element interface {
	Click(ctx context.Context) error

	// TypeText types text with delay between keystrokes
	TypeText(ctx context.Context, text string, delay time.Duration) error

	InnerText(ctx context.Context) (string, error)
	InnerHTML(ctx context.Context) (string, error)

	// Evaluate runs script as a function of (element, arg) and returns its result
	Evaluate(ctx context.Context, script string, arg any) (any, error)
}
