// Package browser drives a single Chrome tab through chromedp. The tab keeps
// its cookies for the whole run, so login, search, detail pages and the
// message form all share one session.
package browser

import (
	"time"
)

// Config holds configuration for a browser session.
type Config struct {
	Headless  bool
	UserAgent string
	Locale    string // e.g. "de-DE"
	Width     int
	Height    int

	// NavigationTimeout bounds a single page load.
	NavigationTimeout time.Duration

	// ActionTimeout bounds clicks, fills and script evaluation.
	ActionTimeout time.Duration

	// MinNavigationInterval is the minimum gap between two page loads.
	MinNavigationInterval time.Duration

	// Settle is waited after each page load so that client-side scripts can
	// render the content.
	Settle time.Duration

	// Stealth injects the anti-detection script into every document.
	Stealth bool

	// ScreenshotDir, when set, receives a PNG of the tab whenever a page
	// load fails.
	ScreenshotDir string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:              true,
		UserAgent:             defaultUserAgent,
		Locale:                "de-DE",
		Width:                 1280,
		Height:                900,
		NavigationTimeout:     45 * time.Second,
		ActionTimeout:         10 * time.Second,
		MinNavigationInterval: 2 * time.Second,
		Settle:                1500 * time.Millisecond,
		Stealth:               true,
	}
}

// withDefaults fills zero fields from DefaultConfig. Headless and Stealth are
// taken as given.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Locale == "" {
		c.Locale = d.Locale
	}
	if c.Width == 0 || c.Height == 0 {
		c.Width, c.Height = d.Width, d.Height
	}
	if c.NavigationTimeout == 0 {
		c.NavigationTimeout = d.NavigationTimeout
	}
	if c.ActionTimeout == 0 {
		c.ActionTimeout = d.ActionTimeout
	}
	if c.MinNavigationInterval == 0 {
		c.MinNavigationInterval = d.MinNavigationInterval
	}
	return c
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
