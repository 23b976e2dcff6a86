// Package wggesucht implements platform.Platform for wg-gesucht.de.
//
// Pages are driven through a Page (a browser tab); everything that reads
// content parses the rendered HTML with goquery so the rules can be tested
// against saved pages.
package wggesucht

import (
	"context"
	"io"
	"time"

	"github.com/jmylchreest/flatscraper/internal/platform"
)

// Name is the platform identifier.
const Name = "wggesucht"

// BaseURL is the site root; relative listing links resolve against it.
const BaseURL = "https://www.wg-gesucht.de/"

// DefaultMaxAge is the freshness limit used when Options.MaxAge is zero.
const DefaultMaxAge = 24 * time.Hour

// DefaultSearchURLs are used when the profile lists no search URLs.
var DefaultSearchURLs = []string{
	"https://www.wg-gesucht.de/wg-zimmer-in-Muenchen.90.0.1.0.html?offer_filter=1&city_id=90&sort_column=0&sort_order=0&noDeact=1&categories%5B%5D=0&rent_types%5B%5D=2&sMin=20&rMax=1200&radDis=3000&wgSea=2&wgMxT=2&exc=2",
	"https://www.wg-gesucht.de/1-zimmer-wohnungen-und-wohnungen-in-Muenchen.90.1+2.1.0.html?offer_filter=1&city_id=90&sort_column=0&sort_order=0&noDeact=1&categories%5B%5D=1&categories%5B%5D=2&rent_types%5B%5D=2&rMax=1500&radDis=5000",
	"https://www.wg-gesucht.de/1-zimmer-wohnungen-und-wohnungen-in-Muenchen.90.1+2.1.0.html?offer_filter=1&city_id=90&sort_column=0&sort_order=0&noDeact=1&categories%5B%5D=1&categories%5B%5D=2&rent_types%5B%5D=2&rMax=1200&radDis=10000",
}

// DefaultExcludedProviders are commercial providers whose cards are skipped.
var DefaultExcludedProviders = []string{
	"M. Miethelden München",
	"Roomwise",
	"Spacest Team",
	"HousingAnywhere",
}

// Page is the browser surface the platform needs. *browser.Session
// implements it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, script string, res any) error
	Visible(ctx context.Context, selector string, wait time.Duration) bool
	HasText(ctx context.Context, text string, wait time.Duration) bool
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Check(ctx context.Context, selector string) error
	Pause(ctx context.Context, d time.Duration) error
}

// Options configures the platform.
type Options struct {
	Email    string
	Password string

	// SearchURLs are scanned in order; empty means DefaultSearchURLs.
	SearchURLs []string

	// ExcludedProviders replaces DefaultExcludedProviders when non-nil.
	ExcludedProviders []string

	// MaxAge is the freshness limit; zero means DefaultMaxAge.
	MaxAge time.Duration

	// MaxDescription caps the extracted description in bytes; zero means
	// unlimited.
	MaxDescription int

	// Prompt and Out are used for the two-factor confirmation. Without a
	// Prompt a 2FA request fails the login.
	Prompt io.Reader
	Out    io.Writer
}

// Platform is the WG-Gesucht implementation of platform.Platform.
type Platform struct {
	page Page
	opts Options
}

var _ platform.Platform = (*Platform)(nil)

// New creates a Platform that drives page.
func New(page Page, opts Options) *Platform {
	if opts.MaxAge == 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Platform{page: page, opts: opts}
}

// Name returns "wggesucht".
func (p *Platform) Name() string { return Name }

// SearchURLs returns the URLs Search will scan.
func (p *Platform) SearchURLs() []string {
	if len(p.opts.SearchURLs) > 0 {
		return p.opts.SearchURLs
	}
	return DefaultSearchURLs
}

func (p *Platform) excludedProviders() []string {
	if p.opts.ExcludedProviders != nil {
		return p.opts.ExcludedProviders
	}
	return DefaultExcludedProviders
}
