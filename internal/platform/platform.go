// Package platform defines the contract a housing site implements so the
// pipeline can log in, search, read listings and send messages.
package platform

import (
	"context"
	"errors"

	"github.com/jmylchreest/flatscraper/internal/listing"
)

var (
	// ErrAlreadyContacted is returned by ExtractDetails when the account has
	// already written to the publisher of a listing.
	ErrAlreadyContacted = errors.New("listing already contacted")

	// ErrNoDetails is returned by ExtractDetails when the page did not yield
	// a usable listing (no title).
	ErrNoDetails = errors.New("listing details could not be extracted")

	// ErrLoginFailed is returned by Login when the site rejected the
	// credentials or the logged-in state could not be confirmed.
	ErrLoginFailed = errors.New("login failed")
)

// Platform is a housing site.
type Platform interface {
	// Name returns the platform identifier, e.g. "wggesucht".
	Name() string

	// Login signs in with the configured credentials.
	Login(ctx context.Context) error

	// Search scans all configured search pages and returns fresh,
	// uncontacted listings without duplicates. includeAll disables the age
	// filter.
	Search(ctx context.Context, includeAll bool) ([]listing.Listing, error)

	// ExtractDetails opens a listing and reads what message generation needs.
	ExtractDetails(ctx context.Context, url string) (*listing.Details, error)

	// SendMessage submits text through the listing's contact form and
	// reports whether it went through.
	SendMessage(ctx context.Context, url, text string) bool
}
