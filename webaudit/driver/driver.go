// Package driver defines the browser-automation boundary of the audit
// engine. The engine depends only on the Driver interface; any concrete
// automation library (Rod, a remote CDP endpoint, a fake in tests) can
// implement it.
package driver

import (
	"context"
	"time"
)

// Cookie is a single browser cookie at snapshot time. Values are
// deliberately not captured: consent-state reconciliation only needs
// identity (name/domain/path), and the report must not leak session data.
type Cookie struct {
	Name     string  `json:"name"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
}

// Navigation describes the outcome of a page load.
type Navigation struct {
	FinalURL string
	// Status is the main document's HTTP status, 0 if it could not be
	// resolved from the network stream.
	Status int
}

// RequestEvent is one completed (or failed) network request observed on
// the live page. Body carries the raw request body for key extraction
// downstream; it is never stored in the result.
type RequestEvent struct {
	URL        string
	Method     string
	Status     *int
	Body       string
	SetCookies []string
}

// Driver is a live browser session bound to a single page.
type Driver interface {
	// Navigate loads url and waits for the page to settle, bounded by
	// timeout. Failure here is the signal for the dynamic→static fallback.
	Navigate(ctx context.Context, url string, timeout time.Duration) (*Navigation, error)

	// HTML returns the rendered DOM serialised as HTML.
	HTML(ctx context.Context) (string, error)

	// Cookies snapshots the browser's cookie jar.
	Cookies(ctx context.Context) ([]Cookie, error)

	// ClickFirst clicks the first clickable element whose visible text
	// matches pattern, a case-insensitive regexp such as "reject|decline".
	// Returns an error if no element matched within timeout; callers treat
	// that as a no-op, not a failure.
	ClickFirst(ctx context.Context, pattern string, timeout time.Duration) error

	// OnRequestFinished registers a callback invoked once per completed
	// request. Must be called before Navigate.
	OnRequestFinished(fn func(RequestEvent))

	// Close tears the session down. Safe to call more than once.
	Close() error
}

// Factory opens a fresh Driver. The engine calls it once per dynamic
// audit and closes the result on every exit path.
type Factory func(ctx context.Context) (Driver, error)
