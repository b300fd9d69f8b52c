// Package consent drives the cookie-banner interaction sequence during a
// browser-backed audit: snapshot cookies as served, click the first visible
// reject control and snapshot again, then click the first accept control and
// snapshot a third time. Only the configured banner buttons are ever
// clicked; forms are never filled or submitted.
package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/driver"
)

// Snapshot holds the cookie identity lists around each consent state.
// Cookie values are discarded at the driver boundary; only names and
// attributes are compared.
type Snapshot struct {
	Initial     []driver.Cookie `json:"initial"`
	AfterReject []driver.Cookie `json:"afterReject"`
	AfterAccept []driver.Cookie `json:"afterAccept"`
	Rejected    bool            `json:"rejectClicked"`
	Accepted    bool            `json:"acceptClicked"`
}

// Options control banner matching and pacing.
type Options struct {
	// RejectPattern and AcceptPattern are case-insensitive regexps matched
	// against element text.
	RejectPattern string
	AcceptPattern string
	// ClickTimeout bounds the search for each banner control.
	ClickTimeout time.Duration
	// Settle is how long to wait after a click before snapshotting, giving
	// the consent manager time to write or clear cookies.
	Settle time.Duration
}

func (o *Options) applyDefaults() {
	if o.RejectPattern == "" {
		o.RejectPattern = "reject|decline|deny"
	}
	if o.AcceptPattern == "" {
		o.AcceptPattern = "accept|agree|allow"
	}
	if o.ClickTimeout <= 0 {
		o.ClickTimeout = 2 * time.Second
	}
	if o.Settle <= 0 {
		o.Settle = time.Second
	}
}

// Run executes the three-state sequence against an already navigated page.
// A missing banner button is not an error: the corresponding snapshot
// carries the previous cookie list forward so the three states always
// compare. Only the initial snapshot failing aborts the run.
func Run(ctx context.Context, d driver.Driver, opts Options) (*Snapshot, error) {
	opts.applyDefaults()

	initial, err := d.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("consent: initial cookie snapshot: %w", err)
	}

	snap := &Snapshot{
		Initial:     initial,
		AfterReject: initial,
		AfterAccept: initial,
	}

	if err := d.ClickFirst(ctx, opts.RejectPattern, opts.ClickTimeout); err == nil {
		snap.Rejected = true
		settle(ctx, opts.Settle)
		if cookies, err := d.Cookies(ctx); err == nil {
			snap.AfterReject = cookies
			snap.AfterAccept = cookies
		}
	}

	if err := d.ClickFirst(ctx, opts.AcceptPattern, opts.ClickTimeout); err == nil {
		snap.Accepted = true
		settle(ctx, opts.Settle)
		if cookies, err := d.Cookies(ctx); err == nil {
			snap.AfterAccept = cookies
		}
	}

	return snap, nil
}

func settle(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
