// Package rodriver implements the browser driver boundary on top of Rod
// driving a headless Chrome. One driver owns one Chrome process and one
// stealth page; the engine opens a fresh driver per dynamic audit and
// closes it on every exit path.
package rodriver

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/driver"
)

// clickableSelector is where banner buttons are searched for. Broad on
// purpose: consent managers render controls as buttons, links, or plain
// divs with a role.
const clickableSelector = `button, a, [role="button"], input[type="button"], input[type="submit"]`

// Config configures Chrome launch.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless toggles headless mode for locally launched Chrome.
	// Remote instances are taken as-is.
	Headless bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Driver is a live Rod session bound to a single stealth page.
type Driver struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page

	mu        sync.Mutex
	onRequest func(driver.RequestEvent)
	pending   map[proto.NetworkRequestID]*pendingRequest
	navStatus int
	closed    bool
}

type pendingRequest struct {
	url        string
	method     string
	body       string
	status     *int
	setCookies []string
}

// Factory returns a driver.Factory that launches Chrome with cfg. This is
// what production wiring hands to the audit engine; tests substitute a
// fake.
func Factory(cfg Config) driver.Factory {
	return func(ctx context.Context) (driver.Driver, error) {
		return New(ctx, cfg)
	}
}

// New launches (or connects to) Chrome and opens a stealth page.
func New(ctx context.Context, cfg Config) (*Driver, error) {
	cfg.defaults()

	d := &Driver{
		cfg:     cfg,
		pending: make(map[proto.NetworkRequestID]*pendingRequest),
	}

	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("rodriver: launch: %w", err)
		}
		wsURL = u
		d.lnch = l
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		d.cleanup()
		return nil, fmt.Errorf("rodriver: connect: %w", err)
	}
	d.browser = b

	page, err := stealth.Page(b)
	if err != nil {
		d.cleanup()
		return nil, fmt.Errorf("rodriver: create page: %w", err)
	}
	d.page = page

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		d.cleanup()
		return nil, fmt.Errorf("rodriver: enable network domain: %w", err)
	}
	go d.eventLoop()

	return d, nil
}

// OnRequestFinished registers the single request callback. Must be set
// before Navigate; events observed with no callback registered are
// dropped.
func (d *Driver) OnRequestFinished(fn func(driver.RequestEvent)) {
	d.mu.Lock()
	d.onRequest = fn
	d.mu.Unlock()
}

// Navigate loads url and waits for the load event, bounded by timeout.
func (d *Driver) Navigate(ctx context.Context, url string, timeout time.Duration) (*driver.Navigation, error) {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := d.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return nil, fmt.Errorf("rodriver: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		// The DOM is usually usable even when the load event never fires;
		// audits on slow pages proceed with what rendered.
		d.cfg.Logger.Warn("rodriver: wait load", "url", url, "error", err)
	}

	nav := &driver.Navigation{FinalURL: url}
	if info, err := p.Info(); err == nil && info.URL != "" {
		nav.FinalURL = info.URL
	}
	d.mu.Lock()
	nav.Status = d.navStatus
	d.mu.Unlock()
	return nav, nil
}

// HTML serialises the rendered DOM.
func (d *Driver) HTML(ctx context.Context) (string, error) {
	html, err := d.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("rodriver: get html: %w", err)
	}
	return html, nil
}

// Cookies snapshots the browser cookie jar. Values are dropped here, at
// the boundary, so nothing downstream can leak them.
func (d *Driver) Cookies(ctx context.Context) ([]driver.Cookie, error) {
	raw, err := d.browser.Context(ctx).GetCookies()
	if err != nil {
		return nil, fmt.Errorf("rodriver: get cookies: %w", err)
	}
	out := make([]driver.Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, driver.Cookie{
			Name:     c.Name,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return out, nil
}

// ClickFirst finds the first clickable element whose visible text matches
// pattern (case-insensitive) and clicks it.
func (d *Driver) ClickFirst(ctx context.Context, pattern string, timeout time.Duration) error {
	p := d.page.Context(ctx).Timeout(timeout)
	el, err := p.ElementR(clickableSelector, "/"+pattern+"/i")
	if err != nil {
		return fmt.Errorf("rodriver: no element matching %q: %w", pattern, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("rodriver: click %q: %w", pattern, err)
	}
	return nil
}

// Close tears down the page, browser connection, and the local Chrome
// process if this driver launched one.
func (d *Driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.cleanup()
	return nil
}

func (d *Driver) cleanup() {
	d.mu.Lock()
	page, browser, lnch := d.page, d.browser, d.lnch
	d.page, d.browser, d.lnch = nil, nil, nil
	d.mu.Unlock()

	if page != nil {
		_ = page.Close()
	}
	if browser != nil {
		_ = browser.Close()
	}
	if lnch != nil {
		lnch.Cleanup()
	}
}

// eventLoop correlates the Network domain's three-event request lifecycle
// by request ID and emits one RequestEvent per finished request. It exits
// when the page closes. The page is snapshotted under the lock: Close can
// run before this goroutine is ever scheduled.
func (d *Driver) eventLoop() {
	d.mu.Lock()
	page := d.page
	d.mu.Unlock()
	if page == nil {
		return
	}

	page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			req := &pendingRequest{
				url:    e.Request.URL,
				method: e.Request.Method,
				body:   postData(e.Request),
			}
			d.mu.Lock()
			d.pending[e.RequestID] = req
			d.mu.Unlock()
		},
		func(e *proto.NetworkResponseReceived) {
			status := e.Response.Status
			cookies := setCookieLines(e.Response.Headers)

			d.mu.Lock()
			if req, ok := d.pending[e.RequestID]; ok {
				req.status = &status
				req.setCookies = append(req.setCookies, cookies...)
			}
			if e.Type == proto.NetworkResourceTypeDocument && d.navStatus == 0 {
				d.navStatus = status
			}
			d.mu.Unlock()
		},
		func(e *proto.NetworkLoadingFinished) {
			d.mu.Lock()
			req, ok := d.pending[e.RequestID]
			delete(d.pending, e.RequestID)
			fn := d.onRequest
			d.mu.Unlock()

			if !ok || fn == nil {
				return
			}
			fn(driver.RequestEvent{
				URL:        req.url,
				Method:     req.method,
				Status:     req.status,
				Body:       req.body,
				SetCookies: req.setCookies,
			})
		},
	)()
}

// postData reassembles a request body from CDP's base64 post-data entries.
func postData(req *proto.NetworkRequest) string {
	if !req.HasPostData {
		return ""
	}
	var sb strings.Builder
	for _, e := range req.PostDataEntries {
		b, err := base64.StdEncoding.DecodeString(string(e.Bytes))
		if err != nil {
			continue
		}
		sb.Write(b)
	}
	return sb.String()
}

// setCookieLines pulls Set-Cookie values out of a CDP header map. Chrome
// folds repeated headers into one newline-joined value.
func setCookieLines(headers proto.NetworkHeaders) []string {
	for name, v := range headers {
		if !strings.EqualFold(name, "set-cookie") {
			continue
		}
		var out []string
		for _, line := range strings.Split(v.Str(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	}
	return nil
}
