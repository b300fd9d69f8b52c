// Package webaudit audits a website for privacy-compliance signals:
// consent behaviour, third-party trackers, form-level PII collection,
// security headers, and policy-document content.
//
// The engine is dual-mode. The dynamic pipeline drives a real headless
// browser through the driver boundary, intercepting network traffic and
// exercising the consent banner. When the browser cannot be started or the
// page cannot be loaded, the engine falls back to a static HTTP-only
// pipeline and records why. Both pipelines feed the same post-processing
// (forms, resources, policies, security headers, risk flags) so the result
// keeps one schema regardless of mode.
//
// An audit never submits forms, never authenticates, and retains no page
// content beyond the extracted facts and evidence snippets.
package webaudit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/driver"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/consent"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/domainclass"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/fetch"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/forms"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/netrecord"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/policy"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/resources"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/secheaders"
)

var (
	// ErrInvalidURL reports a missing or malformed target URL. This is
	// the only audit failure surfaced as an error; everything else is
	// folded into the result.
	ErrInvalidURL = errors.New("webaudit: invalid url")

	// ErrInvalidMode reports an unknown audit mode.
	ErrInvalidMode = errors.New("webaudit: invalid mode")
)

// HistoryStore persists completed audits. Implemented by auditlog.Store.
type HistoryStore interface {
	Save(ctx context.Context, mode Mode, res *Result) (string, error)
}

// Auditor runs audits. Safe for concurrent use; each audit is independent
// and opens its own browser session.
type Auditor struct {
	cfg     Config
	fetcher *fetch.Fetcher
	cls     *domainclass.Classifier
}

// New creates an Auditor.
func New(cfg Config) *Auditor {
	cfg.applyDefaults()
	return &Auditor{
		cfg:     cfg,
		fetcher: cfg.fetcher(),
		cls:     domainclass.New(cfg.TrackerTable),
	}
}

// Audit runs one audit to completion. It returns an error only for
// invalid input; ordinary audit failures (HTTP errors, missing consent UI,
// unreachable policies, browser trouble) are captured in the result.
func (a *Auditor) Audit(ctx context.Context, req Request) (*Result, error) {
	target, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || req.URL == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, req.URL)
	}
	if (target.Scheme != "http" && target.Scheme != "https") || target.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, req.URL)
	}

	if req.Mode == "" {
		req.Mode = ModeGeneric
	}
	if !req.Mode.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}

	maxWait := DefaultMaxWait
	if req.MaxWaitMs > 0 {
		maxWait = time.Duration(req.MaxWaitMs) * time.Millisecond
	}

	start := time.Now()
	log := a.cfg.Logger

	res := &Result{
		URL:       req.URL,
		FinalURL:  req.URL,
		ModeUsed:  PipelineDynamic,
		Timestamp: start.UTC(),
	}

	dyn, dynErr := a.runDynamic(ctx, target, maxWait)
	var pageHTML string
	if dynErr == nil {
		res.FinalURL = dyn.finalURL
		if dyn.status > 0 {
			res.HTTPStatus = &dyn.status
		}
		res.Consent = dyn.consent
		res.Network = dyn.network
		pageHTML = dyn.html
	} else {
		log.Warn("webaudit: dynamic pipeline failed, falling back to static",
			"url", req.URL, "error", dynErr)
		res.ModeUsed = PipelineStatic
		res.FallbackReason = dynErr.Error()
		pageHTML = a.runStatic(ctx, req.URL, res)
	}

	a.postProcess(ctx, req.Mode, target, pageHTML, res)

	res.ElapsedSeconds = time.Since(start).Seconds()
	log.Info("webaudit: audit complete",
		"url", req.URL, "mode", req.Mode, "modeUsed", res.ModeUsed,
		"flags", len(res.Flags), "elapsed", res.ElapsedSeconds)

	if a.cfg.History != nil {
		if runID, err := a.cfg.History.Save(ctx, req.Mode, res); err != nil {
			log.Warn("webaudit: history save failed", "url", req.URL, "error", err)
		} else {
			log.Debug("webaudit: history saved", "runId", runID)
		}
	}
	return res, nil
}

// dynOutput is the dynamic pipeline's collected evidence before the shared
// post-processing runs.
type dynOutput struct {
	finalURL string
	status   int
	html     string
	consent  consent.Snapshot
	network  netrecord.Summary
}

// runDynamic drives the browser session. Any returned error triggers the
// static fallback; its message becomes the fallback reason. The browser
// is closed on every exit path.
func (a *Auditor) runDynamic(ctx context.Context, target *url.URL, maxWait time.Duration) (*dynOutput, error) {
	if a.cfg.Factory == nil {
		return nil, errors.New("browser driver unavailable")
	}

	d, err := a.cfg.Factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("browser start: %w", err)
	}
	defer d.Close()

	rec := netrecord.New(target.Hostname(), a.cls)
	d.OnRequestFinished(rec.Record)

	nav, err := d.Navigate(ctx, target.String(), maxWait)
	if err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	snap, err := consent.Run(ctx, d, consent.Options{})
	if err != nil {
		return nil, fmt.Errorf("consent snapshot: %w", err)
	}

	pageHTML, err := d.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	return &dynOutput{
		finalURL: nav.FinalURL,
		status:   nav.Status,
		html:     pageHTML,
		consent:  *snap,
		network:  rec.Summarize(),
	}, nil
}

// runStatic performs the HTTP-only collection: one GET for the page, with
// cookies captured from that response alone. It fills the mode-specific
// sections of res and returns the page HTML (empty when even the static
// fetch failed, in which case res.Error records why).
func (a *Auditor) runStatic(ctx context.Context, rawURL string, res *Result) string {
	res.Consent = emptySnapshot()
	res.Network = netrecord.Summary{
		Requests:     []netrecord.Request{},
		ThirdParties: []string{},
		SetCookies:   []string{},
	}

	page, err := a.fetcher.Get(ctx, rawURL)
	if err != nil {
		res.Error = fmt.Sprintf("page fetch: %v", err)
		return ""
	}

	res.FinalURL = page.FinalURL
	res.HTTPStatus = &page.StatusCode
	res.Network.SetCookies = append(res.Network.SetCookies, page.Header.Values("Set-Cookie")...)

	// No interaction happens in static mode, so all three snapshots are
	// defined to equal the initial response's cookie set.
	initial := make([]driver.Cookie, 0, len(page.Cookies))
	for _, c := range page.Cookies {
		initial = append(initial, driver.Cookie{
			Name:     c.Name,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	res.Consent.Initial = initial
	res.Consent.AfterReject = initial
	res.Consent.AfterAccept = initial

	return string(page.Body)
}

// postProcess runs the mode-independent half of the audit over the page
// HTML: forms, resources, policy documents, security headers, and finally
// the risk flags.
func (a *Auditor) postProcess(ctx context.Context, mode Mode, target *url.URL, pageHTML string, res *Result) {
	pageURL := target
	if u, err := url.Parse(res.FinalURL); err == nil && u.Hostname() != "" {
		pageURL = u
	}

	res.Forms = []forms.Descriptor{}
	res.Resources = resources.Extract(pageURL, nil, a.cls)
	res.PolicyLinks = []policy.Link{}
	res.Policies = []policy.Document{}

	if pageHTML != "" {
		root, err := html.Parse(strings.NewReader(pageHTML))
		if err != nil {
			a.cfg.Logger.Warn("webaudit: page parse failed", "url", res.FinalURL, "error", err)
		} else {
			doc := goquery.NewDocumentFromNode(root)
			res.Forms = forms.Parse(pageURL, doc)
			res.Resources = resources.Extract(pageURL, root, a.cls)
			res.PolicyLinks = policy.Discover(pageURL, doc, a.cfg.MaxPolicyLinks)
			res.Policies = policy.FetchAll(ctx, a.fetcher, res.PolicyLinks, a.cfg.MaxPolicyFetches, a.cfg.Logger)
		}
	}

	res.Security = secheaders.Check(ctx, a.fetcher, secheaders.Origin(res.FinalURL))
	res.Flags = evaluateFlags(mode, res.Policies, res.Forms)
}

func emptySnapshot() consent.Snapshot {
	return consent.Snapshot{
		Initial:     []driver.Cookie{},
		AfterReject: []driver.Cookie{},
		AfterAccept: []driver.Cookie{},
	}
}
