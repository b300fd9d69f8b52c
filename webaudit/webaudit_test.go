package webaudit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/driver"
)

// scriptedDriver is a canned browser session for engine tests.
type scriptedDriver struct {
	html       string
	finalURL   string
	status     int
	navErr     error
	cookies    []driver.Cookie
	clickErr   error
	events     []driver.RequestEvent
	onReq      func(driver.RequestEvent)
	closed     bool
	clickCount int
}

func (s *scriptedDriver) OnRequestFinished(fn func(driver.RequestEvent)) { s.onReq = fn }

func (s *scriptedDriver) Navigate(ctx context.Context, url string, timeout time.Duration) (*driver.Navigation, error) {
	if s.navErr != nil {
		return nil, s.navErr
	}
	// Request events arrive while the page loads.
	if s.onReq != nil {
		for _, ev := range s.events {
			s.onReq(ev)
		}
	}
	final := s.finalURL
	if final == "" {
		final = url
	}
	return &driver.Navigation{FinalURL: final, Status: s.status}, nil
}

func (s *scriptedDriver) HTML(ctx context.Context) (string, error) { return s.html, nil }

func (s *scriptedDriver) Cookies(ctx context.Context) ([]driver.Cookie, error) {
	return s.cookies, nil
}

func (s *scriptedDriver) ClickFirst(ctx context.Context, pattern string, timeout time.Duration) error {
	s.clickCount++
	return s.clickErr
}

func (s *scriptedDriver) Close() error {
	s.closed = true
	return nil
}

func factoryFor(d driver.Driver) driver.Factory {
	return func(ctx context.Context) (driver.Driver, error) { return d, nil }
}

// sitePage serves a page with a form, mixed resources, and a privacy link.
func sitePage(policyHref string) string {
	return fmt.Sprintf(`<html><body>
		<script src="/app.js"></script>
		<script src="https://www.googletagmanager.com/gtm.js"></script>
		<img src="https://ads.doubleclick.net/pixel.gif">
		<form action="/login" method="POST">
			<input name="email" type="email">
			<input name="password" type="password">
		</form>
		<a href="%s">Privacy Policy</a>
	</body></html>`, policyHref)
}

func policyServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/privacy":
			w.Write([]byte("<p>You have the right to access your data. We retain it for a year.</p>"))
		default:
			w.Header().Set("Strict-Transport-Security", "max-age=63072000")
			w.Header().Set("Set-Cookie", "sid=abc; Path=/")
			w.Write([]byte(sitePage("/privacy")))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAudit_DynamicPipeline(t *testing.T) {
	srv := policyServer(t)

	d := &scriptedDriver{
		html:     sitePage(srv.URL + "/privacy"),
		finalURL: srv.URL + "/",
		status:   200,
		cookies:  []driver.Cookie{{Name: "sid", Domain: "127.0.0.1", Path: "/"}},
		events: []driver.RequestEvent{
			{URL: srv.URL + "/app.js", Method: "GET"},
			{URL: "https://www.googletagmanager.com/gtm.js", Method: "GET"},
		},
	}
	a := New(Config{Factory: factoryFor(d)})

	res, err := a.Audit(context.Background(), Request{URL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}

	if res.ModeUsed != PipelineDynamic {
		t.Errorf("modeUsed = %q, want dynamic", res.ModeUsed)
	}
	if res.FallbackReason != "" {
		t.Errorf("fallbackReason = %q, want empty", res.FallbackReason)
	}
	if res.HTTPStatus == nil || *res.HTTPStatus != 200 {
		t.Errorf("httpStatus = %v, want 200", res.HTTPStatus)
	}
	if !d.closed {
		t.Error("driver not closed after audit")
	}
	if len(res.Consent.Initial) != 1 || res.Consent.Initial[0].Name != "sid" {
		t.Errorf("consent.initial = %+v", res.Consent.Initial)
	}
	if len(res.Network.ThirdParties) != 1 || res.Network.ThirdParties[0] != "www.googletagmanager.com" {
		t.Errorf("network.thirdParties = %v", res.Network.ThirdParties)
	}
	if len(res.Forms) != 1 {
		t.Fatalf("forms = %+v, want 1", res.Forms)
	}
	if res.Forms[0].PIISummary["email"] != 1 || res.Forms[0].PIISummary["password"] != 1 {
		t.Errorf("piiSummary = %v", res.Forms[0].PIISummary)
	}
	if len(res.Resources.ThirdParty.Domains) != 2 {
		t.Errorf("resource third-party domains = %v", res.Resources.ThirdParty.Domains)
	}
	if len(res.PolicyLinks) != 1 {
		t.Fatalf("policyLinks = %+v, want 1", res.PolicyLinks)
	}
	if len(res.Policies) != 1 || res.Policies[0].Facts == nil || !res.Policies[0].Facts.MentionsRights {
		t.Errorf("policies = %+v", res.Policies)
	}
	for _, f := range res.Flags {
		if f.ID == FlagNoPolicyFound || f.ID == FlagNoRightsSection {
			t.Errorf("unexpected flag %q with a rights-bearing policy present", f.ID)
		}
	}
	if res.ElapsedSeconds <= 0 {
		t.Error("elapsedSeconds not recorded")
	}
}

func TestAudit_FallbackOnNavigationFailure(t *testing.T) {
	srv := policyServer(t)

	d := &scriptedDriver{navErr: errors.New("net::ERR_TIMED_OUT")}
	a := New(Config{Factory: factoryFor(d)})

	res, err := a.Audit(context.Background(), Request{URL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}

	if res.ModeUsed != PipelineStatic {
		t.Errorf("modeUsed = %q, want static", res.ModeUsed)
	}
	if !strings.Contains(res.FallbackReason, "navigate") || !strings.Contains(res.FallbackReason, "ERR_TIMED_OUT") {
		t.Errorf("fallbackReason = %q", res.FallbackReason)
	}
	if !d.closed {
		t.Error("driver not closed after failed navigation")
	}

	// The static path still parses the fetched page.
	if len(res.Forms) != 1 {
		t.Errorf("forms = %+v, want 1 from static fetch", res.Forms)
	}
	if len(res.Policies) != 1 {
		t.Errorf("policies = %+v, want 1", res.Policies)
	}
	if len(res.Network.Requests) != 0 {
		t.Errorf("network.requests = %+v, want none in static mode", res.Network.Requests)
	}
	if len(res.Network.SetCookies) != 1 {
		t.Errorf("network.setCookies = %v, want initial response cookie", res.Network.SetCookies)
	}
	// No interaction happened, so the three snapshots coincide.
	if len(res.Consent.Initial) != len(res.Consent.AfterAccept) {
		t.Errorf("consent snapshots diverged without interaction: %+v", res.Consent)
	}
	if res.Consent.Rejected || res.Consent.Accepted {
		t.Error("static mode reported consent clicks")
	}
}

func TestAudit_NilFactoryGoesStatic(t *testing.T) {
	srv := policyServer(t)
	a := New(Config{})

	res, err := a.Audit(context.Background(), Request{URL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if res.ModeUsed != PipelineStatic {
		t.Errorf("modeUsed = %q, want static", res.ModeUsed)
	}
	if res.FallbackReason != "browser driver unavailable" {
		t.Errorf("fallbackReason = %q", res.FallbackReason)
	}
}

func TestAudit_InvalidInput(t *testing.T) {
	a := New(Config{})
	for _, raw := range []string{"", "   ", "not a url", "ftp://example.com/x", "https://"} {
		if _, err := a.Audit(context.Background(), Request{URL: raw}); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Audit(%q) err = %v, want ErrInvalidURL", raw, err)
		}
	}
	if _, err := a.Audit(context.Background(), Request{URL: "https://example.com", Mode: "banking"}); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("unknown mode err = %v, want ErrInvalidMode", err)
	}
}

func TestAudit_UnreachableTargetStillYieldsResult(t *testing.T) {
	a := New(Config{HTTPTimeout: 2 * time.Second})
	res, err := a.Audit(context.Background(), Request{URL: "http://unreachable.invalid/"})
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if res.Error == "" {
		t.Error("expected result error for unreachable target")
	}
	if res.ModeUsed != PipelineStatic {
		t.Errorf("modeUsed = %q", res.ModeUsed)
	}
	if res.Forms == nil || res.Policies == nil || res.Flags == nil {
		t.Errorf("collections must be non-nil even when nothing ran: %+v", res)
	}
}

func TestAudit_SignupModeSkipsMinimizationFlag(t *testing.T) {
	page := `<html><body>
		<form action="/signup" method="POST">
			<input name="dob" type="date">
			<input name="cc" type="text">
		</form>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	a := New(Config{})

	for _, tt := range []struct {
		mode Mode
		want bool
	}{
		{ModeSignup, false},
		{ModeGeneric, true},
		{ModeLogin, true},
	} {
		res, err := a.Audit(context.Background(), Request{URL: srv.URL + "/join", Mode: tt.mode})
		if err != nil {
			t.Fatalf("Audit(%s): %v", tt.mode, err)
		}
		if len(res.Forms) != 1 {
			t.Fatalf("forms = %+v", res.Forms)
		}
		if res.Forms[0].PIISummary["dob"] != 1 || res.Forms[0].PIISummary["payment"] != 1 {
			t.Errorf("piiSummary = %v", res.Forms[0].PIISummary)
		}
		var got bool
		for _, f := range res.Flags {
			if f.ID == FlagMinimizationRisk {
				got = true
			}
		}
		if got != tt.want {
			t.Errorf("mode %s: minimization flag = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestAudit_NoPolicyLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/about">About</a></body></html>`))
	}))
	defer srv.Close()

	a := New(Config{})
	res, err := a.Audit(context.Background(), Request{URL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}

	if len(res.PolicyLinks) != 0 || len(res.Policies) != 0 {
		t.Errorf("policyLinks = %v, policies = %v, want empty", res.PolicyLinks, res.Policies)
	}
	var count int
	for _, f := range res.Flags {
		switch f.ID {
		case FlagNoPolicyFound:
			count++
			if f.Severity != SeverityMedium {
				t.Errorf("no_policy_found severity = %q", f.Severity)
			}
		case FlagNoRightsSection:
			t.Error("no_rights_section must not fire when no policy was fetched")
		}
	}
	if count != 1 {
		t.Errorf("no_policy_found fired %d times, want exactly 1", count)
	}
}
