// Package secheaders probes a site origin for transport-security signals:
// HSTS, CSP, Referrer-Policy, X-Frame-Options, and the scheme itself.
package secheaders

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/fetch"
)

// HeaderSet holds the four inspected response headers. Nil means the header
// was absent, which is distinct from present-but-empty.
type HeaderSet struct {
	StrictTransportSecurity *string `json:"strictTransportSecurity"`
	ContentSecurityPolicy   *string `json:"contentSecurityPolicy"`
	ReferrerPolicy          *string `json:"referrerPolicy"`
	XFrameOptions           *string `json:"xFrameOptions"`
}

// Report is the outcome of the origin probe. A request-level failure fills
// Error and leaves Status nil; it never aborts the surrounding audit.
type Report struct {
	HTTPS   bool      `json:"https"`
	Status  *int      `json:"status"`
	Headers HeaderSet `json:"headers"`
	Error   string    `json:"error,omitempty"`
}

// Origin reduces a page URL to its scheme://host/ root. Returns "" for
// unparseable input.
func Origin(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

// Check issues one GET to origin (redirects followed) and reads the target
// headers case-insensitively. HTTPS is derived from the origin's scheme
// alone, independent of whether the request succeeds.
func Check(ctx context.Context, f *fetch.Fetcher, origin string) Report {
	rep := Report{HTTPS: strings.HasPrefix(strings.ToLower(origin), "https://")}

	res, err := f.Get(ctx, origin)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}

	rep.Status = &res.StatusCode
	rep.Headers = HeaderSet{
		StrictTransportSecurity: headerPtr(res.Header, "Strict-Transport-Security"),
		ContentSecurityPolicy:   headerPtr(res.Header, "Content-Security-Policy"),
		ReferrerPolicy:          headerPtr(res.Header, "Referrer-Policy"),
		XFrameOptions:           headerPtr(res.Header, "X-Frame-Options"),
	}
	return rep
}

func headerPtr(h http.Header, name string) *string {
	if _, ok := h[http.CanonicalHeaderKey(name)]; !ok {
		return nil
	}
	v := h.Get(name)
	return &v
}
