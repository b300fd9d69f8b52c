// Package fetch implements the engine's plain-HTTP acquisition path: the
// static page fetch, policy-document fetches, and the security-header probe
// all go through one bounded client.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/safeurl"
)

// Result contains the outcome of a fetch. StatusCode is populated for any
// completed exchange, including 4xx/5xx; only transport-level failures
// return an error.
type Result struct {
	Body       []byte
	StatusCode int
	FinalURL   string
	Header     http.Header
	Cookies    []*http.Cookie
}

// Config configures the fetcher.
type Config struct {
	Timeout  time.Duration // per-request timeout. Default: 20s.
	MaxBytes int64         // response body cap. Default: safeurl.MaxResponseBody.
	// UserAgent sent with every request.
	UserAgent string
	// Validator vets URLs before request and on every redirect hop.
	// Default: safeurl.ValidateScheme. Use safeurl.ValidateURL for SSRF
	// protection on fan-out fetches.
	Validator func(string) error
	// Limiter throttles outbound requests. Nil means unlimited.
	Limiter *rate.Limiter
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = safeurl.MaxResponseBody
	}
	if c.UserAgent == "" {
		c.UserAgent = "PrivacyCheckerBot/1.0 (+https://example.local)"
	}
	if c.Validator == nil {
		c.Validator = safeurl.ValidateScheme
	}
}

// Fetcher performs bounded HTTP GETs with redirect and body caps.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.Validator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Get retrieves a URL following redirects. The audit never sends request
// bodies, so GET is the only verb the fetcher exposes.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Result, error) {
	if err := f.config.Validator(rawURL); err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if f.config.Limiter != nil {
		if err := f.config.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch: rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: do: %w", err)
	}
	defer resp.Body.Close()

	body, err := safeurl.LimitedReadAll(resp.Body, f.config.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}

	return &Result{
		Body:       body,
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		Header:     resp.Header,
		Cookies:    resp.Cookies(),
	}, nil
}
