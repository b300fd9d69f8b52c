// Package policy discovers privacy/terms links on a page, fetches a
// bounded number of them over plain HTTP, and extracts regex-based facts
// with short evidence snippets.
package policy

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/fetch"
)

// Link is a discovered candidate policy document.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Document is the outcome for one fetched policy link. Facts is nil when
// the fetch failed, so "could not read" stays distinguishable from "read
// but found no mentions".
type Document struct {
	URL      string   `json:"url"`
	Status   int      `json:"httpStatus,omitempty"`
	Facts    *Facts   `json:"facts,omitempty"`
	Snippets []string `json:"snippets,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// MaxSnippets bounds evidence snippets per document.
const MaxSnippets = 5

var policyHint = regexp.MustCompile(`(?i)(privacy|cookie|cookies|data|gdpr|ccpa|terms|legal|policy)`)

// Discover scans anchor elements for policy-looking links. A link
// qualifies when its visible text or its href matches the hint pattern.
// Results are de-duplicated by resolved absolute URL, first occurrence
// wins, and the list is truncated to limit.
func Discover(pageURL *url.URL, doc *goquery.Document, limit int) []Link {
	out := []Link{}
	if doc == nil || pageURL == nil {
		return out
	}
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		text := strings.Join(strings.Fields(a.Text()), " ")
		if href == "" {
			return
		}
		if !policyHint.MatchString(text) && !policyHint.MatchString(href) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := pageURL.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, Link{Text: text, URL: abs})
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FetchAll retrieves up to limit links and extracts facts from each. An
// individual failure is recorded on its Document and never aborts the
// rest; responses with HTTP status >= 400 are skipped entirely.
func FetchAll(ctx context.Context, f *fetch.Fetcher, links []Link, limit int, logger *slog.Logger) []Document {
	if logger == nil {
		logger = slog.Default()
	}
	out := []Document{}
	for i, l := range links {
		if limit > 0 && i >= limit {
			break
		}
		res, err := f.Get(ctx, l.URL)
		if err != nil {
			logger.Debug("policy: fetch failed", "url", l.URL, "error", err)
			out = append(out, Document{URL: l.URL, Error: err.Error()})
			continue
		}
		if res.StatusCode >= 400 {
			logger.Debug("policy: skipping error status", "url", l.URL, "status", res.StatusCode)
			continue
		}

		text := ToText(res.Body, res.Header.Get("Content-Type"))
		facts, snippets := ExtractFacts(text)
		if len(snippets) > MaxSnippets {
			snippets = snippets[:MaxSnippets]
		}
		out = append(out, Document{
			URL:      res.FinalURL,
			Status:   res.StatusCode,
			Facts:    &facts,
			Snippets: snippets,
		})
	}
	return out
}
