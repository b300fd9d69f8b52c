// Package domainclass decides first-party vs third-party relationships and
// buckets third-party hostnames into tracker categories.
//
// First-party is registrable-domain equivalence (effective TLD plus one
// label), so cdn.example.com is first-party to example.com while
// example.com.evil.net is not.
package domainclass

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Category is a tracker bucket for a third-party hostname.
type Category string

const (
	CategoryAnalytics Category = "analytics"
	CategoryAds       Category = "ads"
	CategorySocial    Category = "social"
	CategoryOther     Category = "other"
)

// Bucket is one ordered entry of the tracker keyword table: a category and
// the hostname substrings that select it.
type Bucket struct {
	Category Category `yaml:"category"`
	Needles  []string `yaml:"needles"`
}

// DefaultTable returns the built-in tracker keyword table. Coverage is
// deliberately small and hand-maintained; deployments extend it via config.
func DefaultTable() []Bucket {
	return []Bucket{
		{CategoryAnalytics, []string{
			"googletagmanager.com", "google-analytics.com", "analytics",
			"mixpanel", "segment.io", "amplitude.com",
		}},
		{CategoryAds, []string{
			"doubleclick.net", "googlesyndication.com", "adservice",
			"adnxs.com", "criteo.com",
		}},
		{CategorySocial, []string{
			"facebook.net", "twitter.com", "linkedin.com",
			"tiktok.com", "snapchat.com",
		}},
	}
}

// Classifier matches hostnames against an ordered tracker table.
type Classifier struct {
	table []Bucket
}

// New creates a Classifier. A nil or empty table falls back to DefaultTable.
func New(table []Bucket) *Classifier {
	if len(table) == 0 {
		table = DefaultTable()
	}
	return &Classifier{table: table}
}

// Classify buckets a hostname. First matching bucket wins; hosts that match
// nothing (including empty hosts) are CategoryOther.
func (c *Classifier) Classify(host string) Category {
	h := strings.ToLower(host)
	if h == "" {
		return CategoryOther
	}
	for _, b := range c.table {
		for _, n := range b.Needles {
			if strings.Contains(h, n) {
				return b.Category
			}
		}
	}
	return CategoryOther
}

// FirstParty reports whether candidateHost and referenceHost share a
// registrable domain. Empty or malformed hostnames are never first-party.
func FirstParty(candidateHost, referenceHost string) bool {
	c := registrable(candidateHost)
	r := registrable(referenceHost)
	if c == "" || r == "" {
		return false
	}
	return c == r
}

// registrable reduces a hostname to its effective TLD plus one label.
// Hosts the public suffix list cannot split (single-label names such as
// "localhost", literal IPs) are compared as-is.
func registrable(host string) string {
	h := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	if h == "" {
		return ""
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(h); err == nil {
		return d
	}
	return h
}
