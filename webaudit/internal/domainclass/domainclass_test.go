package domainclass

import "testing"

func TestFirstParty_Reflexive(t *testing.T) {
	for _, h := range []string{"example.com", "sub.example.co.uk", "localhost", "192.168.0.1"} {
		if !FirstParty(h, h) {
			t.Errorf("FirstParty(%q, %q) = false, want true", h, h)
		}
	}
}

func TestFirstParty_Subdomain(t *testing.T) {
	if !FirstParty("sub.example.com", "example.com") {
		t.Error("sub.example.com should be first-party to example.com")
	}
	if !FirstParty("cdn.example.com", "www.example.com") {
		t.Error("sibling subdomains should be first-party")
	}
}

func TestFirstParty_SuffixSpoof(t *testing.T) {
	if FirstParty("example.com.evil.net", "example.com") {
		t.Error("example.com.evil.net must not match example.com")
	}
	if FirstParty("example.co.uk.evil.com", "example.co.uk") {
		t.Error("multi-label public suffix spoof must not match")
	}
}

func TestFirstParty_PublicSuffixAware(t *testing.T) {
	if FirstParty("other.co.uk", "example.co.uk") {
		t.Error("co.uk is a public suffix, not a shared registrable domain")
	}
	if !FirstParty("a.example.co.uk", "b.example.co.uk") {
		t.Error("same registrable domain under co.uk should match")
	}
}

func TestFirstParty_EmptyAndMalformed(t *testing.T) {
	if FirstParty("", "example.com") {
		t.Error("empty candidate must not be first-party")
	}
	if FirstParty("example.com", "") {
		t.Error("empty reference must not be first-party")
	}
	if FirstParty("", "") {
		t.Error("two empty hosts must not be first-party")
	}
}

func TestClassify_Buckets(t *testing.T) {
	c := New(nil)
	cases := []struct {
		host string
		want Category
	}{
		{"www.google-analytics.com", CategoryAnalytics},
		{"cdn.mixpanel.com", CategoryAnalytics},
		{"stats.g.doubleclick.net", CategoryAds},
		{"securepubads.adservice.io", CategoryAds},
		{"connect.facebook.net", CategorySocial},
		{"static.cdn.example.org", CategoryOther},
		{"", CategoryOther},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.host); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.host, got, tc.want)
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := New(nil)
	host := "analytics.tiktok.com"
	first := c.Classify(host)
	second := c.Classify(host)
	if first != second {
		t.Errorf("Classify not pure: %q then %q", first, second)
	}
}

func TestClassify_OrderedFirstMatchWins(t *testing.T) {
	// "analytics.tiktok.com" matches both the analytics needle and the
	// social needle; the analytics bucket is listed first.
	c := New(nil)
	if got := c.Classify("analytics.tiktok.com"); got != CategoryAnalytics {
		t.Errorf("expected first bucket to win, got %q", got)
	}
}

func TestClassify_CustomTable(t *testing.T) {
	c := New([]Bucket{{CategorySocial, []string{"mastodon"}}})
	if got := c.Classify("files.mastodon.social"); got != CategorySocial {
		t.Errorf("custom table ignored, got %q", got)
	}
	if got := c.Classify("www.google-analytics.com"); got != CategoryOther {
		t.Errorf("custom table should replace defaults, got %q", got)
	}
}
