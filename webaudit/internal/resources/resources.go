// Package resources scans a page for script/link/img references and splits
// them into first-party and third-party sets. This is the static-path
// stand-in for live network interception.
package resources

import (
	"net/url"
	"sort"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/domainclass"
)

// Entry is one referenced resource with its resolved absolute URL and
// hostname. Category is set for third-party entries only.
type Entry struct {
	Tag      string               `json:"tag"`
	URL      string               `json:"url"`
	Host     string               `json:"host"`
	Category domainclass.Category `json:"category,omitempty"`
}

// Group partitions entries by originating tag.
type Group struct {
	Scripts []Entry `json:"scripts"`
	Links   []Entry `json:"links"`
	Imgs    []Entry `json:"imgs"`
}

// ThirdParty is a Group plus the sorted distinct set of hostnames.
type ThirdParty struct {
	Group
	Domains []string `json:"domains"`
}

// Split is the full first-party/third-party partition of a page.
type Split struct {
	FirstParty Group      `json:"firstParty"`
	ThirdParty ThirdParty `json:"thirdParty"`
}

// Extract walks the document for script[src], link[href] and img[src],
// resolves each against pageURL, and partitions by registrable domain.
func Extract(pageURL *url.URL, root *html.Node, cls *domainclass.Classifier) Split {
	s := Split{
		FirstParty: Group{Scripts: []Entry{}, Links: []Entry{}, Imgs: []Entry{}},
		ThirdParty: ThirdParty{
			Group:   Group{Scripts: []Entry{}, Links: []Entry{}, Imgs: []Entry{}},
			Domains: []string{},
		},
	}
	if root == nil || pageURL == nil {
		return s
	}
	refHost := pageURL.Hostname()
	seen := map[string]bool{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script:
				s.add(refHost, cls, seen, "script", attr(n, "src"), pageURL)
			case atom.Link:
				s.add(refHost, cls, seen, "link", attr(n, "href"), pageURL)
			case atom.Img:
				s.add(refHost, cls, seen, "img", attr(n, "src"), pageURL)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	sort.Strings(s.ThirdParty.Domains)
	return s
}

func (s *Split) add(refHost string, cls *domainclass.Classifier, seen map[string]bool, tag, src string, pageURL *url.URL) {
	if src == "" {
		return
	}
	ref, err := url.Parse(src)
	if err != nil {
		return
	}
	abs := pageURL.ResolveReference(ref)
	host := abs.Hostname()
	e := Entry{Tag: tag, URL: abs.String(), Host: host}

	if domainclass.FirstParty(host, refHost) {
		s.FirstParty.append(tag, e)
		return
	}
	e.Category = cls.Classify(host)
	s.ThirdParty.append(tag, e)
	if host != "" && !seen[host] {
		seen[host] = true
		s.ThirdParty.Domains = append(s.ThirdParty.Domains, host)
	}
}

func (g *Group) append(tag string, e Entry) {
	switch tag {
	case "script":
		g.Scripts = append(g.Scripts, e)
	case "link":
		g.Links = append(g.Links, e)
	default:
		g.Imgs = append(g.Imgs, e)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
