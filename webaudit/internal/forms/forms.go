// Package forms parses DOM forms into field descriptors and classifies
// fields into PII categories. Parsing is purely lexical: no network request
// or event handler is ever triggered, and no form is ever submitted.
package forms

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field describes one input-like element of a form.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Label    string `json:"label"`
}

// Descriptor describes one parsed form. Action is always resolved to an
// absolute URL against the page's final URL.
type Descriptor struct {
	Action     string         `json:"action"`
	Method     string         `json:"method"`
	Fields     []Field        `json:"fields"`
	PIISummary map[string]int `json:"piiSummary"`
}

// PII categories.
const (
	PIIEmail    = "email"
	PIIPassword = "password"
	PIIPhone    = "phone"
	PIIName     = "name"
	PIIAddress  = "address"
	PIIDOB      = "dob"
	PIIGovID    = "gov_id"
	PIIPayment  = "payment"
)

// Rule is one ordered PII heuristic. A field matches when its type is in
// Types, its name equals an Exact entry, or its name contains a Names
// substring without containing any Exclude substring. All comparisons are
// lowercase.
type Rule struct {
	Category string
	Types    []string
	Exact    []string
	Names    []string
	Exclude  []string
}

// DefaultRules is the built-in heuristic table, first match wins.
var DefaultRules = []Rule{
	{Category: PIIEmail, Types: []string{"email"}, Names: []string{"email"}},
	{Category: PIIPassword, Types: []string{"password"}, Names: []string{"pass"}},
	{Category: PIIPhone, Types: []string{"tel"}, Names: []string{"phone", "tel"}},
	{Category: PIIName, Names: []string{"name"}, Exclude: []string{"username"}},
	{Category: PIIAddress, Names: []string{"address"}},
	{Category: PIIDOB, Names: []string{"dob", "birth", "dateofbirth"}},
	{Category: PIIGovID, Names: []string{"passport", "ssn", "nid", "aadhar"}},
	{Category: PIIPayment, Exact: []string{"cc", "ccnum", "cvv", "cvc"}, Names: []string{"credit", "card", "payment"}},
}

// Classify maps a field's name and type to a PII category. The empty
// string with ok=false means the field matched no heuristic, which is a
// valid outcome, not an error.
func Classify(name, typ string) (category string, ok bool) {
	n := strings.ToLower(name)
	t := strings.ToLower(typ)
	for _, r := range DefaultRules {
		if matchRule(r, n, t) {
			return r.Category, true
		}
	}
	return "", false
}

func matchRule(r Rule, name, typ string) bool {
	for _, rt := range r.Types {
		if typ == rt {
			return true
		}
	}
	if name == "" {
		return false
	}
	for _, e := range r.Exact {
		if name == e {
			return true
		}
	}
	for _, x := range r.Exclude {
		if strings.Contains(name, x) {
			return false
		}
	}
	for _, sub := range r.Names {
		if strings.Contains(name, sub) {
			return true
		}
	}
	return false
}

// Parse extracts every <form> from the document. Forms with zero PII
// fields still appear, with an empty summary.
func Parse(pageURL *url.URL, doc *goquery.Document) []Descriptor {
	out := []Descriptor{}
	doc.Find("form").Each(func(_ int, f *goquery.Selection) {
		action, _ := f.Attr("action")
		method := strings.ToUpper(strings.TrimSpace(f.AttrOr("method", "")))
		if method == "" {
			method = "GET"
		}

		var fields []Field
		f.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
			fields = append(fields, parseField(doc, s))
		})

		pii := map[string]int{}
		for _, fld := range fields {
			if cat, ok := Classify(fld.Name, fld.Type); ok {
				pii[cat]++
			}
		}

		out = append(out, Descriptor{
			Action:     resolve(pageURL, action),
			Method:     method,
			Fields:     fields,
			PIISummary: pii,
		})
	})
	return out
}

func parseField(doc *goquery.Document, s *goquery.Selection) Field {
	name := s.AttrOr("name", "")
	typ := strings.ToLower(s.AttrOr("type", ""))
	if typ == "" {
		if goquery.NodeName(s) == "textarea" {
			typ = "textarea"
		} else {
			typ = "text"
		}
	}
	_, required := s.Attr("required")

	return Field{
		Name:     name,
		Type:     typ,
		Required: required,
		Label:    fieldLabel(doc, s),
	}
}

// fieldLabel resolves the field's label text: a <label for=...> matching
// the field's id wins, otherwise the nearest ancestor <label>.
func fieldLabel(doc *goquery.Document, s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		var text string
		doc.Find("label[for]").EachWithBreak(func(_ int, l *goquery.Selection) bool {
			if l.AttrOr("for", "") == id {
				text = l.Text()
				return false
			}
			return true
		})
		if t := collapse(text); t != "" {
			return t
		}
	}
	return collapse(s.ParentsFiltered("label").First().Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolve makes action absolute against the page URL. An empty action
// resolves to the page itself, matching browser behaviour.
func resolve(pageURL *url.URL, action string) string {
	if pageURL == nil {
		return action
	}
	ref, err := url.Parse(strings.TrimSpace(action))
	if err != nil {
		return action
	}
	return pageURL.ResolveReference(ref).String()
}
