package policy

import (
	"regexp"
	"strings"
)

// Facts records which semantic categories a policy document's text
// mentions. One boolean per detector; all five are always present in the
// JSON output.
type Facts struct {
	MentionsRights         bool `json:"mentionsRights"`
	MentionsRetention      bool `json:"mentionsRetention"`
	MentionsTransfers      bool `json:"mentionsTransfers"`
	MentionsPurposes       bool `json:"mentionsPurposes"`
	MentionsDataCategories bool `json:"mentionsDataCategories"`
}

// snippetContext is how many bytes of surrounding text each evidence
// snippet keeps on either side of the first match.
const snippetContext = 60

// factDetectors is the ordered rule table. Each detector contributes one
// boolean fact and, on match, one evidence snippet.
var factDetectors = []struct {
	name string
	re   *regexp.Regexp
	set  func(*Facts)
}{
	{
		"rights",
		regexp.MustCompile(`(?i)right\s+to\s+(access|delete|erasure|rectify|object|opt[-\s]?out|portability)`),
		func(f *Facts) { f.MentionsRights = true },
	},
	{
		"retention",
		regexp.MustCompile(`(?i)(retention|retain(s|ed|ing)?|storage\s+period|how\s+long\s+we\s+keep)`),
		func(f *Facts) { f.MentionsRetention = true },
	},
	{
		"transfers",
		regexp.MustCompile(`(?i)(international|cross[-\s]?border|third[-\s]?country|standard contractual clauses|\bSCCs?\b)`),
		func(f *Facts) { f.MentionsTransfers = true },
	},
	{
		"purposes",
		regexp.MustCompile(`(?i)(analytics|advertis(ing|ement)|personaliz|marketing|security|fraud|account|support)`),
		func(f *Facts) { f.MentionsPurposes = true },
	},
	{
		"data_categories",
		regexp.MustCompile(`(?i)(email|name|phone|address|location|payment|credit|debit|dob|date of birth|passport|ssn)`),
		func(f *Facts) { f.MentionsDataCategories = true },
	},
}

// ExtractFacts runs the five detectors over the plain-text rendering of a
// policy document. Each matching detector sets its fact and contributes a
// snippet of surrounding context.
func ExtractFacts(text string) (Facts, []string) {
	var facts Facts
	snippets := []string{}
	for _, d := range factDetectors {
		loc := d.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		d.set(&facts)
		snippets = append(snippets, snippet(text, loc[0], loc[1]))
	}
	return facts, snippets
}

// snippet cuts ±snippetContext bytes around a match, repairs any rune cut
// at the slice boundaries, and collapses whitespace.
func snippet(text string, start, end int) string {
	lo := start - snippetContext
	if lo < 0 {
		lo = 0
	}
	hi := end + snippetContext
	if hi > len(text) {
		hi = len(text)
	}
	s := strings.ToValidUTF8(text[lo:hi], "")
	return strings.Join(strings.Fields(s), " ")
}
