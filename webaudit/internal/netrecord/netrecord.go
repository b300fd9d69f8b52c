// Package netrecord accumulates the network request observations a browser
// driver emits during a dynamic audit and condenses them into the audit's
// network summary: one entry per completed request with a first/third-party
// verdict and sampled request-body parameter names, plus the derived sorted
// set of third-party hosts and any Set-Cookie response headers seen.
package netrecord

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/driver"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/domainclass"
)

// MaxBodyKeys caps how many body parameter names one request entry
// retains. Bodies are never stored, only their key names.
const MaxBodyKeys = 30

// Request is one observed network exchange, reduced to what the audit
// reports.
type Request struct {
	URL        string   `json:"url"`
	Method     string   `json:"method"`
	Status     *int     `json:"status"`
	ThirdParty bool     `json:"thirdParty"`
	BodyKeys   []string `json:"bodyKeys"`
	Category   string   `json:"category,omitempty"`
}

// Summary is the condensed view of all recorded traffic. Requests keeps
// arrival order; ThirdParties is the sorted distinct host set across the
// third-party entries.
type Summary struct {
	Requests     []Request `json:"requests"`
	ThirdParties []string  `json:"thirdParties"`
	SetCookies   []string  `json:"setCookies"`
}

// Recorder collects driver request events. Safe for concurrent use;
// drivers deliver events from their own goroutines.
type Recorder struct {
	mu         sync.Mutex
	reference  string
	cls        *domainclass.Classifier
	requests   []Request
	domains    map[string]struct{}
	setCookies []string
}

// New returns a recorder partitioning traffic against the host of the
// originally requested page URL. A nil classifier falls back to the
// default tracker table.
func New(referenceHost string, cls *domainclass.Classifier) *Recorder {
	if cls == nil {
		cls = domainclass.New(nil)
	}
	return &Recorder{
		reference: referenceHost,
		cls:       cls,
		domains:   make(map[string]struct{}),
	}
}

// Record ingests one finished request event.
func (r *Recorder) Record(ev driver.RequestEvent) {
	u, err := url.Parse(ev.URL)
	if err != nil || u.Hostname() == "" {
		return
	}
	host := u.Hostname()

	req := Request{
		URL:        ev.URL,
		Method:     ev.Method,
		Status:     ev.Status,
		ThirdParty: !domainclass.FirstParty(host, r.reference),
		BodyKeys:   bodyKeyNames(ev.Body),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ThirdParty {
		r.domains[host] = struct{}{}
		if cat := r.cls.Classify(host); cat != domainclass.CategoryOther {
			req.Category = string(cat)
		}
	}
	r.requests = append(r.requests, req)
	r.setCookies = append(r.setCookies, ev.SetCookies...)
}

// Summarize returns the condensed traffic view. All slices are non-nil so
// the serialised shape is stable even for an empty session.
func (r *Recorder) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		Requests:     make([]Request, len(r.requests)),
		ThirdParties: make([]string, 0, len(r.domains)),
		SetCookies:   make([]string, len(r.setCookies)),
	}
	copy(s.Requests, r.requests)
	copy(s.SetCookies, r.setCookies)
	for d := range r.domains {
		s.ThirdParties = append(s.ThirdParties, d)
	}
	sort.Strings(s.ThirdParties)
	return s
}

// bodyKeyNames extracts parameter names from a request body without
// retaining any values. JSON objects yield their top-level keys; other
// valid JSON (arrays, scalars) has no parameter names and yields none;
// everything else is tried as a form-encoded string. Always non-nil,
// capped at MaxBodyKeys.
func bodyKeyNames(body string) []string {
	keys := []string{}
	if body == "" {
		return keys
	}

	if json.Valid([]byte(body)) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &obj); err == nil {
			for k := range obj {
				keys = append(keys, k)
			}
		}
	} else if vals, err := url.ParseQuery(body); err == nil {
		for k := range vals {
			if strings.TrimSpace(k) != "" {
				keys = append(keys, k)
			}
		}
	}

	sort.Strings(keys)
	if len(keys) > MaxBodyKeys {
		keys = keys[:MaxBodyKeys]
	}
	return keys
}
