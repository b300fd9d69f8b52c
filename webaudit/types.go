package webaudit

import (
	"time"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/consent"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/forms"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/netrecord"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/policy"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/resources"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/secheaders"
)

// Mode is the declared intent of the audited page. It gates the data
// minimization flag: a signup page legitimately collects more than a login
// page.
type Mode string

const (
	ModeGeneric Mode = "generic"
	ModeLogin   Mode = "login"
	ModeSignup  Mode = "signup"
)

func (m Mode) valid() bool {
	switch m {
	case ModeGeneric, ModeLogin, ModeSignup:
		return true
	}
	return false
}

// Pipeline names which collection path produced the result.
const (
	PipelineDynamic = "dynamic"
	PipelineStatic  = "static"
)

// Request is one audit invocation.
type Request struct {
	URL string `json:"url"`
	// Mode defaults to generic.
	Mode Mode `json:"mode,omitempty"`
	// MaxWaitMs bounds the dynamic page-load wait, not total wall-clock
	// time. Defaults to 15000.
	MaxWaitMs int `json:"maxWaitMs,omitempty"`
}

// Severity of a risk flag.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskFlag is one deterministic finding derived from the collected
// evidence. Flags are recomputed on every run, never persisted on their
// own.
type RiskFlag struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Evidence string   `json:"evidence"`
}

// Result is the complete audit report. The collection fields keep the same
// key set in both pipelines; dynamic-only sections are present but empty
// after a static run so downstream consumers never branch on shape.
type Result struct {
	URL            string             `json:"url"`
	FinalURL       string             `json:"finalUrl"`
	HTTPStatus     *int               `json:"httpStatus"`
	ModeUsed       string             `json:"modeUsed"`
	FallbackReason string             `json:"fallbackReason,omitempty"`
	Error          string             `json:"error,omitempty"`
	Security       secheaders.Report  `json:"security"`
	Consent        consent.Snapshot   `json:"consent"`
	Network        netrecord.Summary  `json:"network"`
	Forms          []forms.Descriptor `json:"forms"`
	Resources      resources.Split    `json:"resources"`
	PolicyLinks    []policy.Link      `json:"policyLinks"`
	Policies       []policy.Document  `json:"policies"`
	Flags          []RiskFlag         `json:"flags"`
	Timestamp      time.Time          `json:"timestamp"`
	ElapsedSeconds float64            `json:"elapsedSeconds"`
}
