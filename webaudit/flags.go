package webaudit

import (
	"fmt"
	"strings"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/forms"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/policy"
)

// Risk flag identifiers.
const (
	FlagNoPolicyFound    = "no_policy_found"
	FlagNoRightsSection  = "no_rights_section"
	FlagMinimizationRisk = "minimization_risk"
)

// sensitiveCategories are the PII categories that trigger the data
// minimization flag on pages not declared as signup.
var sensitiveCategories = []string{
	forms.PIIAddress,
	forms.PIIDOB,
	forms.PIIGovID,
	forms.PIIPayment,
}

// evaluateFlags derives the risk flag list from the collected evidence.
// Evaluation order is fixed and the function is pure, so two runs over the
// same evidence produce identical lists. Flags are appended, never
// deduplicated: the minimization flag fires once per offending form.
func evaluateFlags(mode Mode, policies []policy.Document, descs []forms.Descriptor) []RiskFlag {
	flags := []RiskFlag{}

	if len(policies) == 0 {
		flags = append(flags, RiskFlag{
			ID:       FlagNoPolicyFound,
			Severity: SeverityMedium,
			Evidence: "No discoverable privacy links.",
		})
	} else if !anyMentionsRights(policies) {
		flags = append(flags, RiskFlag{
			ID:       FlagNoRightsSection,
			Severity: SeverityLow,
			Evidence: "Could not find user rights mentions.",
		})
	}

	if mode == ModeLogin || mode == ModeGeneric {
		for _, d := range descs {
			var hit []string
			for _, cat := range sensitiveCategories {
				if d.PIISummary[cat] > 0 {
					hit = append(hit, cat)
				}
			}
			if len(hit) == 0 {
				continue
			}
			flags = append(flags, RiskFlag{
				ID:       FlagMinimizationRisk,
				Severity: SeverityMedium,
				Evidence: fmt.Sprintf("Form %s collects %s in %s mode.",
					d.Action, strings.Join(hit, ", "), mode),
			})
		}
	}

	return flags
}

func anyMentionsRights(policies []policy.Document) bool {
	for _, p := range policies {
		if p.Facts != nil && p.Facts.MentionsRights {
			return true
		}
	}
	return false
}
