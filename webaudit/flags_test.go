package webaudit

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/forms"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/policy"
)

func TestEvaluateFlags_NoPolicies(t *testing.T) {
	flags := evaluateFlags(ModeGeneric, nil, nil)
	if len(flags) != 1 || flags[0].ID != FlagNoPolicyFound || flags[0].Severity != SeverityMedium {
		t.Errorf("flags = %+v", flags)
	}
}

func TestEvaluateFlags_NoRightsSection(t *testing.T) {
	policies := []policy.Document{
		{URL: "https://example.com/privacy", Facts: &policy.Facts{MentionsRetention: true}},
	}
	flags := evaluateFlags(ModeGeneric, policies, nil)
	if len(flags) != 1 || flags[0].ID != FlagNoRightsSection || flags[0].Severity != SeverityLow {
		t.Errorf("flags = %+v", flags)
	}
}

func TestEvaluateFlags_RightsPresentSuppressesBoth(t *testing.T) {
	policies := []policy.Document{
		{URL: "https://example.com/a", Facts: &policy.Facts{}},
		{URL: "https://example.com/b", Facts: &policy.Facts{MentionsRights: true}},
	}
	if flags := evaluateFlags(ModeGeneric, policies, nil); len(flags) != 0 {
		t.Errorf("flags = %+v, want none", flags)
	}
}

func TestEvaluateFlags_ErrorOnlyDocumentHasNoFacts(t *testing.T) {
	policies := []policy.Document{{URL: "https://example.com/privacy", Error: "timeout"}}
	flags := evaluateFlags(ModeGeneric, policies, nil)
	if len(flags) != 1 || flags[0].ID != FlagNoRightsSection {
		t.Errorf("flags = %+v, want no_rights_section", flags)
	}
}

func TestEvaluateFlags_MinimizationPerForm(t *testing.T) {
	descs := []forms.Descriptor{
		{Action: "https://x.test/a", PIISummary: map[string]int{"email": 1}},
		{Action: "https://x.test/b", PIISummary: map[string]int{"dob": 1, "payment": 2}},
		{Action: "https://x.test/c", PIISummary: map[string]int{"gov_id": 1}},
	}
	policies := []policy.Document{{Facts: &policy.Facts{MentionsRights: true}}}

	flags := evaluateFlags(ModeLogin, policies, descs)
	if len(flags) != 2 {
		t.Fatalf("flags = %+v, want one per offending form", flags)
	}
	if !strings.Contains(flags[0].Evidence, "/b") || !strings.Contains(flags[0].Evidence, "dob") {
		t.Errorf("evidence = %q", flags[0].Evidence)
	}
	if !strings.Contains(flags[1].Evidence, "/c") || !strings.Contains(flags[1].Evidence, "gov_id") {
		t.Errorf("evidence = %q", flags[1].Evidence)
	}
}

func TestEvaluateFlags_SignupModeGatesMinimization(t *testing.T) {
	descs := []forms.Descriptor{{Action: "https://x.test/signup", PIISummary: map[string]int{"payment": 1}}}
	policies := []policy.Document{{Facts: &policy.Facts{MentionsRights: true}}}
	if flags := evaluateFlags(ModeSignup, policies, descs); len(flags) != 0 {
		t.Errorf("flags = %+v, want none in signup mode", flags)
	}
}

func TestEvaluateFlags_Deterministic(t *testing.T) {
	descs := []forms.Descriptor{
		{Action: "https://x.test/a", PIISummary: map[string]int{"address": 1, "payment": 1}},
	}
	first := evaluateFlags(ModeGeneric, nil, descs)
	second := evaluateFlags(ModeGeneric, nil, descs)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("flag evaluation not deterministic:\n%+v\n%+v", first, second)
	}
}
