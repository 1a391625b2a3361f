package trials

import (
	"testing"

	"github.com/clinprot/regdocs/pkg/common/models"
)

func TestBuildGlossaryCountsCategories(t *testing.T) {
	rules := []models.Rule{
		{Type: "inclusion", Category: "lab_threshold"},
		{Type: "inclusion", Category: "lab_threshold"},
		{Type: "exclusion", Category: "medication"},
		{Type: "inclusion", Category: ""},
	}

	terms := DefaultGlossary().BuildGlossary(rules)
	if len(terms) != 2 {
		t.Fatalf("expected 2 glossary terms, got %d", len(terms))
	}
	if terms[0].Term != "lab_threshold" || terms[0].RuleCount != 2 {
		t.Errorf("unexpected first term: %+v", terms[0])
	}
	if terms[0].Definition == "" {
		t.Error("catalog definition not carried through for known category")
	}
	if terms[1].Term != "medication" || terms[1].RuleCount != 1 {
		t.Errorf("unexpected second term: %+v", terms[1])
	}
}

func TestBuildGlossaryUnknownCategoryGetsDisplayName(t *testing.T) {
	terms := DefaultGlossary().BuildGlossary([]models.Rule{
		{Type: "inclusion", Category: "imaging_finding"},
	})
	if len(terms) != 1 {
		t.Fatalf("expected 1 term, got %d", len(terms))
	}
	if terms[0].Display != "Imaging Finding" {
		t.Errorf("unknown category should get a title-cased display name, got %q", terms[0].Display)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"imaging_finding": "Imaging Finding",
		"DEMOGRAPHIC":     "Demographic",
		"ecog":            "Ecog",
		"":                "",
	}
	for in, want := range cases {
		if got := displayName(in); got != want {
			t.Errorf("displayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	if _, ok := DefaultGlossary().Lookup("LAB_THRESHOLD"); !ok {
		t.Error("uppercase lookup should resolve")
	}
	if _, ok := DefaultGlossary().Lookup("no_such_term"); ok {
		t.Error("missing term should not resolve")
	}
}
