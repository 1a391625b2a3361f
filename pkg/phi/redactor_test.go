package phi

import (
	"strings"
	"testing"
)

func TestRedactorDetectsPatterns(t *testing.T) {
	redactor, err := NewRedactor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	text := "Patient John Doe SSN 123-45-6789 email john@example.com phone (555) 123-4567"
	result := redactor.Detect(text)
	if !result.Detected {
		t.Fatal("expected PHI detection")
	}
	if len(result.Types) < 3 {
		t.Fatalf("expected ssn, email and phone types, got %v", result.Types)
	}
}

func TestDefaultPhoneRuleMatchesBothFormats(t *testing.T) {
	redactor, err := NewRedactor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	// "(555) 123-4567" is the canonical form contact numbers are
	// normalized to before reaching redaction.
	for _, phone := range []string{"(555) 123-4567", "(555)123-4567", "555-123-4567"} {
		masked := redactor.RedactText("call " + phone + " to enroll")
		if strings.Contains(masked, "123-4567") {
			t.Fatalf("phone %q not masked: %q", phone, masked)
		}
	}
}

func TestRedactTextMasksAllMatches(t *testing.T) {
	redactor, err := NewRedactor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	masked := redactor.RedactText("SSN 123-45-6789, again 987-65-4321")
	if strings.Contains(masked, "123-45-6789") || strings.Contains(masked, "987-65-4321") {
		t.Fatalf("expected all SSNs masked, got %q", masked)
	}
	if !strings.Contains(masked, "***-**-****") {
		t.Fatalf("expected mask token in output, got %q", masked)
	}
}

func TestRedactMapWalksNestedValues(t *testing.T) {
	redactor, err := NewRedactor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	payload := map[string]interface{}{
		"contact_email": "pi@example.org",
		"nested":        map[string]interface{}{"phone": "(555) 123-4567"},
		"sites":         []interface{}{"Site A, contact 555-123-4567"},
	}
	out := redactor.RedactMap(payload)
	if out["contact_email"] == "pi@example.org" {
		t.Fatal("expected top-level email masked")
	}
	nested := out["nested"].(map[string]interface{})
	if nested["phone"] == "(555) 123-4567" {
		t.Fatal("expected nested phone masked")
	}
	// original payload untouched
	if payload["contact_email"] != "pi@example.org" {
		t.Fatal("redaction must not mutate the input")
	}
}

func TestDisabledRulesAreSkipped(t *testing.T) {
	cfg := RulesConfig{Rules: []Rule{
		{Name: "SSN", Type: "ssn", Pattern: `\b\d{3}-\d{2}-\d{4}\b`, Mask: "X", Enabled: false},
	}}
	redactor, err := NewRedactor(cfg)
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}
	if redactor.Detect("123-45-6789").Detected {
		t.Fatal("disabled rule must not match")
	}
}
