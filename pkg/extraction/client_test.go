package extraction

import (
	"context"
	"testing"

	"github.com/clinprot/regdocs/pkg/common/config"
)

// The development fixtures must honor the exclusion-outcome contract:
// Met reports whether the exclusion triggered, so a patient a criterion
// clears carries Met=false and a disqualifying finding carries Met=true.
func TestScreeningFixturesExclusionSemantics(t *testing.T) {
	client := NewClient(&config.Config{})
	patients, err := client.RunScreening(context.Background(), "TRIAL-TEST", mockCriteria())
	if err != nil {
		t.Fatalf("fixture screening failed: %v", err)
	}
	if len(patients) != 2 {
		t.Fatalf("expected 2 fixture patients, got %d", len(patients))
	}

	byID := map[string][]CriterionOutcome{}
	for _, p := range patients {
		byID[p.PatientID] = p.Outcomes
	}

	for _, outcome := range byID["PT-0001"] {
		if outcome.Type == "exclusion" && outcome.Met {
			t.Fatalf("PT-0001 clears every exclusion, yet %q is marked triggered", outcome.Detail)
		}
	}

	hardTriggered := false
	for _, outcome := range byID["PT-0002"] {
		if outcome.Type == "exclusion" && outcome.Met && outcome.HardExclusion {
			hardTriggered = true
		}
	}
	if !hardTriggered {
		t.Fatal("PT-0002's disqualifying eGFR finding must register as a triggered hard exclusion")
	}
}
