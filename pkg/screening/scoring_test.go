package screening

import (
	"testing"

	"github.com/clinprot/regdocs/pkg/extraction"
)

func TestScorePerfectMatchIsHighlyEligible(t *testing.T) {
	result := Score(extraction.ScreenedPatient{
		PatientID: "PT-001",
		Outcomes: []extraction.CriterionOutcome{
			{Type: "inclusion", Met: true, Detail: "age 55 within range"},
			{Type: "inclusion", Met: true, Detail: "HbA1c 8.1 within range"},
			{Type: "exclusion", Met: false, Detail: "no insulin therapy"},
		},
		DataCompleteness: 1.0,
		NLPConfidence:    0.9,
	})

	if result.EligibilityStatus != StatusHighlyEligible {
		t.Fatalf("expected %s, got %s (confidence %v)", StatusHighlyEligible, result.EligibilityStatus, result.Confidence)
	}
	// 0.50*1 + 0.25*1 + 0.15*1 + 0.10*0.9 = 0.99
	if result.Confidence != 0.99 {
		t.Errorf("expected confidence 0.99, got %v", result.Confidence)
	}
	if result.CriteriaMet != 3 || result.CriteriaTotal != 3 {
		t.Errorf("expected 3/3 criteria, got %d/%d", result.CriteriaMet, result.CriteriaTotal)
	}
}

func TestScoreHardExclusionCapsConfidence(t *testing.T) {
	result := Score(extraction.ScreenedPatient{
		PatientID: "PT-002",
		Outcomes: []extraction.CriterionOutcome{
			{Type: "inclusion", Met: true},
			{Type: "inclusion", Met: true},
			{Type: "exclusion", Met: true, HardExclusion: true, Detail: "eGFR below 30"},
		},
		DataCompleteness: 1.0,
		NLPConfidence:    1.0,
	})

	if result.EligibilityStatus != StatusIneligible {
		t.Fatalf("expected %s, got %s", StatusIneligible, result.EligibilityStatus)
	}
	if result.Confidence > 0.15 {
		t.Errorf("hard exclusion must cap confidence at 0.15, got %v", result.Confidence)
	}
}

func TestScoreSoftExclusionOnlyPenalizes(t *testing.T) {
	result := Score(extraction.ScreenedPatient{
		PatientID: "PT-003",
		Outcomes: []extraction.CriterionOutcome{
			{Type: "inclusion", Met: true},
			{Type: "exclusion", Met: true, HardExclusion: false, Detail: "preferred washout not met"},
		},
		DataCompleteness: 1.0,
		NLPConfidence:    1.0,
	})

	if result.EligibilityStatus == StatusIneligible {
		t.Fatal("soft exclusion alone must not make the patient ineligible")
	}
	// Exclusion score stays 1.0 (no hard exclusions); penalty multiplies the total.
	// (0.50 + 0.25 + 0.15 + 0.10) * 0.85 = 0.85
	if result.Confidence != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", result.Confidence)
	}
}

func TestScorePartialMatchIsUncertain(t *testing.T) {
	result := Score(extraction.ScreenedPatient{
		PatientID: "PT-004",
		Outcomes: []extraction.CriterionOutcome{
			{Type: "inclusion", Met: false},
			{Type: "inclusion", Met: false},
			{Type: "inclusion", Met: false},
		},
		DataCompleteness: 0.4,
		NLPConfidence:    0.5,
	})

	// 0.50*0 + 0.25*1 + 0.15*0.4 + 0.10*0.5 = 0.36, below the 0.45 floor.

	if result.EligibilityStatus != StatusUncertain {
		t.Errorf("expected %s, got %s (confidence %v)", StatusUncertain, result.EligibilityStatus, result.Confidence)
	}
}

func TestScoreNoOutcomes(t *testing.T) {
	result := Score(extraction.ScreenedPatient{PatientID: "PT-005", DataCompleteness: 0, NLPConfidence: 0})
	if result.CriteriaTotal != 0 {
		t.Errorf("expected no criteria, got %d", result.CriteriaTotal)
	}
	if result.EligibilityStatus != StatusUncertain {
		t.Errorf("expected %s for empty outcome set, got %s", StatusUncertain, result.EligibilityStatus)
	}
}
