package screening

import (
	"testing"

	"github.com/clinprot/regdocs/pkg/common/models"
)

func sampleResults() []models.ScreeningResult {
	return []models.ScreeningResult{
		{PatientID: "PT-001", EligibilityStatus: StatusHighlyEligible, Confidence: 0.91, CriteriaMet: 5},
		{PatientID: "PT-002", EligibilityStatus: StatusPotentiallyEligible, Confidence: 0.55, CriteriaMet: 3},
		{PatientID: "PT-003", EligibilityStatus: StatusIneligible, Confidence: 0.12, CriteriaMet: 1},
	}
}

func TestParseFilterClausesAndLimit(t *testing.T) {
	filter, err := ParseFilter("confidence >= 0.5, status != ineligible limit 10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filter.Clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(filter.Clauses))
	}
	if filter.Limit != 10 {
		t.Errorf("expected limit 10, got %d", filter.Limit)
	}
}

func TestParseFilterRejectsUnknownField(t *testing.T) {
	if _, err := ParseFilter("age > 40"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestApplyFiltersByConfidence(t *testing.T) {
	filter, err := ParseFilter("confidence >= 0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := filter.Apply(sampleResults())
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	for _, result := range got {
		if result.Confidence < 0.5 {
			t.Errorf("result %s below threshold", result.PatientID)
		}
	}
}

func TestApplyStatusEqualityIsCaseInsensitive(t *testing.T) {
	filter, err := ParseFilter("status = highly eligible")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := filter.Apply(sampleResults())
	if len(got) != 1 || got[0].PatientID != "PT-001" {
		t.Errorf("expected only PT-001, got %v", got)
	}
}

func TestApplyHonorsLimit(t *testing.T) {
	filter := Filter{Limit: 1}
	if got := filter.Apply(sampleResults()); len(got) != 1 {
		t.Errorf("expected 1 result, got %d", len(got))
	}
}

func TestApplyEmptyFilterPassesThrough(t *testing.T) {
	var filter Filter
	if got := filter.Apply(sampleResults()); len(got) != 3 {
		t.Errorf("expected all results, got %d", len(got))
	}
}
