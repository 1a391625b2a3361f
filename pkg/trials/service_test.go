package trials

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/clinprot/regdocs/pkg/common/models"
)

func TestTrialFromDocumentCopies1571Fields(t *testing.T) {
	doc := models.Document{
		ID: uuid.New(),
		Form1571: &models.Form1571{
			ProtocolTitle: "A Phase 2 Study of Glucorex in Type 2 Diabetes",
			DrugName:      "Glucorex",
			Indication:    "Type 2 Diabetes Mellitus",
			StudyPhase:    "Phase 2",
		},
	}

	trial := trialFromDocument(doc)
	if trial.ProtocolTitle != doc.Form1571.ProtocolTitle {
		t.Fatalf("protocol title not copied: %q", trial.ProtocolTitle)
	}
	if trial.DrugName != "Glucorex" {
		t.Fatalf("drug name not copied: %q", trial.DrugName)
	}
	if trial.Indication != "Type 2 Diabetes Mellitus" {
		t.Fatalf("indication not copied: %q", trial.Indication)
	}
	if trial.Phase != "Phase 2" {
		t.Fatalf("study phase not copied: %q", trial.Phase)
	}
	if trial.DocumentID != doc.ID {
		t.Fatal("document link not set")
	}
	if trial.Status != "planned" {
		t.Fatalf("expected new trial to start planned, got %q", trial.Status)
	}
}

func TestTrialFromDocumentWithoutForm(t *testing.T) {
	trial := trialFromDocument(models.Document{ID: uuid.New()})
	if trial.Phase != "" || trial.DrugName != "" {
		t.Fatal("expected empty 1571 fields for a document with no form")
	}
	if !strings.HasPrefix(trial.TrialID, "TRIAL-") || len(trial.TrialID) != len("TRIAL-")+8 {
		t.Fatalf("unexpected trial identifier %q", trial.TrialID)
	}
}
