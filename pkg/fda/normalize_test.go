package fda

import (
	"testing"

	"github.com/clinprot/regdocs/pkg/common/models"
)

func TestNormalizeFormsCleansExtractedText(t *testing.T) {
	f1571 := &models.Form1571{
		INDNumber:    "  ind-123456 ",
		DrugName:     "Compound   X\n(extended  release)",
		ContactPhone: "555.123.4567",
		ContactEmail: " Regulatory@Sponsor.COM ",
	}
	f1572 := &models.Form1572{
		InvestigatorPhone: "1-555-123-4567",
		StudySites:        []string{" Site 001 ", "", "Site  002"},
	}

	NormalizeForms(f1571, f1572)

	if f1571.INDNumber != "IND-123456" {
		t.Fatalf("IND number not normalized: %q", f1571.INDNumber)
	}
	if f1571.DrugName != "Compound X (extended release)" {
		t.Fatalf("whitespace not collapsed: %q", f1571.DrugName)
	}
	if f1571.ContactPhone != "(555) 123-4567" {
		t.Fatalf("phone not normalized: %q", f1571.ContactPhone)
	}
	if f1571.ContactEmail != "regulatory@sponsor.com" {
		t.Fatalf("email not lowered: %q", f1571.ContactEmail)
	}
	if f1572.InvestigatorPhone != "(555) 123-4567" {
		t.Fatalf("leading country code not stripped: %q", f1572.InvestigatorPhone)
	}
	if len(f1572.StudySites) != 2 || f1572.StudySites[1] != "Site 002" {
		t.Fatalf("empty site entries not dropped: %v", f1572.StudySites)
	}
}

func TestNormalizePhoneLeavesShortNumbersAlone(t *testing.T) {
	if got := normalizePhone("x1234"); got != "x1234" {
		t.Fatalf("non-10-digit input must pass through, got %q", got)
	}
}
