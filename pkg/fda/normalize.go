package fda

import (
	"regexp"
	"strings"

	"github.com/clinprot/regdocs/pkg/common/models"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	digitsRe     = regexp.MustCompile(`\D`)
)

// NormalizeForms cleans up the field bags returned by the extraction
// service before they are persisted: collapsed whitespace, canonical
// phone formatting, uppercased IND numbers. Extraction output is OCR'd
// text and arrives ragged.
func NormalizeForms(f1571 *models.Form1571, f1572 *models.Form1572) {
	if f1571 != nil {
		f1571.INDNumber = strings.ToUpper(cleanText(f1571.INDNumber))
		f1571.SubmissionType = cleanText(f1571.SubmissionType)
		f1571.DrugName = cleanText(f1571.DrugName)
		f1571.DosageForm = cleanText(f1571.DosageForm)
		f1571.RouteOfAdministration = cleanText(f1571.RouteOfAdministration)
		f1571.Indication = cleanText(f1571.Indication)
		f1571.StudyPhase = cleanText(f1571.StudyPhase)
		f1571.ProtocolTitle = cleanText(f1571.ProtocolTitle)
		f1571.ProtocolNumber = cleanText(f1571.ProtocolNumber)
		f1571.SponsorName = cleanText(f1571.SponsorName)
		f1571.SponsorAddress = cleanText(f1571.SponsorAddress)
		f1571.ContactPerson = cleanText(f1571.ContactPerson)
		f1571.ContactPhone = normalizePhone(f1571.ContactPhone)
		f1571.ContactEmail = strings.ToLower(cleanText(f1571.ContactEmail))
		f1571.FDAReviewDivision = cleanText(f1571.FDAReviewDivision)
		f1571.CrossReferenceINDs = cleanSlice(f1571.CrossReferenceINDs)
	}
	if f1572 != nil {
		f1572.ProtocolTitle = cleanText(f1572.ProtocolTitle)
		f1572.ProtocolNumber = cleanText(f1572.ProtocolNumber)
		f1572.InvestigatorName = cleanText(f1572.InvestigatorName)
		f1572.InvestigatorAddress = cleanText(f1572.InvestigatorAddress)
		f1572.InvestigatorPhone = normalizePhone(f1572.InvestigatorPhone)
		f1572.InvestigatorEmail = strings.ToLower(cleanText(f1572.InvestigatorEmail))
		f1572.StudySites = cleanSlice(f1572.StudySites)
		f1572.IRBName = cleanText(f1572.IRBName)
		f1572.IRBAddress = cleanText(f1572.IRBAddress)
		f1572.SubInvestigators = cleanSlice(f1572.SubInvestigators)
		f1572.ClinicalLaboratories = cleanSlice(f1572.ClinicalLaboratories)
	}
}

func cleanText(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

func cleanSlice(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if cleaned := cleanText(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizePhone formats 10-digit US numbers as (xxx) xxx-xxxx and
// leaves anything else trimmed but untouched.
func normalizePhone(s string) string {
	trimmed := cleanText(s)
	digits := digitsRe.ReplaceAllString(trimmed, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return trimmed
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}
