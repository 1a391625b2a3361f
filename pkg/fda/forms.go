package fda

import (
	"fmt"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/models"
)

// Form type discriminators accepted by the edit endpoint.
const (
	FormType1571 = "fda_1571"
	FormType1572 = "fda_1572"
)

// ApplyForm1571Updates applies a field-name keyed update map to the
// typed form. Unknown field names are rejected so renamed or misspelled
// fields fail loudly instead of disappearing into an open map.
func ApplyForm1571Updates(form *models.Form1571, updates map[string]interface{}) error {
	for field, value := range updates {
		switch field {
		case "ind_number":
			form.INDNumber = asString(value)
		case "submission_type":
			form.SubmissionType = asString(value)
		case "drug_name":
			form.DrugName = asString(value)
		case "dosage_form":
			form.DosageForm = asString(value)
		case "route_of_administration":
			form.RouteOfAdministration = asString(value)
		case "indication":
			form.Indication = asString(value)
		case "study_phase":
			form.StudyPhase = asString(value)
		case "protocol_title":
			form.ProtocolTitle = asString(value)
		case "protocol_number":
			form.ProtocolNumber = asString(value)
		case "sponsor_name":
			form.SponsorName = asString(value)
		case "sponsor_address":
			form.SponsorAddress = asString(value)
		case "contact_person":
			form.ContactPerson = asString(value)
		case "contact_phone":
			form.ContactPhone = asString(value)
		case "contact_email":
			form.ContactEmail = asString(value)
		case "fda_review_division":
			form.FDAReviewDivision = asString(value)
		case "cross_reference_inds":
			form.CrossReferenceINDs = asStringSlice(value)
		default:
			return apperrors.Validation(fmt.Sprintf("unknown form 1571 field %q", field))
		}
	}
	return nil
}

func ApplyForm1572Updates(form *models.Form1572, updates map[string]interface{}) error {
	for field, value := range updates {
		switch field {
		case "protocol_title":
			form.ProtocolTitle = asString(value)
		case "protocol_number":
			form.ProtocolNumber = asString(value)
		case "investigator_name":
			form.InvestigatorName = asString(value)
		case "investigator_address":
			form.InvestigatorAddress = asString(value)
		case "investigator_phone":
			form.InvestigatorPhone = asString(value)
		case "investigator_email":
			form.InvestigatorEmail = asString(value)
		case "study_sites":
			form.StudySites = asStringSlice(value)
		case "irb_name":
			form.IRBName = asString(value)
		case "irb_address":
			form.IRBAddress = asString(value)
		case "sub_investigators":
			form.SubInvestigators = asStringSlice(value)
		case "clinical_laboratories":
			form.ClinicalLaboratories = asStringSlice(value)
		case "agreement_signed":
			form.AgreementSigned = asBool(value)
		default:
			return apperrors.Validation(fmt.Sprintf("unknown form 1572 field %q", field))
		}
	}
	return nil
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func asStringSlice(v interface{}) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, asString(item))
		}
		return out
	default:
		return nil
	}
}

func asBool(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
