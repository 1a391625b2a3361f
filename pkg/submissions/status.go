package submissions

import "github.com/clinprot/regdocs/pkg/common/models"

// ComputeStatus derives the submission status from its patients'
// tri-state approval decisions. Any pending patient keeps the submission
// under review; once every decision is in, the mix decides the outcome.
// A submission with no patients stays wherever it is.
func ComputeStatus(current string, patients []models.SubmissionPatient) string {
	if current == models.SubmissionStatusWithdrawn {
		return current
	}
	if len(patients) == 0 {
		return current
	}

	approved, rejected := 0, 0
	for _, patient := range patients {
		if patient.IsApproved == nil {
			return models.SubmissionStatusUnderReview
		}
		if *patient.IsApproved {
			approved++
		} else {
			rejected++
		}
	}

	switch {
	case rejected == 0:
		return models.SubmissionStatusApproved
	case approved == 0:
		return models.SubmissionStatusRejected
	default:
		return models.SubmissionStatusPartiallyApproved
	}
}
