package submissions

import (
	"testing"

	"github.com/clinprot/regdocs/pkg/common/models"
)

func boolPtr(v bool) *bool { return &v }

func patients(decisions ...*bool) []models.SubmissionPatient {
	out := make([]models.SubmissionPatient, 0, len(decisions))
	for i, d := range decisions {
		out = append(out, models.SubmissionPatient{PatientID: string(rune('A' + i)), IsApproved: d})
	}
	return out
}

func TestComputeStatus(t *testing.T) {
	cases := []struct {
		name     string
		current  string
		patients []models.SubmissionPatient
		want     string
	}{
		{"all approved", models.SubmissionStatusUnderReview, patients(boolPtr(true), boolPtr(true)), models.SubmissionStatusApproved},
		{"all rejected", models.SubmissionStatusUnderReview, patients(boolPtr(false), boolPtr(false)), models.SubmissionStatusRejected},
		{"mixed decisions", models.SubmissionStatusUnderReview, patients(boolPtr(true), boolPtr(false)), models.SubmissionStatusPartiallyApproved},
		{"any pending keeps under review", models.SubmissionStatusSubmitted, patients(boolPtr(true), nil), models.SubmissionStatusUnderReview},
		{"no patients keeps current", models.SubmissionStatusSubmitted, nil, models.SubmissionStatusSubmitted},
		{"withdrawn is terminal", models.SubmissionStatusWithdrawn, patients(boolPtr(true)), models.SubmissionStatusWithdrawn},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeStatus(tc.current, tc.patients); got != tc.want {
				t.Errorf("ComputeStatus(%s, ...) = %s, want %s", tc.current, got, tc.want)
			}
		})
	}
}
