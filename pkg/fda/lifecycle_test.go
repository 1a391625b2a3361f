package fda

import (
	"errors"
	"testing"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/models"
)

func TestReviewOnlyFromExtracted(t *testing.T) {
	if err := CheckTransition(models.DocumentStatusExtracted, OpReview); err != nil {
		t.Fatalf("review from extracted must be legal: %v", err)
	}
	for _, status := range []string{models.DocumentStatusReviewed, models.DocumentStatusSigned} {
		err := CheckTransition(status, OpReview)
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Fatalf("review from %s: expected InvalidTransition, got %v", status, err)
		}
	}
}

func TestSignOnlyFromReviewed(t *testing.T) {
	if err := CheckTransition(models.DocumentStatusReviewed, OpSign); err != nil {
		t.Fatalf("sign from reviewed must be legal: %v", err)
	}
	// extracted -> signed directly is a skipped state
	err := CheckTransition(models.DocumentStatusExtracted, OpSign)
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("sign from extracted: expected InvalidTransition, got %v", err)
	}
	err = CheckTransition(models.DocumentStatusSigned, OpSign)
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("sign from signed: expected InvalidTransition, got %v", err)
	}
}

func TestEditsFailOutsideExtracted(t *testing.T) {
	if err := CheckTransition(models.DocumentStatusExtracted, OpEditField); err != nil {
		t.Fatalf("edit in extracted must be legal: %v", err)
	}
	for _, status := range []string{models.DocumentStatusReviewed, models.DocumentStatusSigned} {
		err := CheckTransition(status, OpEditField)
		if !errors.Is(err, apperrors.ErrNotEditable) {
			t.Fatalf("edit in %s: expected NotEditable, got %v", status, err)
		}
	}
}

func TestDeleteOnlyWhileExtracted(t *testing.T) {
	if err := CheckTransition(models.DocumentStatusExtracted, OpDelete); err != nil {
		t.Fatalf("delete in extracted must be legal: %v", err)
	}
	for _, status := range []string{models.DocumentStatusReviewed, models.DocumentStatusSigned} {
		if err := CheckTransition(status, OpDelete); err == nil {
			t.Fatalf("delete in %s must be rejected to preserve the audit trail", status)
		}
	}
}

func TestStatusOnlyMovesForward(t *testing.T) {
	if got := NextStatus(models.DocumentStatusExtracted, OpReview); got != models.DocumentStatusReviewed {
		t.Fatalf("review must produce reviewed, got %s", got)
	}
	if got := NextStatus(models.DocumentStatusReviewed, OpSign); got != models.DocumentStatusSigned {
		t.Fatalf("sign must produce signed, got %s", got)
	}
	// non-transition operations leave the status alone
	if got := NextStatus(models.DocumentStatusExtracted, OpEditField); got != models.DocumentStatusExtracted {
		t.Fatalf("edit must not change status, got %s", got)
	}
}
