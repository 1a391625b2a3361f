package fda

import (
	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/models"
)

// Operation is a mutation attempted against a document.
type Operation string

const (
	OpReview    Operation = "review"
	OpSign      Operation = "sign"
	OpEditField Operation = "edit_field"
	OpDelete    Operation = "delete"
)

// allowedStates is the explicit state x operation table. An operation
// is legal only when the document's current status appears here; there
// is no implicit ordering and no way to skip a state.
var allowedStates = map[Operation]map[string]bool{
	OpReview:    {models.DocumentStatusExtracted: true},
	OpSign:      {models.DocumentStatusReviewed: true},
	OpEditField: {models.DocumentStatusExtracted: true},
	OpDelete:    {models.DocumentStatusExtracted: true},
}

// nextStatus maps a transition operation to the status it produces.
var nextStatus = map[Operation]string{
	OpReview: models.DocumentStatusReviewed,
	OpSign:   models.DocumentStatusSigned,
}

// CheckTransition validates an operation against the current status.
// Field edits outside extracted fail with NotEditable; illegal status
// moves fail with InvalidTransition.
func CheckTransition(current string, op Operation) error {
	states, ok := allowedStates[op]
	if !ok {
		return apperrors.Validation("unknown operation " + string(op))
	}
	if states[current] {
		return nil
	}
	switch op {
	case OpEditField:
		return apperrors.NotEditable(current)
	case OpDelete:
		return apperrors.InvalidTransition(current, "deleted")
	default:
		return apperrors.InvalidTransition(current, nextStatus[op])
	}
}

// NextStatus returns the status a successful transition operation
// produces. Non-transition operations return the current status.
func NextStatus(current string, op Operation) string {
	if next, ok := nextStatus[op]; ok {
		return next
	}
	return current
}
