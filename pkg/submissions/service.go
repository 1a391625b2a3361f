package submissions

import (
	"context"

	"github.com/clinprot/regdocs/pkg/audit"
	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/kafka"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/clinprot/regdocs/pkg/observability/metrics"
	"github.com/google/uuid"
)

// TrialSource resolves a trial by UUID or public identifier.
type TrialSource interface {
	Resolve(ctx context.Context, ref string) (models.Trial, error)
}

// ScreeningSource supplies the scored screening rows for a trial so a
// new submission can snapshot eligibility at submission time.
type ScreeningSource interface {
	ListByTrial(ctx context.Context, trialID uuid.UUID) ([]models.ScreeningResult, error)
}

type Service struct {
	repo      *Repository
	trials    TrialSource
	screening ScreeningSource
	auditor   *audit.Service
	producer  *kafka.Producer
}

func NewService(repo *Repository, trials TrialSource, screening ScreeningSource, auditor *audit.Service, producer *kafka.Producer) *Service {
	return &Service{repo: repo, trials: trials, screening: screening, auditor: auditor, producer: producer}
}

// Create submits a set of screened patients to a principal investigator
// for review. Eligibility status and confidence are snapshotted from the
// screening analysis at submission time.
func (s *Service) Create(ctx context.Context, req models.CreateSubmissionRequest, submittedBy uuid.UUID, actor string) (models.Submission, error) {
	if len(req.PatientIDs) == 0 {
		return models.Submission{}, apperrors.Validation("patient_ids must not be empty")
	}
	trial, err := s.trials.Resolve(ctx, req.TrialID.String())
	if err != nil {
		return models.Submission{}, err
	}
	if _, err := s.repo.GetPI(ctx, req.PrincipalInvestigatorID); err != nil {
		return models.Submission{}, err
	}

	screened, err := s.screening.ListByTrial(ctx, trial.ID)
	if err != nil {
		return models.Submission{}, err
	}
	byPatient := make(map[string]models.ScreeningResult, len(screened))
	for _, result := range screened {
		byPatient[result.PatientID] = result
	}

	sub := models.Submission{
		TrialID:                 trial.ID,
		PrincipalInvestigatorID: req.PrincipalInvestigatorID,
		SubmittedByUserID:       submittedBy,
		Notes:                   req.Notes,
	}
	for _, patientID := range req.PatientIDs {
		patient := models.SubmissionPatient{PatientID: patientID}
		if result, ok := byPatient[patientID]; ok {
			patient.EligibilityStatus = result.EligibilityStatus
			patient.Confidence = result.Confidence
		}
		sub.Patients = append(sub.Patients, patient)
	}

	created, err := s.repo.CreateSubmission(ctx, sub)
	if err != nil {
		return models.Submission{}, err
	}

	s.auditor.Record(ctx, models.AuditEntry{
		Action:     "submission_created",
		Agent:      actor,
		TargetType: "submission",
		TargetID:   created.ID.String(),
		Details: map[string]interface{}{
			"trial_id":      trial.TrialID,
			"patient_count": len(created.Patients),
		},
	})
	if s.producer != nil {
		_ = s.producer.PublishEvent(ctx, "submission.created", "regdocs-server", map[string]interface{}{
			"submission_id": created.ID.String(),
			"trial_id":      trial.TrialID,
		})
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Submission, error) {
	return s.repo.GetSubmission(ctx, id)
}

func (s *Service) ListByTrial(ctx context.Context, ref string) ([]models.Submission, error) {
	trial, err := s.trials.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByTrial(ctx, trial.ID)
}

// ApprovePatient records a single patient decision. The submission
// status is recomputed in the same transaction as the approval write.
func (s *Service) ApprovePatient(ctx context.Context, submissionID uuid.UUID, req models.ApprovePatientRequest, actor string) (models.Submission, error) {
	if req.PatientID == "" {
		return models.Submission{}, apperrors.Validation("patient_id is required")
	}
	sub, err := s.repo.ApplyDecision(ctx, submissionID, decision{
		PatientIDs: []string{req.PatientID},
		Approved:   req.Approved,
		Strict:     true,
		Review: models.PIReview{
			ReviewType: reviewType(req.Approved),
			PatientID:  &req.PatientID,
			Comment:    req.Comment,
			Decision:   decisionLabel(req.Approved),
		},
	})
	if err != nil {
		return models.Submission{}, err
	}
	s.recordDecision(ctx, sub, actor, "patient_decision_recorded", map[string]interface{}{
		"patient_id": req.PatientID,
		"approved":   req.Approved,
	})
	return sub, nil
}

// ApproveAll applies one decision to every patient in the submission.
func (s *Service) ApproveAll(ctx context.Context, submissionID uuid.UUID, approved bool, comment, actor string) (models.Submission, error) {
	sub, err := s.repo.ApplyDecision(ctx, submissionID, decision{
		Approved: &approved,
		Review: models.PIReview{
			ReviewType: reviewType(&approved),
			Comment:    comment,
			Decision:   decisionLabel(&approved),
		},
	})
	if err != nil {
		return models.Submission{}, err
	}
	s.recordDecision(ctx, sub, actor, "all_patients_decided", map[string]interface{}{"approved": approved})
	return sub, nil
}

// ApproveBulk approves the named patients in one transaction. Patient
// ids that do not belong to the submission are ignored.
func (s *Service) ApproveBulk(ctx context.Context, submissionID uuid.UUID, req models.BulkApproveRequest, actor string) (models.Submission, error) {
	if len(req.PatientIDs) == 0 {
		return models.Submission{}, apperrors.Validation("patient_ids must not be empty")
	}
	approved := true
	sub, err := s.repo.ApplyDecision(ctx, submissionID, decision{
		PatientIDs: req.PatientIDs,
		Approved:   &approved,
		Review: models.PIReview{
			ReviewType: models.ReviewTypePatientApproval,
			Comment:    req.Comment,
			Decision:   decisionLabel(&approved),
		},
	})
	if err != nil {
		return models.Submission{}, err
	}
	s.recordDecision(ctx, sub, actor, "patients_bulk_approved", map[string]interface{}{
		"patient_ids": req.PatientIDs,
	})
	return sub, nil
}

// AddComment appends a general review comment. Approval state is not
// touched.
func (s *Service) AddComment(ctx context.Context, submissionID uuid.UUID, comment, actor string) (models.PIReview, error) {
	if comment == "" {
		return models.PIReview{}, apperrors.Validation("comment is required")
	}
	review, err := s.repo.AppendComment(ctx, submissionID, comment)
	if err != nil {
		return models.PIReview{}, err
	}
	s.auditor.Record(ctx, models.AuditEntry{
		Action:     "submission_comment_added",
		Agent:      actor,
		TargetType: "submission",
		TargetID:   submissionID.String(),
	})
	return review, nil
}

func (s *Service) CreatePI(ctx context.Context, req models.CreatePIRequest, actor string) (models.PrincipalInvestigator, error) {
	if req.Name == "" || req.Email == "" {
		return models.PrincipalInvestigator{}, apperrors.Validation("name and email are required")
	}
	pi, err := s.repo.CreatePI(ctx, req)
	if err != nil {
		return models.PrincipalInvestigator{}, err
	}
	s.auditor.Record(ctx, models.AuditEntry{
		Action:     "principal_investigator_created",
		Agent:      actor,
		TargetType: "principal_investigator",
		TargetID:   pi.ID.String(),
	})
	return pi, nil
}

func (s *Service) ListPIs(ctx context.Context) ([]models.PrincipalInvestigator, error) {
	return s.repo.ListPIs(ctx)
}

func (s *Service) recordDecision(ctx context.Context, sub models.Submission, actor, action string, details map[string]interface{}) {
	metrics.IncApprovalsRecorded()
	details["status"] = sub.Status
	s.auditor.Record(ctx, models.AuditEntry{
		Action:     action,
		Agent:      actor,
		TargetType: "submission",
		TargetID:   sub.ID.String(),
		Details:    details,
	})
	if s.producer != nil && isTerminal(sub.Status) {
		_ = s.producer.PublishEvent(ctx, "submission.reviewed", "regdocs-server", map[string]interface{}{
			"submission_id": sub.ID.String(),
			"status":        sub.Status,
		})
	}
}

func reviewType(approved *bool) string {
	if approved != nil && !*approved {
		return models.ReviewTypePatientRejection
	}
	return models.ReviewTypePatientApproval
}

func decisionLabel(approved *bool) *string {
	if approved == nil {
		return nil
	}
	label := "REJECTED"
	if *approved {
		label = "APPROVED"
	}
	return &label
}
