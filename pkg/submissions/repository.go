package submissions

import (
	"context"
	"errors"
	"time"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type submissionModel struct {
	ID                      uuid.UUID  `gorm:"primaryKey;column:id"`
	TrialID                 uuid.UUID  `gorm:"column:trial_id;index"`
	PrincipalInvestigatorID uuid.UUID  `gorm:"column:principal_investigator_id;index"`
	SubmittedByUserID       uuid.UUID  `gorm:"column:submitted_by_user_id"`
	Status                  string     `gorm:"column:status"`
	SubmissionDate          time.Time  `gorm:"column:submission_date"`
	ReviewedAt              *time.Time `gorm:"column:reviewed_at"`
	Notes                   string     `gorm:"column:notes"`
}

func (submissionModel) TableName() string { return "trial_submissions" }

type submissionPatientModel struct {
	ID                uuid.UUID `gorm:"primaryKey;column:id"`
	SubmissionID      uuid.UUID `gorm:"column:submission_id;index:idx_submission_patient,unique"`
	PatientID         string    `gorm:"column:patient_id;index:idx_submission_patient,unique"`
	EligibilityStatus string    `gorm:"column:eligibility_status"`
	ConfidenceScore   float64   `gorm:"column:confidence_score"`
	IsApproved        *bool     `gorm:"column:is_approved"`
}

func (submissionPatientModel) TableName() string { return "submission_patients" }

type piReviewModel struct {
	ID           uuid.UUID `gorm:"primaryKey;column:id"`
	SubmissionID uuid.UUID `gorm:"column:submission_id;index"`
	ReviewType   string    `gorm:"column:review_type"`
	PatientID    *string   `gorm:"column:patient_id"`
	Comment      string    `gorm:"column:comment"`
	Decision     *string   `gorm:"column:decision"`
	ReviewedAt   time.Time `gorm:"column:reviewed_at"`
}

func (piReviewModel) TableName() string { return "pi_reviews" }

type piModel struct {
	ID          uuid.UUID `gorm:"primaryKey;column:id"`
	Name        string    `gorm:"column:name"`
	Email       string    `gorm:"column:email;uniqueIndex"`
	Institution string    `gorm:"column:institution"`
	Specialty   string    `gorm:"column:specialty"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (piModel) TableName() string { return "principal_investigators" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&submissionModel{}, &submissionPatientModel{}, &piReviewModel{}, &piModel{})
}

func (r *Repository) CreateSubmission(ctx context.Context, sub models.Submission) (models.Submission, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &submissionModel{
			ID:                      uuid.New(),
			TrialID:                 sub.TrialID,
			PrincipalInvestigatorID: sub.PrincipalInvestigatorID,
			SubmittedByUserID:       sub.SubmittedByUserID,
			Status:                  models.SubmissionStatusSubmitted,
			SubmissionDate:          time.Now().UTC(),
			Notes:                   sub.Notes,
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		sub.ID = row.ID
		sub.Status = row.Status
		sub.SubmissionDate = row.SubmissionDate

		for i := range sub.Patients {
			patient := &submissionPatientModel{
				ID:                uuid.New(),
				SubmissionID:      row.ID,
				PatientID:         sub.Patients[i].PatientID,
				EligibilityStatus: sub.Patients[i].EligibilityStatus,
				ConfidenceScore:   sub.Patients[i].Confidence,
			}
			if err := tx.Create(patient).Error; err != nil {
				return err
			}
			sub.Patients[i].ID = patient.ID
			sub.Patients[i].SubmissionID = row.ID
		}
		return nil
	})
	if err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}

func (r *Repository) GetSubmission(ctx context.Context, id uuid.UUID) (models.Submission, error) {
	var row submissionModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, apperrors.NotFound("submission", id)
		}
		return models.Submission{}, err
	}

	var patientRows []submissionPatientModel
	if err := r.db.WithContext(ctx).Where("submission_id = ?", id).Order("patient_id").Find(&patientRows).Error; err != nil {
		return models.Submission{}, err
	}
	var reviewRows []piReviewModel
	if err := r.db.WithContext(ctx).Where("submission_id = ?", id).Order("reviewed_at").Find(&reviewRows).Error; err != nil {
		return models.Submission{}, err
	}
	return buildSubmission(&row, patientRows, reviewRows), nil
}

func (r *Repository) ListByTrial(ctx context.Context, trialID uuid.UUID) ([]models.Submission, error) {
	var rows []submissionModel
	if err := r.db.WithContext(ctx).Where("trial_id = ?", trialID).Order("submission_date DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	subs := make([]models.Submission, 0, len(rows))
	for i := range rows {
		subs = append(subs, buildSubmission(&rows[i], nil, nil))
	}
	return subs, nil
}

// decision is the approval write applied inside one transaction along
// with the derived-status recomputation and the append-only review row.
type decision struct {
	PatientIDs []string // nil means every patient in the submission
	Approved   *bool
	Review     models.PIReview
	// Strict requires every named patient to exist; bulk updates ignore
	// unknown ids instead.
	Strict bool
}

// ApplyDecision updates patient approvals, recomputes the submission
// status from the full patient set, and appends the review row, all in
// one transaction. This is the only place the derived status is written.
func (r *Repository) ApplyDecision(ctx context.Context, submissionID uuid.UUID, d decision) (models.Submission, error) {
	var result models.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub submissionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sub, "id = ?", submissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("submission", submissionID)
			}
			return err
		}
		if sub.Status == models.SubmissionStatusWithdrawn {
			return apperrors.InvalidTransition(sub.Status, "review")
		}

		if d.Approved != nil || d.PatientIDs != nil {
			query := tx.Model(&submissionPatientModel{}).Where("submission_id = ?", submissionID)
			if d.PatientIDs != nil {
				query = query.Where("patient_id IN ?", d.PatientIDs)
			}
			res := query.Update("is_approved", d.Approved)
			if res.Error != nil {
				return res.Error
			}
			if d.Strict && res.RowsAffected == 0 {
				return apperrors.NotFound("patient", d.PatientIDs)
			}
		}

		var patientRows []submissionPatientModel
		if err := tx.Where("submission_id = ?", submissionID).Order("patient_id").Find(&patientRows).Error; err != nil {
			return err
		}
		patients := make([]models.SubmissionPatient, 0, len(patientRows))
		for i := range patientRows {
			patients = append(patients, buildPatient(&patientRows[i]))
		}

		now := time.Now().UTC()
		newStatus := ComputeStatus(sub.Status, patients)
		updates := map[string]interface{}{"status": newStatus}
		if isTerminal(newStatus) {
			updates["reviewed_at"] = now
		}
		if err := tx.Model(&submissionModel{}).Where("id = ?", submissionID).Updates(updates).Error; err != nil {
			return err
		}

		review := &piReviewModel{
			ID:           uuid.New(),
			SubmissionID: submissionID,
			ReviewType:   d.Review.ReviewType,
			PatientID:    d.Review.PatientID,
			Comment:      d.Review.Comment,
			Decision:     d.Review.Decision,
			ReviewedAt:   now,
		}
		if err := tx.Create(review).Error; err != nil {
			return err
		}

		sub.Status = newStatus
		if isTerminal(newStatus) {
			sub.ReviewedAt = &now
		}
		result = buildSubmission(&sub, patientRows, nil)
		return nil
	})
	if err != nil {
		return models.Submission{}, err
	}
	return result, nil
}

// AppendComment records a general PI comment without touching any
// approval state.
func (r *Repository) AppendComment(ctx context.Context, submissionID uuid.UUID, comment string) (models.PIReview, error) {
	var exists int64
	if err := r.db.WithContext(ctx).Model(&submissionModel{}).Where("id = ?", submissionID).Count(&exists).Error; err != nil {
		return models.PIReview{}, err
	}
	if exists == 0 {
		return models.PIReview{}, apperrors.NotFound("submission", submissionID)
	}
	row := &piReviewModel{
		ID:           uuid.New(),
		SubmissionID: submissionID,
		ReviewType:   models.ReviewTypeGeneralComment,
		Comment:      comment,
		ReviewedAt:   time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.PIReview{}, err
	}
	return buildReview(row), nil
}

func (r *Repository) CreatePI(ctx context.Context, req models.CreatePIRequest) (models.PrincipalInvestigator, error) {
	row := &piModel{
		ID:          uuid.New(),
		Name:        req.Name,
		Email:       req.Email,
		Institution: req.Institution,
		Specialty:   req.Specialty,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.PrincipalInvestigator{}, err
	}
	return buildPI(row), nil
}

func (r *Repository) ListPIs(ctx context.Context) ([]models.PrincipalInvestigator, error) {
	var rows []piModel
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	pis := make([]models.PrincipalInvestigator, 0, len(rows))
	for i := range rows {
		pis = append(pis, buildPI(&rows[i]))
	}
	return pis, nil
}

func (r *Repository) GetPI(ctx context.Context, id uuid.UUID) (models.PrincipalInvestigator, error) {
	var row piModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PrincipalInvestigator{}, apperrors.NotFound("principal investigator", id)
		}
		return models.PrincipalInvestigator{}, err
	}
	return buildPI(&row), nil
}

func isTerminal(status string) bool {
	switch status {
	case models.SubmissionStatusApproved, models.SubmissionStatusRejected,
		models.SubmissionStatusPartiallyApproved, models.SubmissionStatusWithdrawn:
		return true
	}
	return false
}

func buildSubmission(row *submissionModel, patients []submissionPatientModel, reviews []piReviewModel) models.Submission {
	sub := models.Submission{
		ID:                      row.ID,
		TrialID:                 row.TrialID,
		PrincipalInvestigatorID: row.PrincipalInvestigatorID,
		SubmittedByUserID:       row.SubmittedByUserID,
		Status:                  row.Status,
		SubmissionDate:          row.SubmissionDate,
		ReviewedAt:              row.ReviewedAt,
		Notes:                   row.Notes,
	}
	for i := range patients {
		sub.Patients = append(sub.Patients, buildPatient(&patients[i]))
	}
	for i := range reviews {
		sub.Reviews = append(sub.Reviews, buildReview(&reviews[i]))
	}
	return sub
}

func buildPatient(row *submissionPatientModel) models.SubmissionPatient {
	return models.SubmissionPatient{
		ID:                row.ID,
		SubmissionID:      row.SubmissionID,
		PatientID:         row.PatientID,
		EligibilityStatus: row.EligibilityStatus,
		Confidence:        row.ConfidenceScore,
		IsApproved:        row.IsApproved,
	}
}

func buildReview(row *piReviewModel) models.PIReview {
	return models.PIReview{
		ID:           row.ID,
		SubmissionID: row.SubmissionID,
		ReviewType:   row.ReviewType,
		PatientID:    row.PatientID,
		Comment:      row.Comment,
		Decision:     row.Decision,
		ReviewedAt:   row.ReviewedAt,
	}
}

func buildPI(row *piModel) models.PrincipalInvestigator {
	return models.PrincipalInvestigator{
		ID:          row.ID,
		Name:        row.Name,
		Email:       row.Email,
		Institution: row.Institution,
		Specialty:   row.Specialty,
		CreatedAt:   row.CreatedAt,
	}
}
