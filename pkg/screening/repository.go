package screening

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type analysisModel struct {
	ID                uuid.UUID      `gorm:"primaryKey;column:id"`
	TrialID           uuid.UUID      `gorm:"column:trial_id;index:idx_screening_trial_patient,unique"`
	PatientID         string         `gorm:"column:patient_id;index:idx_screening_trial_patient,unique"`
	EligibilityStatus string         `gorm:"column:eligibility_status"`
	ConfidenceScore   float64        `gorm:"column:confidence_score"`
	CriteriaMet       int            `gorm:"column:criteria_met"`
	CriteriaTotal     int            `gorm:"column:criteria_total"`
	Reasons           datatypes.JSON `gorm:"column:reasons"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at"`
}

func (analysisModel) TableName() string { return "patient_screening_analysis" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&analysisModel{})
}

// ReplaceForTrial upserts the screening results for a trial. Each run of
// the screening job delivers the full patient set; stale rows for
// patients no longer in the run are removed.
func (r *Repository) ReplaceForTrial(ctx context.Context, trialID uuid.UUID, results []models.ScreeningResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trial_id = ?", trialID).Delete(&analysisModel{}).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, result := range results {
			row := &analysisModel{
				ID:                uuid.New(),
				TrialID:           trialID,
				PatientID:         result.PatientID,
				EligibilityStatus: result.EligibilityStatus,
				ConfidenceScore:   result.Confidence,
				CriteriaMet:       result.CriteriaMet,
				CriteriaTotal:     result.CriteriaTotal,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if len(result.Reasons) > 0 {
				if data, err := json.Marshal(result.Reasons); err == nil {
					row.Reasons = datatypes.JSON(data)
				}
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "trial_id"}, {Name: "patient_id"}},
				UpdateAll: true,
			}).Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) ListByTrial(ctx context.Context, trialID uuid.UUID) ([]models.ScreeningResult, error) {
	var rows []analysisModel
	if err := r.db.WithContext(ctx).
		Where("trial_id = ?", trialID).
		Order("confidence_score DESC, patient_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	results := make([]models.ScreeningResult, 0, len(rows))
	for i := range rows {
		results = append(results, buildResult(&rows[i]))
	}
	return results, nil
}

func (r *Repository) GetPatient(ctx context.Context, trialID uuid.UUID, patientID string) (models.ScreeningResult, error) {
	var row analysisModel
	err := r.db.WithContext(ctx).
		First(&row, "trial_id = ? AND patient_id = ?", trialID, patientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ScreeningResult{}, apperrors.NotFound("patient analysis", patientID)
	}
	if err != nil {
		return models.ScreeningResult{}, err
	}
	return buildResult(&row), nil
}

func buildResult(row *analysisModel) models.ScreeningResult {
	result := models.ScreeningResult{
		ID:                row.ID,
		TrialID:           row.TrialID,
		PatientID:         row.PatientID,
		EligibilityStatus: row.EligibilityStatus,
		Confidence:        row.ConfidenceScore,
		CriteriaMet:       row.CriteriaMet,
		CriteriaTotal:     row.CriteriaTotal,
		CreatedAt:         row.CreatedAt,
	}
	if len(row.Reasons) > 0 {
		_ = json.Unmarshal(row.Reasons, &result.Reasons)
	}
	return result
}
