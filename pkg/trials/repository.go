package trials

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
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type trialModel struct {
	ID              uuid.UUID      `gorm:"primaryKey;column:id"`
	TrialID         string         `gorm:"column:trial_id;uniqueIndex"`
	ProtocolTitle   string         `gorm:"column:protocol_title"`
	DrugName        string         `gorm:"column:drug_name"`
	Indication      string         `gorm:"column:indication"`
	Phase           string         `gorm:"column:phase"`
	Status          string         `gorm:"column:status"`
	DocumentID      uuid.UUID      `gorm:"column:document_id;uniqueIndex"`
	AnalysisStatus  string         `gorm:"column:analysis_status"`
	AnalysisResults datatypes.JSON `gorm:"column:analysis_results"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at"`
}

func (trialModel) TableName() string { return "clinical_trials" }

type ruleModel struct {
	ID             uuid.UUID      `gorm:"primaryKey;column:id"`
	TrialID        uuid.UUID      `gorm:"column:trial_id;index"`
	Type           string         `gorm:"column:criterion_type"`
	Category       string         `gorm:"column:category"`
	Text           string         `gorm:"column:text"`
	Operator       string         `gorm:"column:operator"`
	Value          string         `gorm:"column:value"`
	Unit           string         `gorm:"column:unit"`
	Negated        bool           `gorm:"column:negated"`
	StructuredData datatypes.JSON `gorm:"column:structured_data"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
}

func (ruleModel) TableName() string { return "eligibility_rules" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&trialModel{}, &ruleModel{})
}

func (r *Repository) Create(ctx context.Context, trial models.Trial) (models.Trial, error) {
	now := time.Now().UTC()
	row := &trialModel{
		ID:             uuid.New(),
		TrialID:        trial.TrialID,
		ProtocolTitle:  trial.ProtocolTitle,
		DrugName:       trial.DrugName,
		Indication:     trial.Indication,
		Phase:          trial.Phase,
		Status:         trial.Status,
		DocumentID:     trial.DocumentID,
		AnalysisStatus: models.AnalysisStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.Trial{}, err
	}
	return buildTrial(row), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (models.Trial, error) {
	var row trialModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Trial{}, apperrors.NotFound("trial", id)
		}
		return models.Trial{}, err
	}
	return buildTrial(&row), nil
}

func (r *Repository) GetByTrialID(ctx context.Context, trialID string) (models.Trial, error) {
	var row trialModel
	if err := r.db.WithContext(ctx).First(&row, "trial_id = ?", trialID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Trial{}, apperrors.NotFound("trial", trialID)
		}
		return models.Trial{}, err
	}
	return buildTrial(&row), nil
}

func (r *Repository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) (models.Trial, bool, error) {
	var row trialModel
	err := r.db.WithContext(ctx).First(&row, "document_id = ?", documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Trial{}, false, nil
	}
	if err != nil {
		return models.Trial{}, false, err
	}
	return buildTrial(&row), true, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]models.Trial, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []trialModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	trials := make([]models.Trial, 0, len(rows))
	for i := range rows {
		trials = append(trials, buildTrial(&rows[i]))
	}
	return trials, nil
}

// ReplaceRules swaps the trial's criteria set atomically; the extraction
// job always delivers the full set.
func (r *Repository) ReplaceRules(ctx context.Context, trialID uuid.UUID, rules []models.Rule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trial_id = ?", trialID).Delete(&ruleModel{}).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, rule := range rules {
			row := &ruleModel{
				ID:        uuid.New(),
				TrialID:   trialID,
				Type:      rule.Type,
				Category:  rule.Category,
				Text:      rule.Text,
				Operator:  rule.Operator,
				Value:     rule.Value,
				Unit:      rule.Unit,
				Negated:   rule.Negated,
				CreatedAt: now,
			}
			if rule.StructuredData != nil {
				if data, err := json.Marshal(rule.StructuredData); err == nil {
					row.StructuredData = datatypes.JSON(data)
				}
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) ListRules(ctx context.Context, trialID uuid.UUID) ([]models.Rule, error) {
	var rows []ruleModel
	if err := r.db.WithContext(ctx).Where("trial_id = ?", trialID).Order("criterion_type, category, created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	rules := make([]models.Rule, 0, len(rows))
	for _, row := range rows {
		rule := models.Rule{
			ID:        row.ID,
			TrialID:   row.TrialID,
			Type:      row.Type,
			Category:  row.Category,
			Text:      row.Text,
			Operator:  row.Operator,
			Value:     row.Value,
			Unit:      row.Unit,
			Negated:   row.Negated,
			CreatedAt: row.CreatedAt,
		}
		if len(row.StructuredData) > 0 {
			var data map[string]interface{}
			_ = json.Unmarshal(row.StructuredData, &data)
			rule.StructuredData = data
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r *Repository) UpdateAnalysis(ctx context.Context, id uuid.UUID, status string, results map[string]interface{}) error {
	updates := map[string]interface{}{
		"analysis_status": status,
		"updated_at":      time.Now().UTC(),
	}
	if results != nil {
		if data, err := json.Marshal(results); err == nil {
			updates["analysis_results"] = datatypes.JSON(data)
		}
	}
	return r.db.WithContext(ctx).Model(&trialModel{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trial_id = ?", id).Delete(&ruleModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&trialModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound("trial", id)
		}
		return nil
	})
}

func buildTrial(row *trialModel) models.Trial {
	trial := models.Trial{
		ID:             row.ID,
		TrialID:        row.TrialID,
		ProtocolTitle:  row.ProtocolTitle,
		DrugName:       row.DrugName,
		Indication:     row.Indication,
		Phase:          row.Phase,
		Status:         row.Status,
		DocumentID:     row.DocumentID,
		AnalysisStatus: row.AnalysisStatus,
		CreatedAt:      row.CreatedAt,
	}
	if len(row.AnalysisResults) > 0 {
		var results map[string]interface{}
		_ = json.Unmarshal(row.AnalysisResults, &results)
		trial.AnalysisResults = results
	}
	return trial
}
