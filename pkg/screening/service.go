package screening

import (
	"context"

	"github.com/clinprot/regdocs/pkg/audit"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/clinprot/regdocs/pkg/extraction"
	"github.com/google/uuid"
)

// TrialSource resolves a trial by UUID or public identifier.
type TrialSource interface {
	Resolve(ctx context.Context, ref string) (models.Trial, error)
}

type Service struct {
	repo    *Repository
	trials  TrialSource
	auditor *audit.Service
}

func NewService(repo *Repository, trials TrialSource, auditor *audit.Service) *Service {
	return &Service{repo: repo, trials: trials, auditor: auditor}
}

// TrialAnalysis is the PI-facing screening overview for one trial.
type TrialAnalysis struct {
	TrialID  string                   `json:"trial_id"`
	Patients []models.ScreeningResult `json:"patients"`
	Summary  map[string]int           `json:"summary"`
	Total    int                      `json:"total_patients"`
}

func (s *Service) TrialAnalysis(ctx context.Context, ref string, filter Filter) (TrialAnalysis, error) {
	trial, err := s.trials.Resolve(ctx, ref)
	if err != nil {
		return TrialAnalysis{}, err
	}
	results, err := s.repo.ListByTrial(ctx, trial.ID)
	if err != nil {
		return TrialAnalysis{}, err
	}
	results = filter.Apply(results)

	summary := map[string]int{
		StatusHighlyEligible:      0,
		StatusPotentiallyEligible: 0,
		StatusIneligible:          0,
		StatusUncertain:           0,
	}
	for _, result := range results {
		summary[result.EligibilityStatus]++
	}
	return TrialAnalysis{
		TrialID:  trial.TrialID,
		Patients: results,
		Summary:  summary,
		Total:    len(results),
	}, nil
}

func (s *Service) PatientAnalysis(ctx context.Context, ref, patientID string) (models.ScreeningResult, error) {
	trial, err := s.trials.Resolve(ctx, ref)
	if err != nil {
		return models.ScreeningResult{}, err
	}
	return s.repo.GetPatient(ctx, trial.ID, patientID)
}

// RecordRun scores a screening job's raw output and persists the full
// result set for the trial. Called by the analysis worker.
func (s *Service) RecordRun(ctx context.Context, trialID uuid.UUID, trialRef string, patients []extraction.ScreenedPatient) ([]models.ScreeningResult, error) {
	results := make([]models.ScreeningResult, 0, len(patients))
	for _, patient := range patients {
		scored := Score(patient)
		scored.TrialID = trialID
		results = append(results, scored)
	}
	if err := s.repo.ReplaceForTrial(ctx, trialID, results); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, models.AuditEntry{
		Action:     "patients_screened",
		TargetType: "trial",
		TargetID:   trialRef,
		Details:    map[string]interface{}{"patient_count": len(results)},
	})
	return results, nil
}
