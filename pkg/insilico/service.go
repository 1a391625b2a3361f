package insilico

import (
	"context"
	"errors"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/clinprot/regdocs/pkg/common/models"
)

const (
	StatusReady      = "ready"
	StatusAnalyzing  = "analyzing"
	StatusFailed     = "failed"
	StatusNotStarted = "not_started"
)

// TrialSource resolves a trial by UUID or public identifier. Implemented
// by the trials service.
type TrialSource interface {
	Resolve(ctx context.Context, ref string) (models.Trial, error)
}

type Service struct {
	trials TrialSource
	cache  *Cache
}

func NewService(trials TrialSource, cache *Cache) *Service {
	return &Service{trials: trials, cache: cache}
}

type Status struct {
	TrialID string                 `json:"trial_id"`
	Status  string                 `json:"status"`
	Results map[string]interface{} `json:"results,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Results reports the in-silico modeling state for a trial: cached or
// persisted results win, otherwise the trial's analysis status decides.
func (s *Service) Results(ctx context.Context, ref string) (Status, error) {
	trial, err := s.trials.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return Status{TrialID: ref, Status: StatusNotStarted}, nil
		}
		return Status{}, err
	}

	if results, found, err := s.cache.Get(ctx, trial.TrialID); err != nil {
		logger.Log.WithError(err).WithField("trial_id", trial.TrialID).Warn("insilico cache read failed")
	} else if found {
		return Status{TrialID: trial.TrialID, Status: StatusReady, Results: results}, nil
	}

	if raw, ok := trial.AnalysisResults["insilico"]; ok {
		if results, ok := raw.(map[string]interface{}); ok {
			if err := s.cache.Put(ctx, trial.TrialID, results); err != nil {
				logger.Log.WithError(err).WithField("trial_id", trial.TrialID).Warn("insilico cache write failed")
			}
			return Status{TrialID: trial.TrialID, Status: StatusReady, Results: results}, nil
		}
	}

	switch trial.AnalysisStatus {
	case models.AnalysisStatusRunning, models.AnalysisStatusPending:
		return Status{TrialID: trial.TrialID, Status: StatusAnalyzing}, nil
	case models.AnalysisStatusFailed:
		status := Status{TrialID: trial.TrialID, Status: StatusFailed}
		if raw, ok := trial.AnalysisResults["error"]; ok {
			if msg, ok := raw.(string); ok {
				status.Error = msg
			}
		}
		return status, nil
	default:
		return Status{TrialID: trial.TrialID, Status: StatusNotStarted}, nil
	}
}

// Store caches freshly computed modeling results. The analysis worker
// persists them to the trial row separately.
func (s *Service) Store(ctx context.Context, trialID string, results map[string]interface{}) error {
	return s.cache.Put(ctx, trialID, results)
}
