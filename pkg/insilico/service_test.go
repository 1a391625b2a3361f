package insilico

import (
	"context"
	"testing"
	"time"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/models"
)

type stubTrials struct {
	trial models.Trial
	err   error
}

func (s stubTrials) Resolve(ctx context.Context, ref string) (models.Trial, error) {
	return s.trial, s.err
}

func newTestService(trial models.Trial, err error) *Service {
	return NewService(stubTrials{trial: trial, err: err}, NewCache(nil, time.Minute))
}

func TestResultsUnknownTrialIsNotStarted(t *testing.T) {
	svc := newTestService(models.Trial{}, apperrors.NotFound("trial", "TRIAL-DEADBEEF"))
	status, err := svc.Results(context.Background(), "TRIAL-DEADBEEF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != StatusNotStarted {
		t.Errorf("expected %s, got %s", StatusNotStarted, status.Status)
	}
}

func TestResultsReadyFromPersistedAnalysis(t *testing.T) {
	svc := newTestService(models.Trial{
		TrialID:        "TRIAL-AB12CD34",
		AnalysisStatus: models.AnalysisStatusCompleted,
		AnalysisResults: map[string]interface{}{
			"insilico": map[string]interface{}{"binding_affinity": 0.82},
		},
	}, nil)

	status, err := svc.Results(context.Background(), "TRIAL-AB12CD34")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != StatusReady {
		t.Fatalf("expected %s, got %s", StatusReady, status.Status)
	}
	if status.Results["binding_affinity"] != 0.82 {
		t.Errorf("results not carried through: %v", status.Results)
	}
}

func TestResultsAnalyzingWhileRunning(t *testing.T) {
	svc := newTestService(models.Trial{
		TrialID:        "TRIAL-AB12CD34",
		AnalysisStatus: models.AnalysisStatusRunning,
	}, nil)

	status, err := svc.Results(context.Background(), "TRIAL-AB12CD34")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != StatusAnalyzing {
		t.Errorf("expected %s, got %s", StatusAnalyzing, status.Status)
	}
}

func TestResultsFailedCarriesError(t *testing.T) {
	svc := newTestService(models.Trial{
		TrialID:         "TRIAL-AB12CD34",
		AnalysisStatus:  models.AnalysisStatusFailed,
		AnalysisResults: map[string]interface{}{"error": "model service unavailable"},
	}, nil)

	status, err := svc.Results(context.Background(), "TRIAL-AB12CD34")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != StatusFailed {
		t.Fatalf("expected %s, got %s", StatusFailed, status.Status)
	}
	if status.Error != "model service unavailable" {
		t.Errorf("error message not carried: %q", status.Error)
	}
}
