package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/google/uuid"
)

func TestPollerStopsAtTerminalReport(t *testing.T) {
	docID := uuid.New()
	calls := 0
	fetch := func(ctx context.Context) (models.JobStatus, error) {
		calls++
		if calls < 4 {
			return models.JobStatus{Status: models.JobStatusRunning, Step: "running", Progress: 40}, nil
		}
		return models.JobStatus{Status: models.JobStatusReady, Step: "done", Progress: 100, DocumentID: &docID}, nil
	}

	poller := NewPoller(time.Millisecond, 10)
	status, err := poller.Wait(context.Background(), fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected polling to stop exactly at the done report, got %d calls", calls)
	}
	if status.Step != "done" || status.DocumentID == nil || *status.DocumentID != docID {
		t.Fatalf("unexpected terminal status: %+v", status)
	}
}

func TestPollerReturnsFailedJob(t *testing.T) {
	fetch := func(ctx context.Context) (models.JobStatus, error) {
		return models.JobStatus{Status: models.JobStatusFailed, Step: "failed", Message: "extraction error"}, nil
	}
	poller := NewPoller(time.Millisecond, 10)
	status, err := poller.Wait(context.Background(), fetch)
	if err != nil {
		t.Fatalf("a failed job is a terminal report, not a polling error: %v", err)
	}
	if status.Status != models.JobStatusFailed {
		t.Fatalf("expected failed status, got %s", status.Status)
	}
}

func TestPollerBoundedAttempts(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (models.JobStatus, error) {
		calls++
		return models.JobStatus{Status: models.JobStatusRunning, Step: "running"}, nil
	}
	poller := NewPoller(time.Millisecond, 5)
	_, err := poller.Wait(context.Background(), fetch)
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if calls != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", calls)
	}
}

func TestPollerHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context) (models.JobStatus, error) {
		cancel()
		return models.JobStatus{Status: models.JobStatusRunning}, nil
	}
	poller := NewPoller(time.Minute, 10)
	_, err := poller.Wait(ctx, fetch)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
