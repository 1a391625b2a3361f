package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/clinprot/regdocs/pkg/common/models"
)

// ErrPollTimeout is returned when a job is still running after the
// bounded number of polling attempts. Callers surface this to the user
// instead of polling forever.
var ErrPollTimeout = errors.New("gave up waiting for job completion")

type StatusFunc func(ctx context.Context) (models.JobStatus, error)

// Poller repeatedly fetches job status until the job reaches a terminal
// state or the attempt budget is spent.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
}

func NewPoller(interval time.Duration, maxAttempts int) Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 120
	}
	return Poller{Interval: interval, MaxAttempts: maxAttempts}
}

// Wait polls fetch until the reported status is terminal. The terminal
// report is returned as-is; a failed job is not an error here, the
// caller inspects Status. Polling stops at the first terminal report.
func (p Poller) Wait(ctx context.Context, fetch StatusFunc) (models.JobStatus, error) {
	var last models.JobStatus
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		status, err := fetch(ctx)
		if err != nil {
			return last, err
		}
		last = status
		if isTerminal(status) {
			return status, nil
		}

		select {
		case <-time.After(p.Interval):
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
	return last, ErrPollTimeout
}

func isTerminal(status models.JobStatus) bool {
	if status.Status == models.JobStatusReady || status.Status == models.JobStatusFailed {
		return true
	}
	return status.Step == "done"
}
