package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Tracker keeps per-job progress in redis so polling clients can follow
// an extraction or analysis job after the triggering request returned.
// Each job has a single writer, so plain load-modify-save is enough.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTracker(rdb *redis.Client, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tracker{rdb: rdb, ttl: ttl}
}

func jobKey(jobID string) string {
	return fmt.Sprintf("jobs:%s", jobID)
}

func (t *Tracker) Start(ctx context.Context, jobID, step string) error {
	status := models.JobStatus{
		JobID:     jobID,
		Status:    models.JobStatusRunning,
		Progress:  0,
		Step:      step,
		Logs:      []string{},
		UpdatedAt: time.Now().UTC(),
	}
	return t.save(ctx, status)
}

func (t *Tracker) Progress(ctx context.Context, jobID string, progress int, step, message string) error {
	status, err := t.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if progress > status.Progress {
		status.Progress = progress
	}
	if step != "" {
		status.Step = step
	}
	status.Message = message
	if message != "" {
		status.Logs = append(status.Logs, message)
	}
	status.UpdatedAt = time.Now().UTC()
	return t.save(ctx, status)
}

func (t *Tracker) AppendLog(ctx context.Context, jobID, line string) error {
	status, err := t.Get(ctx, jobID)
	if err != nil {
		return err
	}
	status.Logs = append(status.Logs, line)
	status.UpdatedAt = time.Now().UTC()
	return t.save(ctx, status)
}

func (t *Tracker) Complete(ctx context.Context, jobID string, documentID *uuid.UUID, trialID string) error {
	status, err := t.Get(ctx, jobID)
	if err != nil {
		return err
	}
	status.Status = models.JobStatusReady
	status.Progress = 100
	status.Step = "done"
	status.DocumentID = documentID
	status.TrialID = trialID
	status.UpdatedAt = time.Now().UTC()
	return t.save(ctx, status)
}

func (t *Tracker) Fail(ctx context.Context, jobID, message string) error {
	status, err := t.Get(ctx, jobID)
	if err != nil {
		return err
	}
	status.Status = models.JobStatusFailed
	status.Step = "failed"
	status.Message = message
	status.Logs = append(status.Logs, message)
	status.UpdatedAt = time.Now().UTC()
	return t.save(ctx, status)
}

// Get returns the tracked state for a job. An unknown or expired job ID
// reports not_started, which clients must distinguish from failed.
func (t *Tracker) Get(ctx context.Context, jobID string) (models.JobStatus, error) {
	raw, err := t.rdb.Get(ctx, jobKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return models.JobStatus{
			JobID:  jobID,
			Status: models.JobStatusNotStarted,
			Logs:   []string{},
		}, nil
	}
	if err != nil {
		return models.JobStatus{}, err
	}
	var status models.JobStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return models.JobStatus{}, err
	}
	return status, nil
}

func (t *Tracker) save(ctx context.Context, status models.JobStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return t.rdb.Set(ctx, jobKey(status.JobID), data, t.ttl).Err()
}
