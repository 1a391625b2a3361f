package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/clinprot/regdocs/pkg/audit"
	"github.com/clinprot/regdocs/pkg/common/config"
	"github.com/clinprot/regdocs/pkg/common/database"
	"github.com/clinprot/regdocs/pkg/common/kafka"
	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/clinprot/regdocs/pkg/extraction"
	"github.com/clinprot/regdocs/pkg/insilico"
	"github.com/clinprot/regdocs/pkg/jobs"
	"github.com/clinprot/regdocs/pkg/observability/metrics"
	"github.com/clinprot/regdocs/pkg/screening"
	"github.com/clinprot/regdocs/pkg/trials"
)

// The analysis worker runs the heavy trial analysis pipeline off the
// request path: criteria extraction, patient screening, and in-silico
// modeling, each reported through the shared job tracker.
type worker struct {
	cfg       *config.Config
	trials    *trials.Service
	trialRepo *trials.Repository
	screening *screening.Service
	extractor *extraction.Client
	tracker   *jobs.Tracker
	cache     *insilico.Cache
	poller    jobs.Poller
}

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to postgres")
	}
	rdb := database.GetRedis()

	auditor := audit.NewService(audit.NewRepository(db))
	trialRepo := trials.NewRepository(db)
	screeningRepo := screening.NewRepository(db)
	extractor := extraction.NewClient(cfg)

	glossary, _ := trials.LoadGlossary(cfg.GlossaryPath)
	trialService := trials.NewService(trialRepo, extractor, auditor, nil, glossary)

	w := &worker{
		cfg:       cfg,
		trials:    trialService,
		trialRepo: trialRepo,
		screening: screening.NewService(screeningRepo, trialService, auditor),
		extractor: extractor,
		tracker:   jobs.NewTracker(rdb, cfg.JobTTL),
		cache:     insilico.NewCache(rdb, cfg.InsilicoCacheTTL),
		poller:    jobs.NewPoller(cfg.PollInterval, cfg.PollMaxAttempts),
	}

	consumer := kafka.NewConsumer(cfg.AnalysisJobsTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.WithField("topic", cfg.AnalysisJobsTopic).Info("Analysis worker started")
	if err := consumer.Consume(ctx, w.handle); err != nil && ctx.Err() == nil {
		logger.Log.WithError(err).Fatal("Consumer stopped")
	}
	logger.Log.Info("Analysis worker stopped")
}

func (w *worker) handle(ctx context.Context, event models.Event) error {
	if event.Type != "trial.analysis.requested" {
		logger.Log.WithField("type", event.Type).Debug("Ignoring event")
		return nil
	}
	rawID, _ := event.Data["trial_id"].(string)
	trialID, err := uuid.Parse(rawID)
	if err != nil {
		logger.Log.WithField("trial_id", rawID).Error("Event carries no usable trial id")
		return nil // malformed, do not retry
	}

	jobID := fmt.Sprintf("analysis:%s", trialID)
	if err := w.tracker.Start(ctx, jobID, "criteria"); err != nil {
		return err
	}

	// The pipeline runs in its own goroutine and reports through the
	// tracker; the consumer blocks on the poller so the kafka offset is
	// only committed once the job reaches a terminal state.
	go w.runPipeline(ctx, jobID, trialID)

	status, err := w.poller.Wait(ctx, func(ctx context.Context) (models.JobStatus, error) {
		return w.tracker.Get(ctx, jobID)
	})
	if err != nil {
		return err
	}
	if status.Status == models.JobStatusFailed {
		metrics.IncAnalysisJobsFailed()
		logger.Log.WithFields(map[string]interface{}{
			"trial_id": trialID,
			"message":  status.Message,
		}).Error("Trial analysis failed")
	}
	return nil
}

func (w *worker) runPipeline(ctx context.Context, jobID string, trialID uuid.UUID) {
	fail := func(stage string, err error) {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"trial_id": trialID,
			"stage":    stage,
		}).Error("Analysis stage failed")
		_ = w.tracker.Fail(ctx, jobID, fmt.Sprintf("%s: %v", stage, err))
	}

	trial, err := w.trialRepo.GetByID(ctx, trialID)
	if err != nil {
		fail("load", err)
		return
	}

	_ = w.tracker.Progress(ctx, jobID, 10, "criteria", "Extracting eligibility criteria")
	rules, err := w.trials.RunCriteriaExtraction(ctx, trialID)
	if err != nil {
		fail("criteria", err)
		return
	}
	_ = w.tracker.AppendLog(ctx, jobID, fmt.Sprintf("Extracted %d eligibility criteria", len(rules)))

	_ = w.tracker.Progress(ctx, jobID, 40, "screening", "Screening candidate patients")
	criteria := make([]extraction.ExtractedCriterion, 0, len(rules))
	for _, rule := range rules {
		criteria = append(criteria, extraction.ExtractedCriterion{
			Type:           rule.Type,
			Category:       rule.Category,
			Text:           rule.Text,
			Operator:       rule.Operator,
			Value:          rule.Value,
			Unit:           rule.Unit,
			Negated:        rule.Negated,
			StructuredData: rule.StructuredData,
		})
	}
	patients, err := w.extractor.RunScreening(ctx, trial.TrialID, criteria)
	if err != nil {
		fail("screening", err)
		return
	}
	results, err := w.screening.RecordRun(ctx, trial.ID, trial.TrialID, patients)
	if err != nil {
		fail("screening", err)
		return
	}
	_ = w.tracker.AppendLog(ctx, jobID, fmt.Sprintf("Screened %d patients", len(results)))

	_ = w.tracker.Progress(ctx, jobID, 70, "insilico", "Running in-silico drug modeling")
	modeling, err := w.extractor.RunInsilico(ctx, trial.TrialID, trial.DrugName)
	if err != nil {
		fail("insilico", err)
		return
	}
	if err := w.cache.Put(ctx, trial.TrialID, modeling); err != nil {
		logger.Log.WithError(err).Warn("Failed to cache insilico results")
	}
	summary := map[string]interface{}{
		"criteria_count":    len(rules),
		"patients_screened": len(results),
		"insilico":          modeling,
	}
	if err := w.trialRepo.UpdateAnalysis(ctx, trial.ID, models.AnalysisStatusCompleted, summary); err != nil {
		fail("persist", err)
		return
	}

	_ = w.tracker.Complete(ctx, jobID, nil, trial.TrialID)
}
