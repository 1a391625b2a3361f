package fda

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/clinprot/regdocs/pkg/audit"
	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/kafka"
	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/clinprot/regdocs/pkg/extraction"
	"github.com/clinprot/regdocs/pkg/jobs"
	"github.com/clinprot/regdocs/pkg/observability/metrics"
	"github.com/clinprot/regdocs/pkg/phi"
	"github.com/google/uuid"
)

// TrialCreator creates (or returns the existing) trial for a signed
// document. Implemented by the trials service; the interface keeps the
// document package from depending on trial internals.
type TrialCreator interface {
	CreateFromDocument(ctx context.Context, doc models.Document, actor string) (models.Trial, error)
}

type Service struct {
	repo      *Repository
	extractor *extraction.Client
	tracker   *jobs.Tracker
	redactor  *phi.Redactor
	auditor   *audit.Service
	producer  *kafka.Producer
	trials    TrialCreator
}

func NewService(repo *Repository, extractor *extraction.Client, tracker *jobs.Tracker, redactor *phi.Redactor, auditor *audit.Service, producer *kafka.Producer, trials TrialCreator) *Service {
	return &Service{
		repo:      repo,
		extractor: extractor,
		tracker:   tracker,
		redactor:  redactor,
		auditor:   auditor,
		producer:  producer,
		trials:    trials,
	}
}

// ProcessUpload runs the full upload pipeline: fingerprint, extract,
// normalize, persist. emit receives human-readable progress lines with
// PHI already masked; both the streaming and polling transports feed
// from it.
func (s *Service) ProcessUpload(ctx context.Context, filename string, content []byte, actor string, emit func(line string)) (models.Document, error) {
	if emit == nil {
		emit = func(string) {}
	}

	sum := sha256.Sum256(content)
	fileHash := hex.EncodeToString(sum[:])
	emit(fmt.Sprintf("Received %s (%d bytes)", filename, len(content)))

	if existing, found, err := s.repo.FindByHash(ctx, fileHash); err != nil {
		return models.Document{}, err
	} else if found {
		emit(fmt.Sprintf("Document already processed as %s, returning existing record", existing.ID))
		return existing, nil
	}

	emit("Sending document to extraction service")
	result, err := s.extractor.ExtractForms(ctx, filename, content)
	if err != nil {
		metrics.IncExtractionFailures()
		return models.Document{}, err
	}

	NormalizeForms(&result.Form1571, &result.Form1572)
	emit(s.redact(fmt.Sprintf("Extracted form 1571 for protocol %q", result.Form1571.ProtocolTitle)))
	emit(s.redact(fmt.Sprintf("Extracted form 1572 for investigator %q", result.Form1572.InvestigatorName)))

	doc, err := s.repo.CreateDocument(ctx, models.Document{
		Filename: filename,
		FileHash: fileHash,
		Form1571: &result.Form1571,
		Form1572: &result.Form1572,
	}, result.Metadata)
	if err != nil {
		return models.Document{}, err
	}
	emit(fmt.Sprintf("Document persisted with id %s, status %s", doc.ID, doc.Status))
	metrics.IncDocumentsProcessed()

	s.auditor.Record(ctx, models.AuditEntry{
		Action:       "document_uploaded",
		Agent:        actor,
		TargetType:   "document",
		TargetID:     doc.ID.String(),
		DocumentHash: doc.FileHash,
		Details:      map[string]interface{}{"filename": filename},
	})
	_ = s.publish(ctx, "document.extracted", map[string]interface{}{
		"document_id": doc.ID.String(),
		"filename":    filename,
	})

	return doc, nil
}

// StartUploadJob runs the upload pipeline in the background and reports
// progress through the job tracker. The job owns its own context: the
// triggering request returns immediately and the work is fire-and-forget.
func (s *Service) StartUploadJob(jobID, filename string, content []byte, actor string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := s.tracker.Start(ctx, jobID, "extracting"); err != nil {
			logger.Log.WithError(err).Error("failed to start upload job")
			return
		}

		progress := 10
		doc, err := s.ProcessUpload(ctx, filename, content, actor, func(line string) {
			if progress < 90 {
				progress += 20
			}
			_ = s.tracker.Progress(ctx, jobID, progress, "extracting", line)
		})
		if err != nil {
			logger.Log.WithError(err).WithField("job_id", jobID).Error("upload job failed")
			metrics.IncAnalysisJobsFailed()
			_ = s.tracker.Fail(ctx, jobID, err.Error())
			return
		}
		_ = s.tracker.Complete(ctx, jobID, &doc.ID, "")
	}()
}

func (s *Service) JobStatus(ctx context.Context, jobID string) (models.JobStatus, error) {
	return s.tracker.Get(ctx, jobID)
}

func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (models.Document, error) {
	return s.repo.GetDocument(ctx, id)
}

func (s *Service) ListDocuments(ctx context.Context, filename string, since time.Time, limit int) ([]models.Document, error) {
	return s.repo.ListDocuments(ctx, filename, since, limit)
}

// UpdateForm applies field updates to one of the document's forms.
// Legal only while the document is still in extracted.
func (s *Service) UpdateForm(ctx context.Context, id uuid.UUID, req models.UpdateFormRequest, actor string) (models.Document, error) {
	if len(req.Updates) == 0 {
		return models.Document{}, apperrors.Validation("updates must not be empty")
	}

	doc, err := s.repo.UpdateForm(ctx, id, req.FormType, func(doc *models.Document) error {
		switch req.FormType {
		case FormType1571:
			if doc.Form1571 == nil {
				doc.Form1571 = &models.Form1571{}
			}
			return ApplyForm1571Updates(doc.Form1571, req.Updates)
		case FormType1572:
			if doc.Form1572 == nil {
				doc.Form1572 = &models.Form1572{}
			}
			return ApplyForm1572Updates(doc.Form1572, req.Updates)
		default:
			return apperrors.Validation("form_type must be fda_1571 or fda_1572")
		}
	})
	if err != nil {
		return models.Document{}, err
	}

	fields := make([]string, 0, len(req.Updates))
	for field := range req.Updates {
		fields = append(fields, field)
	}
	s.auditor.Record(ctx, models.AuditEntry{
		Action:       "document_updated",
		Agent:        actor,
		TargetType:   "document",
		TargetID:     doc.ID.String(),
		DocumentHash: doc.FileHash,
		Details:      map[string]interface{}{"form_type": req.FormType, "fields": fields},
	})
	return doc, nil
}

func (s *Service) Review(ctx context.Context, id uuid.UUID, reviewedBy, actor string) (models.Document, error) {
	if reviewedBy == "" {
		return models.Document{}, apperrors.Validation("reviewed_by is required")
	}
	doc, err := s.repo.MarkReviewed(ctx, id, reviewedBy)
	if err != nil {
		return models.Document{}, err
	}
	metrics.IncReviewsRecorded()
	s.auditor.Record(ctx, models.AuditEntry{
		Action:       "document_reviewed",
		Agent:        actor,
		TargetType:   "document",
		TargetID:     doc.ID.String(),
		DocumentHash: doc.FileHash,
		Details:      map[string]interface{}{"reviewed_by": reviewedBy},
	})
	_ = s.publish(ctx, "document.reviewed", map[string]interface{}{"document_id": doc.ID.String()})
	return doc, nil
}

func (s *Service) Sign(ctx context.Context, id uuid.UUID, signerName, signerRole, actor string) (models.Document, error) {
	if signerName == "" || signerRole == "" {
		return models.Document{}, apperrors.Validation("signer_name and signer_role are required")
	}
	doc, err := s.repo.MarkSigned(ctx, id, signerName, signerRole)
	if err != nil {
		return models.Document{}, err
	}
	metrics.IncSignaturesRecorded()
	s.auditor.Record(ctx, models.AuditEntry{
		Action:       "document_signed",
		Agent:        actor,
		TargetType:   "document",
		TargetID:     doc.ID.String(),
		DocumentHash: doc.FileHash,
		Details:      map[string]interface{}{"signed_by": signerName, "signer_role": signerRole},
	})
	_ = s.publish(ctx, "document.signed", map[string]interface{}{"document_id": doc.ID.String()})
	return doc, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.auditor.Record(ctx, models.AuditEntry{
		Action:       "document_deleted",
		Agent:        actor,
		TargetType:   "document",
		TargetID:     id.String(),
		DocumentHash: doc.FileHash,
		Details:      map[string]interface{}{"filename": doc.Filename},
	})
	return nil
}

// CreateTrial turns a signed document into a clinical trial. Idempotent
// per document: repeated calls return the existing trial.
func (s *Service) CreateTrial(ctx context.Context, id uuid.UUID, actor string) (models.Trial, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return models.Trial{}, err
	}
	if doc.Status != models.DocumentStatusSigned {
		return models.Trial{}, apperrors.InvalidTransition(doc.Status, "trial")
	}

	trial, err := s.trials.CreateFromDocument(ctx, doc, actor)
	if err != nil {
		return models.Trial{}, err
	}
	if doc.TrialID == nil || *doc.TrialID != trial.ID {
		if err := s.repo.SetTrialID(ctx, id, trial.ID); err != nil {
			return models.Trial{}, err
		}
	}
	return trial, nil
}

func (s *Service) redact(line string) string {
	if s.redactor == nil {
		return line
	}
	return s.redactor.RedactText(line)
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) error {
	if s.producer == nil {
		return nil
	}
	return s.producer.PublishEvent(ctx, eventType, "regdocs-server", data)
}
