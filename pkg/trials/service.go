package trials

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/clinprot/regdocs/pkg/audit"
	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/kafka"
	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/clinprot/regdocs/pkg/extraction"
	"github.com/clinprot/regdocs/pkg/observability/metrics"
	"github.com/google/uuid"
)

type Service struct {
	repo      *Repository
	extractor *extraction.Client
	auditor   *audit.Service
	producer  *kafka.Producer
	glossary  GlossaryCatalog
}

func NewService(repo *Repository, extractor *extraction.Client, auditor *audit.Service, producer *kafka.Producer, glossary GlossaryCatalog) *Service {
	if len(glossary.Terms) == 0 {
		glossary = DefaultGlossary()
	}
	return &Service{
		repo:      repo,
		extractor: extractor,
		auditor:   auditor,
		producer:  producer,
		glossary:  glossary,
	}
}

// CreateFromDocument creates the trial backing a signed document. Called
// through the document service; idempotent per document.
func (s *Service) CreateFromDocument(ctx context.Context, doc models.Document, actor string) (models.Trial, error) {
	if existing, found, err := s.repo.GetByDocumentID(ctx, doc.ID); err != nil {
		return models.Trial{}, err
	} else if found {
		return existing, nil
	}

	created, err := s.repo.Create(ctx, trialFromDocument(doc))
	if err != nil {
		return models.Trial{}, err
	}
	metrics.IncTrialsCreated()

	s.auditor.Record(ctx, models.AuditEntry{
		Action:       "trial_created",
		Agent:        actor,
		TargetType:   "trial",
		TargetID:     created.TrialID,
		DocumentHash: doc.FileHash,
		Details: map[string]interface{}{
			"document_id":    doc.ID.String(),
			"protocol_title": created.ProtocolTitle,
		},
	})
	if s.producer != nil {
		_ = s.producer.PublishEvent(ctx, "trial.created", "regdocs-server", map[string]interface{}{
			"trial_id":    created.TrialID,
			"document_id": doc.ID.String(),
		})
	}
	return created, nil
}

// Resolve accepts either the database UUID or the public TRIAL-xxxxxxxx
// identifier.
func (s *Service) Resolve(ctx context.Context, ref string) (models.Trial, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.GetByID(ctx, id)
	}
	if strings.HasPrefix(ref, "TRIAL-") {
		return s.repo.GetByTrialID(ctx, ref)
	}
	return models.Trial{}, apperrors.NotFound("trial", ref)
}

func (s *Service) List(ctx context.Context, limit int) ([]models.Trial, error) {
	return s.repo.List(ctx, limit)
}

func (s *Service) Delete(ctx context.Context, ref, actor string) error {
	trial, err := s.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, trial.ID); err != nil {
		return err
	}
	s.auditor.Record(ctx, models.AuditEntry{
		Action:     "trial_deleted",
		Agent:      actor,
		TargetType: "trial",
		TargetID:   trial.TrialID,
	})
	return nil
}

// RulesReport groups a trial's criteria by type and category and adds a
// per-category count summary.
type RulesReport struct {
	TrialID   string                    `json:"trial_id"`
	Inclusion map[string][]models.Rule  `json:"inclusion"`
	Exclusion map[string][]models.Rule  `json:"exclusion"`
	Summary   map[string]map[string]int `json:"_summary"`
	Total     int                       `json:"total_criteria"`
}

func (s *Service) Rules(ctx context.Context, ref string) (RulesReport, error) {
	trial, err := s.Resolve(ctx, ref)
	if err != nil {
		return RulesReport{}, err
	}
	rules, err := s.repo.ListRules(ctx, trial.ID)
	if err != nil {
		return RulesReport{}, err
	}

	report := RulesReport{
		TrialID:   trial.TrialID,
		Inclusion: map[string][]models.Rule{},
		Exclusion: map[string][]models.Rule{},
		Summary: map[string]map[string]int{
			"inclusion": {},
			"exclusion": {},
		},
		Total: len(rules),
	}
	for _, rule := range rules {
		category := rule.Category
		if category == "" {
			category = "other"
		}
		switch rule.Type {
		case "exclusion":
			report.Exclusion[category] = append(report.Exclusion[category], rule)
			report.Summary["exclusion"][category]++
		default:
			report.Inclusion[category] = append(report.Inclusion[category], rule)
			report.Summary["inclusion"][category]++
		}
	}
	return report, nil
}

// Glossary returns the terminology entries relevant to the trial's
// criteria, falling back to the full catalog when no criteria exist yet.
func (s *Service) Glossary(ctx context.Context, ref string) ([]GlossaryTerm, error) {
	trial, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	rules, err := s.repo.ListRules(ctx, trial.ID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		terms := make([]GlossaryTerm, 0, len(s.glossary.Terms))
		for key, term := range s.glossary.Terms {
			term.Term = key
			terms = append(terms, term)
		}
		sort.Slice(terms, func(i, j int) bool { return terms[i].Term < terms[j].Term })
		return terms, nil
	}
	return s.glossary.BuildGlossary(rules), nil
}

type CriteriaStatus struct {
	TrialID        string `json:"trial_id"`
	AnalysisStatus string `json:"analysis_status"`
	CriteriaCount  int    `json:"criteria_count"`
	Ready          bool   `json:"ready"`
}

func (s *Service) CriteriaStatus(ctx context.Context, ref string) (CriteriaStatus, error) {
	trial, err := s.Resolve(ctx, ref)
	if err != nil {
		return CriteriaStatus{}, err
	}
	rules, err := s.repo.ListRules(ctx, trial.ID)
	if err != nil {
		return CriteriaStatus{}, err
	}
	return CriteriaStatus{
		TrialID:        trial.TrialID,
		AnalysisStatus: trial.AnalysisStatus,
		CriteriaCount:  len(rules),
		Ready:          trial.AnalysisStatus == models.AnalysisStatusCompleted && len(rules) > 0,
	}, nil
}

// RequestExtraction marks the trial as running and hands the extraction
// job to the analysis worker over kafka.
func (s *Service) RequestExtraction(ctx context.Context, ref, actor string) (models.Trial, error) {
	trial, err := s.Resolve(ctx, ref)
	if err != nil {
		return models.Trial{}, err
	}
	if trial.AnalysisStatus == models.AnalysisStatusRunning {
		return trial, nil
	}
	if err := s.repo.UpdateAnalysis(ctx, trial.ID, models.AnalysisStatusRunning, nil); err != nil {
		return models.Trial{}, err
	}
	trial.AnalysisStatus = models.AnalysisStatusRunning

	s.auditor.Record(ctx, models.AuditEntry{
		Action:     "criteria_extraction_requested",
		Agent:      actor,
		TargetType: "trial",
		TargetID:   trial.TrialID,
	})
	if s.producer != nil {
		if err := s.producer.PublishEvent(ctx, "trial.analysis.requested", "regdocs-server", map[string]interface{}{
			"trial_id":     trial.ID.String(),
			"trial_ref":    trial.TrialID,
			"requested_by": actor,
		}); err != nil {
			logger.Log.WithError(err).WithField("trial_id", trial.TrialID).Error("failed to enqueue analysis job")
		}
	}
	return trial, nil
}

// RunCriteriaExtraction does the extraction synchronously. The analysis
// worker calls this when it picks up a trial.analysis.requested event.
func (s *Service) RunCriteriaExtraction(ctx context.Context, trialID uuid.UUID) ([]models.Rule, error) {
	trial, err := s.repo.GetByID(ctx, trialID)
	if err != nil {
		return nil, err
	}

	criteria, err := s.extractor.ExtractCriteria(ctx, trial.ProtocolTitle, trial.Indication)
	if err != nil {
		_ = s.repo.UpdateAnalysis(ctx, trial.ID, models.AnalysisStatusFailed, map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	rules := make([]models.Rule, 0, len(criteria))
	for _, criterion := range criteria {
		rules = append(rules, models.Rule{
			TrialID:        trial.ID,
			Type:           criterion.Type,
			Category:       criterion.Category,
			Text:           criterion.Text,
			Operator:       criterion.Operator,
			Value:          criterion.Value,
			Unit:           criterion.Unit,
			Negated:        criterion.Negated,
			StructuredData: criterion.StructuredData,
		})
	}
	if err := s.repo.ReplaceRules(ctx, trial.ID, rules); err != nil {
		_ = s.repo.UpdateAnalysis(ctx, trial.ID, models.AnalysisStatusFailed, map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	if err := s.repo.UpdateAnalysis(ctx, trial.ID, models.AnalysisStatusCompleted, map[string]interface{}{
		"criteria_count": len(rules),
	}); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, models.AuditEntry{
		Action:     "criteria_extracted",
		TargetType: "trial",
		TargetID:   trial.TrialID,
		Details:    map[string]interface{}{"criteria_count": len(rules)},
	})
	return s.repo.ListRules(ctx, trial.ID)
}

func newTrialID() string {
	return fmt.Sprintf("TRIAL-%s", strings.ToUpper(uuid.NewString()[:8]))
}

// trialFromDocument seeds a new trial from the document's extracted 1571
// fields, when present.
func trialFromDocument(doc models.Document) models.Trial {
	trial := models.Trial{
		TrialID:    newTrialID(),
		Status:     "planned",
		DocumentID: doc.ID,
	}
	if doc.Form1571 != nil {
		trial.ProtocolTitle = doc.Form1571.ProtocolTitle
		trial.DrugName = doc.Form1571.DrugName
		trial.Indication = doc.Form1571.Indication
		trial.Phase = doc.Form1571.StudyPhase
	}
	return trial
}
