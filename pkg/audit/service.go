package audit

import (
	"context"

	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/clinprot/regdocs/pkg/observability/metrics"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an entry to the audit trail. Failures are logged but
// never propagated so a broken audit store cannot block the workflow
// mutation that triggered the entry.
func (s *Service) Record(ctx context.Context, entry models.AuditEntry) {
	if entry.Agent == "" {
		entry.Agent = "system"
	}
	if entry.Status == "" {
		entry.Status = "success"
	}
	if _, err := s.repo.Append(ctx, entry); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"action":    entry.Action,
			"target_id": entry.TargetID,
		}).Error("failed to append audit entry")
	}
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return s.repo.ListRecent(ctx, limit)
}

// VerifyIntegrity recomputes the full hash chain. A failed report is a
// human-escalation condition; nothing is auto-corrected.
func (s *Service) VerifyIntegrity(ctx context.Context) (models.IntegrityReport, error) {
	entries, err := s.repo.ListChain(ctx)
	if err != nil {
		return models.IntegrityReport{}, err
	}
	report := Verify(entries)
	metrics.ObserveIntegrityCheck(report.Status != "verified")
	if report.Status != "verified" {
		logger.Log.WithField("breaks", len(report.Errors)).Error("audit trail integrity check failed")
	}
	return report, nil
}
