package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	documentsProcessed atomic.Int64
	extractionFailures atomic.Int64
	reviewsRecorded    atomic.Int64
	signaturesRecorded atomic.Int64
	trialsCreated      atomic.Int64
	approvalsRecorded  atomic.Int64
	analysisJobsFailed atomic.Int64
	integrityChecksRun atomic.Int64
	integrityChecksBad atomic.Int64
)

func IncDocumentsProcessed() { documentsProcessed.Add(1) }

func IncExtractionFailures() { extractionFailures.Add(1) }

func IncReviewsRecorded() { reviewsRecorded.Add(1) }

func IncSignaturesRecorded() { signaturesRecorded.Add(1) }

func IncTrialsCreated() { trialsCreated.Add(1) }

func IncApprovalsRecorded() { approvalsRecorded.Add(1) }

func IncAnalysisJobsFailed() { analysisJobsFailed.Add(1) }

func ObserveIntegrityCheck(failed bool) {
	integrityChecksRun.Add(1)
	if failed {
		integrityChecksBad.Add(1)
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeCounter(w, "regdocs_documents_processed_total", "Documents uploaded and extracted successfully.", documentsProcessed.Load())
	writeCounter(w, "regdocs_extraction_failures_total", "Upload pipelines that failed during extraction.", extractionFailures.Load())
	writeCounter(w, "regdocs_reviews_recorded_total", "Document review transitions recorded.", reviewsRecorded.Load())
	writeCounter(w, "regdocs_signatures_recorded_total", "Document signature transitions recorded.", signaturesRecorded.Load())
	writeCounter(w, "regdocs_trials_created_total", "Clinical trials created from signed documents.", trialsCreated.Load())
	writeCounter(w, "regdocs_approvals_recorded_total", "PI patient approval decisions recorded.", approvalsRecorded.Load())
	writeCounter(w, "regdocs_analysis_jobs_failed_total", "Background analysis jobs that failed.", analysisJobsFailed.Load())
	writeCounter(w, "regdocs_integrity_checks_total", "Audit trail integrity verifications run.", integrityChecksRun.Load())
	writeCounter(w, "regdocs_integrity_checks_failed_total", "Audit trail integrity verifications that found breaks.", integrityChecksBad.Load())
}

func writeCounter(w http.ResponseWriter, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}
