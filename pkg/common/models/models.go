package models

import (
	"time"

	"github.com/google/uuid"
)

// Document lifecycle statuses. Transitions are forward-only:
// extracted -> reviewed -> signed.
const (
	DocumentStatusExtracted = "extracted"
	DocumentStatusReviewed  = "reviewed"
	DocumentStatusSigned    = "signed"
)

// Submission review statuses.
const (
	SubmissionStatusSubmitted         = "SUBMITTED"
	SubmissionStatusUnderReview       = "UNDER_REVIEW"
	SubmissionStatusApproved          = "APPROVED"
	SubmissionStatusPartiallyApproved = "PARTIALLY_APPROVED"
	SubmissionStatusRejected          = "REJECTED"
	SubmissionStatusWithdrawn         = "WITHDRAWN"
)

// Long-running job states as reported to polling clients.
const (
	JobStatusRunning    = "running"
	JobStatusReady      = "ready"
	JobStatusFailed     = "failed"
	JobStatusNotStarted = "not_started"
)

// Trial analysis states.
const (
	AnalysisStatusPending   = "pending"
	AnalysisStatusRunning   = "running"
	AnalysisStatusCompleted = "completed"
	AnalysisStatusFailed    = "failed"
)

// PI review entry types.
const (
	ReviewTypeGeneralComment   = "GENERAL_COMMENT"
	ReviewTypePatientApproval  = "PATIENT_APPROVAL"
	ReviewTypePatientRejection = "PATIENT_REJECTION"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type PrincipalInvestigator struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Institution string    `json:"institution"`
	Specialty   string    `json:"specialty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Form1571 holds the extracted FDA Form 1571 (IND application) fields.
type Form1571 struct {
	INDNumber             string   `json:"ind_number"`
	SubmissionType        string   `json:"submission_type"`
	DrugName              string   `json:"drug_name"`
	DosageForm            string   `json:"dosage_form"`
	RouteOfAdministration string   `json:"route_of_administration"`
	Indication            string   `json:"indication"`
	StudyPhase            string   `json:"study_phase"`
	ProtocolTitle         string   `json:"protocol_title"`
	ProtocolNumber        string   `json:"protocol_number"`
	SponsorName           string   `json:"sponsor_name"`
	SponsorAddress        string   `json:"sponsor_address"`
	ContactPerson         string   `json:"contact_person"`
	ContactPhone          string   `json:"contact_phone"`
	ContactEmail          string   `json:"contact_email"`
	FDAReviewDivision     string   `json:"fda_review_division"`
	CrossReferenceINDs    []string `json:"cross_reference_inds"`
}

// Form1572 holds the extracted FDA Form 1572 (statement of investigator) fields.
type Form1572 struct {
	ProtocolTitle        string   `json:"protocol_title"`
	ProtocolNumber       string   `json:"protocol_number"`
	InvestigatorName     string   `json:"investigator_name"`
	InvestigatorAddress  string   `json:"investigator_address"`
	InvestigatorPhone    string   `json:"investigator_phone"`
	InvestigatorEmail    string   `json:"investigator_email"`
	StudySites           []string `json:"study_sites"`
	IRBName              string   `json:"irb_name"`
	IRBAddress           string   `json:"irb_address"`
	SubInvestigators     []string `json:"sub_investigators"`
	ClinicalLaboratories []string `json:"clinical_laboratories"`
	AgreementSigned      bool     `json:"agreement_signed"`
}

type Document struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	FileHash    string     `json:"file_hash"`
	Status      string     `json:"status"`
	ProcessedAt time.Time  `json:"processed_at"`
	ReviewedBy  *string    `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	SignedBy    *string    `json:"signed_by,omitempty"`
	SignerRole  *string    `json:"signer_role,omitempty"`
	SignedAt    *time.Time `json:"signed_at,omitempty"`
	TrialID     *uuid.UUID `json:"trial_id,omitempty"`
	Form1571    *Form1571  `json:"fda_1571,omitempty"`
	Form1572    *Form1572  `json:"fda_1572,omitempty"`
}

type Trial struct {
	ID              uuid.UUID              `json:"id"`
	TrialID         string                 `json:"trial_id"`
	ProtocolTitle   string                 `json:"protocol_title"`
	DrugName        string                 `json:"drug_name"`
	Indication      string                 `json:"indication"`
	Phase           string                 `json:"phase"`
	Status          string                 `json:"status"`
	DocumentID      uuid.UUID              `json:"document_id"`
	AnalysisStatus  string                 `json:"analysis_status"`
	AnalysisResults map[string]interface{} `json:"analysis_results,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// Rule is one eligibility criterion extracted from a protocol. Read-only
// once written by the extraction job.
type Rule struct {
	ID             uuid.UUID              `json:"id"`
	TrialID        uuid.UUID              `json:"trial_id"`
	Type           string                 `json:"type"`
	Category       string                 `json:"category"`
	Text           string                 `json:"text"`
	Operator       string                 `json:"operator,omitempty"`
	Value          string                 `json:"value,omitempty"`
	Unit           string                 `json:"unit,omitempty"`
	Negated        bool                   `json:"negated"`
	StructuredData map[string]interface{} `json:"structured_data,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

type ScreeningReason struct {
	CriterionID string `json:"criterion_id,omitempty"`
	Type        string `json:"type"`
	Met         bool   `json:"met"`
	Detail      string `json:"detail"`
}

type ScreeningResult struct {
	ID                uuid.UUID         `json:"id"`
	TrialID           uuid.UUID         `json:"trial_id"`
	PatientID         string            `json:"patient_id"`
	EligibilityStatus string            `json:"eligibility_status"`
	Confidence        float64           `json:"confidence_score"`
	CriteriaMet       int               `json:"criteria_met"`
	CriteriaTotal     int               `json:"criteria_total"`
	Reasons           []ScreeningReason `json:"reasons,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

type SubmissionPatient struct {
	ID                uuid.UUID `json:"id"`
	SubmissionID      uuid.UUID `json:"submission_id"`
	PatientID         string    `json:"patient_id"`
	EligibilityStatus string    `json:"eligibility_status"`
	Confidence        float64   `json:"confidence_score"`
	IsApproved        *bool     `json:"is_approved"`
}

// PIReview is an append-only audit entry on a submission. Never updated
// or deleted once written.
type PIReview struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	ReviewType   string    `json:"review_type"`
	PatientID    *string   `json:"patient_id,omitempty"`
	Comment      string    `json:"comment"`
	Decision     *string   `json:"decision,omitempty"`
	ReviewedAt   time.Time `json:"reviewed_at"`
}

type Submission struct {
	ID                      uuid.UUID           `json:"id"`
	TrialID                 uuid.UUID           `json:"trial_id"`
	PrincipalInvestigatorID uuid.UUID           `json:"principal_investigator_id"`
	SubmittedByUserID       uuid.UUID           `json:"submitted_by_user_id"`
	Status                  string              `json:"status"`
	SubmissionDate          time.Time           `json:"submission_date"`
	ReviewedAt              *time.Time          `json:"reviewed_at,omitempty"`
	Notes                   string              `json:"notes,omitempty"`
	Patients                []SubmissionPatient `json:"patients,omitempty"`
	Reviews                 []PIReview          `json:"reviews,omitempty"`
}

// AuditEntry is one row of the tamper-evident audit trail. EntryHash is
// computed over the entry content including PreviousHash.
type AuditEntry struct {
	ID           int64                  `json:"id"`
	Timestamp    time.Time              `json:"timestamp"`
	Action       string                 `json:"action"`
	Agent        string                 `json:"agent"`
	TargetType   string                 `json:"target_type"`
	TargetID     string                 `json:"target_id"`
	Status       string                 `json:"status"`
	Details      map[string]interface{} `json:"details,omitempty"`
	DocumentHash string                 `json:"document_hash,omitempty"`
	PreviousHash string                 `json:"previous_hash"`
	EntryHash    string                 `json:"entry_hash"`
}

type IntegrityReport struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Entries int      `json:"entries_checked"`
	Errors  []string `json:"errors"`
}

// JobStatus is the polling-mode view of a long-running extraction or
// analysis job.
type JobStatus struct {
	JobID      string     `json:"job_id"`
	Status     string     `json:"status"`
	Progress   int        `json:"progress"`
	Step       string     `json:"step"`
	Message    string     `json:"message,omitempty"`
	Logs       []string   `json:"logs"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	TrialID    string     `json:"trial_id,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Event is the kafka envelope shared by producer and consumers.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// Request / response payloads.

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type BootstrapRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type RegisterUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type UpdateFormRequest struct {
	FormType string                 `json:"form_type"`
	Updates  map[string]interface{} `json:"updates"`
}

type ReviewRequest struct {
	ReviewedBy string `json:"reviewed_by"`
}

type SignRequest struct {
	SignerName string `json:"signer_name"`
	SignerRole string `json:"signer_role"`
}

type ApprovePatientRequest struct {
	PatientID string `json:"patient_id"`
	Approved  *bool  `json:"approved"`
	Comment   string `json:"comment"`
}

type BulkApproveRequest struct {
	PatientIDs []string `json:"patient_ids"`
	Comment    string   `json:"comment"`
}

type ReviewCommentRequest struct {
	Comment string `json:"comment"`
}

type CreateSubmissionRequest struct {
	TrialID                 uuid.UUID `json:"trial_id"`
	PrincipalInvestigatorID uuid.UUID `json:"principal_investigator_id"`
	PatientIDs              []string  `json:"patient_ids"`
	Notes                   string    `json:"notes"`
}

type CreatePIRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Institution string `json:"institution"`
	Specialty   string `json:"specialty"`
}
