package fda

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type documentModel struct {
	ID          uuid.UUID  `gorm:"primaryKey;column:id"`
	Filename    string     `gorm:"column:filename;index"`
	FileHash    string     `gorm:"column:file_hash;index"`
	Status      string     `gorm:"column:status;index"`
	ProcessedAt time.Time  `gorm:"column:processed_at"`
	ReviewedBy  *string    `gorm:"column:reviewed_by"`
	ReviewedAt  *time.Time `gorm:"column:reviewed_at"`
	SignedBy    *string    `gorm:"column:signed_by"`
	SignerRole  *string    `gorm:"column:signer_role"`
	SignedAt    *time.Time `gorm:"column:signed_at"`
	TrialID     *uuid.UUID `gorm:"column:trial_id"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (documentModel) TableName() string { return "fda_documents" }

type form1571Model struct {
	ID                    uuid.UUID      `gorm:"primaryKey;column:id"`
	DocumentID            uuid.UUID      `gorm:"column:document_id;uniqueIndex"`
	INDNumber             string         `gorm:"column:ind_number"`
	SubmissionType        string         `gorm:"column:submission_type"`
	DrugName              string         `gorm:"column:drug_name"`
	DosageForm            string         `gorm:"column:dosage_form"`
	RouteOfAdministration string         `gorm:"column:route_of_administration"`
	Indication            string         `gorm:"column:indication"`
	StudyPhase            string         `gorm:"column:study_phase"`
	ProtocolTitle         string         `gorm:"column:protocol_title"`
	ProtocolNumber        string         `gorm:"column:protocol_number"`
	SponsorName           string         `gorm:"column:sponsor_name"`
	SponsorAddress        string         `gorm:"column:sponsor_address"`
	ContactPerson         string         `gorm:"column:contact_person"`
	ContactPhone          string         `gorm:"column:contact_phone"`
	ContactEmail          string         `gorm:"column:contact_email"`
	FDAReviewDivision     string         `gorm:"column:fda_review_division"`
	CrossReferenceINDs    datatypes.JSON `gorm:"column:cross_reference_inds"`
	ExtractionMetadata    datatypes.JSON `gorm:"column:extraction_metadata"`
	CreatedAt             time.Time      `gorm:"column:created_at"`
	UpdatedAt             time.Time      `gorm:"column:updated_at"`
}

func (form1571Model) TableName() string { return "fda_forms_1571" }

type form1572Model struct {
	ID                   uuid.UUID      `gorm:"primaryKey;column:id"`
	DocumentID           uuid.UUID      `gorm:"column:document_id;uniqueIndex"`
	ProtocolTitle        string         `gorm:"column:protocol_title"`
	ProtocolNumber       string         `gorm:"column:protocol_number"`
	InvestigatorName     string         `gorm:"column:investigator_name"`
	InvestigatorAddress  string         `gorm:"column:investigator_address"`
	InvestigatorPhone    string         `gorm:"column:investigator_phone"`
	InvestigatorEmail    string         `gorm:"column:investigator_email"`
	StudySites           datatypes.JSON `gorm:"column:study_sites"`
	IRBName              string         `gorm:"column:irb_name"`
	IRBAddress           string         `gorm:"column:irb_address"`
	SubInvestigators     datatypes.JSON `gorm:"column:sub_investigators"`
	ClinicalLaboratories datatypes.JSON `gorm:"column:clinical_laboratories"`
	AgreementSigned      bool           `gorm:"column:agreement_signed"`
	CreatedAt            time.Time      `gorm:"column:created_at"`
	UpdatedAt            time.Time      `gorm:"column:updated_at"`
}

func (form1572Model) TableName() string { return "fda_forms_1572" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&documentModel{},
		&form1571Model{},
		&form1572Model{},
	)
}

func (r *Repository) CreateDocument(ctx context.Context, doc models.Document, metadata map[string]interface{}) (models.Document, error) {
	now := time.Now().UTC()
	row := &documentModel{
		ID:          uuid.New(),
		Filename:    doc.Filename,
		FileHash:    doc.FileHash,
		Status:      models.DocumentStatusExtracted,
		ProcessedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		if doc.Form1571 != nil {
			form := buildForm1571Row(row.ID, *doc.Form1571, metadata, now)
			if err := tx.Create(form).Error; err != nil {
				return err
			}
		}
		if doc.Form1572 != nil {
			form := buildForm1572Row(row.ID, *doc.Form1572, now)
			if err := tx.Create(form).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Document{}, err
	}
	return r.GetDocument(ctx, row.ID)
}

func (r *Repository) GetDocument(ctx context.Context, id uuid.UUID) (models.Document, error) {
	var row documentModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Document{}, apperrors.NotFound("document", id)
		}
		return models.Document{}, err
	}
	return r.buildDocument(ctx, &row)
}

func (r *Repository) FindByHash(ctx context.Context, fileHash string) (models.Document, bool, error) {
	var row documentModel
	err := r.db.WithContext(ctx).First(&row, "file_hash = ?", fileHash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Document{}, false, nil
	}
	if err != nil {
		return models.Document{}, false, err
	}
	doc, err := r.buildDocument(ctx, &row)
	return doc, err == nil, err
}

// ListDocuments supports both the dashboard and the stream-recovery
// reconciliation query (match by filename + recent timestamp).
func (r *Repository) ListDocuments(ctx context.Context, filename string, since time.Time, limit int) ([]models.Document, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&documentModel{})
	if filename != "" {
		query = query.Where("filename = ?", filename)
	}
	if !since.IsZero() {
		query = query.Where("processed_at >= ?", since)
	}
	var rows []documentModel
	if err := query.Order("processed_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]models.Document, 0, len(rows))
	for i := range rows {
		doc, err := r.buildDocument(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// MarkReviewed performs the extracted -> reviewed transition as a
// guarded update: the status predicate makes concurrent reviews race to
// exactly one winner, the loser sees InvalidTransition.
func (r *Repository) MarkReviewed(ctx context.Context, id uuid.UUID, reviewer string) (models.Document, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&documentModel{}).
		Where("id = ? AND status = ?", id, models.DocumentStatusExtracted).
		Updates(map[string]interface{}{
			"status":      models.DocumentStatusReviewed,
			"reviewed_by": reviewer,
			"reviewed_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return models.Document{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Document{}, r.transitionFailure(ctx, id, OpReview)
	}
	return r.GetDocument(ctx, id)
}

// MarkSigned performs reviewed -> signed under the same guarded-update
// discipline. After this the record is immutable.
func (r *Repository) MarkSigned(ctx context.Context, id uuid.UUID, signer, role string) (models.Document, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&documentModel{}).
		Where("id = ? AND status = ?", id, models.DocumentStatusReviewed).
		Updates(map[string]interface{}{
			"status":      models.DocumentStatusSigned,
			"signed_by":   signer,
			"signer_role": role,
			"signed_at":   now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return models.Document{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Document{}, r.transitionFailure(ctx, id, OpSign)
	}
	return r.GetDocument(ctx, id)
}

// UpdateForm rewrites one form's fields. The document row is locked and
// its status re-checked inside the transaction so an edit cannot slip
// past a concurrent review/sign.
func (r *Repository) UpdateForm(ctx context.Context, id uuid.UUID, formType string, apply func(doc *models.Document) error) (models.Document, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("document", id)
			}
			return err
		}
		if err := CheckTransition(row.Status, OpEditField); err != nil {
			return err
		}

		doc, err := r.buildDocumentTx(tx, &row)
		if err != nil {
			return err
		}
		if err := apply(&doc); err != nil {
			return err
		}

		// Updates use column maps so cleared fields persist as empty.
		now := time.Now().UTC()
		switch formType {
		case FormType1571:
			if doc.Form1571 == nil {
				return apperrors.NotFound("form 1571 for document", id)
			}
			return tx.Model(&form1571Model{}).Where("document_id = ?", id).
				Updates(form1571Columns(*doc.Form1571, now)).Error
		case FormType1572:
			if doc.Form1572 == nil {
				return apperrors.NotFound("form 1572 for document", id)
			}
			return tx.Model(&form1572Model{}).Where("document_id = ?", id).
				Updates(form1572Columns(*doc.Form1572, now)).Error
		default:
			return apperrors.Validation("unknown form_type " + formType)
		}
	})
	if err != nil {
		return models.Document{}, err
	}
	return r.GetDocument(ctx, id)
}

// DeleteDocument removes a document and its forms; legal only while the
// document is still in extracted.
func (r *Repository) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND status = ?", id, models.DocumentStatusExtracted).
			Delete(&documentModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.transitionFailure(ctx, id, OpDelete)
		}
		if err := tx.Where("document_id = ?", id).Delete(&form1571Model{}).Error; err != nil {
			return err
		}
		return tx.Where("document_id = ?", id).Delete(&form1572Model{}).Error
	})
}

func (r *Repository) SetTrialID(ctx context.Context, id uuid.UUID, trialID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&documentModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"trial_id":   trialID,
		"updated_at": time.Now().UTC(),
	}).Error
}

// transitionFailure distinguishes a missing document from an illegal
// transition after a guarded update touched zero rows.
func (r *Repository) transitionFailure(ctx context.Context, id uuid.UUID, op Operation) error {
	var row documentModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("document", id)
		}
		return err
	}
	return CheckTransition(row.Status, op)
}

func (r *Repository) buildDocument(ctx context.Context, row *documentModel) (models.Document, error) {
	return r.buildDocumentTx(r.db.WithContext(ctx), row)
}

func (r *Repository) buildDocumentTx(tx *gorm.DB, row *documentModel) (models.Document, error) {
	doc := models.Document{
		ID:          row.ID,
		Filename:    row.Filename,
		FileHash:    row.FileHash,
		Status:      row.Status,
		ProcessedAt: row.ProcessedAt,
		ReviewedBy:  row.ReviewedBy,
		ReviewedAt:  row.ReviewedAt,
		SignedBy:    row.SignedBy,
		SignerRole:  row.SignerRole,
		SignedAt:    row.SignedAt,
		TrialID:     row.TrialID,
	}

	var f1571 form1571Model
	err := tx.First(&f1571, "document_id = ?", row.ID).Error
	if err == nil {
		doc.Form1571 = &models.Form1571{
			INDNumber:             f1571.INDNumber,
			SubmissionType:        f1571.SubmissionType,
			DrugName:              f1571.DrugName,
			DosageForm:            f1571.DosageForm,
			RouteOfAdministration: f1571.RouteOfAdministration,
			Indication:            f1571.Indication,
			StudyPhase:            f1571.StudyPhase,
			ProtocolTitle:         f1571.ProtocolTitle,
			ProtocolNumber:        f1571.ProtocolNumber,
			SponsorName:           f1571.SponsorName,
			SponsorAddress:        f1571.SponsorAddress,
			ContactPerson:         f1571.ContactPerson,
			ContactPhone:          f1571.ContactPhone,
			ContactEmail:          f1571.ContactEmail,
			FDAReviewDivision:     f1571.FDAReviewDivision,
			CrossReferenceINDs:    jsonStringArray(f1571.CrossReferenceINDs),
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Document{}, err
	}

	var f1572 form1572Model
	err = tx.First(&f1572, "document_id = ?", row.ID).Error
	if err == nil {
		doc.Form1572 = &models.Form1572{
			ProtocolTitle:        f1572.ProtocolTitle,
			ProtocolNumber:       f1572.ProtocolNumber,
			InvestigatorName:     f1572.InvestigatorName,
			InvestigatorAddress:  f1572.InvestigatorAddress,
			InvestigatorPhone:    f1572.InvestigatorPhone,
			InvestigatorEmail:    f1572.InvestigatorEmail,
			StudySites:           jsonStringArray(f1572.StudySites),
			IRBName:              f1572.IRBName,
			IRBAddress:           f1572.IRBAddress,
			SubInvestigators:     jsonStringArray(f1572.SubInvestigators),
			ClinicalLaboratories: jsonStringArray(f1572.ClinicalLaboratories),
			AgreementSigned:      f1572.AgreementSigned,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Document{}, err
	}

	return doc, nil
}

func buildForm1571Row(documentID uuid.UUID, form models.Form1571, metadata map[string]interface{}, now time.Time) *form1571Model {
	row := &form1571Model{
		ID:                    uuid.New(),
		DocumentID:            documentID,
		INDNumber:             form.INDNumber,
		SubmissionType:        form.SubmissionType,
		DrugName:              form.DrugName,
		DosageForm:            form.DosageForm,
		RouteOfAdministration: form.RouteOfAdministration,
		Indication:            form.Indication,
		StudyPhase:            form.StudyPhase,
		ProtocolTitle:         form.ProtocolTitle,
		ProtocolNumber:        form.ProtocolNumber,
		SponsorName:           form.SponsorName,
		SponsorAddress:        form.SponsorAddress,
		ContactPerson:         form.ContactPerson,
		ContactPhone:          form.ContactPhone,
		ContactEmail:          form.ContactEmail,
		FDAReviewDivision:     form.FDAReviewDivision,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if form.CrossReferenceINDs != nil {
		if data, err := json.Marshal(form.CrossReferenceINDs); err == nil {
			row.CrossReferenceINDs = datatypes.JSON(data)
		}
	}
	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			row.ExtractionMetadata = datatypes.JSON(data)
		}
	}
	return row
}

func buildForm1572Row(documentID uuid.UUID, form models.Form1572, now time.Time) *form1572Model {
	row := &form1572Model{
		ID:                  uuid.New(),
		DocumentID:          documentID,
		ProtocolTitle:       form.ProtocolTitle,
		ProtocolNumber:      form.ProtocolNumber,
		InvestigatorName:    form.InvestigatorName,
		InvestigatorAddress: form.InvestigatorAddress,
		InvestigatorPhone:   form.InvestigatorPhone,
		InvestigatorEmail:   form.InvestigatorEmail,
		IRBName:             form.IRBName,
		IRBAddress:          form.IRBAddress,
		AgreementSigned:     form.AgreementSigned,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if form.StudySites != nil {
		if data, err := json.Marshal(form.StudySites); err == nil {
			row.StudySites = datatypes.JSON(data)
		}
	}
	if form.SubInvestigators != nil {
		if data, err := json.Marshal(form.SubInvestigators); err == nil {
			row.SubInvestigators = datatypes.JSON(data)
		}
	}
	if form.ClinicalLaboratories != nil {
		if data, err := json.Marshal(form.ClinicalLaboratories); err == nil {
			row.ClinicalLaboratories = datatypes.JSON(data)
		}
	}
	return row
}

func form1571Columns(form models.Form1571, now time.Time) map[string]interface{} {
	crossRefs, _ := json.Marshal(form.CrossReferenceINDs)
	return map[string]interface{}{
		"ind_number":              form.INDNumber,
		"submission_type":         form.SubmissionType,
		"drug_name":               form.DrugName,
		"dosage_form":             form.DosageForm,
		"route_of_administration": form.RouteOfAdministration,
		"indication":              form.Indication,
		"study_phase":             form.StudyPhase,
		"protocol_title":          form.ProtocolTitle,
		"protocol_number":         form.ProtocolNumber,
		"sponsor_name":            form.SponsorName,
		"sponsor_address":         form.SponsorAddress,
		"contact_person":          form.ContactPerson,
		"contact_phone":           form.ContactPhone,
		"contact_email":           form.ContactEmail,
		"fda_review_division":     form.FDAReviewDivision,
		"cross_reference_inds":    datatypes.JSON(crossRefs),
		"updated_at":              now,
	}
}

func form1572Columns(form models.Form1572, now time.Time) map[string]interface{} {
	sites, _ := json.Marshal(form.StudySites)
	subs, _ := json.Marshal(form.SubInvestigators)
	labs, _ := json.Marshal(form.ClinicalLaboratories)
	return map[string]interface{}{
		"protocol_title":        form.ProtocolTitle,
		"protocol_number":       form.ProtocolNumber,
		"investigator_name":     form.InvestigatorName,
		"investigator_address":  form.InvestigatorAddress,
		"investigator_phone":    form.InvestigatorPhone,
		"investigator_email":    form.InvestigatorEmail,
		"study_sites":           datatypes.JSON(sites),
		"irb_name":              form.IRBName,
		"irb_address":           form.IRBAddress,
		"sub_investigators":     datatypes.JSON(subs),
		"clinical_laboratories": datatypes.JSON(labs),
		"agreement_signed":      form.AgreementSigned,
		"updated_at":            now,
	}
}

func jsonStringArray(data datatypes.JSON) []string {
	if len(data) == 0 {
		return nil
	}
	var result []string
	_ = json.Unmarshal(data, &result)
	return result
}
