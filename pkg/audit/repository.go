package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/clinprot/regdocs/pkg/common/models"
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

type auditEntryModel struct {
	ID           int64          `gorm:"primaryKey;column:id"`
	Timestamp    time.Time      `gorm:"column:timestamp"`
	Action       string         `gorm:"column:action"`
	Agent        string         `gorm:"column:agent"`
	TargetType   string         `gorm:"column:target_type"`
	TargetID     string         `gorm:"column:target_id"`
	Status       string         `gorm:"column:status"`
	Details      datatypes.JSON `gorm:"column:details"`
	DocumentHash string         `gorm:"column:document_hash"`
	PreviousHash string         `gorm:"column:previous_hash"`
	EntryHash    string         `gorm:"column:entry_hash"`
}

func (auditEntryModel) TableName() string { return "audit_trail" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&auditEntryModel{})
}

// Append writes one entry, chaining it to the current tail. The tail
// lookup and the insert run in one transaction with the tail row locked
// so concurrent appends serialize instead of forking the chain.
func (r *Repository) Append(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous := GenesisHash
		var tail auditEntryModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("id DESC").First(&tail).Error
		if err == nil {
			previous = tail.EntryHash
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if entry.Timestamp.IsZero() {
			entry.Timestamp = time.Now().UTC()
		}
		// Postgres stores timestamptz at microsecond precision, so hash
		// the value that will actually round-trip from the database.
		entry.Timestamp = entry.Timestamp.Truncate(time.Microsecond)
		entry.PreviousHash = previous
		entry.EntryHash = EntryHash(previous, entry)

		details, _ := json.Marshal(entry.Details)
		row := &auditEntryModel{
			Timestamp:    entry.Timestamp,
			Action:       entry.Action,
			Agent:        entry.Agent,
			TargetType:   entry.TargetType,
			TargetID:     entry.TargetID,
			Status:       entry.Status,
			Details:      datatypes.JSON(details),
			DocumentHash: entry.DocumentHash,
			PreviousHash: entry.PreviousHash,
			EntryHash:    entry.EntryHash,
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		entry.ID = row.ID
		return nil
	})
	return entry, err
}

// ListChain returns every entry in insertion order for verification.
func (r *Repository) ListChain(ctx context.Context) ([]models.AuditEntry, error) {
	var rows []auditEntryModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return buildEntries(rows), nil
}

// ListRecent returns the newest entries for the audit dashboard.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []auditEntryModel
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return buildEntries(rows), nil
}

func buildEntries(rows []auditEntryModel) []models.AuditEntry {
	entries := make([]models.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry := models.AuditEntry{
			ID:           row.ID,
			Timestamp:    row.Timestamp,
			Action:       row.Action,
			Agent:        row.Agent,
			TargetType:   row.TargetType,
			TargetID:     row.TargetID,
			Status:       row.Status,
			DocumentHash: row.DocumentHash,
			PreviousHash: row.PreviousHash,
			EntryHash:    row.EntryHash,
		}
		if len(row.Details) > 0 {
			var details map[string]interface{}
			_ = json.Unmarshal(row.Details, &details)
			entry.Details = details
		}
		entries = append(entries, entry)
	}
	return entries
}
