package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clinprot/regdocs/pkg/common/models"
)

// GenesisHash seeds the chain: the first entry's previous_hash.
var GenesisHash = strings.Repeat("0", 64)

// EntryHash computes the tamper-evidence hash for one audit entry:
// sha256 over the canonical JSON (sorted keys) of the entry content,
// previous_hash included. encoding/json sorts map keys, which gives the
// canonical ordering.
func EntryHash(previousHash string, entry models.AuditEntry) string {
	content := map[string]interface{}{
		"timestamp":     entry.Timestamp.UTC().Format(time.RFC3339Nano),
		"action":        entry.Action,
		"agent":         entry.Agent,
		"target_type":   entry.TargetType,
		"target_id":     entry.TargetID,
		"status":        entry.Status,
		"details":       entry.Details,
		"document_hash": entry.DocumentHash,
		"previous_hash": previousHash,
	}
	data, _ := json.Marshal(content)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify walks entries in insertion order, checking both the linkage
// between consecutive entries and each recomputed entry hash. Every
// detected break is reported with the offending entry's ID.
func Verify(entries []models.AuditEntry) models.IntegrityReport {
	var breaks []string
	previous := GenesisHash

	for _, entry := range entries {
		if entry.PreviousHash != previous {
			breaks = append(breaks, fmt.Sprintf(
				"Broken chain at ID %d: previous hash mismatch (expected %s, found %s)",
				entry.ID, previous, entry.PreviousHash))
		}
		recomputed := EntryHash(entry.PreviousHash, entry)
		if recomputed != entry.EntryHash {
			breaks = append(breaks, fmt.Sprintf(
				"Broken chain at ID %d: entry hash mismatch (expected %s, found %s)",
				entry.ID, recomputed, entry.EntryHash))
		}
		// Continue from the stored hash so one bad entry does not
		// cascade into failures for every later entry.
		previous = entry.EntryHash
	}

	if len(breaks) > 0 {
		return models.IntegrityReport{
			Status:  "failed",
			Message: fmt.Sprintf("audit trail integrity check failed with %d broken link(s)", len(breaks)),
			Entries: len(entries),
			Errors:  breaks,
		}
	}
	return models.IntegrityReport{
		Status:  "verified",
		Message: fmt.Sprintf("audit trail verified across %d entries", len(entries)),
		Entries: len(entries),
		Errors:  []string{},
	}
}
