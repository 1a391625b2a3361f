package audit

import (
	"strings"
	"testing"
	"time"

	"github.com/clinprot/regdocs/pkg/common/models"
)

func buildChain(t *testing.T, n int) []models.AuditEntry {
	t.Helper()
	entries := make([]models.AuditEntry, 0, n)
	previous := GenesisHash
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		entry := models.AuditEntry{
			ID:           int64(i + 1),
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			Action:       "document_reviewed",
			Agent:        "dr.a@example.org",
			TargetType:   "document",
			TargetID:     "doc-1",
			Status:       "success",
			DocumentHash: strings.Repeat("ab", 32),
			PreviousHash: previous,
		}
		entry.EntryHash = EntryHash(previous, entry)
		previous = entry.EntryHash
		entries = append(entries, entry)
	}
	return entries
}

func TestVerifyIntactChain(t *testing.T) {
	entries := buildChain(t, 5)
	report := Verify(entries)
	if report.Status != "verified" {
		t.Fatalf("expected verified, got %s: %v", report.Status, report.Errors)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("expected zero errors, got %v", report.Errors)
	}
	if report.Entries != 5 {
		t.Fatalf("expected 5 entries checked, got %d", report.Entries)
	}
}

func TestVerifyEmptyChain(t *testing.T) {
	report := Verify(nil)
	if report.Status != "verified" {
		t.Fatalf("expected verified for empty chain, got %s", report.Status)
	}
}

func TestVerifyReportsSingleTamperedEntry(t *testing.T) {
	entries := buildChain(t, 5)
	entries[2].DocumentHash = strings.Repeat("ff", 32)

	report := Verify(entries)
	if report.Status != "failed" {
		t.Fatalf("expected failed, got %s", report.Status)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected exactly one break, got %d: %v", len(report.Errors), report.Errors)
	}
	if !strings.Contains(report.Errors[0], "Broken chain at ID 3") {
		t.Fatalf("break reported at wrong entry: %s", report.Errors[0])
	}
}

func TestVerifyDetectsBrokenLinkage(t *testing.T) {
	entries := buildChain(t, 4)
	entries[1].PreviousHash = strings.Repeat("9", 64)
	entries[1].EntryHash = EntryHash(entries[1].PreviousHash, entries[1])

	report := Verify(entries)
	if report.Status != "failed" {
		t.Fatal("expected failed report for relinked entry")
	}
	found := false
	for _, e := range report.Errors {
		if strings.Contains(e, "previous hash mismatch") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a previous hash mismatch, got %v", report.Errors)
	}
}

func TestVerifySurvivesMicrosecondStorage(t *testing.T) {
	// Postgres keeps timestamptz at microsecond precision. An entry
	// hashed at microsecond precision must still verify after the
	// sub-microsecond digits are dropped on the way through the
	// database.
	stamp := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	entry := models.AuditEntry{
		ID:           1,
		Timestamp:    stamp.Truncate(time.Microsecond),
		Action:       "document_signed",
		Agent:        "dr.a@example.org",
		TargetType:   "document",
		TargetID:     "doc-1",
		Status:       "success",
		DocumentHash: strings.Repeat("ab", 32),
		PreviousHash: GenesisHash,
	}
	entry.EntryHash = EntryHash(GenesisHash, entry)

	// Round-trip through storage precision.
	entry.Timestamp = entry.Timestamp.Truncate(time.Microsecond)

	report := Verify([]models.AuditEntry{entry})
	if report.Status != "verified" {
		t.Fatalf("expected verified, got %s: %v", report.Status, report.Errors)
	}

	// Hashing the raw nanosecond timestamp would not survive the same
	// round trip.
	raw := entry
	raw.Timestamp = stamp
	raw.EntryHash = EntryHash(GenesisHash, raw)
	raw.Timestamp = stamp.Truncate(time.Microsecond)
	if got := Verify([]models.AuditEntry{raw}); got.Status != "failed" {
		t.Fatal("expected a nanosecond-hashed entry to fail after truncation")
	}
}

func TestEntryHashDeterministic(t *testing.T) {
	entries := buildChain(t, 1)
	a := EntryHash(GenesisHash, entries[0])
	b := EntryHash(GenesisHash, entries[0])
	if a != b {
		t.Fatal("entry hash is not deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}
