package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
)

// Severity is the ordered event level classification.
// Audit-Success/Failure variants from the source log are folded onto this scale.
type Severity int

const (
	SeverityInformational Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the canonical display name for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	case SeverityCritical:
		return "Critical"
	default:
		return "Informational"
	}
}

// ParseSeverity maps a raw level string from the parser output onto the
// ordered scale. The second return is false when the input was unrecognized
// and the record should carry an unknown_level flag.
func ParseSeverity(raw string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "information", "informational", "info", "verbose", "logalways", "0", "4":
		return SeverityInformational, true
	case "audit success", "audit_success", "auditsuccess", "success":
		return SeverityInformational, true
	case "warning", "warn", "3":
		return SeverityWarning, true
	case "audit failure", "audit_failure", "auditfailure", "failure":
		return SeverityWarning, true
	case "error", "err", "2":
		return SeverityError, true
	case "critical", "crit", "1":
		return SeverityCritical, true
	default:
		return SeverityInformational, false
	}
}

// Record flags set by the normalizer.
const (
	FlagMalformedTimestamp = "malformed_timestamp"
	FlagMissingField       = "missing_field"
	FlagUnknownLevel       = "unknown_level"
)

// EventRecord is one canonical event parsed from a log file.
// Immutable after creation; enrichment is joined by Fingerprint, never inline.
type EventRecord struct {
	ID        string `json:"id"` // evt_{uuid}
	LogFileID string `json:"log_file_id" badgerhold:"index"`
	Sequence  int    `json:"sequence"` // row index within the file, tie-breaker for sorting

	// Timestamp is nil when the source value could not be parsed. The record
	// is kept and flagged for manual review, not dropped.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	EventID     string   `json:"event_id" badgerhold:"index"`
	Provider    string   `json:"provider"`
	Level       Severity `json:"level"`
	Computer    string   `json:"computer,omitempty"`
	Description string   `json:"description"`

	// RawSummary is the flattened key/value digest of the full row, used as
	// the prompt payload for analysis and as a keyword-search surface.
	RawSummary string `json:"raw_summary"`

	Fingerprint string   `json:"fingerprint" badgerhold:"index"`
	Flags       []string `json:"flags,omitempty"`
}

// HasFlag reports whether the record carries the given normalizer flag.
func (r *EventRecord) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Fingerprint computes the deterministic enrichment cache key for an event.
// The hash covers event id, provider, the normalized description, and the
// timestamp truncated to the minute, so identical raw content produces the
// same key across re-imports and across files. A nil timestamp hashes with an
// empty bucket.
func Fingerprint(eventID, provider, description string, ts *time.Time) string {
	bucket := ""
	if ts != nil {
		bucket = ts.UTC().Truncate(time.Minute).Format(time.RFC3339)
	}
	canonical := strings.Join([]string{
		strings.TrimSpace(eventID),
		strings.TrimSpace(provider),
		normalizeText(description),
		bucket,
	}, "|")
	h1, h2 := murmur3.Sum128([]byte(canonical))
	return fmt.Sprintf("%016x%016x", h1, h2)
}

// normalizeText lowercases and collapses runs of whitespace so cosmetic
// differences in the parser output do not change the fingerprint.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
