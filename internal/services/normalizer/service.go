// Package normalizer converts the external parser's loosely-typed rows into
// canonical event records at the ingestion boundary. No downstream component
// sees untyped fields.
package normalizer

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/common"
	"github.com/ternarybob/logsight/internal/models"
)

// Timestamp column aliases produced by known versions of the parser tool,
// checked in order.
var timestampColumns = []string{"Timestamp (UTC)", "Timestamp", "TimeCreated", "TimeGenerated", "RecordTime"}

// Layouts accepted for raw timestamp values.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.0000000",
	"1/2/2006 3:04:05 PM",
}

// Columns consumed into dedicated record fields; everything else folds into
// the raw summary.
var handledColumns = map[string]bool{
	"Timestamp (UTC)": true, "Timestamp": true, "TimeCreated": true,
	"TimeGenerated": true, "RecordTime": true,
	"EventId": true, "EventID": true, "Provider": true,
	"LevelText": true, "Level": true, "Computer": true, "Message": true,
	"PayloadData": true, "EventData": true,
}

const (
	maxDescriptionLen  = 1000
	maxSummaryValueLen = 300
)

// Service builds canonical EventRecords from raw parser rows.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new normalizer.
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Normalize converts one raw row into a canonical record. Rows are never
// dropped: malformed timestamps and missing required fields produce flagged
// records kept for manual review.
func (s *Service) Normalize(logFileID string, sequence int, row map[string]string) *models.EventRecord {
	record := &models.EventRecord{
		ID:        common.NewEventID(),
		LogFileID: logFileID,
		Sequence:  sequence,
	}

	rawTimestamp := firstColumn(row, timestampColumns...)
	if ts, ok := parseTimestamp(rawTimestamp); ok {
		record.Timestamp = &ts
	} else {
		record.Flags = append(record.Flags, models.FlagMalformedTimestamp)
		s.logger.Debug().
			Str("log_file_id", logFileID).
			Int("sequence", sequence).
			Str("raw_timestamp", rawTimestamp).
			Msg("Unparseable timestamp, record flagged for review")
	}

	record.EventID = strings.TrimSpace(firstColumn(row, "EventId", "EventID"))
	record.Provider = strings.TrimSpace(row["Provider"])
	record.Computer = strings.TrimSpace(row["Computer"])

	rawLevel := firstColumn(row, "LevelText", "Level")
	level, recognized := models.ParseSeverity(rawLevel)
	record.Level = level
	if !recognized && strings.TrimSpace(rawLevel) != "" {
		record.Flags = append(record.Flags, models.FlagUnknownLevel)
	}

	record.Description = strings.TrimSpace(row["Message"])
	if record.Description == "" {
		record.Description = fmt.Sprintf("Event ID %s from %s.", orNA(record.EventID), orNA(record.Provider))
	}
	record.Description = truncate(record.Description, maxDescriptionLen)

	if record.EventID == "" || record.Provider == "" || strings.TrimSpace(row["Message"]) == "" {
		record.Flags = append(record.Flags, models.FlagMissingField)
	}

	record.RawSummary = buildRawSummary(record, rawTimestamp, row)
	record.Fingerprint = models.Fingerprint(record.EventID, record.Provider, record.Description, record.Timestamp)

	return record
}

// buildRawSummary flattens the row into the key/value digest fed to the
// reasoning service. Handled columns appear first under stable names, then
// any extra columns in sorted order so the digest is deterministic.
func buildRawSummary(record *models.EventRecord, rawTimestamp string, row map[string]string) string {
	var parts []string

	appendPart := func(key, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		value = truncate(value, maxSummaryValueLen)
		parts = append(parts, fmt.Sprintf("%s: %s", key, value))
	}

	appendPart("Time", rawTimestamp)
	appendPart("EventID", record.EventID)
	appendPart("Provider", record.Provider)
	appendPart("Level", record.Level.String())
	appendPart("Computer", record.Computer)
	appendPart("Message", row["Message"])
	appendPart("Payload", firstColumn(row, "PayloadData", "EventData"))

	extras := make([]string, 0, len(row))
	for name := range row {
		if !handledColumns[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		appendPart(name, row[name])
	}

	if len(parts) == 0 {
		return record.Description
	}
	return strings.Join(parts, ", ")
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func firstColumn(row map[string]string, names ...string) string {
	for _, name := range names {
		if value, ok := row[name]; ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
