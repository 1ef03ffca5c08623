package normalizer

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/models"
)

func testRow() map[string]string {
	return map[string]string{
		"Timestamp (UTC)": "2024-03-01 10:30:15.123",
		"EventId":         "4624",
		"Provider":        "Microsoft-Windows-Security-Auditing",
		"LevelText":       "Information",
		"Computer":        "WORKSTATION-7",
		"Message":         "An account was successfully logged on.",
	}
}

func TestNormalize_FingerprintDeterminism(t *testing.T) {
	service := NewService(arbor.NewLogger())

	// Same (event id, provider, description, timestamp-minute) must hash
	// identically regardless of file, sequence, or cosmetic differences.
	a := service.Normalize("file-a", 0, testRow())

	rowB := testRow()
	rowB["Timestamp (UTC)"] = "2024-03-01 10:30:59.999" // same minute bucket
	rowB["Message"] = "An  account was   successfully logged on." // whitespace noise
	b := service.Normalize("file-b", 42, rowB)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.ID, b.ID)

	// A different minute changes the bucket
	rowC := testRow()
	rowC["Timestamp (UTC)"] = "2024-03-01 10:31:00.000"
	c := service.Normalize("file-a", 1, rowC)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)

	// A different provider changes the key
	rowD := testRow()
	rowD["Provider"] = "Service Control Manager"
	d := service.Normalize("file-a", 2, rowD)
	assert.NotEqual(t, a.Fingerprint, d.Fingerprint)
}

func TestNormalize_MalformedTimestampKeepsRecord(t *testing.T) {
	service := NewService(arbor.NewLogger())

	row := testRow()
	row["Timestamp (UTC)"] = "not a timestamp"

	record := service.Normalize("file-a", 0, row)
	require.NotNil(t, record)
	assert.Nil(t, record.Timestamp)
	assert.True(t, record.HasFlag(models.FlagMalformedTimestamp))
	assert.Equal(t, "4624", record.EventID)
	assert.NotEmpty(t, record.Fingerprint)
}

func TestNormalize_MissingFieldsFlaggedNotDropped(t *testing.T) {
	service := NewService(arbor.NewLogger())

	record := service.Normalize("file-a", 0, map[string]string{
		"Timestamp (UTC)": "2024-03-01 10:30:15.123",
	})
	require.NotNil(t, record)
	assert.True(t, record.HasFlag(models.FlagMissingField))
	assert.Equal(t, "Event ID N/A from N/A.", record.Description)
}

func TestNormalize_SeverityMapping(t *testing.T) {
	tests := []struct {
		raw       string
		want      models.Severity
		wantFlag  bool
	}{
		{"Information", models.SeverityInformational, false},
		{"Warning", models.SeverityWarning, false},
		{"Error", models.SeverityError, false},
		{"Critical", models.SeverityCritical, false},
		{"Audit Success", models.SeverityInformational, false},
		{"Audit Failure", models.SeverityWarning, false},
		{"Mysterious", models.SeverityInformational, true},
	}

	service := NewService(arbor.NewLogger())
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			row := testRow()
			row["LevelText"] = tt.raw
			record := service.Normalize("file-a", 0, row)
			assert.Equal(t, tt.want, record.Level)
			assert.Equal(t, tt.wantFlag, record.HasFlag(models.FlagUnknownLevel))
		})
	}
}

func TestNormalize_TruncationKeepsValidUTF8(t *testing.T) {
	service := NewService(arbor.NewLogger())

	// Messages from localized systems carry multi-byte runes; a byte-indexed
	// cut could land mid-rune at the length cap.
	row := testRow()
	row["Message"] = strings.Repeat("ログオンに失敗しました", 40)
	row["PayloadData"] = strings.Repeat("журнал безопасности ", 30)

	record := service.Normalize("file-a", 0, row)

	assert.LessOrEqual(t, len(record.Description), maxDescriptionLen)
	assert.True(t, utf8.ValidString(record.Description))
	assert.True(t, utf8.ValidString(record.RawSummary))
}

func TestNormalize_TimestampAliasesAndExtras(t *testing.T) {
	service := NewService(arbor.NewLogger())

	row := map[string]string{
		"TimeCreated": "2024-03-01T10:30:15Z",
		"EventId":     "7045",
		"Provider":    "Service Control Manager",
		"Level":       "Information",
		"Message":     "A service was installed in the system.",
		"ServiceName": "updater",
		"ImagePath":   `C:\Users\Public\update.exe`,
	}
	record := service.Normalize("file-a", 0, row)

	require.NotNil(t, record.Timestamp)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 15, 0, time.UTC), record.Timestamp.UTC())

	// Extra columns fold into the summary fed to the analyzer
	assert.Contains(t, record.RawSummary, "ServiceName: updater")
	assert.Contains(t, record.RawSummary, "ImagePath")
	assert.Contains(t, record.RawSummary, "EventID: 7045")
}
