package pdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/models"
)

func sampleReport() *models.Report {
	ts := time.Date(2024, 3, 15, 10, 22, 1, 0, time.UTC)
	return &models.Report{
		LogFileID:   "file-1",
		Filename:    "security.csv",
		GeneratedAt: time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC),
		Stats: models.AggregateStats{
			Total: 42,
			TopEventIDs: []models.CountEntry{
				{Key: "4625", Count: 30},
				{Key: "4624", Count: 12},
			},
			SeverityHistogram: []models.CountEntry{
				{Key: "Warning", Count: 30},
				{Key: "Informational", Count: 12},
			},
			TopProviders: []models.CountEntry{
				{Key: "Security-Auditing", Count: 42},
			},
		},
		Sampled: []*models.EnrichedRecord{
			{
				Record: &models.EventRecord{
					ID:          "evt-1",
					EventID:     "4625",
					Provider:    "Security-Auditing",
					Level:       models.SeverityWarning,
					Timestamp:   &ts,
					Description: "An account failed to log on.",
				},
				Enrichment: &models.EnrichmentResult{
					Depth:       models.DepthDeepDive,
					Explanation: "Repeated failed logons from a single source.",
					Assessment:  "Warning: consistent with brute-force activity.",
					IOCs:        []string{"192.0.2.10", "WORKSTATION-7"},
					Mitigation:  []string{"Lock the targeted account."},
				},
			},
			{
				Record: &models.EventRecord{
					ID:      "evt-2",
					EventID: "7045",
					Level:   models.SeverityError,
					// no timestamp: rendered as unknown time
				},
			},
		},
		Narrative: "The sampled activity is dominated by failed logon attempts.",
	}
}

func TestRenderReport(t *testing.T) {
	service := NewService(arbor.NewLogger())

	pdfBytes, err := service.RenderReport(sampleReport())
	require.NoError(t, err)
	require.NotEmpty(t, pdfBytes)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestRenderReport_EmptyReport(t *testing.T) {
	service := NewService(arbor.NewLogger())

	report := &models.Report{
		LogFileID:   "file-1",
		Filename:    "empty.csv",
		GeneratedAt: time.Now(),
		Narrative:   "No events matched the filter.",
	}
	pdfBytes, err := service.RenderReport(report)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestBuildReportMarkdown(t *testing.T) {
	markdown := BuildReportMarkdown(sampleReport())

	assert.Contains(t, markdown, "# Forensic Log Report: security.csv")
	assert.Contains(t, markdown, "## Executive Summary")
	assert.Contains(t, markdown, "dominated by failed logon attempts")
	assert.Contains(t, markdown, "| 4625 | 30 |")
	assert.Contains(t, markdown, "### Event 4625 at 2024-03-15 10:22:01")
	assert.Contains(t, markdown, "### Event 7045 at unknown time")
	assert.Contains(t, markdown, "- 192.0.2.10")
	assert.Contains(t, markdown, "**Analysis (deepdive):**")
}

func TestBuildReportMarkdown_FilterClause(t *testing.T) {
	report := sampleReport()
	severity := models.SeverityWarning
	from := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	report.Filter = models.FilterQuery{
		From:            &from,
		Keyword:         "logon",
		Severity:        &severity,
		SeverityAtLeast: true,
	}

	markdown := BuildReportMarkdown(report)
	assert.Contains(t, markdown, `Active filter: from 2024-03-15 00:00, keyword "logon", severity at least Warning`)
}
