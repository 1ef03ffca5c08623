package pdf

import (
	"fmt"
	"strings"

	"github.com/ternarybob/logsight/internal/models"
)

// BuildReportMarkdown assembles the printable document body for a report:
// title, narrative, aggregate tables, and the sampled records. Exported so
// handlers can serve the same document as plain markdown.
func BuildReportMarkdown(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Forensic Log Report: %s\n\n", report.Filename)
	fmt.Fprintf(&b, "Generated %s\n\n", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	if clause := filterClause(&report.Filter); clause != "" {
		fmt.Fprintf(&b, "Active filter: %s\n\n", clause)
	}

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(report.Narrative)
	b.WriteString("\n\n---\n\n")

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "Total matching events: **%d**\n\n", report.Stats.Total)
	writeCountTable(&b, "Severity Distribution", "Severity", report.Stats.SeverityHistogram)
	writeCountTable(&b, "Top Event IDs", "Event ID", report.Stats.TopEventIDs)
	writeCountTable(&b, "Top Providers", "Provider", report.Stats.TopProviders)

	if len(report.Sampled) > 0 {
		b.WriteString("## Sampled Events\n\n")
		for _, enriched := range report.Sampled {
			writeSampledEvent(&b, enriched)
		}
	}

	return b.String()
}

func writeCountTable(b *strings.Builder, title, keyHeader string, entries []models.CountEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	fmt.Fprintf(b, "| %s | Count |\n| --- | --- |\n", keyHeader)
	for _, entry := range entries {
		fmt.Fprintf(b, "| %s | %d |\n", entry.Key, entry.Count)
	}
	b.WriteString("\n")
}

func writeSampledEvent(b *strings.Builder, enriched *models.EnrichedRecord) {
	record := enriched.Record

	when := "unknown time"
	if record.Timestamp != nil {
		when = record.Timestamp.UTC().Format("2006-01-02 15:04:05")
	}
	fmt.Fprintf(b, "### Event %s at %s\n\n", record.EventID, when)
	fmt.Fprintf(b, "Provider: %s, Level: %s\n\n", record.Provider, record.Level.String())
	if record.Description != "" {
		fmt.Fprintf(b, "%s\n\n", record.Description)
	}

	if enriched.Enrichment != nil {
		result := enriched.Enrichment
		fmt.Fprintf(b, "**Analysis (%s):** %s\n\n", result.Depth.String(), result.Explanation)
		if result.Assessment != "" {
			fmt.Fprintf(b, "**Assessment:** %s\n\n", result.Assessment)
		}
		writeItemList(b, "Indicators of Compromise", result.IOCs)
		writeItemList(b, "Suggested Mitigation", result.Mitigation)
		writeItemList(b, "Further Investigation", result.NextSteps)
	}
}

func writeItemList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s:**\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func filterClause(filter *models.FilterQuery) string {
	var parts []string
	if filter.From != nil {
		parts = append(parts, fmt.Sprintf("from %s", filter.From.UTC().Format("2006-01-02 15:04")))
	}
	if filter.To != nil {
		parts = append(parts, fmt.Sprintf("to %s", filter.To.UTC().Format("2006-01-02 15:04")))
	}
	if filter.Keyword != "" {
		parts = append(parts, fmt.Sprintf("keyword %q", filter.Keyword))
	}
	if filter.EventID != "" {
		parts = append(parts, "event id "+filter.EventID)
	}
	if filter.Provider != "" {
		parts = append(parts, "provider "+filter.Provider)
	}
	if filter.Severity != nil {
		op := "severity"
		if filter.SeverityAtLeast {
			op = "severity at least"
		}
		parts = append(parts, op+" "+filter.Severity.String())
	}
	return strings.Join(parts, ", ")
}
