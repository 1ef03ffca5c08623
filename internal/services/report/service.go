// Package report assembles summary reports over a filtered record set:
// aggregate statistics, a deterministic sample, and a narrative executive
// summary from the reasoning service.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/common"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
	"github.com/ternarybob/logsight/internal/services/enrichment"
	"github.com/ternarybob/logsight/internal/services/llm"
	"github.com/ternarybob/logsight/internal/services/query"
)

// degradedNarrative is used when the reasoning service is unavailable; the
// report still ships with stats and samples.
const degradedNarrative = "Narrative summary unavailable: the analysis service could not be reached. " +
	"The statistics and sampled records below were generated locally and are complete."

// Service generates report payloads. Narrative summarization goes through
// the orchestrator's uncached call path; everything else is computed locally.
type Service struct {
	storage      interfaces.StorageManager
	query        *query.Service
	orchestrator *enrichment.Orchestrator
	config       common.ReportConfig
	logger       arbor.ILogger
}

// NewService creates the report service. A nil orchestrator disables
// narrative generation; reports then always carry the degraded notice.
func NewService(storage interfaces.StorageManager, querySvc *query.Service, orch *enrichment.Orchestrator, config common.ReportConfig, logger arbor.ILogger) *Service {
	if config.SampleBudget <= 0 {
		config.SampleBudget = 20
	}
	return &Service{
		storage:      storage,
		query:        querySvc,
		orchestrator: orch,
		config:       config,
		logger:       logger,
	}
}

// Generate builds a report over the filtered record set of a log file. The
// sample is an evenly-spaced subsequence of the sorted matches, so repeated
// generation over unchanged data produces identical reports (narrative text
// aside).
func (s *Service) Generate(ctx context.Context, logFileID string, filter *models.FilterQuery) (*models.Report, error) {
	file, err := s.storage.LogFileStorage().GetLogFile(logFileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load log file %s: %w", logFileID, err)
	}

	if filter == nil {
		filter = &models.FilterQuery{}
	}
	matched, err := s.query.Filtered(logFileID, filter)
	if err != nil {
		return nil, err
	}
	stats, err := s.query.Stats(logFileID, filter)
	if err != nil {
		return nil, err
	}

	sampled := sampleEvenly(matched, s.config.SampleBudget)

	rpt := &models.Report{
		LogFileID:   logFileID,
		Filename:    file.Filename,
		GeneratedAt: time.Now(),
		Filter:      *filter,
		Stats:       *stats,
		Sampled:     sampled,
		Narrative:   degradedNarrative,
	}

	if s.orchestrator != nil && len(sampled) > 0 {
		narrative, err := s.narrative(ctx, file.Filename, sampled)
		if err != nil {
			s.logger.Warn().Err(err).Str("log_file_id", logFileID).Msg("Report narrative degraded")
		} else {
			rpt.Narrative = narrative
		}
	}

	s.logger.Info().
		Str("log_file_id", logFileID).
		Int("matched", stats.Total).
		Int("sampled", len(sampled)).
		Msg("Report generated")

	return rpt, nil
}

// narrative summarizes the sampled records through the uncached call path.
func (s *Service) narrative(ctx context.Context, filename string, sampled []*models.EnrichedRecord) (string, error) {
	summaries := make([]string, 0, len(sampled))
	for _, enriched := range sampled {
		summaries = append(summaries, sampleLine(enriched))
	}
	return s.orchestrator.Summarize(ctx, llm.BuildReportPrompt(filename, summaries))
}

// sampleLine flattens one record into a prompt line, preferring the
// enrichment explanation over the raw description when one is attached.
func sampleLine(enriched *models.EnrichedRecord) string {
	record := enriched.Record
	when := "unknown time"
	if record.Timestamp != nil {
		when = record.Timestamp.UTC().Format("2006-01-02 15:04:05")
	}

	detail := record.Description
	if enriched.Enrichment != nil && enriched.Enrichment.Explanation != "" {
		detail = enriched.Enrichment.Explanation
	}
	return fmt.Sprintf("[%s] Event %s (%s, %s): %s",
		when, record.EventID, record.Provider, record.Level.String(),
		strings.TrimSpace(detail))
}

// sampleEvenly picks an evenly-spaced subsequence of at most budget records,
// preserving order. With n <= budget every record is taken; the selection is
// deterministic for a given input.
func sampleEvenly(records []*models.EnrichedRecord, budget int) []*models.EnrichedRecord {
	n := len(records)
	if n == 0 || budget <= 0 {
		return []*models.EnrichedRecord{}
	}
	if n <= budget {
		out := make([]*models.EnrichedRecord, n)
		copy(out, records)
		return out
	}

	out := make([]*models.EnrichedRecord, 0, budget)
	for i := 0; i < budget; i++ {
		out = append(out, records[i*n/budget])
	}
	return out
}
