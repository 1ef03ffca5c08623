// Package ingest parses uploaded CSV parser exports into canonical event
// records. Malformed rows are kept and flagged, never dropped; only a file
// that cannot be read at all fails ingestion.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/common"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
	"github.com/ternarybob/logsight/internal/services/enrichment"
	"github.com/ternarybob/logsight/internal/services/normalizer"
)

// Service drives the upload-to-ready lifecycle of a log file.
type Service struct {
	storage      interfaces.StorageManager
	normalizer   *normalizer.Service
	orchestrator *enrichment.Orchestrator
	config       common.IngestConfig
	logger       arbor.ILogger
}

// NewService creates the ingestion service. The orchestrator may be nil when
// no analysis backend is configured; ingestion then skips the initial triage.
func NewService(storage interfaces.StorageManager, norm *normalizer.Service, orch *enrichment.Orchestrator, config common.IngestConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage:      storage,
		normalizer:   norm,
		orchestrator: orch,
		config:       config,
		logger:       logger,
	}
}

// Ingest parses a CSV stream into event records under a new log file. The
// returned LogFile is in status ready on success, failed when the stream is
// unreadable. Individual malformed rows never fail the file; they are
// flagged and counted as quarantined.
func (s *Service) Ingest(ctx context.Context, filename string, reader io.Reader) (*models.LogFile, error) {
	file := &models.LogFile{
		ID:         common.NewLogFileID(),
		Filename:   filename,
		Status:     models.LogFileStatusPending,
		UploadedAt: time.Now(),
	}
	if err := s.storage.LogFileStorage().SaveLogFile(file); err != nil {
		return nil, fmt.Errorf("failed to register log file: %w", err)
	}

	file.Status = models.LogFileStatusParsing
	if err := s.storage.LogFileStorage().SaveLogFile(file); err != nil {
		return nil, fmt.Errorf("failed to update log file status: %w", err)
	}

	records, total, quarantined, err := s.parseRows(file.ID, reader)
	if err != nil {
		file.Status = models.LogFileStatusFailed
		file.Error = err.Error()
		if saveErr := s.storage.LogFileStorage().SaveLogFile(file); saveErr != nil {
			s.logger.Warn().Err(saveErr).Str("log_file_id", file.ID).Msg("Failed to record ingestion failure")
		}
		return file, fmt.Errorf("ingestion failed for %s: %w", filename, err)
	}

	if err := s.storage.EventStorage().SaveEvents(records); err != nil {
		file.Status = models.LogFileStatusFailed
		file.Error = err.Error()
		if saveErr := s.storage.LogFileStorage().SaveLogFile(file); saveErr != nil {
			s.logger.Warn().Err(saveErr).Str("log_file_id", file.ID).Msg("Failed to record ingestion failure")
		}
		return file, fmt.Errorf("failed to persist events for %s: %w", filename, err)
	}

	file.TotalRows = total
	file.ParsedRows = len(records)
	file.QuarantinedRows = quarantined
	file.AnalyzedRows = s.initialTriage(ctx, records)
	file.Status = models.LogFileStatusReady
	if err := s.storage.LogFileStorage().SaveLogFile(file); err != nil {
		return nil, fmt.Errorf("failed to finalize log file: %w", err)
	}

	s.logger.Info().
		Str("log_file_id", file.ID).
		Str("filename", filename).
		Int("rows", total).
		Int("quarantined", quarantined).
		Int("triaged", file.AnalyzedRows).
		Msg("Log file ingested")

	return file, nil
}

// parseRows reads the CSV stream into normalized records. Rows with the
// wrong field count are skipped and counted as quarantined; a missing or
// empty header fails the whole file.
func (s *Service) parseRows(logFileID string, reader io.Reader) ([]*models.EventRecord, int, int, error) {
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1 // parser exports vary; length checked per row

	header, err := cr.Read()
	if err == io.EOF {
		return nil, 0, 0, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, 0, 0, fmt.Errorf("unreadable header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var (
		records     []*models.EventRecord
		total       int
		quarantined int
		sequence    int
	)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A row the reader cannot tokenize is quarantined, not fatal.
			total++
			quarantined++
			s.logger.Debug().Err(err).Int("row", total).Str("log_file_id", logFileID).Msg("Skipped unreadable row")
			continue
		}

		if s.config.MaxRows > 0 && total >= s.config.MaxRows {
			s.logger.Warn().
				Str("log_file_id", logFileID).
				Int("max_rows", s.config.MaxRows).
				Msg("Row cap reached, remaining rows ignored")
			break
		}
		total++

		record := s.normalizer.Normalize(logFileID, sequence, rowMap(header, row))
		if len(record.Flags) > 0 {
			quarantined++
		}
		records = append(records, record)
		sequence++
	}

	return records, total, quarantined, nil
}

// initialTriage analyzes the first N ingested records so the UI has
// enrichments to show immediately. Failures are logged, never surfaced:
// triage is a head start, not part of the ingestion contract.
func (s *Service) initialTriage(ctx context.Context, records []*models.EventRecord) int {
	if s.orchestrator == nil || s.config.InitialTriage <= 0 || len(records) == 0 {
		return 0
	}

	head := records
	if len(head) > s.config.InitialTriage {
		head = head[:s.config.InitialTriage]
	}

	batch, err := s.orchestrator.EnrichBatch(ctx, head, models.DepthTriage)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Initial triage skipped")
		return 0
	}

	analyzed := 0
	for _, record := range head {
		if _, ok := batch.Attached[record.Fingerprint]; ok {
			analyzed++
		}
	}
	return analyzed
}

func rowMap(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		if i < len(row) {
			m[name] = strings.TrimSpace(row[i])
		}
	}
	return m
}
