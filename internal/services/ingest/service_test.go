package ingest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/common"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
	"github.com/ternarybob/logsight/internal/services/enrichment"
	"github.com/ternarybob/logsight/internal/services/normalizer"
)

type memoryStorage struct {
	mu          sync.Mutex
	files       map[string]models.LogFile
	events      map[string]models.EventRecord
	enrichments map[string]models.EnrichmentResult
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		files:       make(map[string]models.LogFile),
		events:      make(map[string]models.EventRecord),
		enrichments: make(map[string]models.EnrichmentResult),
	}
}

func (m *memoryStorage) LogFileStorage() interfaces.LogFileStorage       { return m }
func (m *memoryStorage) EventStorage() interfaces.EventStorage           { return m }
func (m *memoryStorage) EnrichmentStorage() interfaces.EnrichmentStorage { return m }
func (m *memoryStorage) Close() error                                    { return nil }

func (m *memoryStorage) SaveLogFile(file *models.LogFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[file.ID] = *file
	return nil
}

func (m *memoryStorage) GetLogFile(id string) (*models.LogFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if file, ok := m.files[id]; ok {
		copied := file
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryStorage) ListLogFiles() ([]*models.LogFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.LogFile, 0, len(m.files))
	for _, file := range m.files {
		copied := file
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memoryStorage) SaveEvent(record *models.EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[record.ID] = *record
	return nil
}

func (m *memoryStorage) SaveEvents(records []*models.EventRecord) error {
	for _, record := range records {
		if err := m.SaveEvent(record); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryStorage) GetEvent(id string) (*models.EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record, ok := m.events[id]; ok {
		copied := record
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryStorage) GetEventsByLogFile(logFileID string) ([]*models.EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.EventRecord
	for _, record := range m.events {
		if record.LogFileID == logFileID {
			copied := record
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryStorage) GetEventsByFingerprint(fingerprint string) ([]*models.EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.EventRecord
	for _, record := range m.events {
		if record.Fingerprint == fingerprint {
			copied := record
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryStorage) CountEventsByLogFile(logFileID string) (int, error) {
	records, _ := m.GetEventsByLogFile(logFileID)
	return len(records), nil
}

func (m *memoryStorage) SaveEnrichment(result *models.EnrichmentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrichments[result.Fingerprint] = *result
	return nil
}

func (m *memoryStorage) GetEnrichment(fingerprint string) (*models.EnrichmentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result, ok := m.enrichments[fingerprint]; ok {
		copied := result
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryStorage) GetEnrichments(fingerprints []string) (map[string]*models.EnrichmentResult, error) {
	out := make(map[string]*models.EnrichmentResult)
	for _, fp := range fingerprints {
		result, _ := m.GetEnrichment(fp)
		if result != nil {
			out[fp] = result
		}
	}
	return out, nil
}

func (m *memoryStorage) DeleteEnrichment(fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.enrichments, fingerprint)
	return nil
}

func (m *memoryStorage) CountEnrichments() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.enrichments), nil
}

type stubAnalyzer struct {
	mu    sync.Mutex
	calls int
}

func (a *stubAnalyzer) Analyze(ctx context.Context, rawSummary string, depth models.AnalysisDepth) (*models.EnrichmentResult, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return &models.EnrichmentResult{
		Depth:       depth,
		Explanation: "stub analysis",
		GeneratedAt: time.Now(),
	}, nil
}

func (a *stubAnalyzer) Summarize(ctx context.Context, prompt string) (string, error) {
	return "stub narrative", nil
}

func (a *stubAnalyzer) Model() string { return "stub" }

const sampleCSV = `Timestamp (UTC),Event ID,Provider,Level,Description
2024-03-15 10:22:01,4625,Microsoft-Windows-Security-Auditing,Audit Failure,An account failed to log on.
2024-03-15 10:22:05,4624,Microsoft-Windows-Security-Auditing,Audit Success,An account was successfully logged on.
not-a-timestamp,7045,Service Control Manager,Information,A service was installed in the system.
`

func newTestService(t *testing.T, store *memoryStorage, cfg common.IngestConfig, analyzer interfaces.Analyzer) *Service {
	t.Helper()
	logger := arbor.NewLogger()

	var orch *enrichment.Orchestrator
	if analyzer != nil {
		opts := enrichment.DefaultOptions()
		opts.RateLimit = time.Millisecond
		orch = enrichment.NewOrchestrator(
			enrichment.NewCache(store.EnrichmentStorage(), logger),
			analyzer, opts, logger)
	}
	return NewService(store, normalizer.NewService(logger), orch, cfg, logger)
}

func TestIngest_Lifecycle(t *testing.T) {
	store := newMemoryStorage()
	svc := newTestService(t, store, common.IngestConfig{}, nil)

	file, err := svc.Ingest(context.Background(), "security.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, models.LogFileStatusReady, file.Status)
	assert.Equal(t, 3, file.TotalRows)
	assert.Equal(t, 3, file.ParsedRows)
	assert.Equal(t, 1, file.QuarantinedRows) // malformed timestamp row kept, flagged
	assert.Equal(t, 0, file.AnalyzedRows)
	assert.Empty(t, file.Error)

	records, err := store.GetEventsByLogFile(file.ID)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	stored, err := store.GetLogFile(file.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LogFileStatusReady, stored.Status)
}

func TestIngest_EmptyFileFails(t *testing.T) {
	store := newMemoryStorage()
	svc := newTestService(t, store, common.IngestConfig{}, nil)

	file, err := svc.Ingest(context.Background(), "empty.csv", strings.NewReader(""))
	require.Error(t, err)
	require.NotNil(t, file)
	assert.Equal(t, models.LogFileStatusFailed, file.Status)
	assert.Contains(t, file.Error, "empty file")
}

func TestIngest_MaxRowsCap(t *testing.T) {
	store := newMemoryStorage()
	svc := newTestService(t, store, common.IngestConfig{MaxRows: 2}, nil)

	file, err := svc.Ingest(context.Background(), "security.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, models.LogFileStatusReady, file.Status)
	assert.Equal(t, 2, file.ParsedRows)
	// The row that trips the cap is discarded, not counted: totals never
	// claim more rows than were actually parsed or quarantined.
	assert.Equal(t, 2, file.TotalRows)
}

func TestIngest_InitialTriage(t *testing.T) {
	store := newMemoryStorage()
	analyzer := &stubAnalyzer{}
	svc := newTestService(t, store, common.IngestConfig{InitialTriage: 2}, analyzer)

	file, err := svc.Ingest(context.Background(), "security.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, file.AnalyzedRows)

	count, err := store.CountEnrichments()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngest_ShortRowsQuarantined(t *testing.T) {
	raw := "Timestamp (UTC),Event ID,Provider,Level,Description\n" +
		"2024-03-15 10:22:01,4625,Microsoft-Windows-Security-Auditing,Audit Failure,An account failed to log on.\n" +
		"2024-03-15 10:23:00,1102\n"

	store := newMemoryStorage()
	svc := newTestService(t, store, common.IngestConfig{}, nil)

	file, err := svc.Ingest(context.Background(), "short.csv", strings.NewReader(raw))
	require.NoError(t, err)

	// The short row survives as a record with missing-field flags.
	assert.Equal(t, 2, file.ParsedRows)
	assert.Equal(t, 1, file.QuarantinedRows)
}
