package report

import (
	"context"
	"errors"
	"fmt"
	"os"
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
	"github.com/ternarybob/logsight/internal/services/llm"
	"github.com/ternarybob/logsight/internal/services/query"
	"github.com/ternarybob/logsight/internal/storage/badger"
)

type scriptedAnalyzer struct {
	mu             sync.Mutex
	summarizeCalls int
	lastPrompt     string
	summarizeErr   error
}

func (a *scriptedAnalyzer) Analyze(ctx context.Context, rawSummary string, depth models.AnalysisDepth) (*models.EnrichmentResult, error) {
	return &models.EnrichmentResult{Depth: depth, Explanation: "analysis", GeneratedAt: time.Now()}, nil
}

func (a *scriptedAnalyzer) Summarize(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summarizeCalls++
	a.lastPrompt = prompt
	if a.summarizeErr != nil {
		return "", a.summarizeErr
	}
	return "Executive summary of observed activity.", nil
}

func (a *scriptedAnalyzer) Model() string { return "scripted" }

func openTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	dir, err := os.MkdirTemp("", "logsight-report-test-*")
	require.NoError(t, err)

	manager, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() {
		manager.Close()
		os.RemoveAll(dir)
	})
	return manager
}

func newTestService(t *testing.T, storage interfaces.StorageManager, analyzer interfaces.Analyzer, cfg common.ReportConfig) *Service {
	t.Helper()
	logger := arbor.NewLogger()

	var orch *enrichment.Orchestrator
	if analyzer != nil {
		opts := enrichment.DefaultOptions()
		opts.RateLimit = time.Millisecond
		opts.Retry = &llm.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}
		orch = enrichment.NewOrchestrator(
			enrichment.NewCache(storage.EnrichmentStorage(), logger),
			analyzer, opts, logger)
	}
	return NewService(storage, query.NewService(storage, logger), orch, cfg, logger)
}

func seedFile(t *testing.T, storage interfaces.StorageManager, count int) string {
	t.Helper()
	file := &models.LogFile{
		ID:         "file-1",
		Filename:   "security.csv",
		Status:     models.LogFileStatusReady,
		UploadedAt: time.Now(),
	}
	require.NoError(t, storage.LogFileStorage().SaveLogFile(file))

	records := make([]*models.EventRecord, 0, count)
	for i := 0; i < count; i++ {
		ts := time.Date(2024, 3, 15, 10, 0, i, 0, time.UTC)
		records = append(records, &models.EventRecord{
			ID:          fmt.Sprintf("evt-%03d", i),
			LogFileID:   file.ID,
			Sequence:    i,
			Timestamp:   &ts,
			EventID:     "4625",
			Provider:    "Security-Auditing",
			Level:       models.SeverityWarning,
			Description: fmt.Sprintf("Failed logon %d", i),
		})
	}
	require.NoError(t, storage.EventStorage().SaveEvents(records))
	return file.ID
}

func TestGenerate_SamplesAndNarrative(t *testing.T) {
	storage := openTestStorage(t)
	analyzer := &scriptedAnalyzer{}
	svc := newTestService(t, storage, analyzer, common.ReportConfig{SampleBudget: 5})

	fileID := seedFile(t, storage, 40)

	rpt, err := svc.Generate(context.Background(), fileID, nil)
	require.NoError(t, err)

	assert.Equal(t, "security.csv", rpt.Filename)
	assert.Equal(t, 40, rpt.Stats.Total)
	assert.Len(t, rpt.Sampled, 5)
	assert.Equal(t, "Executive summary of observed activity.", rpt.Narrative)
	assert.Equal(t, 1, analyzer.summarizeCalls)
	assert.Contains(t, analyzer.lastPrompt, "security.csv")
	assert.Contains(t, analyzer.lastPrompt, "Failed logon")
}

func TestGenerate_SamplingDeterministic(t *testing.T) {
	storage := openTestStorage(t)
	svc := newTestService(t, storage, &scriptedAnalyzer{}, common.ReportConfig{SampleBudget: 4})

	fileID := seedFile(t, storage, 20)

	first, err := svc.Generate(context.Background(), fileID, nil)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), fileID, nil)
	require.NoError(t, err)

	require.Len(t, first.Sampled, 4)
	for i := range first.Sampled {
		assert.Equal(t, first.Sampled[i].Record.ID, second.Sampled[i].Record.ID)
	}
	// Evenly spaced over 20 records with budget 4: indexes 0, 5, 10, 15.
	assert.Equal(t, "evt-000", first.Sampled[0].Record.ID)
	assert.Equal(t, "evt-005", first.Sampled[1].Record.ID)
	assert.Equal(t, "evt-010", first.Sampled[2].Record.ID)
	assert.Equal(t, "evt-015", first.Sampled[3].Record.ID)
}

func TestGenerate_SampleSpansEntireFilteredSet(t *testing.T) {
	storage := openTestStorage(t)
	svc := newTestService(t, storage, &scriptedAnalyzer{}, common.ReportConfig{SampleBudget: 20})

	fileID := seedFile(t, storage, 600)

	rpt, err := svc.Generate(context.Background(), fileID, nil)
	require.NoError(t, err)
	require.Len(t, rpt.Sampled, 20)

	assert.Equal(t, 0, rpt.Sampled[0].Record.Sequence)
	// Evenly spaced over 600 records with budget 20, the last pick is
	// index 19*600/20 = 570, deep in the tail of the set.
	assert.Equal(t, 570, rpt.Sampled[19].Record.Sequence)
	assert.Equal(t, 600, rpt.Stats.Total)
}

func TestGenerate_SmallSetTakesEverything(t *testing.T) {
	storage := openTestStorage(t)
	svc := newTestService(t, storage, &scriptedAnalyzer{}, common.ReportConfig{SampleBudget: 20})

	fileID := seedFile(t, storage, 3)

	rpt, err := svc.Generate(context.Background(), fileID, nil)
	require.NoError(t, err)
	assert.Len(t, rpt.Sampled, 3)
}

func TestGenerate_DegradedNarrativeOnFailure(t *testing.T) {
	storage := openTestStorage(t)
	analyzer := &scriptedAnalyzer{summarizeErr: errors.New("invalid_api_key")}
	svc := newTestService(t, storage, analyzer, common.ReportConfig{})

	fileID := seedFile(t, storage, 10)

	rpt, err := svc.Generate(context.Background(), fileID, nil)
	require.NoError(t, err)
	assert.Contains(t, rpt.Narrative, "unavailable")
	assert.Equal(t, 10, rpt.Stats.Total)
	assert.NotEmpty(t, rpt.Sampled)
}

func TestGenerate_RespectsFilter(t *testing.T) {
	storage := openTestStorage(t)
	analyzer := &scriptedAnalyzer{}
	svc := newTestService(t, storage, analyzer, common.ReportConfig{})

	fileID := seedFile(t, storage, 10)
	other := &models.EventRecord{
		ID:        "evt-other",
		LogFileID: fileID,
		Sequence:  100,
		EventID:   "7045",
		Provider:  "Service Control Manager",
		Level:     models.SeverityCritical,
	}
	require.NoError(t, storage.EventStorage().SaveEvent(other))

	rpt, err := svc.Generate(context.Background(), fileID, &models.FilterQuery{EventID: "4625"})
	require.NoError(t, err)
	assert.Equal(t, 10, rpt.Stats.Total)
	for _, enriched := range rpt.Sampled {
		assert.Equal(t, "4625", enriched.Record.EventID)
	}
}
