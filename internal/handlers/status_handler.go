package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/common"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/services/scheduler"
)

// StatusHandler reports application health and triggers shutdown.
type StatusHandler struct {
	storage      interfaces.StorageManager
	sweeper      *scheduler.Service
	analyzer     interfaces.Analyzer
	startedAt    time.Time
	shutdownChan chan<- struct{}
	logger       arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler. The sweeper and analyzer may
// be nil when those subsystems are disabled.
func NewStatusHandler(storage interfaces.StorageManager, sweeper *scheduler.Service, analyzer interfaces.Analyzer, shutdownChan chan<- struct{}, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		storage:      storage,
		sweeper:      sweeper,
		analyzer:     analyzer,
		startedAt:    time.Now(),
		shutdownChan: shutdownChan,
		logger:       logger,
	}
}

// GetStatusHandler handles GET /api/status.
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status := map[string]interface{}{
		"version": common.GetFullVersion(),
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	}

	if count, err := h.storage.EnrichmentStorage().CountEnrichments(); err == nil {
		status["enrichments"] = count
	}
	if files, err := h.storage.LogFileStorage().ListLogFiles(); err == nil {
		status["logfiles"] = len(files)
	}
	if h.analyzer != nil {
		status["analysis_model"] = h.analyzer.Model()
	}
	if h.sweeper != nil {
		lastRun, swept, failed := h.sweeper.Status()
		sweep := map[string]interface{}{"swept": swept, "failed": failed}
		if !lastRun.IsZero() {
			sweep["last_run"] = lastRun.UTC().Format(time.RFC3339)
		}
		status["sweep"] = sweep
	}

	WriteJSON(w, http.StatusOK, status)
}

// ShutdownHandler handles POST /api/shutdown for graceful remote shutdown.
func (h *StatusHandler) ShutdownHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	h.logger.Info().Msg("Shutdown requested via HTTP")
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "shutting down",
	})

	if h.shutdownChan != nil {
		// Signal after the response is written.
		go func() { h.shutdownChan <- struct{}{} }()
	}
}
