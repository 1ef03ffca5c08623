package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
	"github.com/ternarybob/logsight/internal/services/enrichment"
	"github.com/ternarybob/logsight/internal/services/query"
)

// EventHandler serves filtered event views and on-demand analysis.
type EventHandler struct {
	queryService *query.Service
	orchestrator *enrichment.Orchestrator
	storage      interfaces.StorageManager
	logger       arbor.ILogger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(queryService *query.Service, orch *enrichment.Orchestrator, storage interfaces.StorageManager, logger arbor.ILogger) *EventHandler {
	return &EventHandler{
		queryService: queryService,
		orchestrator: orch,
		storage:      storage,
		logger:       logger,
	}
}

// EventsHandler handles GET /api/logfiles/{id}/events.
func (h *EventHandler) EventsHandler(w http.ResponseWriter, r *http.Request, logFileID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	filter, err := ParseFilterQuery(r)
	if err != nil {
		WriteQueryError(w, err)
		return
	}

	page, err := h.queryService.Events(logFileID, filter)
	if err != nil {
		WriteQueryError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// StatsHandler handles GET /api/logfiles/{id}/stats. The same filter
// parameters as the events endpoint apply, so dashboard and detail agree.
func (h *EventHandler) StatsHandler(w http.ResponseWriter, r *http.Request, logFileID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	filter, err := ParseFilterQuery(r)
	if err != nil {
		WriteQueryError(w, err)
		return
	}

	stats, err := h.queryService.Stats(logFileID, filter)
	if err != nil {
		WriteQueryError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// FiltersHandler handles GET /api/logfiles/{id}/filters.
func (h *EventHandler) FiltersHandler(w http.ResponseWriter, r *http.Request, logFileID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	options, err := h.queryService.Filters(logFileID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, options)
}

// enrichRequest is the body of a batch analysis request.
type enrichRequest struct {
	Depth string `json:"depth"` // "triage" (default) or "deepdive"
}

// EnrichHandler handles POST /api/logfiles/{id}/enrich: analyzes the
// filtered record set at the requested depth and reports the batch outcome.
func (h *EventHandler) EnrichHandler(w http.ResponseWriter, r *http.Request, logFileID string) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if h.orchestrator == nil {
		WriteError(w, http.StatusServiceUnavailable, "analysis service not configured")
		return
	}

	var req enrichRequest
	if r.Body != nil {
		// An empty body means triage over the whole file.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	depth := models.ParseDepth(req.Depth)

	filter, err := ParseFilterQuery(r)
	if err != nil {
		WriteQueryError(w, err)
		return
	}

	enrichedRecords, err := h.queryService.Filtered(logFileID, filter)
	if err != nil {
		WriteQueryError(w, err)
		return
	}

	records := make([]*models.EventRecord, 0, len(enrichedRecords))
	for _, enriched := range enrichedRecords {
		records = append(records, enriched.Record)
	}

	batch, err := h.orchestrator.EnrichBatch(r.Context(), records, depth)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	failures := make(map[string]string, len(batch.Failed))
	for fingerprint, failure := range batch.Failed {
		failures[fingerprint] = failure.Error()
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"depth":          depth.String(),
		"records":        len(records),
		"enriched":       len(batch.Attached),
		"failed":         failures,
		"cache_hits":     batch.CacheHits,
		"external_calls": batch.ExternalCalls,
		"deduplicated":   batch.Deduplicated,
	})
}

// DeepDiveHandler handles POST /api/events/{id}/deepdive: full analysis of
// one record, upgrading any cached triage result.
func (h *EventHandler) DeepDiveHandler(w http.ResponseWriter, r *http.Request, eventID string) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if h.orchestrator == nil {
		WriteError(w, http.StatusServiceUnavailable, "analysis service not configured")
		return
	}

	record, err := h.storage.EventStorage().GetEvent(eventID)
	if err != nil || record == nil {
		WriteError(w, http.StatusNotFound, "event not found: "+eventID)
		return
	}

	result, err := h.orchestrator.EnrichRecord(r.Context(), record, models.DepthDeepDive)
	if err != nil {
		h.logger.Warn().Err(err).Str("event_id", eventID).Msg("Deep dive failed")
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, &models.EnrichedRecord{
		Record:     record,
		Enrichment: result,
	})
}
