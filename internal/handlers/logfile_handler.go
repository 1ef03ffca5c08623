package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/services/ingest"
)

// maxUploadBytes caps CSV uploads at 256 MB.
const maxUploadBytes = 256 << 20

// LogFileHandler handles log file upload and listing.
type LogFileHandler struct {
	ingestService *ingest.Service
	storage       interfaces.StorageManager
	logger        arbor.ILogger
}

// NewLogFileHandler creates a new LogFileHandler.
func NewLogFileHandler(ingestService *ingest.Service, storage interfaces.StorageManager, logger arbor.ILogger) *LogFileHandler {
	return &LogFileHandler{
		ingestService: ingestService,
		storage:       storage,
		logger:        logger,
	}
}

// UploadHandler handles POST /api/logfiles. The CSV comes in as multipart
// form data under the "file" field.
func (h *LogFileHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "upload requires a multipart 'file' field")
		return
	}
	defer file.Close()

	result, err := h.ingestService.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.Warn().Err(err).Str("filename", header.Filename).Msg("Upload ingestion failed")
		// The log file record carries the failure detail when one was created.
		if result != nil {
			WriteJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, result)
}

// ListHandler handles GET /api/logfiles.
func (h *LogFileHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	files, err := h.storage.LogFileStorage().ListLogFiles()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logfiles": files,
		"count":    len(files),
	})
}

// GetHandler handles GET /api/logfiles/{id}.
func (h *LogFileHandler) GetHandler(w http.ResponseWriter, r *http.Request, logFileID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	file, err := h.storage.LogFileStorage().GetLogFile(logFileID)
	if err != nil || file == nil {
		WriteError(w, http.StatusNotFound, "log file not found: "+logFileID)
		return
	}
	WriteJSON(w, http.StatusOK, file)
}
