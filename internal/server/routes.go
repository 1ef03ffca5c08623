package server

import (
	"net/http"
	"strings"

	"github.com/ternarybob/logsight/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Log file upload and listing
	mux.HandleFunc("/api/logfiles", s.handleLogFilesRoute)
	mux.HandleFunc("/api/logfiles/", s.handleLogFileRoutes)

	// Single-event deep dive
	mux.HandleFunc("/api/events/", s.handleEventRoutes)

	// Application status and remote shutdown
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/shutdown", s.app.StatusHandler.ShutdownHandler)

	return mux
}

// handleLogFilesRoute dispatches /api/logfiles by method: POST uploads,
// GET lists.
func (s *Server) handleLogFilesRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.app.LogFileHandler.UploadHandler(w, r)
	case http.MethodGet:
		s.app.LogFileHandler.ListHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleLogFileRoutes dispatches /api/logfiles/{id}[/subresource]:
//
//	GET  /api/logfiles/{id}             log file record
//	GET  /api/logfiles/{id}/events      filtered event page
//	GET  /api/logfiles/{id}/stats       aggregate statistics
//	GET  /api/logfiles/{id}/filters     distinct filter values
//	GET  /api/logfiles/{id}/report      report payload
//	GET  /api/logfiles/{id}/report.pdf  rendered PDF
//	POST /api/logfiles/{id}/enrich      batch analysis
func (s *Server) handleLogFileRoutes(w http.ResponseWriter, r *http.Request) {
	logFileID := handlers.PathSegment(r, "/api/logfiles/", 0)
	if logFileID == "" {
		http.NotFound(w, r)
		return
	}

	switch handlers.PathSegment(r, "/api/logfiles/", 1) {
	case "":
		s.app.LogFileHandler.GetHandler(w, r, logFileID)
	case "events":
		s.app.EventHandler.EventsHandler(w, r, logFileID)
	case "stats":
		s.app.EventHandler.StatsHandler(w, r, logFileID)
	case "filters":
		s.app.EventHandler.FiltersHandler(w, r, logFileID)
	case "report":
		s.app.ReportHandler.ReportHandler(w, r, logFileID)
	case "report.pdf":
		s.app.ReportHandler.PDFHandler(w, r, logFileID)
	case "enrich":
		s.app.EventHandler.EnrichHandler(w, r, logFileID)
	default:
		http.NotFound(w, r)
	}
}

// handleEventRoutes dispatches /api/events/{id}/deepdive.
func (s *Server) handleEventRoutes(w http.ResponseWriter, r *http.Request) {
	eventID := handlers.PathSegment(r, "/api/events/", 0)
	if eventID == "" || !strings.HasSuffix(r.URL.Path, "/deepdive") {
		http.NotFound(w, r)
		return
	}
	s.app.EventHandler.DeepDiveHandler(w, r, eventID)
}
