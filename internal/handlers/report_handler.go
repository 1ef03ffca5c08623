package handlers

import (
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/services/pdf"
	"github.com/ternarybob/logsight/internal/services/report"
)

// ReportHandler serves report payloads and their PDF renderings.
type ReportHandler struct {
	reportService *report.Service
	pdfService    *pdf.Service
	logger        arbor.ILogger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *report.Service, pdfService *pdf.Service, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		pdfService:    pdfService,
		logger:        logger,
	}
}

// ReportHandler handles GET /api/logfiles/{id}/report. Filter parameters
// scope the report the same way they scope the events view.
func (h *ReportHandler) ReportHandler(w http.ResponseWriter, r *http.Request, logFileID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	filter, err := ParseFilterQuery(r)
	if err != nil {
		WriteQueryError(w, err)
		return
	}

	rpt, err := h.reportService.Generate(r.Context(), logFileID, filter)
	if err != nil {
		WriteQueryError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rpt)
}

// PDFHandler handles GET /api/logfiles/{id}/report.pdf.
func (h *ReportHandler) PDFHandler(w http.ResponseWriter, r *http.Request, logFileID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	filter, err := ParseFilterQuery(r)
	if err != nil {
		WriteQueryError(w, err)
		return
	}

	rpt, err := h.reportService.Generate(r.Context(), logFileID, filter)
	if err != nil {
		WriteQueryError(w, err)
		return
	}

	pdfBytes, err := h.pdfService.RenderReport(rpt)
	if err != nil {
		h.logger.Error().Err(err).Str("log_file_id", logFileID).Msg("PDF rendering failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", rpt.Filename+"-report.pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}
