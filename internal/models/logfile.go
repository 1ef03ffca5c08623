package models

import "time"

// LogFileStatus represents the processing lifecycle of an uploaded log file.
type LogFileStatus string

const (
	LogFileStatusPending LogFileStatus = "pending"
	LogFileStatusParsing LogFileStatus = "parsing"
	LogFileStatusReady   LogFileStatus = "ready"
	LogFileStatusFailed  LogFileStatus = "failed"
)

// LogFile tracks one uploaded parser export and its ingestion progress.
// Created on upload, mutated as parsing completes, never deleted automatically.
type LogFile struct {
	ID         string        `json:"id"` // file_{uuid}
	Filename   string        `json:"filename"`
	Status     LogFileStatus `json:"status" badgerhold:"index"`
	UploadedAt time.Time     `json:"uploaded_at"`

	// Ingestion counters
	TotalRows       int `json:"total_rows"`
	ParsedRows      int `json:"parsed_rows"`
	QuarantinedRows int `json:"quarantined_rows"` // rows kept but flagged (malformed timestamp, missing fields)
	AnalyzedRows    int `json:"analyzed_rows"`    // rows with an enrichment result at ingest time

	Error string `json:"error,omitempty"` // populated when Status == failed
}
