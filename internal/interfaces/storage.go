package interfaces

import "github.com/ternarybob/logsight/internal/models"

// LogFileStorage persists uploaded file records.
type LogFileStorage interface {
	SaveLogFile(file *models.LogFile) error
	GetLogFile(id string) (*models.LogFile, error)
	ListLogFiles() ([]*models.LogFile, error)
}

// EventStorage persists canonical event records. Lookups by log file id and
// by fingerprint are indexed.
type EventStorage interface {
	SaveEvent(record *models.EventRecord) error
	SaveEvents(records []*models.EventRecord) error
	GetEvent(id string) (*models.EventRecord, error)
	GetEventsByLogFile(logFileID string) ([]*models.EventRecord, error)
	GetEventsByFingerprint(fingerprint string) ([]*models.EventRecord, error)
	CountEventsByLogFile(logFileID string) (int, error)
}

// EnrichmentStorage persists analysis results, upsert-by-fingerprint.
// Depth ordering (DeepDive over Triage) is enforced by the analysis cache,
// not here; storage is a plain upsert surface.
type EnrichmentStorage interface {
	SaveEnrichment(result *models.EnrichmentResult) error
	GetEnrichment(fingerprint string) (*models.EnrichmentResult, error)
	GetEnrichments(fingerprints []string) (map[string]*models.EnrichmentResult, error)
	DeleteEnrichment(fingerprint string) error
	CountEnrichments() (int, error)
}

// StorageManager owns the database handle and hands out the typed stores.
// Lifecycle belongs to the process entry point, not to any component.
type StorageManager interface {
	LogFileStorage() LogFileStorage
	EventStorage() EventStorage
	EnrichmentStorage() EnrichmentStorage
	Close() error
}
