package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// EventStorage implements the EventStorage interface for Badger
type EventStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEventStorage creates a new EventStorage instance
func NewEventStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EventStorage {
	return &EventStorage{
		db:     db,
		logger: logger,
	}
}

func (s *EventStorage) SaveEvent(record *models.EventRecord) error {
	if record.ID == "" {
		return fmt.Errorf("event record ID is required")
	}
	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save event record: %w", err)
	}
	return nil
}

func (s *EventStorage) SaveEvents(records []*models.EventRecord) error {
	// BadgerHold doesn't expose bulk insert in a single transaction easily,
	// so iterate. Row-level failures abort the batch write.
	for _, record := range records {
		if err := s.SaveEvent(record); err != nil {
			return err
		}
	}
	return nil
}

func (s *EventStorage) GetEvent(id string) (*models.EventRecord, error) {
	var record models.EventRecord
	if err := s.db.Store().Get(id, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("event record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get event record: %w", err)
	}
	return &record, nil
}

func (s *EventStorage) GetEventsByLogFile(logFileID string) ([]*models.EventRecord, error) {
	var records []models.EventRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("LogFileID").Eq(logFileID).Index("LogFileID")); err != nil {
		return nil, fmt.Errorf("failed to get events for log file %s: %w", logFileID, err)
	}

	result := make([]*models.EventRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

func (s *EventStorage) GetEventsByFingerprint(fingerprint string) ([]*models.EventRecord, error) {
	var records []models.EventRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("Fingerprint").Eq(fingerprint).Index("Fingerprint")); err != nil {
		return nil, fmt.Errorf("failed to get events for fingerprint %s: %w", fingerprint, err)
	}

	result := make([]*models.EventRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

func (s *EventStorage) CountEventsByLogFile(logFileID string) (int, error) {
	count, err := s.db.Store().Count(&models.EventRecord{}, badgerhold.Where("LogFileID").Eq(logFileID).Index("LogFileID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count events for log file %s: %w", logFileID, err)
	}
	return int(count), nil
}
