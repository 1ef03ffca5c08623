package badger

import (
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// LogFileStorage implements the LogFileStorage interface for Badger
type LogFileStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLogFileStorage creates a new LogFileStorage instance
func NewLogFileStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LogFileStorage {
	return &LogFileStorage{
		db:     db,
		logger: logger,
	}
}

func (s *LogFileStorage) SaveLogFile(file *models.LogFile) error {
	if file.ID == "" {
		return fmt.Errorf("log file ID is required")
	}
	if err := s.db.Store().Upsert(file.ID, file); err != nil {
		return fmt.Errorf("failed to save log file: %w", err)
	}
	return nil
}

func (s *LogFileStorage) GetLogFile(id string) (*models.LogFile, error) {
	var file models.LogFile
	if err := s.db.Store().Get(id, &file); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("log file not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get log file: %w", err)
	}
	return &file, nil
}

func (s *LogFileStorage) ListLogFiles() ([]*models.LogFile, error) {
	var files []models.LogFile
	if err := s.db.Store().Find(&files, nil); err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}

	// Most recent upload first, matching the management view ordering
	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})

	result := make([]*models.LogFile, len(files))
	for i := range files {
		result[i] = &files[i]
	}
	return result, nil
}
