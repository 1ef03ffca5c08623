package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/common"
	"github.com/ternarybob/logsight/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db         *BadgerDB
	logFile    interfaces.LogFileStorage
	event      interfaces.EventStorage
	enrichment interfaces.EnrichmentStorage
	logger     arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:         db,
		logFile:    NewLogFileStorage(db, logger),
		event:      NewEventStorage(db, logger),
		enrichment: NewEnrichmentStorage(db, logger),
		logger:     logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// LogFileStorage returns the LogFile storage interface
func (m *Manager) LogFileStorage() interfaces.LogFileStorage {
	return m.logFile
}

// EventStorage returns the Event storage interface
func (m *Manager) EventStorage() interfaces.EventStorage {
	return m.event
}

// EnrichmentStorage returns the Enrichment storage interface
func (m *Manager) EnrichmentStorage() interfaces.EnrichmentStorage {
	return m.enrichment
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
