package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// EnrichmentStorage implements the EnrichmentStorage interface for Badger.
// Writes are upsert-by-fingerprint; depth precedence is the analysis cache's
// contract, not storage's.
type EnrichmentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEnrichmentStorage creates a new EnrichmentStorage instance
func NewEnrichmentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EnrichmentStorage {
	return &EnrichmentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *EnrichmentStorage) SaveEnrichment(result *models.EnrichmentResult) error {
	if result.Fingerprint == "" {
		return fmt.Errorf("enrichment fingerprint is required")
	}
	if err := s.db.Store().Upsert(result.Fingerprint, result); err != nil {
		return fmt.Errorf("failed to save enrichment: %w", err)
	}
	return nil
}

func (s *EnrichmentStorage) GetEnrichment(fingerprint string) (*models.EnrichmentResult, error) {
	var result models.EnrichmentResult
	if err := s.db.Store().Get(fingerprint, &result); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get enrichment: %w", err)
	}
	return &result, nil
}

func (s *EnrichmentStorage) GetEnrichments(fingerprints []string) (map[string]*models.EnrichmentResult, error) {
	results := make(map[string]*models.EnrichmentResult, len(fingerprints))
	seen := make(map[string]bool, len(fingerprints))
	for _, fp := range fingerprints {
		if seen[fp] {
			continue
		}
		seen[fp] = true

		result, err := s.GetEnrichment(fp)
		if err != nil {
			return nil, err
		}
		if result != nil {
			results[fp] = result
		}
	}
	return results, nil
}

func (s *EnrichmentStorage) DeleteEnrichment(fingerprint string) error {
	if err := s.db.Store().Delete(fingerprint, &models.EnrichmentResult{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete enrichment: %w", err)
	}
	return nil
}

func (s *EnrichmentStorage) CountEnrichments() (int, error) {
	count, err := s.db.Store().Count(&models.EnrichmentResult{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count enrichments: %w", err)
	}
	return int(count), nil
}
