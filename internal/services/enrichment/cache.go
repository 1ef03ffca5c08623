// Package enrichment holds the analysis cache and the orchestrator that
// drives external reasoning calls under concurrency and rate limits.
package enrichment

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
)

// ErrStaleWrite marks a rejected cache write: a DeepDive result already
// exists for the fingerprint and a Triage result must not replace it. Callers
// receive the authoritative result alongside this error and treat it as a
// resolved conflict, never a user-facing failure.
var ErrStaleWrite = errors.New("stale write: higher-depth result already cached")

// Cache maps fingerprints to enrichment results over the persistent store.
// It is the only structure mutated by multiple workers concurrently; all
// mutation goes through Put, which serializes commits so racing writers
// resolve to one deterministic winner (first commit wins).
type Cache struct {
	storage interfaces.EnrichmentStorage
	logger  arbor.ILogger
	mu      sync.Mutex // serializes Put commits
}

// NewCache creates a cache over the given enrichment store.
func NewCache(storage interfaces.EnrichmentStorage, logger arbor.ILogger) *Cache {
	return &Cache{
		storage: storage,
		logger:  logger,
	}
}

// Get returns the cached result for a fingerprint when its depth satisfies
// minDepth. A stored Triage result is a miss for a DeepDive request; a stored
// DeepDive result satisfies both depths.
func (c *Cache) Get(fingerprint string, minDepth models.AnalysisDepth) (*models.EnrichmentResult, bool, error) {
	result, err := c.storage.GetEnrichment(fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("cache read failed for %s: %w", fingerprint, err)
	}
	if result == nil || result.Depth < minDepth {
		return nil, false, nil
	}
	return result, true, nil
}

// Put stores a result idempotently and returns the authoritative result for
// the fingerprint. Outcomes:
//   - no existing result: the write commits, the new result is authoritative
//   - existing result of lower depth: the write upgrades it
//   - existing result of equal depth: first commit wins, the existing result
//     is returned and the caller's copy is discarded (no error)
//   - Triage put over an existing DeepDive: rejected with ErrStaleWrite, the
//     DeepDive result is returned
func (c *Cache) Put(result *models.EnrichmentResult) (*models.EnrichmentResult, error) {
	if result == nil || result.Fingerprint == "" {
		return nil, fmt.Errorf("enrichment result requires a fingerprint")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.storage.GetEnrichment(result.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("cache read failed for %s: %w", result.Fingerprint, err)
	}

	if existing != nil {
		if result.Depth < existing.Depth {
			c.logger.Debug().
				Str("fingerprint", result.Fingerprint).
				Str("existing_depth", existing.Depth.String()).
				Str("put_depth", result.Depth.String()).
				Msg("Rejected stale cache write")
			return existing, ErrStaleWrite
		}
		if result.Depth == existing.Depth {
			// Concurrent writers raced; the committed result stays
			// authoritative and the loser's copy is discarded.
			return existing, nil
		}
	}

	if err := c.storage.SaveEnrichment(result); err != nil {
		return nil, fmt.Errorf("cache write failed for %s: %w", result.Fingerprint, err)
	}
	return result, nil
}

// Evict removes a cached result. Retention is unbounded by default; this
// hook exists for operators invalidating results after a model change.
func (c *Cache) Evict(fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storage.DeleteEnrichment(fingerprint)
}
