// Package scheduler runs the background sweep that triages records still
// lacking an enrichment result.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/common"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
	"github.com/ternarybob/logsight/internal/services/enrichment"
)

// Service schedules the enrichment sweep. One sweep runs at a time;
// overlapping ticks are skipped, not queued.
type Service struct {
	storage      interfaces.StorageManager
	orchestrator *enrichment.Orchestrator
	config       common.SweepConfig
	cron         *cron.Cron
	logger       arbor.ILogger

	mu       sync.Mutex
	sweeping bool
	running  bool

	lastRun     time.Time
	lastSwept   int
	lastFailed  int
}

// NewService creates the sweep scheduler.
func NewService(storage interfaces.StorageManager, orch *enrichment.Orchestrator, config common.SweepConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage:      storage,
		orchestrator: orch,
		config:       config,
		cron:         cron.New(cron.WithSeconds()),
		logger:       logger,
	}
}

// Start registers the sweep on its cron schedule and starts ticking.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sweep scheduler already running")
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "0 */5 * * * *"
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", schedule).Msg("Enrichment sweep scheduler started")
	return nil
}

// Stop halts the scheduler and waits for an in-progress sweep to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Enrichment sweep scheduler stopped")
}

// Status reports the outcome of the most recent sweep.
func (s *Service) Status() (lastRun time.Time, swept, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastSwept, s.lastFailed
}

func (s *Service) tick() {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		s.logger.Debug().Msg("Sweep still in progress, tick skipped")
		return
	}
	s.sweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	swept, failed, err := s.Sweep(context.Background())
	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastSwept = swept
	s.lastFailed = failed
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Enrichment sweep failed")
	}
}

// Sweep triages up to the configured limit of records that have no
// enrichment yet, oldest files first. Returns the number of fingerprints
// enriched and failed.
func (s *Service) Sweep(ctx context.Context) (int, int, error) {
	files, err := s.storage.LogFileStorage().ListLogFiles()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list log files: %w", err)
	}

	limit := s.config.Limit
	if limit <= 0 {
		limit = 50
	}

	pending := make([]*models.EventRecord, 0, limit)
	seen := make(map[string]struct{})
	for i := len(files) - 1; i >= 0 && len(pending) < limit; i-- {
		file := files[i]
		if file.Status != models.LogFileStatusReady {
			continue
		}
		records, err := s.storage.EventStorage().GetEventsByLogFile(file.ID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to load events for %s: %w", file.ID, err)
		}
		for _, record := range records {
			if len(pending) >= limit {
				break
			}
			if record.Fingerprint == "" {
				continue
			}
			if _, dup := seen[record.Fingerprint]; dup {
				continue
			}
			existing, err := s.storage.EnrichmentStorage().GetEnrichment(record.Fingerprint)
			if err != nil {
				return 0, 0, fmt.Errorf("failed to check enrichment: %w", err)
			}
			if existing != nil {
				continue
			}
			seen[record.Fingerprint] = struct{}{}
			pending = append(pending, record)
		}
	}

	if len(pending) == 0 {
		return 0, 0, nil
	}

	batch, err := s.orchestrator.EnrichBatch(ctx, pending, models.DepthTriage)
	if err != nil {
		return 0, 0, err
	}

	s.logger.Info().
		Int("enriched", len(batch.Attached)).
		Int("failed", len(batch.Failed)).
		Msg("Enrichment sweep completed")

	return len(batch.Attached), len(batch.Failed), nil
}
