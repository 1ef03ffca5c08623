package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
	"github.com/ternarybob/logsight/internal/services/llm"
	"golang.org/x/time/rate"
)

// Options tune the orchestrator against the external service's limits.
type Options struct {
	Concurrency  int            // bounded worker pool size
	RateLimit    time.Duration  // minimum spacing between external calls
	Retry        *llm.RetryConfig
	BatchTimeout time.Duration  // batch abandonment threshold
}

// DefaultOptions reflect the Anthropic API's documented limits for small
// tiers: a handful of concurrent requests spaced about a second apart.
func DefaultOptions() Options {
	return Options{
		Concurrency:  4,
		RateLimit:    time.Second,
		Retry:        llm.NewDefaultRetryConfig(),
		BatchTimeout: 10 * time.Minute,
	}
}

// flight is one outstanding external call for a fingerprint. Joiners wait on
// done and read the shared outcome instead of issuing a duplicate call.
type flight struct {
	done   chan struct{}
	result *models.EnrichmentResult
	err    error
}

// BatchResult reports the outcome of one orchestration batch. Failed
// fingerprints never abort the batch; they are reported here and their
// records stay queryable without enrichment.
type BatchResult struct {
	Attached map[string]*models.EnrichmentResult // fingerprint -> result
	Failed   map[string]error                    // fingerprint -> terminal error

	CacheHits     int
	ExternalCalls int
	Deduplicated  int // records covered by another record's fingerprint
}

// Orchestrator drives analysis calls with cache-first lookup, per-fingerprint
// deduplication, a bounded worker pool, rate limiting, and retry with
// exponential backoff. At most one external call is in flight per fingerprint
// at any instant, enforced by the in-flight registry.
type Orchestrator struct {
	cache    *Cache
	analyzer interfaces.Analyzer
	logger   arbor.ILogger
	opts     Options

	limiter *rate.Limiter

	mu       sync.Mutex // guards inflight
	inflight map[string]*flight
}

// NewOrchestrator creates an orchestrator over the given cache and analyzer.
func NewOrchestrator(cache *Cache, analyzer interfaces.Analyzer, opts Options, logger arbor.ILogger) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = time.Second
	}
	if opts.Retry == nil {
		opts.Retry = llm.NewDefaultRetryConfig()
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 10 * time.Minute
	}

	return &Orchestrator{
		cache:    cache,
		analyzer: analyzer,
		logger:   logger,
		opts:     opts,
		limiter:  rate.NewLimiter(rate.Every(opts.RateLimit), 1),
		inflight: make(map[string]*flight),
	}
}

// EnrichBatch produces enrichment results for a batch of records at the
// target depth with minimal external calls. Records sharing a fingerprint
// yield exactly one call. Cancellation stops dispatch of further work items;
// calls already dispatched complete and populate the cache.
func (o *Orchestrator) EnrichBatch(ctx context.Context, records []*models.EventRecord, depth models.AnalysisDepth) (*BatchResult, error) {
	batchCtx, cancel := context.WithTimeout(ctx, o.opts.BatchTimeout)
	defer cancel()

	result := &BatchResult{
		Attached: make(map[string]*models.EnrichmentResult),
		Failed:   make(map[string]error),
	}

	// Group by fingerprint; one representative summary per distinct key.
	summaries := make(map[string]string)
	for _, record := range records {
		if record.Fingerprint == "" {
			continue
		}
		if _, seen := summaries[record.Fingerprint]; seen {
			result.Deduplicated++
			continue
		}
		summaries[record.Fingerprint] = record.RawSummary
	}

	// Cache hits attach immediately without touching the worker pool.
	pending := make([]string, 0, len(summaries))
	for fingerprint := range summaries {
		cached, hit, err := o.cache.Get(fingerprint, depth)
		if err != nil {
			return nil, err
		}
		if hit {
			result.Attached[fingerprint] = cached
			result.CacheHits++
			continue
		}
		pending = append(pending, fingerprint)
	}

	if len(pending) == 0 {
		return result, nil
	}

	o.logger.Info().
		Int("records", len(records)).
		Int("distinct", len(summaries)).
		Int("cache_hits", result.CacheHits).
		Int("pending", len(pending)).
		Str("depth", depth.String()).
		Msg("Dispatching enrichment batch")

	var (
		wg       sync.WaitGroup
		resultMu sync.Mutex
		slots    = make(chan struct{}, o.opts.Concurrency)
	)

	for _, fingerprint := range pending {
		// Observe cancellation before dispatching further work items.
		if batchCtx.Err() != nil {
			resultMu.Lock()
			result.Failed[fingerprint] = fmt.Errorf("batch cancelled before dispatch: %w", batchCtx.Err())
			resultMu.Unlock()
			continue
		}

		select {
		case slots <- struct{}{}:
		case <-batchCtx.Done():
			resultMu.Lock()
			result.Failed[fingerprint] = fmt.Errorf("batch cancelled before dispatch: %w", batchCtx.Err())
			resultMu.Unlock()
			continue
		}
		wg.Add(1)
		go func(fingerprint string) {
			defer wg.Done()
			defer func() { <-slots }()

			enriched, called, err := o.enrichFingerprint(batchCtx, fingerprint, summaries[fingerprint], depth)

			resultMu.Lock()
			defer resultMu.Unlock()
			if called {
				result.ExternalCalls++
			}
			if err != nil {
				result.Failed[fingerprint] = err
				return
			}
			result.Attached[fingerprint] = enriched
		}(fingerprint)
	}

	wg.Wait()
	return result, nil
}

// EnrichRecord analyzes a single record at the target depth. Used by the
// deep-dive path; same dedup and retry machinery as a batch of one.
func (o *Orchestrator) EnrichRecord(ctx context.Context, record *models.EventRecord, depth models.AnalysisDepth) (*models.EnrichmentResult, error) {
	batch, err := o.EnrichBatch(ctx, []*models.EventRecord{record}, depth)
	if err != nil {
		return nil, err
	}
	if err, failed := batch.Failed[record.Fingerprint]; failed {
		return nil, err
	}
	return batch.Attached[record.Fingerprint], nil
}

// Summarize is the uncached call path reused by report generation: same
// retry, backoff, and rate limiting as enrichment calls, no fingerprint
// dedup (each sampled set differs per query).
func (o *Orchestrator) Summarize(ctx context.Context, prompt string) (string, error) {
	var narrative string
	err := o.callWithRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		narrative, callErr = o.analyzer.Summarize(callCtx, prompt)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return narrative, nil
}

// enrichFingerprint resolves one distinct fingerprint: joins an outstanding
// flight when one exists, otherwise issues the external call itself. The
// bool return reports whether this invocation performed the call.
func (o *Orchestrator) enrichFingerprint(ctx context.Context, fingerprint, rawSummary string, depth models.AnalysisDepth) (*models.EnrichmentResult, bool, error) {
	o.mu.Lock()
	if existing, ok := o.inflight[fingerprint]; ok {
		o.mu.Unlock()

		// Attach to the outstanding call's outcome instead of duplicating it.
		select {
		case <-existing.done:
		case <-ctx.Done():
			return nil, false, fmt.Errorf("abandoned waiting for in-flight analysis of %s: %w", fingerprint, ctx.Err())
		}
		if existing.err != nil {
			return nil, false, existing.err
		}
		// The completed flight may have run at a lower depth than requested.
		if existing.result.Depth >= depth {
			return existing.result, false, nil
		}
		return o.enrichFingerprint(ctx, fingerprint, rawSummary, depth)
	}

	f := &flight{done: make(chan struct{})}
	o.inflight[fingerprint] = f
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inflight, fingerprint)
		o.mu.Unlock()
		close(f.done)
	}()

	err := o.callWithRetry(ctx, func(callCtx context.Context) error {
		analyzed, callErr := o.analyzer.Analyze(callCtx, rawSummary, depth)
		if callErr != nil {
			return callErr
		}
		analyzed.Fingerprint = fingerprint

		authoritative, putErr := o.cache.Put(analyzed)
		if putErr != nil && !errors.Is(putErr, ErrStaleWrite) {
			return putErr
		}
		f.result = authoritative
		return nil
	})
	if err != nil {
		f.err = err
		o.logger.Warn().
			Err(err).
			Str("fingerprint", fingerprint).
			Str("depth", depth.String()).
			Msg("Enrichment failed for fingerprint")
		return nil, true, err
	}

	return f.result, true, nil
}

// callWithRetry runs one external call under the shared rate limiter,
// retrying transient failures with exponential backoff and jitter up to the
// attempt ceiling. Permanent failures surface immediately. A call already
// dispatched runs to completion even if the batch context is cancelled
// mid-flight, so cache population is never wasted work; the per-call timeout
// inside the analyzer still bounds it.
func (o *Orchestrator) callWithRetry(ctx context.Context, call func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < o.opts.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := o.opts.Retry.CalculateBackoff(attempt - 1)
			o.logger.Debug().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Retrying external call after transient failure")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("retry abandoned: %w", ctx.Err())
			}
		}

		if err := o.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait interrupted: %w", err)
		}

		// Detach from batch cancellation: once dispatched, the call and its
		// cache write are allowed to finish. The analyzer applies its own
		// per-call timeout, which is strictly shorter than the batch's.
		lastErr = call(context.WithoutCancel(ctx))
		if lastErr == nil {
			return nil
		}
		if llm.Classify(lastErr) == llm.ClassPermanent {
			return fmt.Errorf("permanent failure: %w", lastErr)
		}
	}

	return fmt.Errorf("transient failure after %d attempts: %w", o.opts.Retry.MaxAttempts, lastErr)
}
