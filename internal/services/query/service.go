// Package query evaluates filtered, sorted, paginated views over a log
// file's event records with enrichment results joined in.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
)

// topEntryLimit caps the aggregate count lists.
const topEntryLimit = 10

// FilterOptions are the distinct values present in a log file, used to
// populate filter dropdowns.
type FilterOptions struct {
	EventIDs  []string `json:"event_ids"`
	Providers []string `json:"providers"`
	Levels    []string `json:"levels"`
}

// Service answers filter queries. Stateless between calls; every query
// re-evaluates against storage so results always reflect the latest
// enrichments.
type Service struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewService creates the query service.
func NewService(storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Events returns one page of the filtered, sorted result set for a log file.
// Ordering is timestamp ascending with records lacking a timestamp first,
// ties broken by ingestion sequence. A page beyond the result set is empty
// with Total still reporting the full match count.
func (s *Service) Events(logFileID string, filter *models.FilterQuery) (*models.QueryPage, error) {
	if filter == nil {
		filter = &models.FilterQuery{}
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	matched, err := s.filteredRecords(logFileID, filter)
	if err != nil {
		return nil, err
	}

	page := &models.QueryPage{
		Total:    len(matched),
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Records:  []*models.EnrichedRecord{},
	}

	start := filter.Page * filter.PageSize
	if start < len(matched) {
		end := start + filter.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		page.Records = matched[start:end]
	}

	return page, nil
}

// Stats computes aggregate counts over the same filtered set the detail view
// shows. Pagination fields on the filter are ignored; stats always cover all
// matches.
func (s *Service) Stats(logFileID string, filter *models.FilterQuery) (*models.AggregateStats, error) {
	if filter == nil {
		filter = &models.FilterQuery{}
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	matched, err := s.filteredRecords(logFileID, filter)
	if err != nil {
		return nil, err
	}
	return buildStats(matched), nil
}

// Filtered returns every matching record, sorted, unpaginated. Report
// generation consumes this.
func (s *Service) Filtered(logFileID string, filter *models.FilterQuery) ([]*models.EnrichedRecord, error) {
	if filter == nil {
		filter = &models.FilterQuery{}
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.filteredRecords(logFileID, filter)
}

// Filters returns the distinct event ids, providers, and severity levels
// present in a log file, sorted for stable dropdown rendering.
func (s *Service) Filters(logFileID string) (*FilterOptions, error) {
	records, err := s.storage.EventStorage().GetEventsByLogFile(logFileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for %s: %w", logFileID, err)
	}

	eventIDs := make(map[string]struct{})
	providers := make(map[string]struct{})
	levels := make(map[models.Severity]struct{})
	for _, record := range records {
		if record.EventID != "" {
			eventIDs[record.EventID] = struct{}{}
		}
		if record.Provider != "" {
			providers[record.Provider] = struct{}{}
		}
		levels[record.Level] = struct{}{}
	}

	options := &FilterOptions{
		EventIDs:  sortedKeys(eventIDs),
		Providers: sortedKeys(providers),
	}
	for _, severity := range []models.Severity{
		models.SeverityInformational,
		models.SeverityWarning,
		models.SeverityError,
		models.SeverityCritical,
	} {
		if _, ok := levels[severity]; ok {
			options.Levels = append(options.Levels, severity.String())
		}
	}
	return options, nil
}

// filteredRecords loads, joins, filters, and sorts. The enrichment join is
// one batched lookup over the distinct fingerprints of the matched set.
func (s *Service) filteredRecords(logFileID string, filter *models.FilterQuery) ([]*models.EnrichedRecord, error) {
	records, err := s.storage.EventStorage().GetEventsByLogFile(logFileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for %s: %w", logFileID, err)
	}

	// Predicates that need no enrichment run first to shrink the join.
	preFiltered := make([]*models.EventRecord, 0, len(records))
	for _, record := range records {
		if matchesRecord(record, filter) {
			preFiltered = append(preFiltered, record)
		}
	}

	fingerprints := make([]string, 0, len(preFiltered))
	for _, record := range preFiltered {
		if record.Fingerprint != "" {
			fingerprints = append(fingerprints, record.Fingerprint)
		}
	}
	enrichments, err := s.storage.EnrichmentStorage().GetEnrichments(fingerprints)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrichments: %w", err)
	}

	keyword := strings.ToLower(strings.TrimSpace(filter.Keyword))
	matched := make([]*models.EnrichedRecord, 0, len(preFiltered))
	for _, record := range preFiltered {
		enriched := &models.EnrichedRecord{
			Record:     record,
			Enrichment: enrichments[record.Fingerprint],
		}
		if keyword != "" && !matchesKeyword(enriched, keyword) {
			continue
		}
		matched = append(matched, enriched)
	}

	sortRecords(matched)
	return matched, nil
}

// matchesRecord evaluates every predicate except the keyword, which also
// searches enrichment text and runs after the join.
func matchesRecord(record *models.EventRecord, filter *models.FilterQuery) bool {
	if filter.From != nil {
		if record.Timestamp == nil || record.Timestamp.Before(*filter.From) {
			return false
		}
	}
	if filter.To != nil {
		if record.Timestamp == nil || record.Timestamp.After(*filter.To) {
			return false
		}
	}
	if filter.EventID != "" && !strings.EqualFold(record.EventID, filter.EventID) {
		return false
	}
	if filter.Provider != "" && !strings.EqualFold(record.Provider, filter.Provider) {
		return false
	}
	if filter.Severity != nil {
		if filter.SeverityAtLeast {
			if record.Level < *filter.Severity {
				return false
			}
		} else if record.Level != *filter.Severity {
			return false
		}
	}
	return true
}

func matchesKeyword(enriched *models.EnrichedRecord, keyword string) bool {
	if strings.Contains(strings.ToLower(enriched.Record.Description), keyword) {
		return true
	}
	if strings.Contains(strings.ToLower(enriched.Record.RawSummary), keyword) {
		return true
	}
	if enriched.Enrichment != nil &&
		strings.Contains(strings.ToLower(enriched.Enrichment.Explanation), keyword) {
		return true
	}
	return false
}

// sortRecords orders by timestamp ascending with nil timestamps first, then
// by ingestion sequence. The ordering is total, so pagination is stable
// across repeated queries.
func sortRecords(records []*models.EnrichedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Record, records[j].Record
		switch {
		case a.Timestamp == nil && b.Timestamp == nil:
			return a.Sequence < b.Sequence
		case a.Timestamp == nil:
			return true
		case b.Timestamp == nil:
			return false
		case a.Timestamp.Equal(*b.Timestamp):
			return a.Sequence < b.Sequence
		default:
			return a.Timestamp.Before(*b.Timestamp)
		}
	})
}

func buildStats(matched []*models.EnrichedRecord) *models.AggregateStats {
	eventIDs := make(map[string]int)
	providers := make(map[string]int)
	severities := make(map[string]int)
	for _, enriched := range matched {
		record := enriched.Record
		if record.EventID != "" {
			eventIDs[record.EventID]++
		}
		if record.Provider != "" {
			providers[record.Provider]++
		}
		severities[record.Level.String()]++
	}

	return &models.AggregateStats{
		Total:             len(matched),
		TopEventIDs:       topEntries(eventIDs, topEntryLimit),
		SeverityHistogram: topEntries(severities, len(severities)),
		TopProviders:      topEntries(providers, topEntryLimit),
	}
}

// topEntries ranks counts descending, ties broken by key so output is
// deterministic.
func topEntries(counts map[string]int, limit int) []models.CountEntry {
	entries := make([]models.CountEntry, 0, len(counts))
	for key, count := range counts {
		entries = append(entries, models.CountEntry{Key: key, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
