package models

import (
	"fmt"
	"time"
)

// DefaultPageSize matches the detail view page length of the original tool.
const DefaultPageSize = 15

// FilterQuery describes one filtered, paginated view over a log file's
// records. All predicates are optional and combine conjunctively; an absent
// predicate places no constraint. Stateless, constructed per query.
type FilterQuery struct {
	From *time.Time `json:"from,omitempty"` // inclusive
	To   *time.Time `json:"to,omitempty"`   // inclusive

	// Keyword is matched case-insensitively against description, raw summary,
	// and attached explanation text. A record without enrichment simply has
	// no explanation surface to match on.
	Keyword string `json:"keyword,omitempty"`

	EventID  string `json:"event_id,omitempty"` // exact, case-insensitive
	Provider string `json:"provider,omitempty"` // exact, case-insensitive

	Severity        *Severity `json:"severity,omitempty"`
	SeverityAtLeast bool      `json:"severity_at_least,omitempty"` // >= instead of ==

	Page     int `json:"page"`      // zero-based
	PageSize int `json:"page_size"` // defaults to DefaultPageSize when 0
}

// QueryError is a rejected filter combination, surfaced synchronously before
// any query execution.
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

// Validate rejects malformed filter combinations. Valid queries have their
// pagination defaults filled in.
func (q *FilterQuery) Validate() error {
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return &QueryError{Reason: "date range start is after end"}
	}
	if q.Page < 0 {
		return &QueryError{Reason: "page must not be negative"}
	}
	if q.PageSize < 0 {
		return &QueryError{Reason: "page size must not be negative"}
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	return nil
}

// QueryPage is one page of a filtered, sorted result set.
type QueryPage struct {
	Records  []*EnrichedRecord `json:"records"`
	Total    int               `json:"total"` // match count across all pages
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// CountEntry is one bucket of an aggregate count.
type CountEntry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// AggregateStats are computed over the same filtered set the detail view
// shows, so dashboard and detail stay consistent under an active filter.
type AggregateStats struct {
	Total             int          `json:"total"`
	TopEventIDs       []CountEntry `json:"top_event_ids"`
	SeverityHistogram []CountEntry `json:"severity_histogram"`
	TopProviders      []CountEntry `json:"top_providers"`
}
