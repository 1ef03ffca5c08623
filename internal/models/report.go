package models

import "time"

// Report is the summary payload handed to the document-rendering layer:
// aggregate statistics, a deterministic sample of the filtered records, and
// a narrative executive summary. Layout and print pagination are owned by
// the renderer, not by this payload.
type Report struct {
	LogFileID   string    `json:"log_file_id"`
	Filename    string    `json:"filename"`
	GeneratedAt time.Time `json:"generated_at"`

	Filter FilterQuery    `json:"filter"`
	Stats  AggregateStats `json:"stats"`

	// Sampled is the evenly-spaced subsequence forwarded to narrative
	// summarization, bounded by the sampling budget.
	Sampled []*EnrichedRecord `json:"sampled"`

	// Narrative is the executive summary text. May carry a degraded notice
	// when the reasoning service was unavailable.
	Narrative string `json:"narrative"`
}
