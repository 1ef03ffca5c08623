package models

import "time"

// AnalysisDepth is the level of analysis requested from the reasoning service.
type AnalysisDepth int

const (
	// DepthTriage is the quick first-pass assessment.
	DepthTriage AnalysisDepth = iota + 1
	// DepthDeepDive is the full forensic analysis. A DeepDive result is never
	// silently replaced by a Triage result for the same fingerprint.
	DepthDeepDive
)

// String returns the canonical name for the depth.
func (d AnalysisDepth) String() string {
	if d == DepthDeepDive {
		return "deepdive"
	}
	return "triage"
}

// ParseDepth maps a request string onto an AnalysisDepth, defaulting to triage.
func ParseDepth(raw string) AnalysisDepth {
	if raw == "deepdive" || raw == "deep_dive" {
		return DepthDeepDive
	}
	return DepthTriage
}

// EnrichmentResult is one completed analysis, keyed by fingerprint rather
// than record id so records sharing identical content share one result.
// Immutable once written; a new depth produces a new stored value.
type EnrichmentResult struct {
	Fingerprint string        `json:"fingerprint"`
	Depth       AnalysisDepth `json:"depth"`

	Explanation string   `json:"explanation"`
	Assessment  string   `json:"assessment"` // severity assessment with justification
	IOCs        []string `json:"iocs,omitempty"`
	Mitigation  []string `json:"mitigation,omitempty"`  // deepdive only
	NextSteps   []string `json:"next_steps,omitempty"`  // deepdive only
	Model       string   `json:"model"`                 // source model identifier
	GeneratedAt time.Time `json:"generated_at"`
}

// EnrichedRecord pairs an event with its enrichment, which may be absent
// while analysis is pending or failed.
type EnrichedRecord struct {
	Record     *EventRecord      `json:"record"`
	Enrichment *EnrichmentResult `json:"enrichment,omitempty"`
}
