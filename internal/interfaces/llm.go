package interfaces

import (
	"context"

	"github.com/ternarybob/logsight/internal/models"
)

// Analyzer is the call-with-timeout abstraction over the external reasoning
// service. Retry policy is the orchestrator's concern, not the analyzer's:
// one call here is one request on the wire.
type Analyzer interface {
	// Analyze produces an enrichment for a single event summary at the
	// requested depth. The returned result has no Fingerprint set; the
	// caller keys it.
	Analyze(ctx context.Context, rawSummary string, depth models.AnalysisDepth) (*models.EnrichmentResult, error)

	// Summarize produces a free-form narrative from a prompt. Used by report
	// generation; never cached.
	Summarize(ctx context.Context, prompt string) (string, error)

	// Model returns the source-model identifier recorded on results.
	Model() string
}
