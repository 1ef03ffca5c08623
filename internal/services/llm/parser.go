package llm

import (
	"strings"

	"github.com/ternarybob/logsight/internal/models"
)

// Section prefixes the model is instructed to emit, in expected order.
var sectionPrefixes = []string{
	"Explanation:",
	"Relevance:",
	"IoCs:",
	"Suggested Mitigation:",
	"Further Investigation Steps:",
}

// ParseAnalysisResponse extracts the structured enrichment fields from the
// model's sectioned text response. The model is prompted for a strict format
// but responses drift, so parsing is tolerant: unrecognized lines attach to
// the current section, and a response with no recognizable sections becomes
// the explanation wholesale rather than being discarded.
func ParseAnalysisResponse(text string) *models.EnrichmentResult {
	sections := splitSections(text)

	result := &models.EnrichmentResult{
		Explanation: sections["Explanation:"],
		Assessment:  sections["Relevance:"],
		IOCs:        parseItemList(sections["IoCs:"]),
		Mitigation:  parseItemList(sections["Suggested Mitigation:"]),
		NextSteps:   parseItemList(sections["Further Investigation Steps:"]),
	}

	if result.Explanation == "" && strings.TrimSpace(text) != "" {
		result.Explanation = strings.TrimSpace(text)
	}

	return result
}

// splitSections buffers lines under the most recently seen section prefix.
func splitSections(text string) map[string]string {
	sections := make(map[string]string, len(sectionPrefixes))

	var current string
	var buffer []string

	flush := func() {
		if current != "" && len(buffer) > 0 {
			sections[current] = strings.TrimSpace(strings.Join(buffer, "\n"))
		}
		buffer = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		matched := false
		for _, prefix := range sectionPrefixes {
			if strings.HasPrefix(trimmed, prefix) {
				flush()
				current = prefix
				if rest := strings.TrimSpace(strings.TrimPrefix(trimmed, prefix)); rest != "" {
					buffer = append(buffer, rest)
				}
				matched = true
				break
			}
		}

		if !matched && current != "" && trimmed != "" {
			buffer = append(buffer, trimmed)
		}
	}
	flush()

	return sections
}

// parseItemList converts a section body into individual items. Bullet lists
// become one item per bullet; a plain sentence stays a single item. "None
// apparent" style answers produce an empty list.
func parseItemList(body string) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}

	lower := strings.ToLower(body)
	if lower == "none apparent" || lower == "none" || lower == "n/a" ||
		lower == "no mitigation needed" || lower == "none apparent." {
		return nil
	}

	var items []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimSpace(line)
		if line != "" && line != "-" {
			items = append(items, line)
		}
	}
	return items
}
