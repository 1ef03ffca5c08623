package llm

import (
	"fmt"
	"strings"
)

const (
	triageSystemPrompt = "You are a cybersecurity log analysis assistant. " +
		"You analyze Windows event log entries and respond strictly in the requested format."

	deepDiveSystemPrompt = "You are an expert cybersecurity forensic analyst providing a deep dive " +
		"into a specific Windows event log entry. You respond strictly in the requested format."

	reportSystemPrompt = "You are a cybersecurity analyst preparing an executive summary for a " +
		"log analysis report. You write professional prose suitable for a report and never " +
		"invent details absent from the provided material."
)

// buildTriagePrompt formats the quick first-pass analysis request.
func buildTriagePrompt(rawSummary string) string {
	return fmt.Sprintf(`Analyze the following log entry summary. Provide a concise explanation, its security relevance, and any potential IoCs.

Log Entry Summary:
---
%s
---

Tasks:
1. Explanation: briefly explain what this event typically means (1-2 sentences).
2. Relevance: categorize as "Informational", "Low", "Medium", "High", or "Critical" and justify briefly.
3. IoCs: list obvious Indicators of Compromise (suspicious IPs or domains, paths to suspicious
   executables, usernames directly involved as the acting party, known malicious hashes).
   If none directly relate to suspicious activity, state "None apparent".

Format your response STRICTLY as follows:
Explanation: [your explanation]
Relevance: [category] - [justification]
IoCs: [IoCs or "None apparent"]`, rawSummary)
}

// buildDeepDivePrompt formats the full forensic analysis request.
func buildDeepDivePrompt(rawSummary string) string {
	return fmt.Sprintf(`Analyze the comprehensive log entry details provided below.

Log Entry Details:
---
%s
---

Provide a detailed analysis covering:
1. Explanation: in-depth explanation of the event, its components, and the activity it represents.
2. Relevance: detailed assessment (Informational, Low, Medium, High, Critical) and why.
3. IoCs: enumerate all potential Indicators of Compromise (IPs, domains, file paths, hashes,
   user accounts, registry keys). Be specific; if none, state "None apparent".
4. Suggested Mitigation: if suspicious or malicious, suggest mitigation or hardening steps;
   if benign, state "No mitigation needed".
5. Further Investigation Steps: specific next steps for an analyst.

Format your response STRICTLY as follows, each section starting on a new line:
Explanation: [detailed explanation]
Relevance: [category] - [detailed justification]
IoCs:
- [IoC 1 (if any)]
Suggested Mitigation:
- [mitigation 1 (if any)]
Further Investigation Steps:
- [step 1 (if any)]`, rawSummary)
}

// BuildReportPrompt formats the executive-summary request for a report over
// a sample of log entry summaries.
func BuildReportPrompt(filename string, sampleSummaries []string) string {
	return fmt.Sprintf(`The report is for the log file: %q.
Below is a sample of key log entries found (these are summaries, not full logs).

Sampled Log Entry Summaries:
---
%s
---

Task:
Based only on the provided sampled log summaries, write a concise executive summary
(2-4 paragraphs) for the report. The summary should:
1. State the overall nature of the observed activities (routine operations, potential
   reconnaissance, indications of compromise).
2. Highlight noteworthy or suspicious patterns, key event types, or recurring IoCs
   observed in these samples.
3. Mention clear indications of malicious activity if present; if the samples appear
   mostly benign or informational, say so.
4. Conclude with a brief statement on the security posture indicated by these samples.

Do NOT invent details not present in the provided summaries.
Do NOT refer to this prompt or the fact that these are samples.`, filename, strings.Join(sampleSummaries, "\n---\n"))
}
