package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAnalysisResponse(t *testing.T) {
	tests := []struct {
		name            string
		text            string
		wantExplanation string
		wantAssessment  string
		wantIOCs        []string
		wantSteps       []string
	}{
		{
			name: "triage format",
			text: `Explanation: A service was installed in the system.
Relevance: Medium - new services can indicate persistence.
IoCs: None apparent`,
			wantExplanation: "A service was installed in the system.",
			wantAssessment:  "Medium - new services can indicate persistence.",
			wantIOCs:        nil,
		},
		{
			name: "deepdive with bullet lists",
			text: `Explanation: PowerShell executed an encoded command.
Relevance: High - encoded commands commonly hide malicious payloads.
IoCs:
- 185.220.101.4
- C:\Users\Public\update.ps1
Suggested Mitigation:
- Enable PowerShell constrained language mode
Further Investigation Steps:
- Review process ancestry for the PowerShell host`,
			wantExplanation: "PowerShell executed an encoded command.",
			wantAssessment:  "High - encoded commands commonly hide malicious payloads.",
			wantIOCs:        []string{`185.220.101.4`, `C:\Users\Public\update.ps1`},
			wantSteps:       []string{"Review process ancestry for the PowerShell host"},
		},
		{
			name: "multi-line section bodies",
			text: `Explanation: An account was logged on.
The logon type indicates an interactive session.
Relevance: Informational - routine activity.
IoCs: None apparent`,
			wantExplanation: "An account was logged on.\nThe logon type indicates an interactive session.",
			wantAssessment:  "Informational - routine activity.",
		},
		{
			name:            "unstructured response falls back to explanation",
			text:            "The model ignored the format and wrote prose instead.",
			wantExplanation: "The model ignored the format and wrote prose instead.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseAnalysisResponse(tt.text)
			assert.Equal(t, tt.wantExplanation, result.Explanation)
			assert.Equal(t, tt.wantAssessment, result.Assessment)
			assert.Equal(t, tt.wantIOCs, result.IOCs)
			assert.Equal(t, tt.wantSteps, result.NextSteps)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"rate limit", errString("anthropic: 429 Too Many Requests"), ClassTransient},
		{"overloaded", errString("overloaded_error: the API is overloaded"), ClassTransient},
		{"server error", errString("500 internal server error"), ClassTransient},
		{"timeout", errString("request timeout exceeded"), ClassTransient},
		{"auth failure", errString("401 authentication_error: invalid x-api-key"), ClassPermanent},
		{"bad request", errString("400 invalid_request_error: prompt too long"), ClassPermanent},
		{"unknown defaults transient", errString("something odd happened"), ClassTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	config := NewDefaultRetryConfig()

	for attempt := 0; attempt < 5; attempt++ {
		backoff := config.CalculateBackoff(attempt)
		assert.GreaterOrEqual(t, backoff, config.InitialBackoff,
			"backoff must never drop below the initial delay")
		// Cap plus maximum jitter
		assert.LessOrEqual(t, backoff, config.MaxBackoff+config.MaxBackoff/4)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
