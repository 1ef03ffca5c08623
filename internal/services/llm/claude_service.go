package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/common"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/models"
)

// ClaudeService implements the Analyzer interface using the Anthropic API.
// One Analyze call is one request on the wire; retry policy belongs to the
// enrichment orchestrator.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// NewClaudeService creates a new Claude analyzer instance.
func NewClaudeService(claudeConfig *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if claudeConfig.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY, LOGSIGHT_CLAUDE_API_KEY, or claude.api_key in config)")
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-haiku-3-5-20241022"
	}

	timeout := common.ParseDurationOr(claudeConfig.Timeout, 45*time.Second)

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	client := anthropic.NewClient(
		option.WithAPIKey(claudeConfig.APIKey),
	)

	service := &ClaudeService{
		config:    claudeConfig,
		logger:    logger,
		client:    client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude analyzer initialized successfully")

	return service, nil
}

// Model returns the source-model identifier recorded on results.
func (s *ClaudeService) Model() string {
	return s.config.Model
}

// Analyze generates an enrichment for a single event summary at the
// requested depth. The returned result carries no fingerprint; the caller
// keys it.
func (s *ClaudeService) Analyze(ctx context.Context, rawSummary string, depth models.AnalysisDepth) (*models.EnrichmentResult, error) {
	if strings.TrimSpace(rawSummary) == "" {
		return nil, fmt.Errorf("event summary cannot be empty for analysis")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var system, prompt string
	if depth == models.DepthDeepDive {
		system = deepDiveSystemPrompt
		prompt = buildDeepDivePrompt(rawSummary)
	} else {
		system = triageSystemPrompt
		prompt = buildTriagePrompt(rawSummary)
	}

	startTime := time.Now()
	s.logger.Debug().
		Str("depth", depth.String()).
		Int("summary_length", len(rawSummary)).
		Msg("Starting Claude event analysis")

	text, err := s.generateCompletion(timeoutCtx, system, prompt)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("depth", depth.String()).
			Msg("Claude event analysis failed")
		return nil, fmt.Errorf("event analysis failed: %w", err)
	}

	result := ParseAnalysisResponse(text)
	result.Depth = depth
	result.Model = s.config.Model
	result.GeneratedAt = time.Now().UTC()

	s.logger.Debug().
		Str("depth", depth.String()).
		Int("response_length", len(text)).
		Dur("duration", time.Since(startTime)).
		Msg("Claude event analysis completed")

	return result, nil
}

// Summarize generates a free-form narrative from a prompt. Used for report
// executive summaries; never cached.
func (s *ClaudeService) Summarize(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty for summarization")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generateCompletion(timeoutCtx, reportSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// HealthCheck verifies the analyzer is operational with a minimal probe.
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.generateCompletion(healthCheckCtx, "", "ping")
	if err != nil {
		return fmt.Errorf("Claude probe failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Claude probe returned empty response")
	}

	return nil
}

// generateCompletion encapsulates the Anthropic chat completion call.
func (s *ClaudeService) generateCompletion(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	return response.String(), nil
}

// Ensure ClaudeService implements the Analyzer interface
var _ interfaces.Analyzer = (*ClaudeService)(nil)
