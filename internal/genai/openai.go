package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/classpulse/interaction-service/internal/models"
)

const (
	defaultTimeout = 60 * time.Second
	maxRetries     = 2
	retryBaseDelay = 500 * time.Millisecond
)

// OpenAIConfig configures the OpenAI-backed oracle.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAIOracle implements Oracle against the OpenAI chat completions API.
type OpenAIOracle struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewOpenAIOracle(cfg OpenAIConfig, logger *slog.Logger) *OpenAIOracle {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}

	return &OpenAIOracle{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ===== DRAFT GENERATION =====

func (o *OpenAIOracle) GenerateActivityDraft(ctx context.Context, topic string, activityType models.ActivityType) (*ActivityDraft, error) {
	var schema map[string]any
	var instruction string

	switch activityType {
	case models.TypeQuiz:
		schema = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":    map[string]any{"type": "string", "description": "A concise title for the quiz."},
				"question": map[string]any{"type": "string", "description": "The quiz question."},
				"options": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "A list of 4 multiple-choice options.",
				},
				"correct_answer": map[string]any{"type": "string", "description": "The exact text of the correct option."},
			},
			"required":             []string{"title", "question", "options", "correct_answer"},
			"additionalProperties": false,
		}
		instruction = "Generate a multiple-choice quiz question with 4 options and the correct answer based on the following content."
	case models.TypeShortAnswer:
		schema = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":    map[string]any{"type": "string", "description": "A concise title for the short answer activity."},
				"question": map[string]any{"type": "string", "description": "The short answer question."},
			},
			"required":             []string{"title", "question"},
			"additionalProperties": false,
		}
		instruction = "Generate a thought-provoking short answer question based on the following content."
	default:
		return nil, ErrUnsupportedDraftType
	}

	system := fmt.Sprintf(
		"You are an expert educational content generator. Your task is to create a learning activity of type '%s'. %s The output MUST be a JSON object conforming to the provided schema.",
		activityType, instruction)

	raw, err := o.completeJSON(ctx, system, "Content/Topic: "+topic, "activity_draft", schema)
	if err != nil {
		return nil, err
	}

	var draft ActivityDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("failed to parse draft output: %w", err)
	}
	return &draft, nil
}

// ===== ANSWER GROUPING =====

func (o *OpenAIOracle) GroupAnswers(ctx context.Context, answers []string) (*GroupingOutput, error) {
	// Prepend the index to each answer so the model can map back to positions
	var sb strings.Builder
	for i, answer := range answers {
		fmt.Fprintf(&sb, "[%d]: %s\n", i, answer)
	}

	system := "You are an expert in qualitative data analysis. Your task is to group the following short answers into a few thematic categories. " +
		"The output MUST be a JSON object whose keys are descriptive group labels and whose values are lists of the original answer indices (the number in the square brackets)."

	raw, err := o.completeJSON(ctx, system, "Short answers to group:\n"+sb.String(), "", nil)
	if err != nil {
		return nil, err
	}

	groups, err := ParseGroupingObject(raw)
	if err != nil {
		return nil, err
	}

	return &GroupingOutput{Groups: groups, Raw: raw}, nil
}

// ===== HTTP PLUMBING =====

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat any           `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// completeJSON performs one chat completion expecting a JSON object back.
// When schema is nil the looser json_object response format is requested.
func (o *OpenAIOracle) completeJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (json.RawMessage, error) {
	req := chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	if schema != nil {
		req.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   schemaName,
				"schema": schema,
				"strict": true,
			},
		}
	} else {
		req.ResponseFormat = map[string]any{"type": "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oracle request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			o.logger.Warn("Retrying oracle call", "attempt", attempt, "last_error", lastErr)
		}

		raw, retryable, err := o.doRequest(ctx, body)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, lastErr
}

func (o *OpenAIOracle) doRequest(ctx context.Context, body []byte) (json.RawMessage, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		// Network errors and timeouts are worth one more try
		return nil, true, fmt.Errorf("oracle request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read oracle response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("oracle returned status %d: %s", httpResp.StatusCode, truncate(string(respBody), 200))
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("oracle returned status %d: %s", httpResp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, false, fmt.Errorf("failed to parse oracle response: %w", err)
	}
	if parsed.Error != nil {
		return nil, false, fmt.Errorf("oracle error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, false, fmt.Errorf("oracle returned no choices")
	}
	if refusal := parsed.Choices[0].Message.Refusal; refusal != "" {
		return nil, false, fmt.Errorf("oracle refused: %s", refusal)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, false, fmt.Errorf("oracle returned empty content")
	}

	return json.RawMessage(content), false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
