package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/classpulse/interaction-service/internal/models"
)

// ContentValidator handles activity-specific content and response validation
type ContentValidator struct{}

// NewContentValidator creates a new content validator
func NewContentValidator() *ContentValidator {
	return &ContentValidator{}
}

// ValidateContent validates activity content based on activity type
func (v *ContentValidator) ValidateContent(activityType models.ActivityType, content interface{}) error {
	if content == nil {
		return fmt.Errorf("content cannot be nil")
	}

	contentBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}

	switch activityType {
	case models.TypePoll:
		return v.validatePollContent(contentBytes)
	case models.TypeQuiz:
		return v.validateQuizContent(contentBytes)
	case models.TypeWordCloud:
		return v.validateWordCloudContent(contentBytes)
	case models.TypeShortAnswer:
		return v.validateShortAnswerContent(contentBytes)
	case models.TypeMiniGame:
		// Mini-game content is free-form for now
		return nil
	default:
		return fmt.Errorf("unsupported activity type: %s", activityType)
	}
}

// ValidateResponsePayload validates a response payload against the activity's
// declared content. The payload must already be unmarshalled from JSON.
func (v *ContentValidator) ValidateResponsePayload(activity *models.Activity, payload []byte) error {
	switch activity.Type {
	case models.TypePoll:
		var content models.PollContent
		if err := json.Unmarshal(activity.Content, &content); err != nil {
			return fmt.Errorf("invalid poll content: %w", err)
		}
		var resp models.PollResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("invalid poll response: %w", err)
		}
		if strings.TrimSpace(resp.SelectedOption) == "" {
			return fmt.Errorf("selected option is required")
		}
		if !containsOption(content.Options, resp.SelectedOption) {
			return fmt.Errorf("selected option is not one of the declared options")
		}
		return nil

	case models.TypeQuiz:
		var content models.QuizContent
		if err := json.Unmarshal(activity.Content, &content); err != nil {
			return fmt.Errorf("invalid quiz content: %w", err)
		}
		var resp models.QuizResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("invalid quiz response: %w", err)
		}
		if strings.TrimSpace(resp.Answer) == "" {
			return fmt.Errorf("answer is required")
		}
		if !containsOption(content.Options, resp.Answer) {
			return fmt.Errorf("answer is not one of the declared options")
		}
		return nil

	case models.TypeWordCloud:
		var resp models.WordCloudResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("invalid word cloud response: %w", err)
		}
		if strings.TrimSpace(resp.Words) == "" {
			return fmt.Errorf("words are required")
		}
		return nil

	case models.TypeShortAnswer:
		var resp models.ShortAnswerResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("invalid short answer response: %w", err)
		}
		if strings.TrimSpace(resp.Answer) == "" {
			return fmt.Errorf("answer is required")
		}
		return nil

	case models.TypeMiniGame:
		// Mini-game results are free-form, like their content.
		if !json.Valid(payload) {
			return fmt.Errorf("invalid mini game response")
		}
		return nil

	default:
		return fmt.Errorf("responses are not supported for activity type: %s", activity.Type)
	}
}

// Private validation methods for each activity type

func (v *ContentValidator) validatePollContent(contentBytes []byte) error {
	var content models.PollContent
	if err := json.Unmarshal(contentBytes, &content); err != nil {
		return fmt.Errorf("invalid poll content: %w", err)
	}

	if strings.TrimSpace(content.Question) == "" {
		return fmt.Errorf("question is required")
	}

	return validateOptions(content.Options)
}

func (v *ContentValidator) validateQuizContent(contentBytes []byte) error {
	var content models.QuizContent
	if err := json.Unmarshal(contentBytes, &content); err != nil {
		return fmt.Errorf("invalid quiz content: %w", err)
	}

	if strings.TrimSpace(content.Question) == "" {
		return fmt.Errorf("question is required")
	}

	if err := validateOptions(content.Options); err != nil {
		return err
	}

	if strings.TrimSpace(content.CorrectAnswer) == "" {
		return fmt.Errorf("correct answer is required")
	}

	if !containsOption(content.Options, content.CorrectAnswer) {
		return fmt.Errorf("correct answer must be one of the declared options")
	}

	return nil
}

func (v *ContentValidator) validateWordCloudContent(contentBytes []byte) error {
	var content models.WordCloudContent
	if err := json.Unmarshal(contentBytes, &content); err != nil {
		return fmt.Errorf("invalid word cloud content: %w", err)
	}

	if strings.TrimSpace(content.Prompt) == "" {
		return fmt.Errorf("prompt is required")
	}

	return nil
}

func (v *ContentValidator) validateShortAnswerContent(contentBytes []byte) error {
	var content models.ShortAnswerContent
	if err := json.Unmarshal(contentBytes, &content); err != nil {
		return fmt.Errorf("invalid short answer content: %w", err)
	}

	if strings.TrimSpace(content.Question) == "" {
		return fmt.Errorf("question is required")
	}

	return nil
}

func validateOptions(options []string) error {
	nonBlank := 0
	for _, opt := range options {
		if strings.TrimSpace(opt) != "" {
			nonBlank++
		}
	}
	if nonBlank == 0 {
		return fmt.Errorf("at least one non-blank option is required")
	}
	return nil
}

func containsOption(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
