package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/classpulse/interaction-service/internal/cache"
	"github.com/classpulse/interaction-service/internal/genai"
	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
)

const reportCacheTTL = 30 * time.Second

func reportCacheKey(activityID uint) string {
	return fmt.Sprintf("report:activity:%d", activityID)
}

// ===== REPORT TYPES =====

type OptionCount struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// GroupSummary is one short-answer cluster. Label is re-derived from the
// grouping ledger at report time; a group whose id predates the latest
// grouping run keeps its responses but reports an empty label.
type GroupSummary struct {
	GroupID int      `json:"group_id"`
	Label   string   `json:"label"`
	Count   int      `json:"count"`
	Samples []string `json:"samples"`
}

// ActivityReport aggregates an activity's responses for the lecturer view.
// Exactly one of Options, Words or Groups is populated depending on Type.
type ActivityReport struct {
	ActivityID     uint                `json:"activity_id"`
	ActivityType   models.ActivityType `json:"activity_type"`
	Title          string              `json:"title"`
	Question       string              `json:"question"`
	TotalResponses int                 `json:"total_responses"`

	Options      []OptionCount `json:"options,omitempty"`
	CorrectCount *int          `json:"correct_count,omitempty"`

	Words []WordCount `json:"words,omitempty"`

	Groups         []GroupSummary `json:"groups,omitempty"`
	UngroupedCount int            `json:"ungrouped_count,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// ===== REPORT ASSEMBLY =====

func (s *activityService) GetReport(ctx context.Context, activityID uint, userID uint) (_ *ActivityReport, err error) {
	timer := s.opLogger.StartOperation("activity.report", userID, activityID, "activity")
	defer func() { timer.End(ctx, err) }()

	activity, err := s.repo.Activity().GetByID(ctx, activityID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}

	isOwner, err := s.repo.Course().IsOwner(ctx, activity.CourseID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check course ownership: %w", err)
	}
	if !isOwner {
		return nil, NewPermissionError(userID, activityID, "activity", "report", "not the course lecturer")
	}

	key := reportCacheKey(activityID)
	var cached ActivityReport
	if cacheErr := s.cache.Get(ctx, key, &cached); cacheErr == nil {
		return &cached, nil
	} else if !errors.Is(cacheErr, cache.ErrCacheMiss) {
		s.logger.Warn("Report cache read failed", "key", key, "error", cacheErr)
	}

	responses, err := s.repo.Response().ListByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	report := &ActivityReport{
		ActivityID:     activity.ID,
		ActivityType:   activity.Type,
		Title:          activity.Title,
		TotalResponses: len(responses),
		GeneratedAt:    time.Now().UTC(),
	}

	switch activity.Type {
	case models.TypePoll, models.TypeQuiz:
		err = s.buildChoiceReport(activity, responses, report)
	case models.TypeWordCloud:
		err = s.buildWordCloudReport(activity, responses, report)
	case models.TypeShortAnswer:
		err = s.buildGroupedReport(ctx, activity, responses, report)
	case models.TypeMiniGame:
		// Mini games carry free-form content; the report is just the count.
	default:
		return nil, ErrUnsupportedActivityType
	}
	if err != nil {
		return nil, err
	}

	if cacheErr := s.cache.Set(ctx, key, report, reportCacheTTL); cacheErr != nil {
		s.logger.Warn("Report cache write failed", "key", key, "error", cacheErr)
	}

	return report, nil
}

func (s *activityService) buildChoiceReport(activity *models.Activity, responses []*models.Response, report *ActivityReport) error {
	var content models.QuizContent // superset of PollContent
	if err := json.Unmarshal(activity.Content, &content); err != nil {
		return fmt.Errorf("failed to decode activity content: %w", err)
	}
	report.Question = content.Question

	counts := make(map[string]int, len(content.Options))
	correct := 0
	for _, r := range responses {
		choice, ok := selectedChoice(activity.Type, r.ResponseData)
		if !ok {
			continue
		}
		counts[choice]++
		if r.IsCorrect != nil && *r.IsCorrect {
			correct++
		}
	}

	// Preserve the authored option order.
	report.Options = make([]OptionCount, 0, len(content.Options))
	for _, opt := range content.Options {
		report.Options = append(report.Options, OptionCount{Option: opt, Count: counts[opt]})
	}

	if activity.Type == models.TypeQuiz {
		report.CorrectCount = &correct
	}
	return nil
}

func selectedChoice(activityType models.ActivityType, data []byte) (string, bool) {
	switch activityType {
	case models.TypePoll:
		var payload models.PollResponse
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", false
		}
		return payload.SelectedOption, true
	case models.TypeQuiz:
		var payload models.QuizResponse
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", false
		}
		return payload.Answer, true
	}
	return "", false
}

func (s *activityService) buildWordCloudReport(activity *models.Activity, responses []*models.Response, report *ActivityReport) error {
	var content models.WordCloudContent
	if err := json.Unmarshal(activity.Content, &content); err != nil {
		return fmt.Errorf("failed to decode activity content: %w", err)
	}
	report.Question = content.Prompt

	freq := make(map[string]int)
	for _, r := range responses {
		var payload models.WordCloudResponse
		if err := json.Unmarshal(r.ResponseData, &payload); err != nil {
			continue
		}
		for _, word := range tokenizeWords(payload.Words) {
			freq[word]++
		}
	}

	report.Words = make([]WordCount, 0, len(freq))
	for word, count := range freq {
		report.Words = append(report.Words, WordCount{Word: word, Count: count})
	}
	sort.Slice(report.Words, func(i, j int) bool {
		if report.Words[i].Count != report.Words[j].Count {
			return report.Words[i].Count > report.Words[j].Count
		}
		return report.Words[i].Word < report.Words[j].Word
	})
	return nil
}

// tokenizeWords splits a free-text submission into lowercase words, treating
// commas and whitespace as separators.
func tokenizeWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			words = append(words, f)
		}
	}
	return words
}

const groupSampleLimit = 3

func (s *activityService) buildGroupedReport(ctx context.Context, activity *models.Activity, responses []*models.Response, report *ActivityReport) error {
	var content models.ShortAnswerContent
	if err := json.Unmarshal(activity.Content, &content); err != nil {
		return fmt.Errorf("failed to decode activity content: %w", err)
	}
	report.Question = content.Question

	// Labels live only in the grouping ledger; replay the latest completed
	// run's key order to recover the group id -> label mapping.
	labels, err := s.latestGroupLabels(ctx, activity.ID)
	if err != nil {
		return err
	}

	grouped := make(map[int]*GroupSummary)
	ungrouped := 0
	for _, r := range responses {
		if r.GroupID == nil {
			ungrouped++
			continue
		}
		gid := *r.GroupID
		summary, ok := grouped[gid]
		if !ok {
			summary = &GroupSummary{GroupID: gid, Samples: []string{}}
			if gid >= 1 && gid <= len(labels) {
				summary.Label = labels[gid-1]
			}
			grouped[gid] = summary
		}
		summary.Count++
		if len(summary.Samples) < groupSampleLimit {
			var payload models.ShortAnswerResponse
			if json.Unmarshal(r.ResponseData, &payload) == nil && payload.Answer != "" {
				summary.Samples = append(summary.Samples, payload.Answer)
			}
		}
	}

	report.Groups = make([]GroupSummary, 0, len(grouped))
	for _, summary := range grouped {
		report.Groups = append(report.Groups, *summary)
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		return report.Groups[i].GroupID < report.Groups[j].GroupID
	})
	report.UngroupedCount = ungrouped
	return nil
}

// latestGroupLabels returns labels indexed by group id minus one, or nil when
// the activity has never been grouped.
func (s *activityService) latestGroupLabels(ctx context.Context, activityID uint) ([]string, error) {
	task, err := s.repo.Task().LatestCompletedGrouping(ctx, activityID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load grouping ledger: %w", err)
	}

	groups, err := genai.ParseGroupingObject(task.OutputData)
	if err != nil {
		s.logger.Warn("Grouping ledger output unreadable", "task_id", task.ID, "error", err)
		return nil, nil
	}

	labels := make([]string, len(groups))
	for i, g := range groups {
		labels[i] = g.Label
	}
	return labels, nil
}
