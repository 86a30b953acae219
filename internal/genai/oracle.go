package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/classpulse/interaction-service/internal/models"
)

// Oracle is the external GenAI capability used by the service. Production
// wiring supplies the OpenAI-backed implementation; tests substitute a
// deterministic fake.
type Oracle interface {
	// GenerateActivityDraft turns a free-text topic into a structured draft
	// for the requested activity type. Only quiz and short_answer are
	// supported; other types return ErrUnsupportedDraftType.
	GenerateActivityDraft(ctx context.Context, topic string, activityType models.ActivityType) (*ActivityDraft, error)

	// GroupAnswers clusters the ordered answer texts into labeled groups.
	// Returned indices refer to positions in the input slice and are not
	// bounds-checked here; callers must validate them.
	GroupAnswers(ctx context.Context, answers []string) (*GroupingOutput, error)
}

// ErrUnsupportedDraftType is returned for activity types the draft generator
// deliberately does not attempt.
var ErrUnsupportedDraftType = fmt.Errorf("draft generation is not supported for this activity type")

// ActivityDraft is a generated activity awaiting lecturer review. Options and
// CorrectAnswer are populated for quiz drafts only.
type ActivityDraft struct {
	Title         string   `json:"title"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
}

// AnswerGroup is one labeled cluster of answer indices.
type AnswerGroup struct {
	Label   string `json:"label"`
	Indices []int  `json:"indices"`
}

// GroupingOutput carries the oracle's clusters in returned key order plus the
// raw JSON object for the task ledger.
type GroupingOutput struct {
	Groups []AnswerGroup
	Raw    json.RawMessage
}

// ParseGroupingObject decodes a JSON object of label -> index list while
// preserving the object's key order, which downstream group id assignment
// depends on.
func ParseGroupingObject(data []byte) ([]AnswerGroup, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid grouping object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("grouping result must be a JSON object")
	}

	var groups []AnswerGroup
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid grouping object: %w", err)
		}
		label, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("grouping object key is not a string")
		}

		var indices []int
		if err := dec.Decode(&indices); err != nil {
			return nil, fmt.Errorf("group %q has a non-integer-list value: %w", label, err)
		}

		groups = append(groups, AnswerGroup{Label: label, Indices: indices})
	}

	return groups, nil
}
