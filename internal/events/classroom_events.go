package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/classpulse/interaction-service/internal/models"
)

// EventType represents different types of classroom lifecycle events
type EventType string

const (
	// Activity events
	EventActivityCreated   EventType = "activity.created"
	EventActivityActivated EventType = "activity.activated"
	EventActivityClosed    EventType = "activity.closed"

	// Response events
	EventResponseSubmitted EventType = "response.submitted"

	// GenAI events
	EventAnswersGrouped EventType = "genai.answers_grouped"
)

// ClassroomEvent is the base event structure for all lifecycle events
type ClassroomEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Activity event payloads

type ActivityCreatedEvent struct {
	ActivityID    uint                `json:"activity_id"`
	ActivityTitle string              `json:"activity_title"`
	ActivityType  models.ActivityType `json:"activity_type"`
	CourseID      uint                `json:"course_id"`
	CreatorID     uint                `json:"creator_id"`
}

type ActivityStateChangedEvent struct {
	ActivityID    uint                `json:"activity_id"`
	ActivityTitle string              `json:"activity_title"`
	ActivityType  models.ActivityType `json:"activity_type"`
	CourseID      uint                `json:"course_id"`
	IsActive      bool                `json:"is_active"`
	ChangedBy     uint                `json:"changed_by"`
	ChangedAt     time.Time           `json:"changed_at"`
}

type ResponseSubmittedEvent struct {
	ResponseID   uint                `json:"response_id"`
	ActivityID   uint                `json:"activity_id"`
	ActivityType models.ActivityType `json:"activity_type"`
	ResponderID  uint                `json:"responder_id"`
	SubmittedAt  time.Time           `json:"submitted_at"`
	Resubmission bool                `json:"resubmission"`
}

type AnswersGroupedEvent struct {
	ActivityID    uint      `json:"activity_id"`
	TaskID        uint      `json:"task_id"`
	GroupCount    int       `json:"group_count"`
	ResponseCount int       `json:"response_count"`
	GroupedBy     uint      `json:"grouped_by"`
	GroupedAt     time.Time `json:"grouped_at"`
}

// Event factory functions

func NewActivityCreatedEvent(activity *models.Activity) *ClassroomEvent {
	return newEvent(EventActivityCreated, ActivityCreatedEvent{
		ActivityID:    activity.ID,
		ActivityTitle: activity.Title,
		ActivityType:  activity.Type,
		CourseID:      activity.CourseID,
		CreatorID:     activity.CreatorID,
	})
}

func NewActivityStateChangedEvent(activity *models.Activity, changedBy uint) *ClassroomEvent {
	eventType := EventActivityClosed
	if activity.IsActive {
		eventType = EventActivityActivated
	}
	return newEvent(eventType, ActivityStateChangedEvent{
		ActivityID:    activity.ID,
		ActivityTitle: activity.Title,
		ActivityType:  activity.Type,
		CourseID:      activity.CourseID,
		IsActive:      activity.IsActive,
		ChangedBy:     changedBy,
		ChangedAt:     time.Now(),
	})
}

func NewResponseSubmittedEvent(response *models.Response, activity *models.Activity, resubmission bool) *ClassroomEvent {
	return newEvent(EventResponseSubmitted, ResponseSubmittedEvent{
		ResponseID:   response.ID,
		ActivityID:   activity.ID,
		ActivityType: activity.Type,
		ResponderID:  response.ResponderID,
		SubmittedAt:  response.SubmittedAt,
		Resubmission: resubmission,
	})
}

func NewAnswersGroupedEvent(activityID, taskID uint, groupCount, responseCount int, groupedBy uint) *ClassroomEvent {
	return newEvent(EventAnswersGrouped, AnswersGroupedEvent{
		ActivityID:    activityID,
		TaskID:        taskID,
		GroupCount:    groupCount,
		ResponseCount: responseCount,
		GroupedBy:     groupedBy,
		GroupedAt:     time.Now(),
	})
}

func newEvent(eventType EventType, data interface{}) *ClassroomEvent {
	return &ClassroomEvent{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "interaction-service",
		Version:   "1.0",
		Data:      data,
	}
}
