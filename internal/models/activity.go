package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActivityType string

const (
	TypePoll        ActivityType = "poll"
	TypeQuiz        ActivityType = "quiz"
	TypeWordCloud   ActivityType = "word_cloud"
	TypeShortAnswer ActivityType = "short_answer"
	TypeMiniGame    ActivityType = "mini_game"
)

// Activity is a single interactive exercise scoped to a course. Content is a
// JSONB payload whose shape depends on Type; it is validated once at creation
// and immutable afterwards.
type Activity struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CourseID  uint           `json:"course_id" gorm:"not null;index"`
	CreatorID uint           `json:"creator_id" gorm:"not null;index"`
	Title     string         `json:"title" gorm:"not null;size:128" validate:"required,min=1,max=128"`
	Type      ActivityType   `json:"type" gorm:"not null;size:50" validate:"required,activity_type"`
	Content   datatypes.JSON `json:"content" gorm:"not null;type:jsonb"`
	IsActive  bool           `json:"is_active" gorm:"default:false;index"`

	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Course    Course     `json:"course" gorm:"foreignKey:CourseID"`
	Creator   User       `json:"creator" gorm:"foreignKey:CreatorID"`
	Responses []Response `json:"-" gorm:"foreignKey:ActivityID"`

	// Computed fields (not stored)
	ResponseCount int `json:"response_count" gorm:"-"`
}

func (Activity) TableName() string {
	return "activities"
}

// ===== TYPED CONTENT PAYLOADS =====

// PollContent is the Content shape for poll activities.
type PollContent struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// QuizContent is the Content shape for quiz activities. CorrectAnswer must be
// the exact text of one of Options.
type QuizContent struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// WordCloudContent is the Content shape for word cloud activities.
type WordCloudContent struct {
	Prompt string `json:"prompt"`
}

// ShortAnswerContent is the Content shape for short answer activities.
type ShortAnswerContent struct {
	Question string `json:"question"`
}
