package models

import (
	"time"

	"gorm.io/datatypes"
)

// Response is one participant's submitted answer to an activity. At most one
// row exists per (activity, responder) pair; the check is lookup-before-insert,
// not a database constraint (see ActivityService.SubmitResponse).
type Response struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	ActivityID  uint           `json:"activity_id" gorm:"not null;index"`
	ResponderID uint           `json:"responder_id" gorm:"not null;index"`
	ResponseData datatypes.JSON `json:"response_data" gorm:"not null;type:jsonb"`
	SubmittedAt time.Time      `json:"submitted_at"`

	// GroupID clusters similar short answers; assigned post-hoc by the
	// grouping pipeline, nil until a grouping run covers this response.
	GroupID *int `json:"group_id" gorm:"index"`

	// IsCorrect is derived for quiz responses only.
	IsCorrect *bool `json:"is_correct"`

	// Relations
	Activity  Activity `json:"-" gorm:"foreignKey:ActivityID"`
	Responder User     `json:"responder" gorm:"foreignKey:ResponderID"`
}

func (Response) TableName() string {
	return "responses"
}

// ===== TYPED RESPONSE PAYLOADS =====

type PollResponse struct {
	SelectedOption string `json:"selected_option"`
}

type QuizResponse struct {
	Answer string `json:"answer"`
}

type WordCloudResponse struct {
	Words string `json:"words"`
}

type ShortAnswerResponse struct {
	Answer string `json:"answer"`
}
