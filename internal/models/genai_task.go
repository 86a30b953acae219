package models

import (
	"time"

	"gorm.io/datatypes"
)

type TaskType string

const (
	TaskActivityGeneration TaskType = "activity_generation"
	TaskAnswerGrouping     TaskType = "answer_grouping"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// GenAITask is one row of the oracle audit ledger. Rows are append-mostly:
// after creation only OutputData, Status, ErrorDetail and CompletedAt are set,
// exactly once, when the task reaches a terminal status.
type GenAITask struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	UserID     uint           `json:"user_id" gorm:"not null;index"`
	TaskType   TaskType       `json:"task_type" gorm:"not null;size:50;index" validate:"required,task_type"`
	InputData  datatypes.JSON `json:"input_data" gorm:"not null;type:jsonb"`
	OutputData datatypes.JSON `json:"output_data" gorm:"type:jsonb"`
	Status     TaskStatus     `json:"status" gorm:"default:pending;size:20;index" validate:"omitempty,task_status"`

	// ErrorDetail keeps the raw oracle error for operator diagnosis; it is
	// never surfaced to end users.
	ErrorDetail *string `json:"error_detail" gorm:"type:text"`

	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	CompletedAt *time.Time `json:"completed_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (GenAITask) TableName() string {
	return "genai_tasks"
}
