package models

import (
	"time"

	"gorm.io/gorm"
)

type Course struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Code       string `json:"code" gorm:"uniqueIndex;not null;size:10" validate:"required,min=1,max=10"`
	Name       string `json:"name" gorm:"not null;size:128" validate:"required,min=1,max=128"`
	LecturerID uint   `json:"lecturer_id" gorm:"not null;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Lecturer    User         `json:"lecturer" gorm:"foreignKey:LecturerID"`
	Enrollments []Enrollment `json:"-" gorm:"foreignKey:CourseID"`
	Activities  []Activity   `json:"-" gorm:"foreignKey:CourseID"`

	// Computed fields (not stored)
	EnrollmentCount int `json:"enrollment_count" gorm:"-"`
	ActivityCount   int `json:"activity_count" gorm:"-"`
}

func (Course) TableName() string {
	return "courses"
}

// Enrollment joins a student to a course. A student enrolls in a course at
// most once, enforced by the composite unique index.
type Enrollment struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	CourseID  uint `json:"course_id" gorm:"not null;uniqueIndex:idx_course_student"`
	StudentID uint `json:"student_id" gorm:"not null;uniqueIndex:idx_course_student"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Course  Course `json:"course" gorm:"foreignKey:CourseID"`
	Student User   `json:"student" gorm:"foreignKey:StudentID"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
