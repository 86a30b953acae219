package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent  UserRole = "student"
	RoleLecturer UserRole = "lecturer"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	ID       uint     `json:"id" gorm:"primaryKey"`
	Username string   `json:"username" gorm:"uniqueIndex;not null;size:64" validate:"required,min=1,max=64"`
	Email    *string  `json:"email" gorm:"index;size:120" validate:"omitempty,email"`
	Role     UserRole `json:"role" gorm:"default:student;size:20;index" validate:"omitempty,user_role"`

	// External student number, present for students only
	StudentNumber *string `json:"student_number" gorm:"uniqueIndex;size:20"`

	// Identity is owned by Casdoor; only the subject claim is mirrored here
	CasdoorSubject *string `json:"-" gorm:"uniqueIndex;size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
