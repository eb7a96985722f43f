package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// User represents a platform user (admin, teacher or student).
type User struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 string     `json:"email"`
	Password              string     `json:"-"`
	FullName              string     `json:"full_name"`
	RollNo                string     `json:"roll_no,omitempty"` // students only
	Role                  Role       `json:"role"`
	ClassSectionID        *uuid.UUID `json:"class_section_id,omitempty"`
	PasswordResetRequired bool       `json:"password_reset_required"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	RollNo         string     `json:"roll_no,omitempty"`
	Role           Role       `json:"role"`
	ClassSectionID *uuid.UUID `json:"class_section_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		RollNo:         u.RollNo,
		Role:           u.Role,
		ClassSectionID: u.ClassSectionID,
		CreatedAt:      u.CreatedAt,
	}
}
