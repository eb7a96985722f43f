package models

import (
	"time"

	"github.com/google/uuid"
)

// ClassSection is a roster grouping (e.g. "1A", "2B").
type ClassSection struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Year          int        `json:"year"`
	HomeTeacherID *uuid.UUID `json:"home_teacher_id,omitempty"`
	Description   string     `json:"description"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Class represents a live class session. A class becomes live when the
// teacher activates it and goes inactive on explicit end or auto-end.
type Class struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	SubjectCode string     `json:"subject_code"`
	TeacherID   uuid.UUID  `json:"teacher_id"`
	TeacherName string     `json:"teacher_name,omitempty"` // joined for listings
	IsActive    bool       `json:"is_active"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
