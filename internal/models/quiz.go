package models

import (
	"time"

	"github.com/google/uuid"
)

// Quiz is a multiple-choice question launched in a class.
type Quiz struct {
	ID            uuid.UUID `json:"id"`
	ClassID       uuid.UUID `json:"class_id"`
	Question      string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectAnswer int       `json:"correct_answer"` // index of the correct option
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuizResponse is one student's durable answer to a quiz. The live
// per-room aggregate is kept separately by the session coordinator.
type QuizResponse struct {
	ID             uuid.UUID `json:"id"`
	QuizID         uuid.UUID `json:"quiz_id"`
	StudentID      uuid.UUID `json:"student_id"`
	Answer         int       `json:"answer"` // index of selected option
	IsCorrect      bool      `json:"is_correct"`
	ResponseTimeMs *int64    `json:"response_time_ms,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AttentionStatus is a student's reported attention state.
type AttentionStatus string

const (
	AttentionAttentive  AttentionStatus = "ATTENTIVE"
	AttentionDistracted AttentionStatus = "DISTRACTED"
)

// AttentionLog is one durable attention submission (analytics fallback
// when no session report was written).
type AttentionLog struct {
	ID        uuid.UUID       `json:"id"`
	ClassID   uuid.UUID       `json:"class_id"`
	StudentID uuid.UUID       `json:"student_id"`
	Status    AttentionStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
