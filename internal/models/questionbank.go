package models

import (
	"time"

	"github.com/google/uuid"
)

// AIQuestion is one generated multiple-choice question.
type AIQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"` // zero-based index
}

// QuestionBank is a teacher-reviewed set of AI-generated questions for
// a class, used to drive the live AI quiz.
type QuestionBank struct {
	ID        uuid.UUID    `json:"id"`
	ClassID   uuid.UUID    `json:"class_id"`
	Topic     string       `json:"topic"`
	Questions []AIQuestion `json:"questions"`
	CreatedBy uuid.UUID    `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
}
