package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionReport is the per-class engagement summary written when a
// class ends (explicitly or via auto-end).
type SessionReport struct {
	ID                    uuid.UUID              `json:"id"`
	ClassID               uuid.UUID              `json:"class_id"`
	TotalStudents         int                    `json:"total_students"`
	AverageAttentionScore float64                `json:"average_attention_score"`
	CSVKey                string                 `json:"csv_key,omitempty"` // S3 object key once exported
	Students              []SessionReportStudent `json:"students,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
}

// SessionReportStudent is one student's row in a session report.
// StudentID is the stable participant identifier from the live session.
type SessionReportStudent struct {
	StudentID              string `json:"student_id"`
	Name                   string `json:"name"`
	Status                 string `json:"status"`
	AttentionScore         int    `json:"attention_score"`
	ParticipationResponses int    `json:"participation_responses"`
	TotalEvents            int    `json:"total_events"`
	QuizCorrect            int    `json:"quiz_correct"`
	QuizTotal              int    `json:"quiz_total"`
	TabSwitches            int    `json:"tab_switches"`
	Points                 int    `json:"points"`
}
