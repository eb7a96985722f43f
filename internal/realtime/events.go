package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EventType enumerates the closed set of inbound client events. The
// source of truth for dispatch is the switch in Client.readPump; any
// event outside this set is ignored.
type EventType string

const (
	EventJoinClass     EventType = "join_class"
	EventRequestToJoin EventType = "request_to_join"
	EventApprove       EventType = "approve_student"
	EventLeaveClass    EventType = "leave_class"
	EventAttention     EventType = "attention_update"
	EventTabSwitch     EventType = "tab_switch"
	EventStudentAbsent EventType = "student_absent"
	EventPointsUpdate  EventType = "points_update"
	EventRaiseHand     EventType = "raise_hand"
	EventNewQuiz       EventType = "new_quiz"
	EventQuizResponse  EventType = "quiz_response"
	EventStartAIQuiz   EventType = "start_ai_quiz"
	EventAIQuizAnswer  EventType = "ai_quiz_response"
	EventSendMessage   EventType = "send_message"
)

// Envelope is the WebSocket message envelope for both directions.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TeacherMarker is the distinguished participant id for the teacher
// connection; teachers are tracked by connection, not as participants.
const TeacherMarker = "TEACHER"

// UserInfo carries the display identity sent with join events.
type UserInfo struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// JoinPayload is the data for join_class and request_to_join.
type JoinPayload struct {
	ClassID       uuid.UUID `json:"classId"`
	ParticipantID string    `json:"participantId"`
	User          UserInfo  `json:"user"`
}

// ApprovePayload is the data for approve_student (teacher action).
type ApprovePayload struct {
	ClassID uuid.UUID `json:"classId"`
	ConnID  string    `json:"connectionId"`
}

// LeavePayload is the data for leave_class.
type LeavePayload struct {
	ClassID uuid.UUID `json:"classId"`
}

// AttentionPayload is the data for attention_update. Optional fields
// update only when present so partial reports never zero out counters.
type AttentionPayload struct {
	ClassID        uuid.UUID         `json:"classId"`
	ParticipantID  string            `json:"participantId"`
	Status         ParticipantStatus `json:"status"`
	Score          *int              `json:"score,omitempty"`
	ResponsesCount *int              `json:"responsesCount,omitempty"`
	TotalCount     *int              `json:"totalCount,omitempty"`
}

// TabSwitchPayload is the data for tab_switch.
type TabSwitchPayload struct {
	ClassID       uuid.UUID `json:"classId"`
	ParticipantID string    `json:"participantId"`
	TabSwitches   int       `json:"tabSwitchCount"`
	FocusScore    int       `json:"focusScore"`
	IdleMillis    int64     `json:"idleMs"`
}

// AbsentPayload is the data for student_absent.
type AbsentPayload struct {
	ClassID        uuid.UUID `json:"classId"`
	ParticipantID  string    `json:"participantId"`
	EngagementRate *int      `json:"engagementRate,omitempty"`
}

// PointsPayload is the data for points_update.
type PointsPayload struct {
	ClassID       uuid.UUID `json:"classId"`
	ParticipantID string    `json:"participantId"`
	Points        int       `json:"points"`
	Badges        []string  `json:"badges,omitempty"`
}

// RaiseHandPayload is the data for raise_hand.
type RaiseHandPayload struct {
	ClassID       uuid.UUID `json:"classId"`
	ParticipantID string    `json:"participantId"`
	Raised        bool      `json:"raised"`
	Name          string    `json:"name,omitempty"`
}

// QuizResponsePayload is the data for quiz_response and ai_quiz_response.
type QuizResponsePayload struct {
	ClassID        uuid.UUID `json:"classId"`
	QuizID         string    `json:"quizId"`
	ParticipantID  string    `json:"participantId"`
	SelectedAnswer int       `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
}

// StartAIQuizPayload is the data for start_ai_quiz (teacher action).
type StartAIQuizPayload struct {
	ClassID uuid.UUID `json:"classId"`
	BankID  uuid.UUID `json:"bankId"`
}

// ChatPayload is the data for send_message; relayed to the room as-is.
type ChatPayload struct {
	ClassID uuid.UUID       `json:"classId"`
	Message json.RawMessage `json:"message"`
	Sender  string          `json:"sender,omitempty"`
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, fmt.Errorf("empty event payload")
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode event payload: %w", err)
	}
	return v, nil
}
