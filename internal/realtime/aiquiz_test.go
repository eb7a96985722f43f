package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veda-classroom/backend/internal/models"
)

func testBank(n int) *models.QuestionBank {
	bank := &models.QuestionBank{ID: uuid.New(), Topic: "photosynthesis"}
	for i := 0; i < n; i++ {
		bank.Questions = append(bank.Questions, models.AIQuestion{
			Question:      "Q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: 1,
		})
	}
	return bank
}

func TestStartAIQuizEmptyRoom(t *testing.T) {
	e := newTestEnv(t)
	err := e.coord.StartAIQuiz(context.Background(), e.classID, testBank(3))
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestStartAIQuizTeacherOnlyRoom(t *testing.T) {
	e := newTestEnv(t)
	e.joinTeacher("conn-t")
	err := e.coord.StartAIQuiz(context.Background(), e.classID, testBank(3))
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestStartAIQuizEmptyBank(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")
	err := e.coord.StartAIQuiz(context.Background(), e.classID, testBank(0))
	assert.Error(t, err)
}

func TestAIQuizDeliversAllQuestions(t *testing.T) {
	e := newTestEnv(t)
	e.coord.aiMinInterval = time.Millisecond
	e.coord.aiMaxInterval = 2 * time.Millisecond
	e.joinStudent("conn-1", "stu-1", "Asha")
	e.joinStudent("conn-2", "stu-2", "Ravi")

	require.NoError(t, e.coord.StartAIQuiz(context.Background(), e.classID, testBank(4)))

	require.Eventually(t, func() bool {
		return len(e.hub.find("ai_quiz_complete")) == 1
	}, time.Second, 2*time.Millisecond)

	questions := e.hub.find("ai_quiz_question")
	require.Len(t, questions, 4)
	for _, q := range questions {
		payload, ok := q.payload.(AIQuizQuestion)
		require.True(t, ok)
		assert.Contains(t, []string{"conn-1", "conn-2"}, q.connID)
		assert.Equal(t, 4, payload.Total)
		assert.Len(t, payload.Options, 4)
	}
}

func TestAIQuizStopsWhenRoomDeleted(t *testing.T) {
	e := newTestEnv(t)
	e.coord.aiMinInterval = 5 * time.Millisecond
	e.coord.aiMaxInterval = 10 * time.Millisecond
	e.joinStudent("conn-1", "stu-1", "Asha")

	require.NoError(t, e.coord.StartAIQuiz(context.Background(), e.classID, testBank(50)))
	e.rooms.Delete(context.Background(), e.classID)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, e.hub.find("ai_quiz_complete"))
	assert.Less(t, len(e.hub.find("ai_quiz_question")), 50)
}
