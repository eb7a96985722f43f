package realtime

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veda-classroom/backend/internal/models"
)

// ErrNoParticipants is returned when an AI quiz is started against a
// room with no admitted students.
var ErrNoParticipants = errors.New("no participants in room")

// AIQuizQuestion is the unicast payload for one AI quiz question.
type AIQuizQuestion struct {
	QuizID         string   `json:"quizId"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	Index          int      `json:"index"`
	Total          int      `json:"total"`
	TimeoutSeconds int      `json:"timeoutSeconds"`
}

// StartAIQuiz launches asynchronous delivery of a question bank: each
// question goes to one randomly chosen active connection after a
// random pause, so students cannot predict when or to whom a probe
// lands. Delivery re-reads room state before every send; a question
// with nobody to receive it is skipped, and the run stops early if the
// room is deleted.
func (c *Coordinator) StartAIQuiz(ctx context.Context, classID uuid.UUID, bank *models.QuestionBank) error {
	st := c.rooms.Load(ctx, classID)
	if st == nil || st.ActiveCount() == 0 {
		return ErrNoParticipants
	}
	if len(bank.Questions) == 0 {
		return errors.New("question bank is empty")
	}

	questions := make([]models.AIQuestion, len(bank.Questions))
	copy(questions, bank.Questions)
	rand.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})

	go c.deliverAIQuiz(classID, bank.ID, questions)
	return nil
}

func (c *Coordinator) deliverAIQuiz(classID, bankID uuid.UUID, questions []models.AIQuestion) {
	total := len(questions)
	c.logger.Info("ai quiz started",
		zap.String("class_id", classID.String()),
		zap.String("bank_id", bankID.String()),
		zap.Int("questions", total))

	for i, q := range questions {
		time.Sleep(c.nextAIQuizDelay())

		ctx := context.Background()
		st := c.rooms.Load(ctx, classID)
		if st == nil {
			c.logger.Info("ai quiz aborted, room gone", zap.String("class_id", classID.String()))
			return
		}
		connID, ok := pickRandomConn(st)
		if !ok {
			c.logger.Warn("ai quiz question skipped, no active connections",
				zap.String("class_id", classID.String()), zap.Int("index", i+1))
			continue
		}

		c.hub.SendToConn(classID, connID, "ai_quiz_question", AIQuizQuestion{
			QuizID:         fmt.Sprintf("%s:%d", bankID, i+1),
			Question:       q.Question,
			Options:        q.Options,
			Index:          i + 1,
			Total:          total,
			TimeoutSeconds: int(c.answerTimeout / time.Second),
		})
	}

	c.hub.BroadcastToClass(classID, "ai_quiz_complete", map[string]int{"totalQuestions": total})
}

func (c *Coordinator) nextAIQuizDelay() time.Duration {
	if c.aiMaxInterval <= c.aiMinInterval {
		return c.aiMinInterval
	}
	return c.aiMinInterval + time.Duration(rand.Int63n(int64(c.aiMaxInterval-c.aiMinInterval)))
}

func pickRandomConn(st *RoomState) (string, bool) {
	n := len(st.ActiveConnections)
	if n == 0 {
		return "", false
	}
	pick := rand.Intn(n)
	for connID := range st.ActiveConnections {
		if pick == 0 {
			return connID, true
		}
		pick--
	}
	return "", false
}
