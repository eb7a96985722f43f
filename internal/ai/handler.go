package ai

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veda-classroom/backend/internal/classes"
	"github.com/veda-classroom/backend/internal/middleware"
	"github.com/veda-classroom/backend/internal/models"
	"github.com/veda-classroom/backend/internal/realtime"
	"github.com/veda-classroom/backend/pkg/response"
)

// GenerateRequest is the body for POST /classes/:id/ai/generate.
type GenerateRequest struct {
	Topic string `json:"topic" binding:"required"`
	Count int    `json:"count"`
}

// Handler handles AI question generation and live AI quiz endpoints.
type Handler struct {
	repo      *Repository
	classRepo *classes.Repository
	generator Generator
	coord     *realtime.Coordinator
	logger    *zap.Logger
}

// NewHandler creates an AI handler.
func NewHandler(repo *Repository, classRepo *classes.Repository, generator Generator, coord *realtime.Coordinator, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, classRepo: classRepo, generator: generator, coord: coord, logger: logger}
}

// teacherOwns loads the class and checks the caller teaches it.
func (h *Handler) teacherOwns(c *gin.Context) (uuid.UUID, bool) {
	classID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid class id")
		return uuid.Nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	cl, err := h.classRepo.GetByID(c.Request.Context(), classID)
	if err != nil {
		response.NotFound(c, "class not found")
		return uuid.Nil, false
	}
	if cl.TeacherID != userID {
		response.Forbidden(c, "only the class teacher can manage AI quizzes")
		return uuid.Nil, false
	}
	return classID, true
}

// Generate handles POST /classes/:id/ai/generate (owning teacher).
// Generates questions for a topic and stores them as a reviewable bank.
func (h *Handler) Generate(c *gin.Context) {
	classID, ok := h.teacherOwns(c)
	if !ok {
		return
	}
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	questions, err := h.generator.GenerateQuestions(c.Request.Context(), req.Topic, req.Count)
	if err != nil {
		h.logger.Warn("question generation failed", zap.String("topic", req.Topic), zap.Error(err))
		response.Internal(c, "question generation failed")
		return
	}

	bank := &models.QuestionBank{
		ClassID:   classID,
		Topic:     req.Topic,
		Questions: questions,
		CreatedBy: c.MustGet(middleware.ContextUserID).(uuid.UUID),
	}
	if err := h.repo.CreateBank(c.Request.Context(), bank); err != nil {
		response.Internal(c, "failed to save question bank")
		return
	}
	response.Created(c, bank)
}

// ListBanks handles GET /classes/:id/ai/banks (owning teacher).
func (h *Handler) ListBanks(c *gin.Context) {
	classID, ok := h.teacherOwns(c)
	if !ok {
		return
	}
	list, err := h.repo.ListByClass(c.Request.Context(), classID)
	if err != nil {
		response.Internal(c, "failed to list question banks")
		return
	}
	response.OK(c, list)
}

// StartQuiz handles POST /classes/:id/ai/banks/:bankId/start (owning
// teacher). Kicks off randomized delivery into the live room.
func (h *Handler) StartQuiz(c *gin.Context) {
	classID, ok := h.teacherOwns(c)
	if !ok {
		return
	}
	bankID, err := uuid.Parse(c.Param("bankId"))
	if err != nil {
		response.BadRequest(c, "invalid bank id")
		return
	}
	bank, err := h.repo.GetQuestionBank(c.Request.Context(), bankID)
	if err != nil || bank.ClassID != classID {
		response.NotFound(c, "question bank not found")
		return
	}

	if err := h.coord.StartAIQuiz(c.Request.Context(), classID, bank); err != nil {
		if errors.Is(err, realtime.ErrNoParticipants) {
			response.Conflict(c, "no students in the room")
			return
		}
		response.Internal(c, "failed to start quiz")
		return
	}
	response.OK(c, gin.H{"started": true, "questions": len(bank.Questions)})
}

// DeleteBank handles DELETE /classes/:id/ai/banks/:bankId (owning teacher).
func (h *Handler) DeleteBank(c *gin.Context) {
	classID, ok := h.teacherOwns(c)
	if !ok {
		return
	}
	bankID, err := uuid.Parse(c.Param("bankId"))
	if err != nil {
		response.BadRequest(c, "invalid bank id")
		return
	}
	bank, err := h.repo.GetQuestionBank(c.Request.Context(), bankID)
	if err != nil || bank.ClassID != classID {
		response.NotFound(c, "question bank not found")
		return
	}
	if err := h.repo.DeleteBank(c.Request.Context(), bankID); err != nil {
		response.Internal(c, "failed to delete question bank")
		return
	}
	response.NoContent(c)
}
