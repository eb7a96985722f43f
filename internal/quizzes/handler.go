package quizzes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veda-classroom/backend/internal/classes"
	"github.com/veda-classroom/backend/internal/middleware"
	"github.com/veda-classroom/backend/internal/models"
	"github.com/veda-classroom/backend/internal/realtime"
	"github.com/veda-classroom/backend/pkg/response"
)

// CreateRequest is the body for POST /classes/:id/quizzes.
type CreateRequest struct {
	Question      string   `json:"question" binding:"required"`
	Options       []string `json:"options" binding:"required,min=2,max=6"`
	CorrectAnswer int      `json:"correct_answer"`
}

// RespondRequest is the body for POST /quizzes/:id/respond.
type RespondRequest struct {
	Answer         int    `json:"answer"`
	ResponseTimeMs *int64 `json:"response_time_ms"`
}

// Handler handles quiz HTTP endpoints.
type Handler struct {
	repo      *Repository
	classRepo *classes.Repository
	hub       *realtime.Hub
}

// NewHandler creates a quiz handler.
func NewHandler(repo *Repository, classRepo *classes.Repository, hub *realtime.Hub) *Handler {
	return &Handler{repo: repo, classRepo: classRepo, hub: hub}
}

// Create handles POST /classes/:id/quizzes (owning teacher). The new
// quiz is broadcast to the live room immediately; the correct answer
// travels with it so clients can grade locally and students cannot be
// blocked by a round-trip.
func (h *Handler) Create(c *gin.Context) {
	classID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid class id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	cl, err := h.classRepo.GetByID(c.Request.Context(), classID)
	if err != nil {
		response.NotFound(c, "class not found")
		return
	}
	if cl.TeacherID != userID {
		response.Forbidden(c, "only the class teacher can create quizzes")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.CorrectAnswer < 0 || req.CorrectAnswer >= len(req.Options) {
		response.BadRequest(c, "correct_answer out of range")
		return
	}

	q := &models.Quiz{
		ClassID:       classID,
		Question:      req.Question,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
	}
	if err := h.repo.Create(c.Request.Context(), q); err != nil {
		response.Internal(c, "failed to create quiz")
		return
	}

	h.hub.BroadcastToClass(classID, "new_quiz", q)
	response.Created(c, q)
}

// ListByClass handles GET /classes/:id/quizzes.
func (h *Handler) ListByClass(c *gin.Context) {
	classID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid class id")
		return
	}
	list, err := h.repo.ListByClass(c.Request.Context(), classID)
	if err != nil {
		response.Internal(c, "failed to list quizzes")
		return
	}
	response.OK(c, list)
}

// Respond handles POST /quizzes/:id/respond (student). Correctness is
// computed here, never trusted from the client.
func (h *Handler) Respond(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid quiz id")
		return
	}
	studentID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	q, err := h.repo.GetByID(c.Request.Context(), quizID)
	if err != nil {
		response.NotFound(c, "quiz not found")
		return
	}
	if !q.IsActive {
		response.Conflict(c, "quiz is closed")
		return
	}
	if req.Answer < 0 || req.Answer >= len(q.Options) {
		response.BadRequest(c, "answer out of range")
		return
	}

	resp := &models.QuizResponse{
		QuizID:         quizID,
		StudentID:      studentID,
		Answer:         req.Answer,
		IsCorrect:      req.Answer == q.CorrectAnswer,
		ResponseTimeMs: req.ResponseTimeMs,
	}
	if err := h.repo.Respond(c.Request.Context(), resp); err != nil {
		response.Internal(c, "failed to record response")
		return
	}
	response.OK(c, resp)
}

// Close handles POST /quizzes/:id/close (owning teacher).
func (h *Handler) Close(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid quiz id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	q, err := h.repo.GetByID(c.Request.Context(), quizID)
	if err != nil {
		response.NotFound(c, "quiz not found")
		return
	}
	cl, err := h.classRepo.GetByID(c.Request.Context(), q.ClassID)
	if err != nil || cl.TeacherID != userID {
		response.Forbidden(c, "only the class teacher can close quizzes")
		return
	}

	if err := h.repo.Close(c.Request.Context(), quizID); err != nil {
		response.Internal(c, "failed to close quiz")
		return
	}
	h.hub.BroadcastToClass(q.ClassID, "quiz_closed", gin.H{"quizId": quizID})
	response.OK(c, gin.H{"closed": true})
}

// Results handles GET /quizzes/:id/results (teacher view of durable counts).
func (h *Handler) Results(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid quiz id")
		return
	}
	counts, err := h.repo.Results(c.Request.Context(), quizID)
	if err != nil {
		response.Internal(c, "failed to load results")
		return
	}
	response.OK(c, gin.H{"counts": counts})
}
