package classes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veda-classroom/backend/internal/middleware"
	"github.com/veda-classroom/backend/internal/models"
	"github.com/veda-classroom/backend/pkg/response"
)

// SessionEnder finalizes the live room when a class is explicitly
// ended: notifies connected and waiting participants, persists the
// session summary and drops the room state.
type SessionEnder interface {
	EndClass(ctx context.Context, classID uuid.UUID)
}

// CreateRequest is the body for POST /classes.
type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	SubjectCode string `json:"subject_code"`
}

// UpdateRequest is the body for PUT /classes/:id.
type UpdateRequest struct {
	Name        string `json:"name" binding:"required"`
	SubjectCode string `json:"subject_code"`
}

// Handler handles class HTTP endpoints.
type Handler struct {
	repo    *Repository
	session SessionEnder
}

// NewHandler creates a class handler.
func NewHandler(repo *Repository, session SessionEnder) *Handler {
	return &Handler{repo: repo, session: session}
}

// Create handles POST /classes (teacher only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	teacherID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	cl := &models.Class{
		Name:        req.Name,
		SubjectCode: req.SubjectCode,
		TeacherID:   teacherID,
	}
	if err := h.repo.Create(c.Request.Context(), cl); err != nil {
		response.Internal(c, "failed to create class")
		return
	}
	response.Created(c, cl)
}

// GetByID handles GET /classes/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid class id")
		return
	}
	cl, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "class not found")
		return
	}
	response.OK(c, cl)
}

// List handles GET /classes. Teachers see their own classes; students
// see the active ones they can join. ?active=true filters either way.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(string)

	var teacherID *uuid.UUID
	if role == string(models.RoleTeacher) {
		teacherID = &userID
	}
	activeOnly := c.Query("active") == "true" || role == string(models.RoleStudent)

	list, err := h.repo.List(c.Request.Context(), teacherID, activeOnly)
	if err != nil {
		response.Internal(c, "failed to list classes")
		return
	}
	response.OK(c, list)
}

// Update handles PUT /classes/:id (owning teacher only).
func (h *Handler) Update(c *gin.Context) {
	id, cl, ok := h.ownedClass(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), id, req.Name, req.SubjectCode); err != nil {
		response.Internal(c, "failed to update class")
		return
	}
	cl.Name = req.Name
	cl.SubjectCode = req.SubjectCode
	response.OK(c, cl)
}

// Start handles POST /classes/:id/start (owning teacher only). Also
// used to resume an ended class.
func (h *Handler) Start(c *gin.Context) {
	id, _, ok := h.ownedClass(c)
	if !ok {
		return
	}
	if err := h.repo.Activate(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to start class")
		return
	}
	cl, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load class")
		return
	}
	response.OK(c, cl)
}

// End handles POST /classes/:id/end (owning teacher only). Marks the
// class inactive first so student joins are rejected before the room
// teardown broadcast goes out.
func (h *Handler) End(c *gin.Context) {
	id, _, ok := h.ownedClass(c)
	if !ok {
		return
	}
	if err := h.repo.End(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to end class")
		return
	}
	h.session.EndClass(c.Request.Context(), id)
	response.OK(c, gin.H{"ended": true})
}

// Delete handles DELETE /classes/:id (owning teacher only).
func (h *Handler) Delete(c *gin.Context) {
	id, _, ok := h.ownedClass(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete class")
		return
	}
	response.NoContent(c)
}

// ownedClass parses :id, loads the class and enforces that the caller
// is its teacher. On failure it writes the response and returns ok=false.
func (h *Handler) ownedClass(c *gin.Context) (uuid.UUID, *models.Class, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid class id")
		return uuid.Nil, nil, false
	}
	cl, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "class not found")
		return uuid.Nil, nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if cl.TeacherID != userID {
		response.Forbidden(c, "only the class teacher can do this")
		return uuid.Nil, nil, false
	}
	return id, cl, true
}
