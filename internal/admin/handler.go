package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veda-classroom/backend/internal/auth"
	"github.com/veda-classroom/backend/internal/models"
	"github.com/veda-classroom/backend/pkg/response"
	"github.com/veda-classroom/backend/pkg/utils"
)

// CreateUserRequest is the body for POST /admin/teachers and
// POST /admin/students.
type CreateUserRequest struct {
	Email          string  `json:"email" binding:"required,email"`
	Password       string  `json:"password" binding:"required,min=6"`
	FullName       string  `json:"full_name" binding:"required"`
	RollNo         string  `json:"roll_no"`
	ClassSectionID *string `json:"class_section_id"`
}

// CreateSectionRequest is the body for POST /admin/sections.
type CreateSectionRequest struct {
	Name          string  `json:"name" binding:"required"`
	Year          int     `json:"year"`
	HomeTeacherID *string `json:"home_teacher_id"`
	Description   string  `json:"description"`
}

// ResetPasswordRequest is the body for POST /admin/users/:id/reset-password.
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

// AssignSectionRequest is the body for POST /admin/students/:id/section.
type AssignSectionRequest struct {
	ClassSectionID *string `json:"class_section_id"`
}

// Handler handles admin HTTP endpoints. All routes sit behind the
// admin role middleware.
type Handler struct {
	repo     *Repository
	authRepo *auth.Repository
	logger   *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(repo *Repository, authRepo *auth.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, authRepo: authRepo, logger: logger}
}

func parseOptionalUUID(s *string) (*uuid.UUID, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// CreateTeacher handles POST /admin/teachers.
func (h *Handler) CreateTeacher(c *gin.Context) {
	h.createUser(c, models.RoleTeacher)
}

// CreateStudent handles POST /admin/students. Students require a roll
// number; it is their login credential alongside email.
func (h *Handler) CreateStudent(c *gin.Context) {
	h.createUser(c, models.RoleStudent)
}

func (h *Handler) createUser(c *gin.Context, role models.Role) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if role == models.RoleStudent && req.RollNo == "" {
		response.BadRequest(c, "roll_no required for students")
		return
	}
	sectionID, ok := parseOptionalUUID(req.ClassSectionID)
	if !ok {
		response.BadRequest(c, "invalid class_section_id")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	u, err := h.authRepo.Create(c.Request.Context(), req.Email, hash, req.FullName, req.RollNo, role, sectionID)
	if err != nil {
		response.Conflict(c, "email or roll number already in use")
		return
	}
	h.logger.Info("admin created user", zap.String("user_id", u.ID.String()), zap.String("role", string(role)))
	response.Created(c, u.ToPublic())
}

// ListTeachers handles GET /admin/teachers.
func (h *Handler) ListTeachers(c *gin.Context) {
	h.listUsers(c, models.RoleTeacher)
}

// ListStudents handles GET /admin/students.
func (h *Handler) ListStudents(c *gin.Context) {
	h.listUsers(c, models.RoleStudent)
}

func (h *Handler) listUsers(c *gin.Context, role models.Role) {
	users, err := h.repo.ListUsersByRole(c.Request.Context(), role)
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	out := make([]models.UserPublic, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToPublic())
	}
	response.OK(c, out)
}

// ResetPassword handles POST /admin/users/:id/reset-password. The new
// password is temporary: the user must change it at next login.
func (h *Handler) ResetPassword(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.SetPassword(c.Request.Context(), userID, hash, true); err != nil {
		response.Internal(c, "failed to reset password")
		return
	}
	response.OK(c, gin.H{"reset": true})
}

// AssignSection handles POST /admin/students/:id/section.
func (h *Handler) AssignSection(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req AssignSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sectionID, ok := parseOptionalUUID(req.ClassSectionID)
	if !ok {
		response.BadRequest(c, "invalid class_section_id")
		return
	}
	if err := h.repo.AssignSection(c.Request.Context(), userID, sectionID); err != nil {
		response.Internal(c, "failed to assign section")
		return
	}
	response.OK(c, gin.H{"assigned": true})
}

// DeleteUser handles DELETE /admin/users/:id.
func (h *Handler) DeleteUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.repo.DeleteUser(c.Request.Context(), userID); err != nil {
		response.Internal(c, "failed to delete user")
		return
	}
	response.NoContent(c)
}

// CreateSection handles POST /admin/sections.
func (h *Handler) CreateSection(c *gin.Context) {
	var req CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	teacherID, ok := parseOptionalUUID(req.HomeTeacherID)
	if !ok {
		response.BadRequest(c, "invalid home_teacher_id")
		return
	}
	s := &models.ClassSection{
		Name:          req.Name,
		Year:          req.Year,
		HomeTeacherID: teacherID,
		Description:   req.Description,
	}
	if err := h.repo.CreateSection(c.Request.Context(), s); err != nil {
		response.Conflict(c, "section name already in use")
		return
	}
	response.Created(c, s)
}

// ListSections handles GET /admin/sections.
func (h *Handler) ListSections(c *gin.Context) {
	list, err := h.repo.ListSections(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list sections")
		return
	}
	response.OK(c, list)
}

// DeleteSection handles DELETE /admin/sections/:id.
func (h *Handler) DeleteSection(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid section id")
		return
	}
	if err := h.repo.DeleteSection(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete section")
		return
	}
	response.NoContent(c)
}
