package livekit

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veda-classroom/backend/config"
	"github.com/veda-classroom/backend/internal/classes"
	"github.com/veda-classroom/backend/internal/middleware"
	"github.com/veda-classroom/backend/pkg/response"
)

// Handler issues media-server access tokens for class rooms.
type Handler struct {
	classRepo *classes.Repository
	cfg       config.LiveKitConfig
	logger    *zap.Logger
}

// NewHandler creates a LiveKit token handler.
func NewHandler(classRepo *classes.Repository, cfg config.LiveKitConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{classRepo: classRepo, cfg: cfg, logger: logger}
}

// GetToken handles GET /classes/:id/media-token. Returns
// { token, host, room } for the LiveKit client SDK. The class teacher
// may publish; everyone else subscribes.
func (h *Handler) GetToken(c *gin.Context) {
	if h.cfg.APIKey == "" || h.cfg.APISecret == "" {
		response.ServiceUnavailable(c, "media server not configured (LIVEKIT_API_KEY, LIVEKIT_API_SECRET)")
		return
	}
	classID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid class id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	email := c.MustGet(middleware.ContextUserEmail).(string)

	cl, err := h.classRepo.GetByID(c.Request.Context(), classID)
	if err != nil {
		response.NotFound(c, "class not found")
		return
	}
	canPublish := cl.TeacherID == userID
	if !canPublish && !cl.IsActive {
		response.Forbidden(c, "class is not live")
		return
	}

	ttl := time.Duration(h.cfg.TokenTTLHours) * time.Hour
	token, err := GenerateAccessToken(h.cfg.APIKey, h.cfg.APISecret, classID.String(), userID.String(), email, canPublish, ttl)
	if err != nil {
		h.logger.Error("media token generation failed", zap.Error(err), zap.String("class_id", classID.String()))
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, gin.H{
		"token": token,
		"host":  h.cfg.Host,
		"room":  classID.String(),
	})
}
