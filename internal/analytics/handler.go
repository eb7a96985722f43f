package analytics

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veda-classroom/backend/internal/classes"
	"github.com/veda-classroom/backend/internal/middleware"
	"github.com/veda-classroom/backend/internal/models"
	"github.com/veda-classroom/backend/internal/reports"
	"github.com/veda-classroom/backend/pkg/queue"
	"github.com/veda-classroom/backend/pkg/response"
	"github.com/veda-classroom/backend/pkg/storage"
)

// AttentionRequest is the body for POST /classes/:id/attention.
type AttentionRequest struct {
	Status models.AttentionStatus `json:"status" binding:"required,oneof=ATTENTIVE DISTRACTED"`
}

// Handler handles analytics HTTP endpoints.
type Handler struct {
	reports   *reports.Repository
	classRepo *classes.Repository
	queue     *queue.Queue
	storage   *storage.S3
}

// NewHandler creates an analytics handler. storage may be nil when S3
// is not configured; download then reports the feature as unavailable.
func NewHandler(reportRepo *reports.Repository, classRepo *classes.Repository, q *queue.Queue, s3 *storage.S3) *Handler {
	return &Handler{reports: reportRepo, classRepo: classRepo, queue: q, storage: s3}
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
		response.Forbidden(c, "only the class teacher can view analytics")
		return uuid.Nil, false
	}
	return classID, true
}

// Report handles GET /classes/:id/report (owning teacher). Returns the
// latest session report; falls back to the raw attention breakdown
// while the class has not produced a report yet.
func (h *Handler) Report(c *gin.Context) {
	classID, ok := h.teacherOwns(c)
	if !ok {
		return
	}

	rep, err := h.reports.GetLatestByClass(c.Request.Context(), classID)
	if err == nil {
		response.OK(c, rep)
		return
	}

	breakdown, err := h.reports.AttentionBreakdown(c.Request.Context(), classID)
	if err != nil {
		response.Internal(c, "failed to load analytics")
		return
	}
	response.OK(c, gin.H{"report": nil, "attention_breakdown": breakdown})
}

// Export handles POST /classes/:id/report/export (owning teacher).
// Enqueues a CSV export job for the latest report.
func (h *Handler) Export(c *gin.Context) {
	classID, ok := h.teacherOwns(c)
	if !ok {
		return
	}
	rep, err := h.reports.GetLatestByClass(c.Request.Context(), classID)
	if err != nil {
		response.NotFound(c, "no session report for class")
		return
	}
	err = h.queue.EnqueueReportExport(c.Request.Context(), queue.ReportExportPayload{
		ReportID: rep.ID,
		ClassID:  classID,
	})
	if err != nil {
		response.Internal(c, "failed to enqueue export")
		return
	}
	response.OK(c, gin.H{"report_id": rep.ID, "status": "queued"})
}

// Download handles GET /classes/:id/report/download (owning teacher).
// Returns a presigned URL for the exported CSV.
func (h *Handler) Download(c *gin.Context) {
	classID, ok := h.teacherOwns(c)
	if !ok {
		return
	}
	if h.storage == nil {
		response.Internal(c, "report storage not configured")
		return
	}
	rep, err := h.reports.GetLatestByClass(c.Request.Context(), classID)
	if err != nil {
		response.NotFound(c, "no session report for class")
		return
	}
	if rep.CSVKey == "" {
		response.Conflict(c, "report not exported yet")
		return
	}
	url, err := h.storage.GeneratePresignedDownloadURL(c.Request.Context(), h.storage.ReportsBucket(), rep.CSVKey, h.storage.PresignExpire())
	if err != nil {
		response.Internal(c, "failed to presign download")
		return
	}
	response.OK(c, gin.H{"url": url})
}

// LogAttention handles POST /classes/:id/attention (student). Durable
// analytics trail alongside the realtime attention events.
func (h *Handler) LogAttention(c *gin.Context) {
	classID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid class id")
		return
	}
	studentID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req AttentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	log := &models.AttentionLog{
		ClassID:   classID,
		StudentID: studentID,
		Status:    req.Status,
	}
	if err := h.reports.LogAttention(c.Request.Context(), log); err != nil {
		response.Internal(c, "failed to log attention")
		return
	}
	response.Created(c, log)
}
