package worker

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/veda-classroom/backend/internal/models"
	"github.com/veda-classroom/backend/internal/reports"
	"github.com/veda-classroom/backend/pkg/queue"
	"github.com/veda-classroom/backend/pkg/storage"
)

// ReportExportProcessor processes report export jobs: render the
// session report to CSV, upload to S3, record the object key.
type ReportExportProcessor struct {
	reportRepo *reports.Repository
	s3         *storage.S3
	queue      *queue.Queue
	logger     *zap.Logger
}

// NewReportExportProcessor creates a report export processor.
func NewReportExportProcessor(reportRepo *reports.Repository, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *ReportExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportExportProcessor{reportRepo: reportRepo, s3: s3, queue: q, logger: logger}
}

// Process executes one report export job.
func (p *ReportExportProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeReportExport {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ReportExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	rep, err := p.reportRepo.GetByID(ctx, payload.ReportID)
	if err != nil {
		return fmt.Errorf("report not found: %s", payload.ReportID)
	}
	if rep.CSVKey != "" {
		p.logger.Info("report already exported", zap.String("report_id", rep.ID.String()), zap.String("csv_key", rep.CSVKey))
		return nil
	}

	body, err := RenderCSV(rep)
	if err != nil {
		return fmt.Errorf("render csv: %w", err)
	}

	key := storage.ReportKey(payload.ClassID.String(), payload.ReportID.String())
	if _, err := p.s3.Upload(ctx, p.s3.ReportsBucket(), key, "text/csv", bytes.NewReader(body), int64(len(body))); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	if err := p.reportRepo.UpdateCSVKey(ctx, payload.ReportID, key); err != nil {
		p.logger.Error("update report csv key failed", zap.Error(err), zap.String("report_id", payload.ReportID.String()))
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("report export completed", zap.String("report_id", payload.ReportID.String()), zap.String("s3_key", key))
	return nil
}

// RenderCSV turns a session report into the CSV handed to teachers.
func RenderCSV(rep *models.SessionReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"student_id", "name", "status", "attention_score", "participation_responses", "total_events", "quiz_correct", "quiz_total", "tab_switches", "points"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, s := range rep.Students {
		row := []string{
			s.StudentID,
			s.Name,
			s.Status,
			strconv.Itoa(s.AttentionScore),
			strconv.Itoa(s.ParticipationResponses),
			strconv.Itoa(s.TotalEvents),
			strconv.Itoa(s.QuizCorrect),
			strconv.Itoa(s.QuizTotal),
			strconv.Itoa(s.TabSwitches),
			strconv.Itoa(s.Points),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ReportExportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("report worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
