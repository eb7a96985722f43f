package reports

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veda-classroom/backend/internal/models"
)

// Repository handles session report and attention log persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// PersistSummary writes a session report and its per-student rows in
// one transaction. Called by the session coordinator when a class ends.
func (r *Repository) PersistSummary(ctx context.Context, classID uuid.UUID, students []models.SessionReportStudent, avgScore float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertReport = `INSERT INTO session_reports (id, class_id, total_students, average_attention_score)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id`
	var reportID uuid.UUID
	if err := tx.QueryRow(ctx, insertReport, classID, len(students), avgScore).Scan(&reportID); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	const insertStudent = `INSERT INTO session_report_students
		(report_id, student_id, name, status, attention_score, participation_responses, total_events, quiz_correct, quiz_total, tab_switches, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, s := range students {
		if _, err := tx.Exec(ctx, insertStudent, reportID, s.StudentID, s.Name, s.Status,
			s.AttentionScore, s.ParticipationResponses, s.TotalEvents, s.QuizCorrect, s.QuizTotal, s.TabSwitches, s.Points); err != nil {
			return fmt.Errorf("insert report student: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetLatestByClass returns the most recent report for a class with its
// student rows.
func (r *Repository) GetLatestByClass(ctx context.Context, classID uuid.UUID) (*models.SessionReport, error) {
	const q = `SELECT id, class_id, total_students, average_attention_score, csv_key, created_at
		FROM session_reports WHERE class_id = $1 ORDER BY created_at DESC LIMIT 1`
	var rep models.SessionReport
	err := r.pool.QueryRow(ctx, q, classID).
		Scan(&rep.ID, &rep.ClassID, &rep.TotalStudents, &rep.AverageAttentionScore, &rep.CSVKey, &rep.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := r.loadStudents(ctx, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// GetByID returns a report with its student rows.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SessionReport, error) {
	const q = `SELECT id, class_id, total_students, average_attention_score, csv_key, created_at
		FROM session_reports WHERE id = $1`
	var rep models.SessionReport
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&rep.ID, &rep.ClassID, &rep.TotalStudents, &rep.AverageAttentionScore, &rep.CSVKey, &rep.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := r.loadStudents(ctx, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *Repository) loadStudents(ctx context.Context, rep *models.SessionReport) error {
	const q = `SELECT student_id, name, status, attention_score, participation_responses, total_events, quiz_correct, quiz_total, tab_switches, points
		FROM session_report_students WHERE report_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, q, rep.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var s models.SessionReportStudent
		if err := rows.Scan(&s.StudentID, &s.Name, &s.Status, &s.AttentionScore, &s.ParticipationResponses,
			&s.TotalEvents, &s.QuizCorrect, &s.QuizTotal, &s.TabSwitches, &s.Points); err != nil {
			return err
		}
		rep.Students = append(rep.Students, s)
	}
	return rows.Err()
}

// UpdateCSVKey records the object key of the exported CSV.
func (r *Repository) UpdateCSVKey(ctx context.Context, reportID uuid.UUID, key string) error {
	const q = `UPDATE session_reports SET csv_key = $1 WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, key, reportID)
	return err
}

// LogAttention appends one durable attention submission.
func (r *Repository) LogAttention(ctx context.Context, log *models.AttentionLog) error {
	const q = `INSERT INTO attention_logs (id, class_id, student_id, status)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, log.ClassID, log.StudentID, log.Status).Scan(&log.ID, &log.CreatedAt)
}

// AttentionBreakdown returns per-status counts of attention logs for a
// class session (analytics fallback when no report exists yet).
func (r *Repository) AttentionBreakdown(ctx context.Context, classID uuid.UUID) (map[string]int, error) {
	const q = `SELECT status, COUNT(*) FROM attention_logs WHERE class_id = $1 GROUP BY status`
	rows, err := r.pool.Query(ctx, q, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
