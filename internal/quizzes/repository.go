package quizzes

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veda-classroom/backend/internal/models"
)

// Repository handles quiz persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a quiz repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new quiz.
func (r *Repository) Create(ctx context.Context, q *models.Quiz) error {
	const query = `INSERT INTO quizzes (id, class_id, question, options, correct_answer)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, q.ClassID, q.Question, q.Options, q.CorrectAnswer).
		Scan(&q.ID, &q.CreatedAt)
}

// GetByID returns a quiz by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	const query = `SELECT id, class_id, question, options, correct_answer, is_active, created_at
		FROM quizzes WHERE id = $1`
	var q models.Quiz
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&q.ID, &q.ClassID, &q.Question, &q.Options, &q.CorrectAnswer, &q.IsActive, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListByClass returns all quizzes for a class, newest first.
func (r *Repository) ListByClass(ctx context.Context, classID uuid.UUID) ([]models.Quiz, error) {
	const query = `SELECT id, class_id, question, options, correct_answer, is_active, created_at
		FROM quizzes WHERE class_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Quiz
	for rows.Next() {
		var q models.Quiz
		if err := rows.Scan(&q.ID, &q.ClassID, &q.Question, &q.Options, &q.CorrectAnswer, &q.IsActive, &q.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, q)
	}
	return list, rows.Err()
}

// Close marks a quiz inactive so late responses are rejected.
func (r *Repository) Close(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE quizzes SET is_active = FALSE WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// Respond records a student's answer. One per student per quiz; a
// resubmission overwrites the previous answer.
func (r *Repository) Respond(ctx context.Context, resp *models.QuizResponse) error {
	const query = `INSERT INTO quiz_responses (id, quiz_id, student_id, answer, is_correct, response_time_ms)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		ON CONFLICT (quiz_id, student_id) DO UPDATE
			SET answer = EXCLUDED.answer, is_correct = EXCLUDED.is_correct, response_time_ms = EXCLUDED.response_time_ms
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, resp.QuizID, resp.StudentID, resp.Answer, resp.IsCorrect, resp.ResponseTimeMs).
		Scan(&resp.ID, &resp.CreatedAt)
}

// Results returns the per-option answer counts for a quiz.
func (r *Repository) Results(ctx context.Context, quizID uuid.UUID) (map[int]int, error) {
	const query = `SELECT answer, COUNT(*) FROM quiz_responses WHERE quiz_id = $1 GROUP BY answer`
	rows, err := r.pool.Query(ctx, query, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var answer, n int
		if err := rows.Scan(&answer, &n); err != nil {
			return nil, err
		}
		counts[answer] = n
	}
	return counts, rows.Err()
}
