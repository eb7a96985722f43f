package ai

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veda-classroom/backend/internal/models"
)

// Repository handles question bank persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a question bank repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateBank inserts a question bank.
func (r *Repository) CreateBank(ctx context.Context, b *models.QuestionBank) error {
	const q = `INSERT INTO ai_question_banks (id, class_id, topic, questions, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, b.ClassID, b.Topic, b.Questions, b.CreatedBy).Scan(&b.ID, &b.CreatedAt)
}

// GetQuestionBank returns a bank by ID.
func (r *Repository) GetQuestionBank(ctx context.Context, id uuid.UUID) (*models.QuestionBank, error) {
	const q = `SELECT id, class_id, topic, questions, created_by, created_at
		FROM ai_question_banks WHERE id = $1`
	var b models.QuestionBank
	err := r.pool.QueryRow(ctx, q, id).Scan(&b.ID, &b.ClassID, &b.Topic, &b.Questions, &b.CreatedBy, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByClass returns all banks for a class, newest first.
func (r *Repository) ListByClass(ctx context.Context, classID uuid.UUID) ([]models.QuestionBank, error) {
	const q = `SELECT id, class_id, topic, questions, created_by, created_at
		FROM ai_question_banks WHERE class_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.QuestionBank
	for rows.Next() {
		var b models.QuestionBank
		if err := rows.Scan(&b.ID, &b.ClassID, &b.Topic, &b.Questions, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// DeleteBank removes a question bank.
func (r *Repository) DeleteBank(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM ai_question_banks WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
