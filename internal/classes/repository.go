package classes

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veda-classroom/backend/internal/models"
)

// Repository handles class persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a class repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const classColumns = `c.id, c.name, c.subject_code, c.teacher_id, u.full_name, c.is_active, c.started_at, c.ended_at, c.created_at`

func scanClass(row interface{ Scan(...any) error }) (*models.Class, error) {
	var cl models.Class
	err := row.Scan(&cl.ID, &cl.Name, &cl.SubjectCode, &cl.TeacherID, &cl.TeacherName, &cl.IsActive, &cl.StartedAt, &cl.EndedAt, &cl.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

// Create inserts a new class.
func (r *Repository) Create(ctx context.Context, cl *models.Class) error {
	const q = `INSERT INTO classes (id, name, subject_code, teacher_id)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, cl.Name, cl.SubjectCode, cl.TeacherID).Scan(&cl.ID, &cl.CreatedAt)
}

// GetByID returns a class by ID with the teacher's name joined in.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	const q = `SELECT ` + classColumns + ` FROM classes c JOIN users u ON u.id = c.teacher_id WHERE c.id = $1`
	return scanClass(r.pool.QueryRow(ctx, q, id))
}

// List returns classes, optionally filtered by teacher or active state.
func (r *Repository) List(ctx context.Context, teacherID *uuid.UUID, activeOnly bool) ([]models.Class, error) {
	base := `SELECT ` + classColumns + ` FROM classes c JOIN users u ON u.id = c.teacher_id`
	var args []interface{}
	var cond string
	if teacherID != nil {
		cond = " WHERE c.teacher_id = $1"
		args = append(args, *teacherID)
	}
	if activeOnly {
		if cond == "" {
			cond = " WHERE c.is_active"
		} else {
			cond += " AND c.is_active"
		}
	}
	rows, err := r.pool.Query(ctx, base+cond+" ORDER BY c.created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Class
	for rows.Next() {
		cl, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *cl)
	}
	return list, rows.Err()
}

// Update updates a class's name and subject code.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name, subjectCode string) error {
	const q = `UPDATE classes SET name = $1, subject_code = $2 WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, name, subjectCode, id)
	return err
}

// Activate marks a class live. Restarting an ended class clears its
// ended_at so analytics treat the new session as current.
func (r *Repository) Activate(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE classes SET is_active = TRUE, started_at = NOW(), ended_at = NULL WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// End marks a class inactive.
func (r *Repository) End(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE classes SET is_active = FALSE, ended_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// Delete removes a class by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM classes WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// IsLive reports whether the class is currently active.
func (r *Repository) IsLive(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `SELECT is_active FROM classes WHERE id = $1`
	var active bool
	if err := r.pool.QueryRow(ctx, q, id).Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}

// MarkEnded is End under the name the session coordinator uses.
func (r *Repository) MarkEnded(ctx context.Context, id uuid.UUID) error {
	return r.End(ctx, id)
}
