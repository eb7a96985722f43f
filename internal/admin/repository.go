package admin

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veda-classroom/backend/internal/models"
)

// Repository handles admin-side user and class-section persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an admin repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSection inserts a class section.
func (r *Repository) CreateSection(ctx context.Context, s *models.ClassSection) error {
	const q = `INSERT INTO class_sections (id, name, year, home_teacher_id, description)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, s.Name, s.Year, s.HomeTeacherID, s.Description).Scan(&s.ID, &s.CreatedAt)
}

// ListSections returns all class sections.
func (r *Repository) ListSections(ctx context.Context) ([]models.ClassSection, error) {
	const q = `SELECT id, name, year, home_teacher_id, description, created_at
		FROM class_sections ORDER BY name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ClassSection
	for rows.Next() {
		var s models.ClassSection
		if err := rows.Scan(&s.ID, &s.Name, &s.Year, &s.HomeTeacherID, &s.Description, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// DeleteSection removes a class section; member students keep their
// accounts with the section cleared.
func (r *Repository) DeleteSection(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM class_sections WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// ListUsersByRole returns users of one role, newest first.
func (r *Repository) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, COALESCE(roll_no,''), role, class_section_id, password_reset_required, created_at, updated_at
		FROM users WHERE role = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.RollNo, &u.Role,
			&u.ClassSectionID, &u.PasswordResetRequired, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// SetPassword replaces a user's password hash. resetRequired forces a
// change on next login (admin-issued temporary passwords).
func (r *Repository) SetPassword(ctx context.Context, userID uuid.UUID, hash string, resetRequired bool) error {
	const q = `UPDATE users SET password_hash = $1, password_reset_required = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, hash, resetRequired, userID)
	return err
}

// AssignSection moves a student into a class section (nil clears it).
func (r *Repository) AssignSection(ctx context.Context, userID uuid.UUID, sectionID *uuid.UUID) error {
	const q = `UPDATE users SET class_section_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, sectionID, userID)
	return err
}

// DeleteUser removes a user by ID.
func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM users WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
