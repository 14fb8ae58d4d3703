package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classmark/classmark-api/internal/models"
)

// ClassRepository provides database access for classes and their subjects.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes matching the filter with total count.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	baseQuery := `FROM classes WHERE 1=1`
	var args []interface{}

	if filter.Search != "" {
		baseQuery += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	sortBy := filter.SortBy
	if sortBy != "name" && sortBy != "created_at" {
		sortBy = "name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, name, subjects, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", baseQuery, sortBy, sortOrder, pageSize, offset)

	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	return classes, total, nil
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, subjects, created_at, updated_at FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// ExistsByName reports whether a class already uses the name.
func (r *ClassRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM classes WHERE LOWER(name) = LOWER($1) AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name, excludeID); err != nil {
		return false, fmt.Errorf("check class name: %w", err)
	}
	return exists, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	if class.Subjects == nil {
		class.Subjects = pq.StringArray{}
	}

	const query = `INSERT INTO classes (id, name, subjects, created_at, updated_at) VALUES (:id, :name, :subjects, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies the class name.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// UpdateSubjects replaces the subject list for a class.
func (r *ClassRepository) UpdateSubjects(ctx context.Context, id string, subjects pq.StringArray) error {
	const query = `UPDATE classes SET subjects = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, subjects, time.Now().UTC()); err != nil {
		return fmt.Errorf("update class subjects: %w", err)
	}
	return nil
}

// Delete removes the class row without touching attendance records that
// reference it.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM classes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// Count returns the number of classes.
func (r *ClassRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM classes`
	var total int
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count classes: %w", err)
	}
	return total, nil
}

// ListWithStudentCounts returns classes with their active student headcount.
func (r *ClassRepository) ListWithStudentCounts(ctx context.Context) ([]models.ClassDetail, error) {
	const query = `SELECT c.id, c.name, c.subjects, c.created_at, c.updated_at,
		COUNT(u.id) AS student_count
		FROM classes c
		LEFT JOIN users u ON u.class_id = c.id AND u.role = $1 AND u.active = TRUE
		GROUP BY c.id ORDER BY c.name ASC`
	var details []models.ClassDetail
	if err := r.db.SelectContext(ctx, &details, query, models.RoleStudent); err != nil {
		return nil, fmt.Errorf("list classes with counts: %w", err)
	}
	return details, nil
}
