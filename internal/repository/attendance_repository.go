package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/classmark/classmark-api/internal/models"
)

const attendanceColumns = "id, class_id, teacher_id, subject, time_slot, date, students, created_at, updated_at"

// AttendanceRepository provides database access for attendance records. The
// composite key is the row's primary key, so saving the same lecture slot
// twice overwrites instead of duplicating.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert writes the record under its composite key. The students map is
// replaced wholesale; a save is never partial.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) error {
	record.ID = record.Key().String()
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Students == nil {
		record.Students = models.StatusMap{}
	}

	const query = `INSERT INTO attendance_records (id, class_id, teacher_id, subject, time_slot, date, students, created_at, updated_at)
		VALUES (:id, :class_id, :teacher_id, :subject, :time_slot, :date, :students, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET students = EXCLUDED.students, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert attendance record: %w", err)
	}
	return nil
}

// UpdateStatuses replaces only the students map of an existing record.
func (r *AttendanceRepository) UpdateStatuses(ctx context.Context, id string, students models.StatusMap) error {
	const query = `UPDATE attendance_records SET students = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, students, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update attendance statuses: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID returns a record by its composite identifier.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_records WHERE id = $1 LIMIT 1", attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	return &record, nil
}

// List returns records matching the filter, newest day first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	baseQuery := `FROM attendance_records WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.TimeSlot != "" {
		conditions = append(conditions, fmt.Sprintf("time_slot = $%d", len(args)+1))
		args = append(args, filter.TimeSlot)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY date DESC, time_slot ASC", attendanceColumns, baseQuery)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

// Delete removes a record by id with no cascade.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM attendance_records WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete attendance record: %w", err)
	}
	return nil
}
