package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/classmark/classmark-api/internal/models"
)

func TestAttendanceRepositoryUpsertSetsCompositeID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.AttendanceRecord{
		ClassID:   "FY",
		TeacherID: "t-1",
		Subject:   "Math",
		TimeSlot:  "09:00",
		Date:      "2024-01-10",
		Students:  models.StatusMap{"s-1": models.AttendanceStatusPresent},
	}
	require.NoError(t, repo.Upsert(context.Background(), record))
	require.Equal(t, "FY_t-1_Math_09:00_2024-01-10", record.ID)
	require.False(t, record.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertNilStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.AttendanceRecord{ClassID: "FY", TeacherID: "t-1", Subject: "Math", TimeSlot: "09:00", Date: "2024-01-10"}
	require.NoError(t, repo.Upsert(context.Background(), record))
	require.NotNil(t, record.Students, "the students map must never stay nil")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpdateStatuses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	statuses := models.StatusMap{"s-1": models.AttendanceStatusAbsent}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_records SET students = $2")).
		WithArgs("FY_t-1_Math_09:00_2024-01-10", statuses, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatuses(context.Background(), "FY_t-1_Math_09:00_2024-01-10", statuses))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpdateStatusesMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_records SET students = $2")).
		WithArgs("missing", models.StatusMap{}, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatuses(context.Background(), "missing", models.StatusMap{})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryFindByIDScansStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "class_id", "teacher_id", "subject", "time_slot", "date", "students", "created_at", "updated_at"}).
		AddRow("FY_t-1_Math_09:00_2024-01-10", "FY", "t-1", "Math", "09:00", "2024-01-10", []byte(`{"s-1":"present","s-2":"absent"}`), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, class_id, teacher_id")).
		WithArgs("FY_t-1_Math_09:00_2024-01-10").
		WillReturnRows(rows)

	record, err := repo.FindByID(context.Background(), "FY_t-1_Math_09:00_2024-01-10")
	require.NoError(t, err)
	require.Equal(t, models.AttendanceStatusPresent, record.Students["s-1"])
	require.Equal(t, models.AttendanceStatusAbsent, record.Students["s-2"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, class_id, teacher_id")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nope")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListOrdersNewestFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "class_id", "teacher_id", "subject", "time_slot", "date", "students", "created_at", "updated_at"}).
		AddRow("FY_t-1_Math_09:00_2024-01-11", "FY", "t-1", "Math", "09:00", "2024-01-11", []byte(`{}`), now, now).
		AddRow("FY_t-1_Math_09:00_2024-01-10", "FY", "t-1", "Math", "09:00", "2024-01-10", []byte(`{}`), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY date DESC, time_slot ASC")).
		WithArgs("FY", "t-1").
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), models.AttendanceFilter{ClassID: "FY", TeacherID: "t-1"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "2024-01-11", records[0].Date)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListPaginates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 10 OFFSET 10")).
		WithArgs("FY").
		WillReturnRows(sqlmock.NewRows([]string{"id", "class_id", "teacher_id", "subject", "time_slot", "date", "students", "created_at", "updated_at"}))

	records, err := repo.List(context.Background(), models.AttendanceFilter{ClassID: "FY", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance_records WHERE id = $1")).
		WithArgs("FY_t-1_Math_09:00_2024-01-10").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "FY_t-1_Math_09:00_2024-01-10"))
	require.NoError(t, mock.ExpectationsWereMet())
}
