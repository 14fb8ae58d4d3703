package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/models"
)

type fakeReportStore struct {
	records []models.AttendanceRecord
	users   map[string]*models.User
	roster  []models.User
	classes map[string]*models.Class
}

func (f *fakeReportStore) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, r := range f.records {
		if filter.ClassID != "" && r.ClassID != filter.ClassID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReportStore) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeReportStore) ListRoster(_ context.Context, classID string) ([]models.User, error) {
	var out []models.User
	for _, u := range f.roster {
		if u.ClassID != nil && *u.ClassID == classID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeReportStore) findClass(_ context.Context, id string) (*models.Class, error) {
	if c, ok := f.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type fakeClassStore struct{ inner *fakeReportStore }

func (f fakeClassStore) FindByID(ctx context.Context, id string) (*models.Class, error) {
	return f.inner.findClass(ctx, id)
}

func strPtr(s string) *string { return &s }

func newScenarioStore() *fakeReportStore {
	classID := "FY"
	return &fakeReportStore{
		records: []models.AttendanceRecord{
			{
				ID:        "FY_t1_Math_09:00_2024-01-10",
				ClassID:   classID,
				TeacherID: "t1",
				Subject:   "Math",
				TimeSlot:  "09:00",
				Date:      "2024-01-10",
				Students:  models.StatusMap{"A": models.AttendanceStatusPresent},
			},
		},
		users: map[string]*models.User{
			"A": {ID: "A", FullName: "Alice", Role: models.RoleStudent, ClassID: strPtr(classID), RollNo: strPtr("1"), Active: true},
			"B": {ID: "B", FullName: "Bob", Role: models.RoleStudent, ClassID: strPtr(classID), RollNo: strPtr("2"), Active: true},
		},
		roster: []models.User{
			{ID: "A", FullName: "Alice", Role: models.RoleStudent, ClassID: strPtr(classID), RollNo: strPtr("1"), Active: true},
			{ID: "B", FullName: "Bob", Role: models.RoleStudent, ClassID: strPtr(classID), RollNo: strPtr("2"), Active: true},
		},
		classes: map[string]*models.Class{
			classID: {ID: classID, Name: "First Year", Subjects: pq.StringArray{"Math"}},
		},
	}
}

func newTestReportService(store *fakeReportStore) *ReportService {
	svc := NewReportService(store, store, fakeClassStore{store}, nil, 0, 75, zap.NewNop())
	return svc.WithClock(func() time.Time {
		return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	})
}

func TestClassReportScenario(t *testing.T) {
	store := newScenarioStore()
	svc := newTestReportService(store)

	report, err := svc.ClassReport(context.Background(), "FY", "")
	require.NoError(t, err)
	require.Len(t, report.Subjects, 1)

	math := report.Subjects[0]
	require.Equal(t, "Math", math.Subject)
	require.Len(t, math.Rows, 2)

	alice := math.Rows[0]
	require.Equal(t, "A", alice.StudentID)
	require.Equal(t, 1, alice.PresentCount)
	require.Equal(t, 1, alice.TotalCount)
	require.Equal(t, 100, alice.Percent)
	require.False(t, alice.AtRisk)

	bob := math.Rows[1]
	require.Equal(t, "B", bob.StudentID)
	require.Equal(t, 0, bob.PresentCount)
	require.Equal(t, 1, bob.TotalCount)
	require.Equal(t, 0, bob.Percent)
	require.True(t, bob.AtRisk, "Bob missed the only Math lecture")
}

func TestClassReportPresentPlusAbsentEqualsTotal(t *testing.T) {
	store := newScenarioStore()
	store.records = append(store.records, models.AttendanceRecord{
		ID: "r2", ClassID: "FY", TeacherID: "t1", Subject: "Math", TimeSlot: "10:00", Date: "2024-01-11",
		Students: models.StatusMap{"A": models.AttendanceStatusAbsent, "B": models.AttendanceStatusPresent},
	})
	svc := newTestReportService(store)

	report, err := svc.ClassReport(context.Background(), "FY", "")
	require.NoError(t, err)
	for _, subject := range report.Subjects {
		for _, row := range subject.Rows {
			absent := row.TotalCount - row.PresentCount
			require.Equal(t, row.TotalCount, row.PresentCount+absent)
			require.GreaterOrEqual(t, row.Percent, 0)
			require.LessOrEqual(t, row.Percent, 100)
		}
	}
}

func TestClassReportZeroLecturesNeverAtRisk(t *testing.T) {
	store := newScenarioStore()
	store.classes["FY"].Subjects = pq.StringArray{"Math", "Physics"}
	svc := newTestReportService(store)

	report, err := svc.ClassReport(context.Background(), "FY", "")
	require.NoError(t, err)
	require.Len(t, report.Subjects, 2)

	physics := report.Subjects[1]
	require.Equal(t, "Physics", physics.Subject)
	for _, row := range physics.Rows {
		require.Equal(t, 0, row.TotalCount)
		require.Equal(t, 0, row.Percent, "zero lectures must yield 0, not NaN")
		require.False(t, row.AtRisk, "no lectures means no risk flag")
		require.Equal(t, "-", row.Today)
	}
}

func TestClassReportMissingStudentKeyCountsAbsent(t *testing.T) {
	store := newScenarioStore()
	svc := newTestReportService(store)

	report, err := svc.ClassReport(context.Background(), "FY", "")
	require.NoError(t, err)

	// Bob is absent from the record's map entirely, not just marked absent.
	bob := report.Subjects[0].Rows[1]
	require.Equal(t, 1, bob.TotalCount)
	require.Equal(t, 0, bob.PresentCount)
}

func TestClassReportTodayStatus(t *testing.T) {
	store := newScenarioStore()
	store.records = append(store.records, models.AttendanceRecord{
		ID: "r-today", ClassID: "FY", TeacherID: "t1", Subject: "Math", TimeSlot: "09:00", Date: "2024-01-15",
		Students: models.StatusMap{"A": models.AttendanceStatusPresent},
	})
	svc := newTestReportService(store)

	report, err := svc.ClassReport(context.Background(), "FY", "")
	require.NoError(t, err)

	rows := report.Subjects[0].Rows
	require.Equal(t, "present", rows[0].Today)
	require.Equal(t, "absent", rows[1].Today)
}

func TestClassReportMonthFilter(t *testing.T) {
	store := newScenarioStore()
	store.records = append(store.records, models.AttendanceRecord{
		ID: "r-feb", ClassID: "FY", TeacherID: "t1", Subject: "Math", TimeSlot: "09:00", Date: "2024-02-01",
		Students: models.StatusMap{"B": models.AttendanceStatusPresent},
	})
	svc := newTestReportService(store)

	report, err := svc.ClassReport(context.Background(), "FY", "2024-02")
	require.NoError(t, err)

	bob := report.Subjects[0].Rows[1]
	require.Equal(t, 1, bob.TotalCount)
	require.Equal(t, 1, bob.PresentCount)
	require.Equal(t, 100, bob.Percent)

	_, err = svc.ClassReport(context.Background(), "FY", "Jan-2024")
	require.Error(t, err)
}

func TestStudentReportOverallSummary(t *testing.T) {
	store := newScenarioStore()
	store.records = append(store.records,
		models.AttendanceRecord{
			ID: "r2", ClassID: "FY", TeacherID: "t1", Subject: "Math", TimeSlot: "10:00", Date: "2024-01-11",
			Students: models.StatusMap{"A": models.AttendanceStatusPresent, "B": models.AttendanceStatusPresent},
		},
		models.AttendanceRecord{
			ID: "r3", ClassID: "FY", TeacherID: "t2", Subject: "Physics", TimeSlot: "11:00", Date: "2024-01-11",
			Students: models.StatusMap{"B": models.AttendanceStatusPresent},
		},
	)
	svc := newTestReportService(store)

	report, err := svc.StudentReport(context.Background(), "A", "")
	require.NoError(t, err)
	require.Equal(t, "FY", report.ClassID)
	require.Len(t, report.Subjects, 2)

	require.Equal(t, 3, report.Overall.TotalPresent+report.Overall.TotalAbsent)
	require.Equal(t, 2, report.Overall.TotalPresent)
	require.Equal(t, 1, report.Overall.TotalAbsent)
	require.Equal(t, 67, report.Overall.Percent)
	require.True(t, report.Overall.AtRisk)
}

func TestStudentReportHistoryAndUnknownStudent(t *testing.T) {
	store := newScenarioStore()
	svc := newTestReportService(store)

	report, err := svc.StudentReport(context.Background(), "A", "")
	require.NoError(t, err)
	require.Len(t, report.Subjects[0].History, 1)
	require.Equal(t, "2024-01-10", report.Subjects[0].History[0].Date)
	require.Equal(t, models.AttendanceStatusPresent, report.Subjects[0].History[0].Status)

	_, err = svc.StudentReport(context.Background(), "nobody", "")
	require.Error(t, err)
}

func TestStudentReportWithoutClassIsEmpty(t *testing.T) {
	store := newScenarioStore()
	store.users["C"] = &models.User{ID: "C", FullName: "Cara", Role: models.RoleStudent, Active: true}
	svc := newTestReportService(store)

	report, err := svc.StudentReport(context.Background(), "C", "")
	require.NoError(t, err)
	require.Empty(t, report.Subjects)
	require.Equal(t, 0, report.Overall.Percent)
}
