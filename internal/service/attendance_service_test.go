package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

type fakeAttendanceRepo struct {
	byID map[string]*models.AttendanceRecord
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{byID: map[string]*models.AttendanceRecord{}}
}

func (f *fakeAttendanceRepo) Upsert(_ context.Context, record *models.AttendanceRecord) error {
	record.ID = record.Key().String()
	stored := *record
	f.byID[record.ID] = &stored
	return nil
}

func (f *fakeAttendanceRepo) UpdateStatuses(_ context.Context, id string, students models.StatusMap) error {
	record, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	record.Students = students
	return nil
}

func (f *fakeAttendanceRepo) FindByID(_ context.Context, id string) (*models.AttendanceRecord, error) {
	if record, ok := f.byID[id]; ok {
		return record, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAttendanceRepo) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, record := range f.byID {
		if filter.ClassID != "" && record.ClassID != filter.ClassID {
			continue
		}
		out = append(out, *record)
	}
	return out, nil
}

func (f *fakeAttendanceRepo) Delete(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

func saveRequest() SaveAttendanceRequest {
	return SaveAttendanceRequest{
		ClassID:  "FY",
		Subject:  "Math",
		TimeSlot: "09:00",
		Date:     "2024-01-10",
		Students: map[string]models.AttendanceStatus{
			"A": models.AttendanceStatusPresent,
			"B": models.AttendanceStatusAbsent,
		},
	}
}

func TestSaveAttendanceIdempotentByCompositeKey(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := NewAttendanceService(repo, nil, nil)

	first, err := svc.Save(context.Background(), "t1", saveRequest())
	require.NoError(t, err)

	second, err := svc.Save(context.Background(), "t1", saveRequest())
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "FY_t1_Math_09:00_2024-01-10", second.ID)
	require.Len(t, repo.byID, 1, "saving the same slot twice must not duplicate")
}

func TestSaveAttendanceOverwritesStatuses(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := NewAttendanceService(repo, nil, nil)

	_, err := svc.Save(context.Background(), "t1", saveRequest())
	require.NoError(t, err)

	req := saveRequest()
	req.Students = map[string]models.AttendanceStatus{"B": models.AttendanceStatusPresent}
	record, err := svc.Save(context.Background(), "t1", req)
	require.NoError(t, err)

	stored := repo.byID[record.ID]
	require.Len(t, stored.Students, 1, "the students map is replaced wholesale, never merged")
	require.Equal(t, models.AttendanceStatusPresent, stored.Students.StatusOf("B"))
	require.Equal(t, models.AttendanceStatusAbsent, stored.Students.StatusOf("A"))
}

func TestSaveAttendanceRejectsBadInput(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := NewAttendanceService(repo, nil, nil)

	_, err := svc.Save(context.Background(), "", saveRequest())
	require.Error(t, err, "a save needs an authenticated teacher")

	req := saveRequest()
	req.Date = "10/01/2024"
	_, err = svc.Save(context.Background(), "t1", req)
	require.Error(t, err)

	req = saveRequest()
	req.Students = map[string]models.AttendanceStatus{"A": "late"}
	_, err = svc.Save(context.Background(), "t1", req)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	require.Empty(t, repo.byID)
}

func TestUpdateAttendanceOnlyTouchesStatuses(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := NewAttendanceService(repo, nil, nil)

	saved, err := svc.Save(context.Background(), "t1", saveRequest())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), saved.ID, UpdateAttendanceRequest{
		Students: map[string]models.AttendanceStatus{"A": models.AttendanceStatusAbsent},
	})
	require.NoError(t, err)
	require.Equal(t, saved.ClassID, updated.ClassID)
	require.Equal(t, saved.TimeSlot, updated.TimeSlot)
	require.Equal(t, saved.Date, updated.Date)
	require.Equal(t, models.AttendanceStatusAbsent, updated.Students.StatusOf("A"))
}

func TestUpdateAttendanceMissingRecord(t *testing.T) {
	svc := NewAttendanceService(newFakeAttendanceRepo(), nil, nil)

	_, err := svc.Update(context.Background(), "missing", UpdateAttendanceRequest{
		Students: map[string]models.AttendanceStatus{"A": models.AttendanceStatusPresent},
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDeleteAttendanceNoCascade(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := NewAttendanceService(repo, nil, nil)

	saved, err := svc.Save(context.Background(), "t1", saveRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), saved.ID))
	require.Empty(t, repo.byID)

	err = svc.Delete(context.Background(), saved.ID)
	require.Error(t, err, "deleting twice reports not found")
}
