package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

type fakeStudentRepo struct {
	users   map[string]*models.User
	creates int
	updates int
	deletes int
}

func newFakeStudentRepo(users ...*models.User) *fakeStudentRepo {
	repo := &fakeStudentRepo{users: map[string]*models.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeStudentRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range f.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *fakeStudentRepo) ListRoster(_ context.Context, classID string) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.Role == models.RoleStudent && u.ClassID != nil && *u.ClassID == classID && u.Active {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) ExistsByRollNo(_ context.Context, classID, rollNo, excludeID string) (bool, error) {
	for _, u := range f.users {
		if u.ID == excludeID || u.Role != models.RoleStudent {
			continue
		}
		if u.ClassID != nil && *u.ClassID == classID && u.RollNo != nil && *u.RollNo == rollNo {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) Create(_ context.Context, user *models.User) error {
	f.creates++
	f.users[user.ID] = user
	return nil
}

func (f *fakeStudentRepo) Update(_ context.Context, user *models.User) error {
	f.updates++
	f.users[user.ID] = user
	return nil
}

func (f *fakeStudentRepo) Delete(_ context.Context, id string) error {
	f.deletes++
	delete(f.users, id)
	return nil
}

func TestCreateStudentDuplicateRollRejectedBeforeWrite(t *testing.T) {
	existing := &models.User{
		ID: "s-1", Email: "first@school.test", FullName: "First",
		Role: models.RoleStudent, ClassID: strPtr("FY"), RollNo: strPtr("7"), Active: true,
	}
	repo := newFakeStudentRepo(existing)
	svc := NewStudentService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName: "Second",
		Email:    "second@school.test",
		Password: "secret1",
		ClassID:  "FY",
		RollNo:   "7",
		Gender:   "female",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Contains(t, appErr.Message, "roll number 7", "conflict must name the clashing roll number")
	require.Equal(t, 0, repo.creates, "nothing may be written on a duplicate roll number")
}

func TestCreateStudentSameRollDifferentClassAllowed(t *testing.T) {
	existing := &models.User{
		ID: "s-1", Email: "first@school.test", FullName: "First",
		Role: models.RoleStudent, ClassID: strPtr("FY"), RollNo: strPtr("7"), Active: true,
	}
	repo := newFakeStudentRepo(existing)
	svc := NewStudentService(repo, nil, nil)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName: "Second",
		Email:    "second@school.test",
		Password: "secret1",
		ClassID:  "SY",
		RollNo:   "7",
		Gender:   "male",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, student.Role)
	require.Equal(t, 1, repo.creates)
}

func TestUpdateStudentKeepingOwnRollAllowed(t *testing.T) {
	existing := &models.User{
		ID: "s-1", Email: "first@school.test", FullName: "First",
		Role: models.RoleStudent, ClassID: strPtr("FY"), RollNo: strPtr("7"), Active: true,
	}
	repo := newFakeStudentRepo(existing)
	svc := NewStudentService(repo, nil, nil)

	updated, err := svc.Update(context.Background(), "s-1", UpdateStudentRequest{
		FullName: "First Renamed",
		ClassID:  "FY",
		RollNo:   "7",
		Gender:   "male",
		Active:   true,
	})
	require.NoError(t, err)
	require.Equal(t, "First Renamed", updated.FullName)
	require.Equal(t, 1, repo.updates)
}

func TestGetStudentRejectsOtherRoles(t *testing.T) {
	teacher := &models.User{ID: "t-1", Email: "t@school.test", Role: models.RoleTeacher, Active: true}
	repo := newFakeStudentRepo(teacher)
	svc := NewStudentService(repo, nil, nil)

	_, err := svc.Get(context.Background(), "t-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSortRosterNumericOrder(t *testing.T) {
	students := []models.User{
		{ID: "c", RollNo: strPtr("10")},
		{ID: "a", RollNo: strPtr("2")},
		{ID: "d", RollNo: strPtr("X")},
		{ID: "b", RollNo: strPtr("1")},
		{ID: "e"},
	}
	SortRoster(students)

	order := make([]string, len(students))
	for i, s := range students {
		order[i] = s.ID
	}
	require.Equal(t, []string{"b", "a", "c", "d", "e"}, order, "numeric rolls ascend, non-numeric sort last in input order")
}
