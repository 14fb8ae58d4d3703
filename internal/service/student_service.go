package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListRoster(ctx context.Context, classID string) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByRollNo(ctx context.Context, classID, rollNo, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// CreateStudentRequest captures the admin-facing creation payload.
type CreateStudentRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	ClassID  string `json:"class_id" validate:"required"`
	RollNo   string `json:"roll_no" validate:"required"`
	Gender   string `json:"gender" validate:"required,oneof=male female"`
}

// UpdateStudentRequest modifies profile fields.
type UpdateStudentRequest struct {
	FullName string `json:"full_name" validate:"required"`
	ClassID  string `json:"class_id" validate:"required"`
	RollNo   string `json:"roll_no" validate:"required"`
	Gender   string `json:"gender" validate:"required,oneof=male female"`
	Active   bool   `json:"active"`
}

// StudentService coordinates student roster operations.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	role := models.RoleStudent
	filter.Role = &role
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Roster returns the active students of a class sorted by numeric roll
// number, with non-numeric roll numbers last.
func (s *StudentService) Roster(ctx context.Context, classID string) ([]models.User, error) {
	students, err := s.repo.ListRoster(ctx, classID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load roster")
	}
	SortRoster(students)
	return students, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.User, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// Create adds a student after enforcing the class/roll-number uniqueness
// rule. The conflict message names the clashing roll number.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}

	if err := s.checkRollNo(ctx, req.ClassID, req.RollNo, ""); err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check email")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrEmailInUse, "email address already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	student := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		ClassID:      &req.ClassID,
		RollNo:       &req.RollNo,
		Gender:       &req.Gender,
		Active:       true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to create student")
	}
	return student, nil
}

// Update modifies a student profile, re-checking roll-number uniqueness
// against every other student in the target class.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkRollNo(ctx, req.ClassID, req.RollNo, id); err != nil {
		return nil, err
	}

	student.FullName = req.FullName
	student.ClassID = &req.ClassID
	student.RollNo = &req.RollNo
	student.Gender = &req.Gender
	student.Active = req.Active

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to update student")
	}
	return student, nil
}

// Delete removes a student by id. Attendance records referencing the student
// are left untouched.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete student")
	}
	return nil
}

func (s *StudentService) checkRollNo(ctx context.Context, classID, rollNo, excludeID string) error {
	duplicate, err := s.repo.ExistsByRollNo(ctx, classID, rollNo, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check roll number")
	}
	if duplicate {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("roll number %s already exists in this class", rollNo))
	}
	return nil
}

// SortRoster orders students by numeric roll number ascending; entries whose
// roll number does not parse keep their relative order at the end.
func SortRoster(students []models.User) {
	sort.SliceStable(students, func(i, j int) bool {
		ra, okA := parseRoll(students[i].RollNo)
		rb, okB := parseRoll(students[j].RollNo)
		switch {
		case okA && okB:
			return ra < rb
		case okA:
			return true
		default:
			return false
		}
	})
}

func parseRoll(roll *string) (int, bool) {
	if roll == nil {
		return 0, false
	}
	n, err := strconv.Atoi(*roll)
	if err != nil {
		return 0, false
	}
	return n, true
}
