package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

// CreateTeacherRequest captures the admin-facing creation payload.
type CreateTeacherRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	ClassID  string `json:"class_id" validate:"required"`
	Subject  string `json:"subject" validate:"required"`
}

// UpdateTeacherRequest modifies teacher profile fields.
type UpdateTeacherRequest struct {
	FullName string `json:"full_name" validate:"required"`
	ClassID  string `json:"class_id" validate:"required"`
	Subject  string `json:"subject" validate:"required"`
	Active   bool   `json:"active"`
}

// TeacherService coordinates teacher roster operations. It shares the user
// repository with the student service; teachers are role-discriminated rows.
type TeacherService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs TeacherService.
func NewTeacherService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// List returns teachers with pagination metadata.
func (s *TeacherService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	role := models.RoleTeacher
	filter.Role = &role
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return teachers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single teacher.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.User, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Internal(err, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return teacher, nil
}

// Create adds a teacher account.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid teacher payload")
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

	teacher := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleTeacher,
		ClassID:      &req.ClassID,
		Subject:      &req.Subject,
		Active:       true,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Internal(err, "failed to create teacher")
	}
	return teacher, nil
}

// Update modifies a teacher profile.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid teacher payload")
	}

	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	teacher.FullName = req.FullName
	teacher.ClassID = &req.ClassID
	teacher.Subject = &req.Subject
	teacher.Active = req.Active

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Internal(err, "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher by id without cascading into attendance records.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete teacher")
	}
	return nil
}
