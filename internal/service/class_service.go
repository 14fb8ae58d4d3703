package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	UpdateSubjects(ctx context.Context, id string, subjects pq.StringArray) error
	Delete(ctx context.Context, id string) error
	ListWithStudentCounts(ctx context.Context) ([]models.ClassDetail, error)
}

// CreateClassRequest captures the admin-facing class creation payload.
type CreateClassRequest struct {
	Name     string   `json:"name" validate:"required"`
	Subjects []string `json:"subjects" validate:"dive,required"`
}

// UpdateClassRequest renames a class.
type UpdateClassRequest struct {
	Name string `json:"name" validate:"required"`
}

// SubjectRequest adds or removes a single subject.
type SubjectRequest struct {
	Subject string `json:"subject" validate:"required"`
}

// ClassService manages classes and their subject lists.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListDetailed returns classes annotated with student counts for the admin
// overview panel.
func (s *ClassService) ListDetailed(ctx context.Context) ([]models.ClassDetail, error) {
	details, err := s.repo.ListWithStudentCounts(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list classes")
	}
	return details, nil
}

// Get returns a single class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to load class")
	}
	return class, nil
}

// Create adds a class. Duplicate subjects in the payload are collapsed.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid class payload")
	}

	taken, err := s.repo.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check class name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a class with this name already exists")
	}

	class := &models.Class{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Subjects: dedupeSubjects(nil, req.Subjects...),
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Internal(err, "failed to create class")
	}
	return class, nil
}

// Update renames a class.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid class payload")
	}

	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check class name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a class with this name already exists")
	}

	class.Name = req.Name
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Internal(err, "failed to update class")
	}
	return class, nil
}

// AddSubject appends a subject to the class list. Adding an already-present
// subject is a no-op and succeeds.
func (s *ClassService) AddSubject(ctx context.Context, id string, req SubjectRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid subject payload")
	}

	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := dedupeSubjects(class.Subjects, req.Subject)
	if len(merged) == len(class.Subjects) {
		return class, nil
	}
	if err := s.repo.UpdateSubjects(ctx, id, merged); err != nil {
		return nil, appErrors.Internal(err, "failed to update subjects")
	}
	class.Subjects = merged
	return class, nil
}

// RemoveSubject deletes a subject from the class list. Removing an absent
// subject succeeds without touching the row.
func (s *ClassService) RemoveSubject(ctx context.Context, id string, subject string) (*models.Class, error) {
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	kept := make(pq.StringArray, 0, len(class.Subjects))
	for _, existing := range class.Subjects {
		if existing != subject {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(class.Subjects) {
		return class, nil
	}
	if err := s.repo.UpdateSubjects(ctx, id, kept); err != nil {
		return nil, appErrors.Internal(err, "failed to update subjects")
	}
	class.Subjects = kept
	return class, nil
}

// Delete removes a class. Students and attendance records that reference it
// are left in place.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete class")
	}
	return nil
}

// dedupeSubjects unions base with extras, preserving first-seen order.
func dedupeSubjects(base pq.StringArray, extras ...string) pq.StringArray {
	seen := make(map[string]struct{}, len(base)+len(extras))
	out := make(pq.StringArray, 0, len(base)+len(extras))
	for _, subject := range base {
		if _, ok := seen[subject]; ok {
			continue
		}
		seen[subject] = struct{}{}
		out = append(out, subject)
	}
	for _, subject := range extras {
		if subject == "" {
			continue
		}
		if _, ok := seen[subject]; ok {
			continue
		}
		seen[subject] = struct{}{}
		out = append(out, subject)
	}
	return out
}
