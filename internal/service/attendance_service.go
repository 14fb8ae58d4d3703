package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) error
	UpdateStatuses(ctx context.Context, id string, students models.StatusMap) error
	FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	Delete(ctx context.Context, id string) error
}

// SaveAttendanceRequest submits one lecture slot's presence map. Saving the
// same class/subject/slot/day tuple again replaces the earlier submission.
type SaveAttendanceRequest struct {
	ClassID  string                             `json:"class_id" validate:"required"`
	Subject  string                             `json:"subject" validate:"required"`
	TimeSlot string                             `json:"time_slot" validate:"required"`
	Date     string                             `json:"date" validate:"required"`
	Students map[string]models.AttendanceStatus `json:"students" validate:"required"`
}

// UpdateAttendanceRequest edits the statuses of an existing record. Only the
// students map changes; the identity fields are immutable.
type UpdateAttendanceRequest struct {
	Students map[string]models.AttendanceStatus `json:"students" validate:"required"`
}

// AttendanceService persists lecture slot attendance and serves the history
// panels.
type AttendanceService struct {
	repo      attendanceRepository
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, validator: validate, logger: logger}
}

// WithMetrics attaches the Prometheus collectors. A nil service is tolerated.
func (s *AttendanceService) WithMetrics(m *MetricsService) *AttendanceService {
	s.metrics = m
	return s
}

// Save upserts the record under its composite identity. The teacher taking
// attendance comes from the authenticated session, not the payload.
func (s *AttendanceService) Save(ctx context.Context, teacherID string, req SaveAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid attendance payload")
	}
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing teacher identity")
	}
	if _, err := time.Parse(models.DateLayout, req.Date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	statuses, err := normalizeStatuses(req.Students)
	if err != nil {
		return nil, err
	}

	record := &models.AttendanceRecord{
		ClassID:   req.ClassID,
		TeacherID: teacherID,
		Subject:   req.Subject,
		TimeSlot:  req.TimeSlot,
		Date:      req.Date,
		Students:  statuses,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Internal(err, "failed to save attendance")
	}

	s.metrics.RecordAttendanceSave()
	s.logger.Info("attendance saved",
		zap.String("record_id", record.ID),
		zap.String("class_id", record.ClassID),
		zap.Int("students", len(record.Students)))
	return record, nil
}

// Update replaces the statuses of an existing record.
func (s *AttendanceService) Update(ctx context.Context, id string, req UpdateAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid attendance payload")
	}
	statuses, err := normalizeStatuses(req.Students)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatuses(ctx, id, statuses); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Internal(err, "failed to update attendance")
	}
	return s.Get(ctx, id)
}

// Get returns a record by its composite identifier.
func (s *AttendanceService) Get(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	return record, nil
}

// History lists records matching the filter, newest day first.
func (s *AttendanceService) History(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list attendance")
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return records, nil
}

// Delete removes a record. Reports recompute from the remaining rows, so
// nothing else needs cleanup.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete attendance")
	}
	return nil
}

// normalizeStatuses copies the payload map, rejecting unknown statuses.
func normalizeStatuses(in map[string]models.AttendanceStatus) (models.StatusMap, error) {
	out := make(models.StatusMap, len(in))
	for studentID, status := range in {
		if studentID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student id must not be empty")
		}
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "attendance status must be present or absent")
		}
		out[studentID] = status
	}
	return out, nil
}
