package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

type reportAttendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type reportUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListRoster(ctx context.Context, classID string) ([]models.User, error)
}

type reportClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// ReportService folds the raw attendance record set into per-subject and
// per-student summaries. Nothing here is persisted; every report is a fresh
// read-time computation over the records, optionally memoised in Redis for a
// short window.
type ReportService struct {
	attendance reportAttendanceRepository
	users      reportUserRepository
	classes    reportClassRepository
	cache      *CacheService
	cacheTTL   time.Duration
	threshold  int
	now        func() time.Time
	logger     *zap.Logger
	metrics    *MetricsService
}

// NewReportService constructs ReportService. threshold is the percent below
// which a student is flagged at risk; cache may be nil to disable memoisation.
func NewReportService(
	attendance reportAttendanceRepository,
	users reportUserRepository,
	classes reportClassRepository,
	cache *CacheService,
	cacheTTL time.Duration,
	threshold int,
	logger *zap.Logger,
) *ReportService {
	if threshold <= 0 {
		threshold = 75
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		attendance: attendance,
		users:      users,
		classes:    classes,
		cache:      cache,
		cacheTTL:   cacheTTL,
		threshold:  threshold,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock overrides the time source. Used by tests to pin "today".
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithMetrics attaches the Prometheus collectors. A nil service is tolerated.
func (s *ReportService) WithMetrics(m *MetricsService) *ReportService {
	s.metrics = m
	return s
}

// ClassReport computes the per-subject summary table for every student in the
// class. month, when non-empty, restricts records to the given YYYY-MM.
func (s *ReportService) ClassReport(ctx context.Context, classID, month string) (*models.ClassReport, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}
	if err := validateMonth(month); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("report:class:%s:%s", classID, month)
	if s.cacheEnabled() {
		var cached models.ClassReport
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	start := time.Now()
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to load class")
	}

	roster, err := s.users.ListRoster(ctx, classID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load roster")
	}
	SortRoster(roster)

	records, err := s.attendance.List(ctx, models.AttendanceFilter{ClassID: classID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	records = filterMonth(records, month)

	bySubject := groupBySubject(records)
	subjects := subjectOrder(class.Subjects, bySubject)
	today := s.now().Format(models.DateLayout)

	report := &models.ClassReport{ClassID: classID, Subjects: make([]models.SubjectRows, 0, len(subjects))}
	for _, subject := range subjects {
		subjectRecords := bySubject[subject]
		rows := make([]models.SummaryRow, 0, len(roster))
		for _, student := range roster {
			present, total := countPresence(subjectRecords, student.ID)
			rows = append(rows, models.SummaryRow{
				StudentID:    student.ID,
				Name:         student.FullName,
				RollNo:       rollOf(&student),
				PresentCount: present,
				TotalCount:   total,
				Percent:      percent(present, total),
				AtRisk:       s.atRisk(present, total),
				Today:        todayStatus(subjectRecords, student.ID, today),
			})
		}
		report.Subjects = append(report.Subjects, models.SubjectRows{Subject: subject, Rows: rows})
	}

	s.metrics.ObserveReportBuild("class", time.Since(start))
	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache class report", zap.String("class_id", classID), zap.Error(err))
		}
	}
	return report, nil
}

// StudentReport computes one student's per-subject folds plus the overall
// summary across subjects. month restricts records as in ClassReport.
func (s *ReportService) StudentReport(ctx context.Context, studentID, month string) (*models.StudentReport, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := validateMonth(month); err != nil {
		return nil, err
	}

	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	report := &models.StudentReport{StudentID: studentID, Subjects: []models.SubjectSummary{}}
	if student.ClassID == nil || *student.ClassID == "" {
		// Students without a class assignment have nothing to aggregate.
		return report, nil
	}
	report.ClassID = *student.ClassID

	cacheKey := fmt.Sprintf("report:student:%s:%s", studentID, month)
	if s.cacheEnabled() {
		var cached models.StudentReport
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	start := time.Now()
	records, err := s.attendance.List(ctx, models.AttendanceFilter{ClassID: *student.ClassID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	records = filterMonth(records, month)

	bySubject := groupBySubject(records)
	subjects := make([]string, 0, len(bySubject))
	for subject := range bySubject {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	today := s.now().Format(models.DateLayout)

	totalPresent, totalAbsent := 0, 0
	for _, subject := range subjects {
		subjectRecords := bySubject[subject]
		present, total := countPresence(subjectRecords, studentID)
		totalPresent += present
		totalAbsent += total - present

		history := make([]models.HistoryEntry, 0, len(subjectRecords))
		for _, record := range subjectRecords {
			history = append(history, models.HistoryEntry{
				Date:   record.Date,
				Status: record.Students.StatusOf(studentID),
			})
		}

		report.Subjects = append(report.Subjects, models.SubjectSummary{
			Subject:      subject,
			TotalCount:   total,
			PresentCount: present,
			Percent:      percent(present, total),
			AtRisk:       s.atRisk(present, total),
			Today:        todayStatus(subjectRecords, studentID, today),
			History:      history,
		})
	}

	report.Overall = models.OverallSummary{
		TotalPresent: totalPresent,
		TotalAbsent:  totalAbsent,
		Percent:      percent(totalPresent, totalPresent+totalAbsent),
		AtRisk:       s.atRisk(totalPresent, totalPresent+totalAbsent),
	}

	s.metrics.ObserveReportBuild("student", time.Since(start))
	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache student report", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return report, nil
}

// InvalidateClass drops memoised reports touching the class. Called after an
// attendance write so the next report reflects it.
func (s *ReportService) InvalidateClass(ctx context.Context, classID string) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("report:class:%s:*", classID)); err != nil {
		s.logger.Warn("failed to invalidate class reports", zap.String("class_id", classID), zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "report:student:*"); err != nil {
		s.logger.Warn("failed to invalidate student reports", zap.Error(err))
	}
}

func (s *ReportService) cacheEnabled() bool {
	return s.cache != nil && s.cache.Enabled() && s.cacheTTL > 0
}

func (s *ReportService) atRisk(present, total int) bool {
	if total == 0 {
		return false
	}
	return percent(present, total) < s.threshold
}

// percent rounds present/total to the nearest whole percent, 0 when total is 0.
func percent(present, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// countPresence scans every record in the slice. A student missing from a
// record's map counts as absent, never as an error.
func countPresence(records []models.AttendanceRecord, studentID string) (present, total int) {
	for _, record := range records {
		total++
		if record.Students.StatusOf(studentID) == models.AttendanceStatusPresent {
			present++
		}
	}
	return present, total
}

// todayStatus reports the student's status in the record dated today, "-" when
// no lecture happened today. Records arrive newest first, so with multiple
// slots on the same day the earliest slot of that day wins consistently.
func todayStatus(records []models.AttendanceRecord, studentID, today string) string {
	for _, record := range records {
		if record.Date == today {
			return string(record.Students.StatusOf(studentID))
		}
	}
	return "-"
}

func groupBySubject(records []models.AttendanceRecord) map[string][]models.AttendanceRecord {
	grouped := make(map[string][]models.AttendanceRecord)
	for _, record := range records {
		grouped[record.Subject] = append(grouped[record.Subject], record)
	}
	return grouped
}

// subjectOrder lists the class's declared subjects first, then any subject
// that only appears in records, so the output order never depends on map
// iteration.
func subjectOrder(declared []string, bySubject map[string][]models.AttendanceRecord) []string {
	seen := make(map[string]struct{}, len(declared))
	out := make([]string, 0, len(declared)+len(bySubject))
	for _, subject := range declared {
		if _, ok := seen[subject]; ok {
			continue
		}
		seen[subject] = struct{}{}
		out = append(out, subject)
	}
	extras := make([]string, 0, len(bySubject))
	for subject := range bySubject {
		if _, ok := seen[subject]; !ok {
			extras = append(extras, subject)
		}
	}
	sort.Strings(extras)
	return append(out, extras...)
}

func filterMonth(records []models.AttendanceRecord, month string) []models.AttendanceRecord {
	if month == "" {
		return records
	}
	kept := make([]models.AttendanceRecord, 0, len(records))
	for _, record := range records {
		if strings.HasPrefix(record.Date, month) {
			kept = append(kept, record)
		}
	}
	return kept
}

func validateMonth(month string) error {
	if month == "" {
		return nil
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "month must be formatted as YYYY-MM")
	}
	return nil
}

func rollOf(u *models.User) string {
	if u.RollNo == nil {
		return ""
	}
	return *u.RollNo
}
