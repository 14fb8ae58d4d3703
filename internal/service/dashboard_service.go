package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

const dashboardCountsKey = "dashboard:counts"

type dashboardUserRepository interface {
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
}

type dashboardClassRepository interface {
	ListWithStudentCounts(ctx context.Context) ([]models.ClassDetail, error)
}

// DashboardService assembles the admin landing page counts.
type DashboardService struct {
	users    dashboardUserRepository
	classes  dashboardClassRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs DashboardService. cache may be nil.
func NewDashboardService(users dashboardUserRepository, classes dashboardClassRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{users: users, classes: classes, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Counts returns roster sizes per role and per class. Served from cache when
// fresh; the refresh flag forces a recount.
func (s *DashboardService) Counts(ctx context.Context, refresh bool) (*models.DashboardCounts, error) {
	if !refresh && s.cacheEnabled() {
		var cached models.DashboardCounts
		if hit, err := s.cache.Get(ctx, dashboardCountsKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	teachers, err := s.users.CountByRole(ctx, models.RoleTeacher)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count teachers")
	}
	students, err := s.users.CountByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count students")
	}
	perClass, err := s.classes.ListWithStudentCounts(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count classes")
	}

	counts := &models.DashboardCounts{
		Teachers:    teachers,
		Students:    students,
		Classes:     len(perClass),
		PerClass:    perClass,
		GeneratedAt: time.Now().UTC(),
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, dashboardCountsKey, counts, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard counts", zap.Error(err))
		}
	}
	return counts, nil
}

// Invalidate drops the cached counts after a roster mutation.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCountsKey); err != nil {
		s.logger.Warn("failed to invalidate dashboard counts", zap.Error(err))
	}
}

func (s *DashboardService) cacheEnabled() bool {
	return s.cache != nil && s.cache.Enabled() && s.cacheTTL > 0
}
