// Package router assembles the gin engine: repositories, services, handlers
// and the role-guarded route groups.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/guard"
	"github.com/classmark/classmark-api/internal/handler"
	internalmiddleware "github.com/classmark/classmark-api/internal/middleware"
	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/repository"
	"github.com/classmark/classmark-api/internal/service"
	"github.com/classmark/classmark-api/pkg/config"
	"github.com/classmark/classmark-api/pkg/logger"
	corsmiddleware "github.com/classmark/classmark-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classmark/classmark-api/pkg/middleware/requestid"
)

// Dependencies carries the process-level resources the router wires together.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
}

// New builds the fully wired engine.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	logr := deps.Logger

	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if deps.Redis != nil {
		cacheRepo := repository.NewCacheRepository(deps.Redis, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Redis.Enabled)
	}

	userRepo := repository.NewUserRepository(deps.DB)
	classRepo := repository.NewClassRepository(deps.DB)
	attendanceRepo := repository.NewAttendanceRepository(deps.DB)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		DemoEnabled:        cfg.Demo.Enabled,
	})
	studentSvc := service.NewStudentService(userRepo, validate, logr)
	teacherSvc := service.NewTeacherService(userRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, validate, logr).WithMetrics(metrics)
	reportSvc := service.NewReportService(attendanceRepo, userRepo, classRepo, cacheSvc, cfg.Dashboard.ReportCacheTTL, int(cfg.Dashboard.AtRiskThreshold), logr).WithMetrics(metrics)
	dashboardSvc := service.NewDashboardService(userRepo, classRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, dashboardSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc, dashboardSvc)
	classHandler := handler.NewClassHandler(classSvc, dashboardSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, reportSvc)
	reportHandler := handler.NewReportHandler(reportSvc, cfg.Reports.ExportEnabled, cfg.Reports.SchoolName)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, deps.DB, deps.Redis)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/demo-login", authHandler.DemoLogin)
		auth.POST("/register", authHandler.Register)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/logout", internalmiddleware.OptionalJWT(authSvc), authHandler.Logout)
		auth.GET("/me", internalmiddleware.JWT(authSvc), authHandler.Me)
		auth.PUT("/password", internalmiddleware.JWT(authSvc), authHandler.ChangePassword)
	}

	session := api.Group("", internalmiddleware.OptionalJWT(authSvc))

	admin := session.Group("/admin", guardFor("/admin", authSvc, logr))
	{
		admin.GET("/dashboard", dashboardHandler.Counts)

		admin.GET("/teachers", teacherHandler.List)
		admin.POST("/teachers", teacherHandler.Create)
		admin.GET("/teachers/:id", teacherHandler.Get)
		admin.PUT("/teachers/:id", teacherHandler.Update)
		admin.DELETE("/teachers/:id", internalmiddleware.Audit(userRepo, "DELETE", "teacher"), teacherHandler.Delete)

		admin.GET("/students", studentHandler.List)
		admin.POST("/students", studentHandler.Create)
		admin.GET("/students/:id", studentHandler.Get)
		admin.PUT("/students/:id", studentHandler.Update)
		admin.DELETE("/students/:id", internalmiddleware.Audit(userRepo, "DELETE", "student"), studentHandler.Delete)

		admin.GET("/classes", classHandler.List)
		admin.POST("/classes", classHandler.Create)
		admin.GET("/classes/:id", classHandler.Get)
		admin.PUT("/classes/:id", classHandler.Update)
		admin.DELETE("/classes/:id", internalmiddleware.Audit(userRepo, "DELETE", "class"), classHandler.Delete)
		admin.POST("/classes/:id/subjects", classHandler.AddSubject)
		admin.DELETE("/classes/:id/subjects/:subject", classHandler.RemoveSubject)
		admin.GET("/classes/:id/roster", studentHandler.Roster)

		admin.GET("/attendance", attendanceHandler.History)
		admin.GET("/attendance/:id", attendanceHandler.Get)
		admin.PUT("/attendance/:id", attendanceHandler.Update)
		admin.DELETE("/attendance/:id", internalmiddleware.Audit(userRepo, "DELETE", "attendance"), attendanceHandler.Delete)

		admin.GET("/reports/classes/:class_id", reportHandler.ClassReport)
		admin.GET("/reports/classes/:class_id/export", reportHandler.ExportClassReport)
		admin.GET("/reports/students/:student_id", reportHandler.StudentReport)
	}

	teacher := session.Group("/teacher", guardFor("/teacher", authSvc, logr))
	{
		teacher.POST("/attendance", attendanceHandler.Save)
		teacher.PUT("/attendance/:id", attendanceHandler.Update)
		teacher.GET("/history", attendanceHandler.History)
		teacher.GET("/classes/:class_id/roster", studentHandler.Roster)
		teacher.GET("/reports/classes/:class_id", reportHandler.ClassReport)
		teacher.GET("/reports/classes/:class_id/export", reportHandler.ExportClassReport)
	}

	student := session.Group("/student", guardFor("/student", authSvc, logr))
	{
		student.GET("/report", reportHandler.MyReport)
	}

	return r
}

// guardFor pulls the allowed roles for the group's base path from the route
// table so the table stays the single authority on who may go where.
func guardFor(path string, authSvc *service.AuthService, logr *zap.Logger) gin.HandlerFunc {
	roles, ok := guard.Lookup(path)
	if !ok {
		roles = []models.UserRole{}
	}
	return internalmiddleware.Guard(authSvc, logr, roles...)
}
