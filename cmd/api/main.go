package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	_ "github.com/classmark/classmark-api/api/swagger"
	"github.com/classmark/classmark-api/internal/router"
	"github.com/classmark/classmark-api/pkg/cache"
	"github.com/classmark/classmark-api/pkg/config"
	"github.com/classmark/classmark-api/pkg/database"
	"github.com/classmark/classmark-api/pkg/logger"
)

// @title Classmark API
// @version 1.0.0
// @description Role based attendance tracking for admins, teachers and students
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	deps := router.Dependencies{Config: cfg, Logger: logr, DB: db}

	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			deps.Redis = redisClient
			defer redisClient.Close()
		}
	}

	r := router.New(deps)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
