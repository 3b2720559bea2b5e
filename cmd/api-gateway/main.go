package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Conflict-free school timetable generation engine with CSV and PDF export.
// @BasePath /api/v1
// @schemes http

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

	store, err := storage.NewLocalStorage(cfg.Export.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "dir", cfg.Export.StorageDir, "error", err)
	}

	var runs service.RunRecorder
	if cfg.Database.Enabled {
		db, dbErr := database.NewPostgres(cfg.Database)
		if dbErr != nil {
			logr.Sugar().Fatalw("failed to connect postgres", "error", dbErr)
		}
		defer db.Close() //nolint:errcheck
		runs = repository.NewRunRepository(db)
		logr.Sugar().Infow("generation run log enabled", "db", cfg.Database.Name)
	}

	var tableCache service.TableCache
	if cfg.Redis.Enabled {
		client, redisErr := cache.NewRedis(cfg.Redis)
		if redisErr != nil {
			logr.Sugar().Fatalw("failed to connect redis", "error", redisErr)
		}
		defer client.Close() //nolint:errcheck
		tableCache = service.NewRedisTableCache(client)
		logr.Sugar().Infow("table cache enabled", "ttl", cfg.Redis.CacheTTL)
	}

	metricsSvc := service.NewMetricsService()
	timetableSvc := service.NewTimetableService(
		store,
		runs,
		tableCache,
		metricsSvc,
		nil,
		logr,
		service.TimetableConfig{
			MaxSections: cfg.Generator.MaxSections,
			TableTTL:    cfg.Generator.TableTTL,
			CacheTTL:    cfg.Redis.CacheTTL,
		},
	)

	cleanup := jobs.NewQueue("export-cleanup", func(ctx context.Context, job jobs.Job) error {
		deleted, cleanErr := timetableSvc.CleanupExports(cfg.Export.ResultTTL)
		if cleanErr != nil {
			return cleanErr
		}
		if len(deleted) > 0 {
			logr.Sugar().Infow("expired exports removed", "count", len(deleted))
		}
		return nil
	}, jobs.QueueConfig{Workers: cfg.Export.CleanupWorkers, Logger: logr})

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cleanup.Start(rootCtx)
	defer cleanup.Stop()
	go scheduleCleanup(rootCtx, cleanup, cfg.Export.CleanupInterval)

	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	runHandler := handler.NewRunHandler(timetableSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/timetables/generate", timetableHandler.Generate)
		api.GET("/timetables", timetableHandler.List)
		api.GET("/timetables/:id", timetableHandler.Fetch)
		api.GET("/timetables/:id/download", timetableHandler.Download)
		api.GET("/runs", runHandler.List)
		api.GET("/runs/:id", runHandler.Fetch)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func scheduleCleanup(ctx context.Context, queue *jobs.Queue, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job := jobs.Job{ID: uuid.NewString(), Type: "export-cleanup"}
			if err := queue.Enqueue(job); err != nil {
				return
			}
		}
	}
}
