package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-uctp-engine/internal/advisory"
	"github.com/noah-isme/sma-uctp-engine/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-uctp-engine/internal/middleware"
	"github.com/noah-isme/sma-uctp-engine/internal/repository"
	"github.com/noah-isme/sma-uctp-engine/internal/service"
	"github.com/noah-isme/sma-uctp-engine/pkg/cache"
	"github.com/noah-isme/sma-uctp-engine/pkg/config"
	"github.com/noah-isme/sma-uctp-engine/pkg/database"
	"github.com/noah-isme/sma-uctp-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-uctp-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-uctp-engine/pkg/middleware/requestid"
)

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
	defer db.Close() //nolint:errcheck

	var mirror *repository.ProposalCacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, proposals will not survive restarts", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			mirror = repository.NewProposalCacheRepository(redisClient)
		}
	}

	var advisor advisory.Service
	if cfg.Advisory.BaseURL != "" {
		llm, err := advisory.NewLLMService(advisory.LLMConfig{
			BaseURL: cfg.Advisory.BaseURL,
			Model:   cfg.Advisory.Model,
			APIKey:  cfg.Advisory.APIKey,
			Timeout: cfg.Advisory.Timeout,
		}, logr)
		if err != nil {
			logr.Warn("advisory disabled", zap.Error(err))
		} else {
			advisor = llm
		}
	}

	metricsSvc := service.NewMetricsService()
	snapshots := repository.NewSnapshotRepository(db)

	var timetableSvc *service.TimetableService
	if mirror != nil {
		timetableSvc = service.NewTimetableService(snapshots, advisor, mirror, metricsSvc, nil, logr, cfg.Engine)
	} else {
		timetableSvc = service.NewTimetableService(snapshots, advisor, nil, metricsSvc, nil, logr, cfg.Engine)
	}
	timetableHandler := handler.NewTimetableHandler(timetableSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	timetableHandler.Register(api)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
