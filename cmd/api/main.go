package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/roomly-api/api/swagger"
	"github.com/noah-isme/roomly-api/internal/handler"
	"github.com/noah-isme/roomly-api/internal/middleware"
	"github.com/noah-isme/roomly-api/internal/models"
	"github.com/noah-isme/roomly-api/internal/repository"
	"github.com/noah-isme/roomly-api/internal/service"
	"github.com/noah-isme/roomly-api/pkg/cache"
	"github.com/noah-isme/roomly-api/pkg/config"
	"github.com/noah-isme/roomly-api/pkg/database"
	"github.com/noah-isme/roomly-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/roomly-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/roomly-api/pkg/middleware/requestid"
)

// @title Roomly API
// @version 1.0.0
// @description Meeting room booking and allocation service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	bookingRepo := repository.NewBookingRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	auditSvc := service.NewAuditService(auditRepo, logr, cfg.Audit.Workers)
	if cfg.Audit.Enabled {
		auditSvc.Start(ctx)
		defer auditSvc.Stop()
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
	})
	allocationSvc := service.NewAllocationService(userRepo, roomRepo, bookingRepo, bookingRepo, metricsSvc, validate, logr, service.AllocationConfig{
		BufferMinutes:    cfg.Booking.BufferMinutes,
		TimeStepMinutes:  cfg.Booking.TimeStepMinutes,
		AlternativeLimit: cfg.Booking.AlternativeLimit,
	})
	bookingSvc := service.NewBookingService(bookingRepo, roomRepo, db, auditSvc, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, cacheRepo, auditSvc, validate, logr, cfg.Rooms.CacheTTL)
	exportSvc := service.NewExportService(bookingRepo, roomRepo, logr)

	sweeper := service.NewSweeperService(bookingRepo, auditSvc, metricsSvc, logr, service.SweeperConfig{
		Interval: cfg.Sweeper.Interval,
		Grace:    time.Duration(cfg.Sweeper.GraceMinutes) * time.Minute,
	}, nil)
	if cfg.Sweeper.Enabled {
		sweeper.Start(ctx)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc, exportSvc)
	allocationHandler := handler.NewAllocationHandler(allocationSvc, userRepo)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix + "/v1")
	api.POST("/auth/login", authHandler.Login)

	auth := api.Group("")
	auth.Use(middleware.JWT(authSvc))
	{
		auth.GET("/auth/me", authHandler.Me)

		auth.GET("/rooms", roomHandler.List)
		auth.GET("/rooms/:id", roomHandler.Get)

		auth.POST("/bookings", bookingHandler.Create)
		auth.GET("/bookings/my", bookingHandler.ListMine)
		auth.GET("/bookings/:id", bookingHandler.Get)
		auth.PATCH("/bookings/:id", bookingHandler.Update)
		auth.PATCH("/bookings/:id/cancel", bookingHandler.Cancel)

		auth.POST("/allocations/optimal", allocationHandler.FindOptimal)
		auth.POST("/allocations/conflicts", allocationHandler.CheckConflict)
		auth.POST("/allocations/override", allocationHandler.CanOverride)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/rooms", roomHandler.Create)
		admin.PATCH("/rooms/:id", roomHandler.Update)
		admin.DELETE("/rooms/:id", roomHandler.Delete)

		admin.GET("/bookings", bookingHandler.List)
		admin.GET("/bookings/export", bookingHandler.Export)
		admin.PATCH("/bookings/:id/status", bookingHandler.Review)
		admin.DELETE("/bookings/:id", bookingHandler.Delete)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("forced shutdown", "error", err)
	}
}
