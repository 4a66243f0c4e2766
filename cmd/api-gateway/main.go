package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/seiwa-mfg/training-compliance-api/api/swagger"
	"github.com/seiwa-mfg/training-compliance-api/internal/handler"
	"github.com/seiwa-mfg/training-compliance-api/internal/middleware"
	"github.com/seiwa-mfg/training-compliance-api/internal/models"
	"github.com/seiwa-mfg/training-compliance-api/internal/repository"
	"github.com/seiwa-mfg/training-compliance-api/internal/service"
	"github.com/seiwa-mfg/training-compliance-api/pkg/cache"
	"github.com/seiwa-mfg/training-compliance-api/pkg/config"
	"github.com/seiwa-mfg/training-compliance-api/pkg/database"
	"github.com/seiwa-mfg/training-compliance-api/pkg/logger"
	corsmiddleware "github.com/seiwa-mfg/training-compliance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/seiwa-mfg/training-compliance-api/pkg/middleware/requestid"
)

// @title Training Compliance API
// @version 1.0.0
// @description Training compliance and retraining engine for the site training dashboard
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is an optimization, not a dependency: the gateway serves every
	// request from postgres when the cache is unavailable.
	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	employeeRepo := repository.NewEmployeeRepository(db)
	programRepo := repository.NewProgramRepository(db)
	resultRepo := repository.NewResultRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Compliance.CacheTTL, logr, redisClient != nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "training-compliance-api",
	})
	employeeSvc := service.NewEmployeeService(employeeRepo, validate, logr)
	programSvc := service.NewProgramService(programRepo, validate, logr)
	resultSvc := service.NewResultService(resultRepo, employeeRepo, programRepo, cacheSvc, validate, logr)
	complianceSvc := service.NewComplianceService(employeeRepo, programRepo, resultRepo, cacheSvc, metricsSvc, logr, service.ComplianceServiceConfig{
		WarnWindowDays:           cfg.Compliance.WarnWindowDays,
		IncludeExpiredInWorklist: cfg.Compliance.IncludeExpiredInWorklist,
		CacheTTL:                 cfg.Compliance.CacheTTL,
	})
	dashboardSvc := service.NewDashboardService(complianceSvc, cacheSvc, logr, service.DashboardServiceConfig{
		Enabled:  cfg.Dashboard.Enabled,
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	employeeHandler := handler.NewEmployeeHandler(employeeSvc)
	programHandler := handler.NewProgramHandler(programSvc)
	resultHandler := handler.NewResultHandler(resultSvc)
	complianceHandler := handler.NewComplianceHandler(complianceSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
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
	r.Use(middleware.WithResponseMeta())

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

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	anyRole := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTrainer, models.RoleViewer)
	adminOnly := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	recorders := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTrainer)

	employees := protected.Group("/employees")
	employees.GET("", anyRole, employeeHandler.List)
	employees.GET("/:id", anyRole, employeeHandler.Get)
	employees.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionEmployeeCreate, "employee"), employeeHandler.Create)
	employees.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionEmployeeUpdate, "employee"), employeeHandler.Update)
	employees.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionEmployeeDeactivate, "employee"), employeeHandler.Deactivate)

	programs := protected.Group("/programs")
	programs.GET("", anyRole, programHandler.List)
	programs.GET("/:code", anyRole, programHandler.Get)
	programs.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionProgramCreate, "program"), programHandler.Create)
	programs.PUT("/:code", adminOnly, middleware.Audit(userRepo, models.AuditActionProgramUpdate, "program"), programHandler.Update)

	results := protected.Group("/results")
	results.GET("", anyRole, resultHandler.List)
	results.GET("/:id", anyRole, resultHandler.Get)
	results.GET("/:id/edits", anyRole, resultHandler.EditTrail)
	results.POST("", recorders, middleware.Audit(userRepo, models.AuditActionResultRecord, "result"), resultHandler.Record)
	results.PATCH("/:id", recorders, middleware.Audit(userRepo, models.AuditActionResultAmend, "result"), resultHandler.Amend)

	compliance := protected.Group("/compliance")
	compliance.GET("/matrix", anyRole, complianceHandler.Matrix)
	compliance.GET("/retraining", anyRole, complianceHandler.Retraining)
	compliance.GET("/expiring", anyRole, complianceHandler.Expiring)

	protected.GET("/dashboard/summary", anyRole, dashboardHandler.Summary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
