package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/halcyon-health/clinic-emr-api/api/swagger"
	"github.com/halcyon-health/clinic-emr-api/internal/handler"
	"github.com/halcyon-health/clinic-emr-api/internal/middleware"
	"github.com/halcyon-health/clinic-emr-api/internal/models"
	"github.com/halcyon-health/clinic-emr-api/internal/repository"
	"github.com/halcyon-health/clinic-emr-api/internal/service"
	"github.com/halcyon-health/clinic-emr-api/pkg/cache"
	"github.com/halcyon-health/clinic-emr-api/pkg/config"
	"github.com/halcyon-health/clinic-emr-api/pkg/database"
	"github.com/halcyon-health/clinic-emr-api/pkg/logger"
	"github.com/halcyon-health/clinic-emr-api/pkg/middleware/cors"
	"github.com/halcyon-health/clinic-emr-api/pkg/middleware/requestid"
)

// @title Clinic EMR Scheduling API
// @version 1.0.0
// @description Provider availability engine and preference-scored slot recommendations
// @BasePath /api/v1
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

	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional. Without it the availability cache is disabled and
	// every request computes from the database.
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, availability cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	userRepo := repository.NewUserRepository(db)
	providerRepo := repository.NewProviderRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	typeRepo := repository.NewAppointmentTypeRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	exceptionRepo := repository.NewExceptionRepository(db)
	bufferRepo := repository.NewBufferRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Availability.CacheTTL, logr, cfg.Availability.CacheEnabled)

	authSvc := service.NewAuthService(userRepo, logr, cfg.JWT)
	providerSvc := service.NewProviderService(providerRepo, logr)
	patientSvc := service.NewPatientService(patientRepo, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, exceptionRepo, cacheSvc, logr)
	bufferSvc := service.NewBufferService(bufferRepo, cacheSvc, logr)
	preferenceSvc := service.NewPreferenceService(preferenceRepo, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, typeRepo, cacheSvc, logr)
	availabilitySvc := service.NewAvailabilityService(
		providerRepo,
		scheduleRepo,
		exceptionRepo,
		appointmentRepo,
		typeRepo,
		bufferSvc,
		cacheSvc,
		metricsSvc,
		logr,
		cfg.Availability,
	)
	recommendationSvc := service.NewRecommendationService(availabilitySvc, preferenceRepo, typeRepo, metricsSvc, logr, cfg.Recommendations)
	exportSvc := service.NewExportService(availabilitySvc, logr, cfg.Exports.Enabled)

	authHandler := handler.NewAuthHandler(authSvc)
	providerHandler := handler.NewProviderHandler(providerSvc)
	patientHandler := handler.NewPatientHandler(patientSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	appointmentHandler := handler.NewAppointmentHandler(appointmentSvc)
	preferenceHandler := handler.NewPreferenceHandler(preferenceSvc)
	bufferHandler := handler.NewBufferHandler(bufferSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc, recommendationSvc, exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(cors.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffOrAdmin := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)

	availability := protected.Group("/availability")
	{
		availability.GET("", availabilityHandler.Compute)
		availability.GET("/recommendations", availabilityHandler.Recommend)
		availability.GET("/export", availabilityHandler.Export)
	}

	providers := protected.Group("/providers")
	{
		providers.GET("", providerHandler.List)
		providers.GET("/:id", providerHandler.Get)
		providers.POST("", adminOnly, providerHandler.Create)
		providers.PUT("/:id", adminOnly, providerHandler.Update)

		providers.GET("/:id/schedule", scheduleHandler.ListWeeklyBlocks)
		providers.POST("/:id/schedule", staffOrAdmin, scheduleHandler.CreateWeeklyBlock)
		providers.PUT("/:id/schedule/:blockId", staffOrAdmin, scheduleHandler.UpdateWeeklyBlock)
		providers.DELETE("/:id/schedule/:blockId", staffOrAdmin, scheduleHandler.DeleteWeeklyBlock)

		providers.GET("/:id/exceptions", scheduleHandler.ListExceptions)
		providers.PUT("/:id/exceptions", staffOrAdmin, scheduleHandler.UpsertException)
		providers.DELETE("/:id/exceptions/:exceptionId", staffOrAdmin, scheduleHandler.DeleteException)
	}

	patients := protected.Group("/patients")
	{
		patients.GET("", patientHandler.List)
		patients.GET("/:id", patientHandler.Get)
		patients.POST("", staffOrAdmin, patientHandler.Create)
		patients.PUT("/:id", staffOrAdmin, patientHandler.Update)
	}

	appointments := protected.Group("/appointments")
	{
		appointments.GET("", appointmentHandler.List)
		appointments.GET("/:id", appointmentHandler.Get)
		appointments.POST("", appointmentHandler.Create)
		appointments.PUT("/:id", appointmentHandler.Update)
		appointments.PATCH("/:id/status", appointmentHandler.UpdateStatus)
		appointments.DELETE("/:id", staffOrAdmin, appointmentHandler.Delete)
	}

	protected.GET("/appointment-types", appointmentHandler.ListTypes)

	preferences := protected.Group("/preferences")
	{
		preferences.GET("/:subject/:id", preferenceHandler.Get)
		preferences.PUT("/:subject/:id", staffOrAdmin, preferenceHandler.Upsert)
		preferences.DELETE("/:subject/:id", staffOrAdmin, preferenceHandler.Delete)
	}

	buffers := protected.Group("/buffers")
	{
		buffers.GET("", bufferHandler.List)
		buffers.PUT("", adminOnly, bufferHandler.Upsert)
		buffers.DELETE("/:id", adminOnly, bufferHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	sugar.Infow("starting clinic scheduling api", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		sugar.Fatalw("server exited", "error", err)
	}
}
