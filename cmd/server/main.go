// Package main runs the hackathon CMS HTTP server with WebSocket progress and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hackhub-cms/backend/config"
	"github.com/hackhub-cms/backend/internal/analytics"
	"github.com/hackhub-cms/backend/internal/auth"
	"github.com/hackhub-cms/backend/internal/campaigns"
	"github.com/hackhub-cms/backend/internal/compose"
	"github.com/hackhub-cms/backend/internal/emailtemplates"
	"github.com/hackhub-cms/backend/internal/hackathons"
	"github.com/hackhub-cms/backend/internal/mailer"
	"github.com/hackhub-cms/backend/internal/middleware"
	"github.com/hackhub-cms/backend/internal/models"
	"github.com/hackhub-cms/backend/internal/notices"
	"github.com/hackhub-cms/backend/internal/realtime"
	"github.com/hackhub-cms/backend/internal/registrations"
	"github.com/hackhub-cms/backend/pkg/database"
	"github.com/hackhub-cms/backend/pkg/redis"
	"github.com/hackhub-cms/backend/pkg/response"
	"github.com/hackhub-cms/backend/pkg/storage"
	"github.com/hackhub-cms/backend/pkg/validator"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	if err := database.Migrate(cfg.Database.DSN(), logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	pool, err := database.NewPostgresPool(ctx, database.PoolOptions{
		DSN:      cfg.Database.DSN(),
		MaxConns: int32(cfg.Database.MaxConns),
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	// Redis backs the slug cache and bulk locks; both degrade to no-ops without it.
	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis disabled", zap.Error(err))
		} else {
			defer client.Close()
			rdb = client
		}
	}

	var archiver registrations.Archiver
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			archiver = s3Client
		}
	}

	sender, err := mailer.NewSender(cfg.Email, logger)
	if err != nil {
		logger.Fatal("email sender", zap.Error(err))
	}
	envelope := compose.Envelope{HeaderImageURL: cfg.Email.HeaderImageURL}
	outbox := &mailer.Outbox{Sender: sender, Envelope: envelope, From: cfg.Email.From()}

	validator.RegisterGin()
	translator := notices.NewTranslator(cfg.Locale, logger)
	hub := realtime.NewHub(logger)
	locker := redis.NewLocker(rdb, "lock:", time.Duration(cfg.Campaign.LockTTLSec)*time.Second, logger)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)
	if err := authHandler.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
		logger.Fatal("bootstrap admin", zap.Error(err))
	}

	// Hackathons
	hackathonRepo := hackathons.NewRepository(pool)
	hackathonCache := hackathons.NewCache(rdb, time.Duration(cfg.Cache.HackathonTTLSec)*time.Second, logger)
	hackathonHandler := hackathons.NewHandler(hackathonRepo, hackathonCache, logger)

	// Registrations
	registrationRepo := registrations.NewRepository(pool)
	registrationHandler := registrations.NewHandler(registrations.Deps{
		Store:      registrationRepo,
		Events:     hackathonRepo,
		Translator: translator,
		Locker:     locker,
		Hub:        hub,
		Outbox:     outbox,
		Archiver:   archiver,
		SiteURL:    cfg.Email.SiteURL,
		Logger:     logger,
	})

	// Email templates and campaigns
	templateRepo := emailtemplates.NewRepository(pool)
	templateHandler := emailtemplates.NewHandler(templateRepo, logger)
	campaignHandler := campaigns.NewHandler(campaigns.Deps{
		Resolver:    campaigns.NewResolver(registrationRepo, hackathonRepo),
		Outbox:      outbox,
		Templates:   templateRepo,
		Locker:      locker,
		Hub:         hub,
		Translator:  translator,
		BatchSize:   cfg.Campaign.BatchSize,
		SendTimeout: time.Duration(cfg.Campaign.SendTimeoutSec) * time.Second,
		SiteURL:     cfg.Email.SiteURL,
		Logger:      logger,
	})

	mailHandler := mailer.NewHandler(sender, envelope, cfg.Email.From(), cfg.Email.SiteURL, logger)
	analyticsHandler := analytics.NewHandler(registrationRepo, hackathonRepo, logger)

	wsValidate := func(token string) (string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", err
		}
		return claims.UserID.String(), nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public site
	public := router.Group("/public")
	{
		public.GET("/hackathons", hackathonHandler.PublicList)
		public.GET("/hackathons/:slug", hackathonHandler.PublicGet)
		public.POST("/hackathons/:slug/register", registrationHandler.Register)
	}

	router.POST("/auth/login", authHandler.Login)

	// WebSocket (token in query; no Authorization header required)
	router.GET("/admin/ws", realtime.ServeWs(hub, logger, wsValidate))

	staff := middleware.RequireRole(models.RoleAdmin, models.RoleEditor)
	mailHandler.Register(router, middleware.JWT(jwtService), staff)

	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService), staff)
	{
		admin.POST("/users", middleware.RequireRole(models.RoleAdmin), authHandler.CreateUser)

		admin.GET("/hackathons", hackathonHandler.List)
		admin.POST("/hackathons", hackathonHandler.Create)
		admin.GET("/hackathons/:id", hackathonHandler.GetByID)
		admin.PUT("/hackathons/:id", hackathonHandler.Update)
		admin.DELETE("/hackathons/:id", middleware.RequireRole(models.RoleAdmin), hackathonHandler.Delete)
		admin.GET("/hackathons/:id/stats", analyticsHandler.Stats)

		admin.GET("/registrations", registrationHandler.List)
		admin.GET("/registrations/export", registrationHandler.Export)
		admin.PATCH("/registrations/:id/status", registrationHandler.UpdateStatus)
		admin.POST("/hackathons/:id/registrations/bulk-status", registrationHandler.BulkStatus)
		admin.POST("/hackathons/:id/registrations/confirm-pending", registrationHandler.ConfirmPending)

		admin.GET("/campaigns/presets", campaignHandler.Presets)
		admin.POST("/hackathons/:id/campaigns/preview", campaignHandler.Preview)
		admin.POST("/hackathons/:id/campaigns/send", campaignHandler.Send)

		admin.GET("/email-templates", templateHandler.List)
		admin.POST("/email-templates", templateHandler.Create)
		admin.GET("/email-templates/:id", templateHandler.Get)
		admin.PUT("/email-templates/:id", templateHandler.Update)
		admin.DELETE("/email-templates/:id", templateHandler.Delete)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
