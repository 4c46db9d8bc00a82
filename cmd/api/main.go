package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ebulletin-go-api/internal/config"
	"github.com/noah-isme/ebulletin-go-api/internal/database"
	"github.com/noah-isme/ebulletin-go-api/internal/handler"
	"github.com/noah-isme/ebulletin-go-api/internal/jobs"
	"github.com/noah-isme/ebulletin-go-api/internal/middleware"
	"github.com/noah-isme/ebulletin-go-api/internal/observability"
	"github.com/noah-isme/ebulletin-go-api/internal/repository"
	"github.com/noah-isme/ebulletin-go-api/internal/router"
	"github.com/noah-isme/ebulletin-go-api/internal/service"
	"github.com/noah-isme/ebulletin-go-api/pkg/archive"
	cloud "github.com/noah-isme/ebulletin-go-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.RegisterMetrics()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured: announcement cache disabled, token revocations kept in memory")
	}

	var publisher service.AuditPublisher
	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		publisher = service.NewNATSAuditPublisher(natsConn, cfg.Audit.Subject)
	}

	var archiver service.AuditArchiver
	if cfg.Audit.ArchiveBucket != "" {
		s3Archiver, err := archive.NewS3Archiver(context.Background(), archive.Config{
			Bucket:    cfg.Audit.ArchiveBucket,
			Region:    cfg.Audit.ArchiveRegion,
			Endpoint:  cfg.Audit.ArchiveEndpoint,
			AccessKey: cfg.Audit.ArchiveAccess,
			SecretKey: cfg.Audit.ArchiveSecret,
			PathStyle: cfg.Audit.ArchivePathHost,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure audit archive")
		}
		archiver = s3Archiver
	}

	storage := fileStorage(cfg, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	var revoker service.TokenRevoker
	if redisClient != nil {
		revoker = service.NewRedisTokenRevoker(redisClient)
	} else {
		revoker = service.NewMemoryTokenRevoker()
	}

	auditRepo := repository.NewAuditLogRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	welcomeCardRepo := repository.NewWelcomeCardRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	auditService := service.NewAuditLogService(auditRepo, validate, publisher, archiver, logger)
	auditQueue := service.NewAuditQueue(auditService, cfg.Audit.QueueSize, cfg.Audit.Workers, logger)
	authService := service.NewAuthService(accountRepo, revoker, validate, cfg.JWTSecret, cfg.JWTTTL, logger)
	announcementService := service.NewAnnouncementService(announcementRepo, validate, redisClient, cfg.AnnouncementCacheTTL, logger)
	welcomeCardService := service.NewWelcomeCardService(welcomeCardRepo, validate, logger)
	uploadService := service.NewUploadService(storage, uploadRepo, cfg.UploadMaxSizeMB, logger)

	bootstrap := cfg.BootstrapAdmin
	if err := authService.EnsureSuperAdmin(context.Background(), bootstrap.Email, bootstrap.Password, bootstrap.FirstName, bootstrap.LastName); err != nil {
		logger.Fatal().Err(err).Msg("failed to bootstrap super admin")
	}

	exposeDetails := !cfg.IsProduction()
	auditor := middleware.NewAuditor(auditQueue, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		Auditor: auditor,
		JWT: middleware.JWTConfig{
			Secret:  cfg.JWTSecret,
			Revoker: revoker,
			Logger:  logger,
		},
		LoginLimiter:        middleware.RateLimit("login", cfg.LoginRateLimit, cfg.LoginRateWindow),
		AuthHandler:         handler.NewAuthHandler(authService, logger, exposeDetails),
		AuditLogHandler:     handler.NewAuditLogHandler(auditService, validate, logger, exposeDetails),
		AnnouncementHandler: handler.NewAnnouncementHandler(announcementService, logger, exposeDetails),
		WelcomeCardHandler:  handler.NewWelcomeCardHandler(welcomeCardService, logger, exposeDetails),
		UploadHandler:       handler.NewUploadHandler(uploadService, logger),
	})

	var retention *jobs.RetentionJob
	if cfg.Audit.RetentionCron != "" {
		retention, err = jobs.NewRetentionJob(auditService, cfg.Audit.RetentionCron, cfg.Audit.RetentionDays, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to schedule audit retention")
		}
		retention.Start()
	}

	auditQueue.Record(service.SystemEntry("STARTUP", "", map[string]interface{}{
		"app":         cfg.AppName,
		"environment": cfg.AppEnv,
	}))

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, auditQueue, retention, natsConn, logger)
}

func fileStorage(cfg config.Config, logger zerolog.Logger) service.FileStorage {
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if !cloudCfg.Configured() {
		logger.Warn().Msg("cloudinary not configured: uploads kept in memory")
		return cloud.NewMemoryStorage(logger)
	}

	storage, err := cloud.New(cloudCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	}
	return storage
}

// waitForShutdown stops intake first, then drains pending audit entries before
// closing the connections they depend on.
func waitForShutdown(app *fiber.App, queue *service.AuditQueue, retention *jobs.RetentionJob, natsConn *nats.Conn, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if retention != nil {
		if err := retention.Stop(ctx); err != nil {
			logger.Error().Err(err).Msg("audit retention did not stop in time")
		}
	}
	if err := queue.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Int("pending", queue.Len()).Msg("audit queue drain incomplete")
	}
	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			logger.Error().Err(err).Msg("nats drain failed")
		}
	}

	logger.Info().Msg("server stopped")
}
