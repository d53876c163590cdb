// Package app assembles the storage, cache and service graph shared by the
// HTTP server and the admin CLI.
package app

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/academia-api/internal/repository"
	"github.com/noah-isme/academia-api/internal/service"
	"github.com/noah-isme/academia-api/internal/validation"
	"github.com/noah-isme/academia-api/pkg/cache"
	"github.com/noah-isme/academia-api/pkg/config"
	"github.com/noah-isme/academia-api/pkg/database"
	"github.com/noah-isme/academia-api/pkg/export"
	"github.com/noah-isme/academia-api/pkg/storage"
)

// Container holds the wired services.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB

	Users     *repository.UserRepository
	CacheRepo *repository.CacheRepository

	Metrics    *service.MetricsService
	Cache      *service.CacheService
	Auth       *service.AuthService
	Modalities *service.ModalityService
	Students   *service.StudentService
	Payments   *service.PaymentService
	Exports    *service.ExportService
}

// New connects to PostgreSQL and, when caching is enabled, Redis, then builds
// every service.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.NewRedis(cfg.Redis, cfg.Cache)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	photos, err := storage.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.PhotoMaxBytes)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	loc := cfg.Locale.Location()
	validate := validation.New()

	users := repository.NewUserRepository(db)
	modalityRepo := repository.NewModalityRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logger)

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logger, cfg.Cache.Enabled && redisClient != nil)

	payments := service.NewPaymentService(paymentRepo, cacheSvc, metrics, validate, logger, loc)

	return &Container{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Users:     users,
		CacheRepo: cacheRepo,
		Metrics:   metrics,
		Cache:     cacheSvc,
		Auth: service.NewAuthService(users, validate, logger, service.AuthConfig{
			AccessTokenSecret:  cfg.JWT.Secret,
			AccessTokenExpiry:  cfg.JWT.Expiration,
			RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
			Issuer:             cfg.JWT.Issuer,
		}),
		Modalities: service.NewModalityService(modalityRepo, metrics, validate, logger),
		Students: service.NewStudentService(studentRepo, modalityRepo, photos, cacheSvc, metrics, validate, logger, service.StudentServiceConfig{
			Location:     loc,
			DefaultCity:  cfg.Locale.DefaultCity,
			DefaultState: cfg.Locale.DefaultState,
		}),
		Payments: payments,
		Exports:  service.NewExportService(payments, logger, export.NewCSVExporter(), export.NewPDFExporter()),
	}, nil
}

// Close releases the database and cache connections.
func (c *Container) Close() {
	if err := c.CacheRepo.Close(); err != nil {
		c.Logger.Warn("close redis", zap.Error(err))
	}
	if err := c.DB.Close(); err != nil {
		c.Logger.Warn("close postgres", zap.Error(err))
	}
}
