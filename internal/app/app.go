package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/auth"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/config"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/handler"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/infrastructure"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/logging"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("app")

// App holds the database and the services shared by the HTTP server and
// the command line tools.
type App struct {
	Config       *config.Config
	DB           *gorm.DB
	Users        service.UserService
	Segmentation service.SegmentationService

	notifier service.Notifier
}

// New connects to the database, migrates it and builds the services.
func New(cfg *config.Config) (*App, error) {
	db, err := infrastructure.ConnectDatabase(cfg.Database, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	if err := infrastructure.MigrateAllSchemas(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to migrate database schemas: %w", err)
	}

	notifier, err := NewNotifier(cfg.Broker)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	segmentation := service.NewSegmentationService(
		service.NewSegmentStore(db),
		notifier,
		nil,
		service.SegmentationOptions{DedupeReuploads: cfg.Segmentation.DedupeReuploads},
	)

	return &App{
		Config:       cfg,
		DB:           db,
		Users:        service.NewUserService(db),
		Segmentation: segmentation,
		notifier:     notifier,
	}, nil
}

// NewNotifier returns the AMQP publisher when a broker URL is configured,
// otherwise a notifier that drops every event.
func NewNotifier(cfg config.BrokerConfig) (service.Notifier, error) {
	if cfg.URL == "" {
		log.Info("No broker configured, segmentation events are disabled")
		return service.NewNoopNotifier(), nil
	}
	notifier, err := service.NewAMQPNotifier(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	log.Infof("Publishing segmentation events to exchange %s", cfg.Exchange)
	return notifier, nil
}

// Router builds the authentication and authorization services, seeds the
// demo accounts when enabled and returns the HTTP router.
func (a *App) Router(ctx context.Context) (*gin.Engine, error) {
	tokens := auth.NewService(a.Config.Auth.JWTSecret, a.Config.Auth.TokenTTL)
	authService := service.NewAuthenticationService(a.Users, tokens)

	authzService, err := service.NewAuthorizationService(ctx, service.NewCasbinDatabasePolicyStore(a.DB))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authorization service: %w", err)
	}

	if a.Config.Seed.DemoUsers {
		if err := infrastructure.NewSeedDataManager(a.Users).SeedAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to setup seed data: %w", err)
		}
	}

	sqlDB, err := a.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	return handler.NewRouter(handler.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Upload:  handler.NewUploadHandler(a.Segmentation, a.Config.Server.MaxUploadBytes()),
		History: handler.NewHistoryHandler(a.Segmentation),
		Segment: handler.NewSegmentHandler(a.Segmentation),
		Debug:   handler.NewDebugHandler(authzService),
		Health:  handler.NewHealthHandler(sqlDB),
		Tokens:  tokens,
		Authz:   authzService,
	}), nil
}

// Close releases the broker connection and the database pool.
func (a *App) Close() error {
	var errs []error
	if err := a.notifier.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close notifier: %w", err))
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
