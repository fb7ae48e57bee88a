package infrastructure

import (
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/config"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/logging"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDatabase opens the configured database using GORM and applies the
// connection pool settings.
func ConnectDatabase(cfg config.DatabaseConfig, logLevel string) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger: newGormLogger(logLevel),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// a single writer; also keeps in-memory databases on one connection
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

func newGormLogger(logLevel string) logger.Interface {
	level := logger.Warn
	if logging.IsDebug(logLevel) {
		level = logger.Info
	}
	return logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// MigrateAllSchemas performs all database migrations in the correct order
func MigrateAllSchemas(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}); err != nil {
		return fmt.Errorf("failed to migrate User table: %w", err)
	}

	if err := db.AutoMigrate(&model.CasbinRule{}); err != nil {
		return fmt.Errorf("failed to migrate CasbinRule table: %w", err)
	}

	if err := db.AutoMigrate(&model.UploadHistory{}); err != nil {
		return fmt.Errorf("failed to migrate UploadHistory table: %w", err)
	}

	if err := db.AutoMigrate(&model.Transaction{}); err != nil {
		return fmt.Errorf("failed to migrate Transaction table: %w", err)
	}

	if err := db.AutoMigrate(&model.CustomerSegment{}); err != nil {
		return fmt.Errorf("failed to migrate CustomerSegment table: %w", err)
	}

	if err := createAdditionalIndexes(db); err != nil {
		return fmt.Errorf("failed to create additional indexes: %w", err)
	}

	return nil
}

type tableIndex struct {
	model   interface{}
	name    string
	table   string
	columns string
}

var additionalIndexes = []tableIndex{
	// merge reads and per-upload deletes
	{&model.Transaction{}, "idx_transactions_user_customer", "transactions", "user_id, customer_id"},
	{&model.Transaction{}, "idx_transactions_user_upload", "transactions", "user_id, upload_id"},
	// segment filter and summary
	{&model.CustomerSegment{}, "idx_customer_segments_user_segment", "customer_segments", "user_id, segment_name"},
	{&model.UploadHistory{}, "idx_upload_history_user_uploaded", "upload_history", "user_id, uploaded_at"},
}

// createAdditionalIndexes creates composite indexes not expressed in the
// model tags. MySQL has no CREATE INDEX IF NOT EXISTS, so existence is
// checked through the migrator first.
func createAdditionalIndexes(db *gorm.DB) error {
	for _, idx := range additionalIndexes {
		if db.Migrator().HasIndex(idx.model, idx.name) {
			continue
		}
		if err := db.Exec(fmt.Sprintf("CREATE INDEX %s ON %s(%s)", idx.name, idx.table, idx.columns)).Error; err != nil {
			return err
		}
	}
	return nil
}
