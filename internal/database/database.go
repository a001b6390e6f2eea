package database

import (
	"context"
	"fmt"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log *logrus.Entry = config.GetLogger().WithField("module", "database")

// DB wraps gorm.DB and owns the embedded server when one was started
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
}

// Connect opens the configured PostgreSQL database, starting an embedded
// server first when the configuration asks for one.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	var embedded *embeddedpostgres.EmbeddedPostgres
	if isEmbedded(cfg) {
		var err error
		embedded, cfg, err = startEmbedded(cfg)
		if err != nil {
			return nil, err
		}
	} else {
		log.Infof("🌐 Mode: [External PostgreSQL] - Connecting to %s:%s", cfg.Host, cfg.Port)
	}

	gdb, err := gorm.Open(postgres.Open(dsn(cfg)), &gorm.Config{
		Logger:  logger.Default.LogMode(sqlLogLevel(cfg)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := gdb.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Database))); err != nil {
		log.Warnf("⚠️ Tracing plugin not registered: %v", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.WithField("database", cfg.Database).Info("✅ Database connection established")
	return &DB{DB: gdb, embedded: embedded}, nil
}

func isEmbedded(cfg config.DatabaseConfig) bool {
	return cfg.Host == "localhost" && cfg.Password == ""
}

func dsn(cfg config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslMode)
}

func sqlLogLevel(cfg config.DatabaseConfig) logger.LogLevel {
	if cfg.LogSQL {
		return logger.Info
	}
	return logger.Warn
}

// Ping checks that the database answers
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the pool and stops the embedded server if there is one
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	closeErr := sqlDB.Close()

	if db.embedded != nil {
		log.Info("🛑 Stopping Embedded PostgreSQL process...")
		if err := db.embedded.Stop(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}

// Migrate synchronizes the schema of every persisted entity
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserAuth{},
		&models.Mission{},
		&models.Visit{},
		&models.MissionAssignment{},
		&models.Report{},
	)
}
