package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"matatu_hub/internal/logger"
	"matatu_hub/internal/models"
)

var (
	// DB is the globally accessible database handle
	DB *gorm.DB
)

// DSN builds the libpq keyword/value connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode, c.DBTimezone,
	)
}

// Dialector picks the Postgres driver: pgx by default, lib/pq when
// DB_DRIVER=postgres.
func (c Config) Dialector() gorm.Dialector {
	if c.DBDriver == "postgres" {
		return postgres.New(postgres.Config{DriverName: "postgres", DSN: c.DSN()})
	}
	return postgres.Open(c.DSN())
}

// InitDB opens the database, migrates every model and assigns the global DB.
func InitDB(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(cfg.Dialector(), &gorm.Config{
		Logger: gormlogger.New(logger.GormLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migration failed: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"host":   cfg.DBHost,
		"db":     cfg.DBName,
		"driver": cfg.DBDriver,
	}).Info("database ready")

	DB = db
	return db, nil
}

// GetDB returns the initialized DB handle
func GetDB() *gorm.DB {
	return DB
}

// Ping checks the connection within a short deadline.
func Ping(ctx context.Context, sqlDB *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
