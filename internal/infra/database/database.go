package database

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// Open connects to PostgreSQL, retrying with exponential backoff while the
// server is still starting up.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	b := retry.WithMaxRetries(connectAttempts, retry.NewExponential(connectBackoff))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			log.Warn("database connect failed, retrying", zap.Error(err))
			return retry.RetryableError(err)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			_ = sqlDB.Close()
			log.Warn("database ping failed, retrying", zap.Error(err))
			return retry.RetryableError(err)
		}

		db = conn
		return nil
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
