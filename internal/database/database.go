package database

import (
	"fmt"
	"time"

	"github.com/ksred/tradeplan/internal/database/migrations"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Options tunes how the engine database is opened.
type Options struct {
	// BusyTimeout is handed to SQLite; a lock held longer than this by the
	// engine surfaces as an error instead of being retried.
	BusyTimeout time.Duration
	// Debug logs every statement through zerolog at debug level.
	Debug bool
}

// Open opens the engine database at path and creates any engine tables that
// are missing. Existing tables are never altered.
func Open(path string, opts Options) (*gorm.DB, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_foreign_keys=off", path, opts.BusyTimeout.Milliseconds())

	level := gormlogger.Warn
	if opts.Debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
			NoLowerCase:   true,
		},
		Logger: gormlogger.New(zerologWriter{}, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// One connection: every operation shares the same transaction boundary
	// and SQLite's file lock is the only mutual exclusion.
	sqlDB.SetMaxOpenConns(1)

	if err := migrations.CreateEngineTables(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := migrations.CreateDailyLog(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close releases the underlying connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...interface{}) {
	zlog.Debug().Str("component", "gorm").Msgf(format, args...)
}
