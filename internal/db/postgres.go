// Package db wires up the Postgres connection pool and schema migration
// for the domain models.
package db

import (
	stdlog "log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/logger"
)

// Service wraps a *gorm.DB with the connection pool sized for concurrent
// job processing.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to Postgres using dsn and sizes the connection pool to at
// least concurrency*2 connections, so claim transactions never starve
// handler-issued queries running inside the same pool.
func Open(dsn string, concurrency int, baseLog *logger.Logger) (*Service, error) {
	serviceLog := baseLog.With("component", "db.Service")

	gormLog := gormLogger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	serviceLog.Info("connecting to postgres")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormLog,
	})
	if err != nil {
		serviceLog.Error("failed to connect to postgres", "error", err)
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	poolSize := concurrency * 2
	if poolSize < 4 {
		poolSize = 4
	}
	sqlDB.SetMaxOpenConns(poolSize)
	sqlDB.SetMaxIdleConns(poolSize)

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("failed to enable uuid-ossp extension", "error", err)
		return nil, err
	}

	return &Service{db: gdb, log: serviceLog}, nil
}

// AutoMigrate creates or updates the tables backing the job queue domain.
func (s *Service) AutoMigrate() error {
	s.log.Info("auto migrating tables")
	return s.db.AutoMigrate(
		&domain.Project{},
		&domain.Job{},
		&domain.Transcription{},
		&domain.Short{},
	)
}

// DB returns the underlying *gorm.DB.
func (s *Service) DB() *gorm.DB { return s.db }

// Close releases the underlying connection pool.
func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
