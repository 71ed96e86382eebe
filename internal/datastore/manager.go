// Package datastore owns the relational persistence layer: GORM entities,
// repository interfaces, and the database manager that opens and migrates
// the configured backend.
package datastore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/conf"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// Manager owns the database connection lifecycle.
type Manager struct {
	db *gorm.DB
}

// Open connects to the configured database backend. The caller must call
// Initialize before using repositories and Close on shutdown.
func Open(settings conf.Database) (*Manager, error) {
	var (
		db  *gorm.DB
		err error
	)

	gormConfig := &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	}

	switch settings.Type {
	case conf.DatabaseSQLite, "":
		path := settings.Path
		if path == "" {
			path = "fleetpredict.db"
		}
		dsn := fmt.Sprintf("%s?_foreign_keys=ON", filepath.Clean(path))
		db, err = gorm.Open(sqlite.Open(dsn), gormConfig)
	case conf.DatabaseMySQL:
		if settings.DSN == "" {
			return nil, errors.Newf("mysql database requires a DSN").
				Component("datastore").
				Category(errors.CategoryConfig).
				Build()
		}
		db, err = gorm.Open(mysql.Open(settings.DSN), gormConfig)
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfig).
			Build()
	}
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Manager{db: db}, nil
}

// Initialize migrates the schema for all entities.
func (m *Manager) Initialize() error {
	err := m.db.AutoMigrate(
		&entities.VehicleType{},
		&entities.Vehicle{},
		&entities.TelemetryReading{},
		&entities.VehicleAlert{},
		&entities.MaintenanceTask{},
		&entities.Playbook{},
		&entities.Runbook{},
	)
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// DB exposes the underlying GORM handle for repository construction.
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Ping verifies database connectivity.
func (m *Manager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying connection: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database connection.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying connection: %w", err)
	}
	return sqlDB.Close()
}
