// Package store persists flattened order line items to Postgres.
package store

import (
	"fmt"

	"github.com/SherbornYachtClub/orderbot-sync/pkg/logging"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store owns the database connection for the duration of one sync run.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to the database. A connection failure here aborts the
// whole persistence phase; no rows are written.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}

	// The run is single-threaded and the connection is exclusively
	// owned by the persister, so one is all we need.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}

	return New(db), nil
}

// New wraps an existing gorm handle. Used by Open and by tests that
// inject a mocked connection.
func New(db *gorm.DB) *Store {
	return &Store{
		db:     db,
		logger: logging.NewLogger("store"),
	}
}

// Close releases the database connection. Callers defer this right
// after Open so the connection is released on every exit path.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks that the connection is alive.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
