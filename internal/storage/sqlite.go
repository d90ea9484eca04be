package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/smartdevs17/dao-reconciler/pkg/utils"
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Store using SQLite
type SQLiteStorage struct {
	*sqlStore
	config *StorageConfig
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config *StorageConfig) *SQLiteStorage {
	return &SQLiteStorage{
		sqlStore: &sqlStore{
			dialect:    sqliteDialect,
			logger:     utils.GetLogger(),
			migrations: GetSQLiteMigrations(),
		},
		config: config,
	}
}

// Connect establishes database connection
func (s *SQLiteStorage) Connect() error {
	path := s.config.ConnectionString
	memory := path == ":memory:" || strings.HasPrefix(path, "file::memory:")

	if !memory {
		dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return utils.WrapError(utils.ErrCodeDatabase, "Failed to create database directory", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to open SQLite database", err)
	}

	maxConns := s.config.MaxConnections
	if maxConns <= 0 || memory {
		// each connection to :memory: is a separate database
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to enable foreign keys", err)
	}

	// Writers wait instead of failing with SQLITE_BUSY
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to set busy timeout", err)
	}

	s.db = db
	s.logger.WithField("path", path).Info("SQLite database connected")

	return nil
}
