package storage

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// PostgreSQLStorage implements Store using PostgreSQL
type PostgreSQLStorage struct {
	*sqlStore
	config *StorageConfig
}

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
func NewPostgreSQLStorage(config *StorageConfig) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		sqlStore: &sqlStore{
			dialect:    postgresDialect,
			logger:     utils.GetLogger(),
			migrations: GetPostgresMigrations(),
		},
		config: config,
	}
}

// Connect establishes database connection
func (p *PostgreSQLStorage) Connect() error {
	connector, err := pq.NewConnector(p.config.ConnectionString)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Invalid PostgreSQL connection string", err)
	}
	db := sql.OpenDB(connector)

	// Configure connection pool
	if p.config.MaxConnections > 0 {
		db.SetMaxOpenConns(p.config.MaxConnections)
		db.SetMaxIdleConns(p.config.MaxConnections / 2)
	}
	db.SetConnMaxLifetime(p.config.MaxIdleTime)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", err)
	}

	p.db = db
	p.logger.WithField("database", "postgres").Info("PostgreSQL database connected")

	return nil
}
