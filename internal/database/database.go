// Package database provides the read-only legacy MySQL source for legacymigrate.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/dbsmedya/legacymigrate/internal/config"
)

// Manager owns the connection pool to the legacy server.
type Manager struct {
	DB     *sql.DB
	config *config.DatabaseConfig

	maxRetries int
	backoff    time.Duration
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.DatabaseConfig) *Manager {
	return &Manager{
		config:     cfg,
		maxRetries: 3,
		backoff:    time.Second,
	}
}

// Connect opens the legacy pool. Failure is reported as ErrConnectionFailed.
func (m *Manager) Connect(ctx context.Context) error {
	if m.config == nil {
		return fmt.Errorf("%w: no source configuration", ErrConnectionFailed)
	}
	db, err := m.connectWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s@%s:%d: %v", ErrConnectionFailed, m.config.User, m.config.Host, m.config.Port, err)
	}
	m.DB = db
	return nil
}

// Source returns a query helper bound to the open pool.
func (m *Manager) Source() *Source {
	return NewSource(m.DB)
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context) (*sql.DB, error) {
	var db *sql.DB
	var err error

	backoff := m.backoff

	for i := 0; i < m.maxRetries; i++ {
		db, err = m.connect()
		if err == nil {
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if i < m.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", m.maxRetries, err)
}

func (m *Manager) connect() (*sql.DB, error) {
	db, err := sql.Open("mysql", BuildDSN(m.config))
	if err != nil {
		return nil, err
	}

	if m.config.MaxConnections > 0 {
		db.SetMaxOpenConns(m.config.MaxConnections)
	}
	if m.config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(m.config.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
// Legacy schemas hold mixed-charset text, so utf8mb4 is requested explicitly.
func BuildDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	params := "?parseTime=true&charset=utf8mb4"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// Close closes the pool.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	if err := m.DB.Close(); err != nil {
		return fmt.Errorf("source close: %w", err)
	}
	return nil
}

// Ping verifies the pool is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.DB == nil {
		return fmt.Errorf("%w: not connected", ErrConnectionFailed)
	}
	if err := m.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: source ping failed: %v", ErrConnectionFailed, err)
	}
	return nil
}
