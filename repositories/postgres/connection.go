package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tokvera/tokvera-go/config"
)

const (
	connectAttempts = 3
	connectBackoff  = time.Second
	pingTimeout     = 5 * time.Second
	healthTimeout   = 2 * time.Second
)

// DB is the collector's PostgreSQL pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB opens a pool through the lib/pq connector and waits for the server to
// answer. The collector often starts alongside its database, so the first
// ping is retried a few times before giving up.
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	connector, err := pq.NewConnector(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pool := sql.OpenDB(connector)
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := pingWithRetry(pool, logger); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established", zap.String("connection", cfg.LogString()))
	return Wrap(pool, logger), nil
}

func pingWithRetry(pool *sql.DB, logger *zap.Logger) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = pool.PingContext(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < connectAttempts {
			logger.Warn("database not reachable yet",
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", connectBackoff),
				zap.Error(err))
			time.Sleep(connectBackoff)
		}
	}
	return err
}

// Wrap adopts an already open pool
func Wrap(pool *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: pool, logger: logger}
}

func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck pings the server and runs a trivial query
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}
	return nil
}

// InitSchema creates the analytics_events table and its indexes if missing
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	db.logger.Info("database schema ready")
	return nil
}
