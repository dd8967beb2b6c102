package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// txKey carries the open *sql.Tx through a context
type txKey struct{}

// TxManager runs a group of event writes inside one database transaction
type TxManager struct {
	db     *DB
	opts   *sql.TxOptions
	logger *zap.Logger
}

// NewTxManager creates a TxManager over db
func NewTxManager(db *DB, logger *zap.Logger) *TxManager {
	return &TxManager{
		db:     db,
		opts:   &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		logger: logger,
	}
}

// InTransaction commits when fn returns nil and rolls back otherwise, including
// when fn panics. Repositories called with the context passed to fn write
// through the transaction. A context that already carries a transaction joins it.
func (m *TxManager) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, m.opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			m.rollback(tx, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		m.rollback(tx, err)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	m.logger.Debug("transaction committed")
	return nil
}

func (m *TxManager) rollback(tx *sql.Tx, cause error) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		m.logger.Error("failed to rollback transaction",
			zap.Error(err),
			zap.NamedError("cause", cause),
		)
		return
	}
	m.logger.Debug("transaction rolled back", zap.NamedError("cause", cause))
}

func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// executor is the query surface shared by *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// executorFor returns the transaction carried by ctx, or the pool
func executorFor(ctx context.Context, db *DB) executor {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return db.DB
}
