package postgres

import (
	"go.uber.org/zap"

	"github.com/tokvera/tokvera-go/config"
	"github.com/tokvera/tokvera-go/repositories"
)

// Store bundles the connection pool with the repositories built on it
type Store struct {
	DB     *DB
	Events repositories.EventRepository
	Tx     *TxManager
}

// Open connects to PostgreSQL and builds a Store
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	db, err := NewDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewStore(db, logger), nil
}

// NewStore builds a Store around an existing pool
func NewStore(db *DB, logger *zap.Logger) *Store {
	return &Store{
		DB:     db,
		Events: NewEventRepository(db, logger),
		Tx:     NewTxManager(db, logger),
	}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Events: s.Events,
		Tx:     s.Tx,
	}
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.DB.Close()
}
