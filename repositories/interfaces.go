package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tokvera/tokvera-go/models"
)

// ErrEventNotFound is returned when no event matches the requested ID
var ErrEventNotFound = errors.New("event not found")

// TransactionManager groups writes so they succeed or fail together
type TransactionManager interface {
	// InTransaction commits when fn returns nil and rolls back otherwise.
	// Repository calls must use the context passed to fn.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventRepository handles analytics event storage
type EventRepository interface {
	// Insert stores one event
	Insert(ctx context.Context, event *models.StoredEvent) error

	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.StoredEvent, error)

	// ListByTenant retrieves a tenant's events, newest first, with pagination
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*models.StoredEvent, error)

	// SummarizeByTenant aggregates a tenant's events since the given time,
	// grouped by feature and model
	SummarizeByTenant(ctx context.Context, tenantID string, since time.Time) ([]*models.UsageSummary, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Events EventRepository
	Tx     TransactionManager
}
