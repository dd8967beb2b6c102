package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tokvera/tokvera-go/models"
	"github.com/tokvera/tokvera-go/repositories"
)

const eventColumns = `id, schema_version, event_type, provider, endpoint, status, model,
		       prompt_tokens, completion_tokens, total_tokens, latency_ms,
		       feature, tenant_id, customer_id, plan, environment, template_id,
		       prompt_hash, response_hash, error_type, error_message,
		       occurred_at, received_at`

// EventRepository implements the repositories.EventRepository interface
type EventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB, logger *zap.Logger) repositories.EventRepository {
	return &EventRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores one analytics event
func (r *EventRepository) Insert(ctx context.Context, ev *models.StoredEvent) error {
	query := `
		INSERT INTO analytics_events (
			id, schema_version, event_type, provider, endpoint, status, model,
			prompt_tokens, completion_tokens, total_tokens, latency_ms,
			feature, tenant_id, customer_id, plan, environment, template_id,
			prompt_hash, response_hash, error_type, error_message,
			occurred_at, received_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
		)
	`

	executor := executorFor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		ev.ID,
		ev.SchemaVersion,
		ev.EventType,
		ev.Provider,
		ev.Endpoint,
		ev.Status,
		ev.Model,
		ev.PromptTokens,
		ev.CompletionTokens,
		ev.TotalTokens,
		ev.LatencyMs,
		ev.Feature,
		ev.TenantID,
		ev.CustomerID,
		ev.Plan,
		ev.Environment,
		ev.TemplateID,
		ev.PromptHash,
		ev.ResponseHash,
		ev.ErrorType,
		ev.ErrorMessage,
		ev.OccurredAt,
		ev.ReceivedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	r.logger.Debug("event inserted",
		zap.String("id", ev.ID.String()),
		zap.String("tenant_id", ev.TenantID),
		zap.String("endpoint", ev.Endpoint))
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StoredEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM analytics_events
		WHERE id = $1
	`

	executor := executorFor(ctx, r.db)
	ev, err := scanEvent(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repositories.ErrEventNotFound, id)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return ev, nil
}

// ListByTenant retrieves a tenant's events, newest first
func (r *EventRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*models.StoredEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM analytics_events
		WHERE tenant_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`

	executor := executorFor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.StoredEvent, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// SummarizeByTenant aggregates token usage and latency per feature and model
func (r *EventRepository) SummarizeByTenant(ctx context.Context, tenantID string, since time.Time) ([]*models.UsageSummary, error) {
	query := `
		SELECT feature, model,
		       COUNT(*) AS events,
		       COUNT(*) FILTER (WHERE status = 'failure') AS failures,
		       COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens,
		       COALESCE(SUM(completion_tokens), 0) AS completion_tokens,
		       COALESCE(SUM(total_tokens), 0) AS total_tokens,
		       COALESCE(AVG(latency_ms), 0) AS avg_latency_ms
		FROM analytics_events
		WHERE tenant_id = $1 AND occurred_at >= $2
		GROUP BY feature, model
		ORDER BY total_tokens DESC, feature, model
	`

	executor := executorFor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize events: %w", err)
	}
	defer rows.Close()

	summaries := make([]*models.UsageSummary, 0)
	for rows.Next() {
		s := &models.UsageSummary{}
		if err := rows.Scan(
			&s.Feature,
			&s.Model,
			&s.Events,
			&s.Failures,
			&s.PromptTokens,
			&s.CompletionTokens,
			&s.TotalTokens,
			&s.AvgLatencyMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}

	return summaries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.StoredEvent, error) {
	ev := &models.StoredEvent{}
	err := row.Scan(
		&ev.ID,
		&ev.SchemaVersion,
		&ev.EventType,
		&ev.Provider,
		&ev.Endpoint,
		&ev.Status,
		&ev.Model,
		&ev.PromptTokens,
		&ev.CompletionTokens,
		&ev.TotalTokens,
		&ev.LatencyMs,
		&ev.Feature,
		&ev.TenantID,
		&ev.CustomerID,
		&ev.Plan,
		&ev.Environment,
		&ev.TemplateID,
		&ev.PromptHash,
		&ev.ResponseHash,
		&ev.ErrorType,
		&ev.ErrorMessage,
		&ev.OccurredAt,
		&ev.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}
	return ev, nil
}
