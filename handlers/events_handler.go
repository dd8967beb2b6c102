package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/tokvera/tokvera-go/config"
	"github.com/tokvera/tokvera-go/internal/observability"
	"github.com/tokvera/tokvera-go/middleware"
	"github.com/tokvera/tokvera-go/models"
	"github.com/tokvera/tokvera-go/repositories"
	"github.com/tokvera/tokvera-go/utils"
)

// defaultSummaryWindow is used when GET /v1/events/summary has no since parameter
const defaultSummaryWindow = 24 * time.Hour

// IngestResponse acknowledges stored events
type IngestResponse struct {
	IDs []uuid.UUID `json:"ids"`
}

// BatchRequest is the body of POST /v1/events/batch
type BatchRequest struct {
	Events []models.Payload `json:"events" validate:"required,min=1,max=500,dive"`
}

// ListEventsResponse is a page of stored events
type ListEventsResponse struct {
	Events []*models.StoredEvent `json:"events"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// SummaryResponse aggregates a tenant's usage
type SummaryResponse struct {
	TenantID string                 `json:"tenant_id"`
	Since    string                 `json:"since"`
	Rows     []*models.UsageSummary `json:"rows"`
}

// EventsHandler handles analytics event ingestion and queries
type EventsHandler struct {
	events  repositories.EventRepository
	tx      repositories.TransactionManager
	metrics observability.Metrics
	cfg     config.IngestConfig
	log     observability.Logger
}

// NewEventsHandler creates a new EventsHandler
func NewEventsHandler(
	events repositories.EventRepository,
	tx repositories.TransactionManager,
	metrics observability.Metrics,
	cfg config.IngestConfig,
	logger *zap.Logger,
) *EventsHandler {
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	return &EventsHandler{
		events:  events,
		tx:      tx,
		metrics: metrics,
		cfg:     cfg,
		log:     observability.NewContextLogger(logger),
	}
}

// HandleIngest handles POST /v1/events
func (h *EventsHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload models.Payload
	if !h.decode(w, r, &payload) {
		return
	}

	ev := models.NewStoredEvent(payload)
	if err := h.events.Insert(ctx, ev); err != nil {
		h.log.Error(ctx, "failed to store event",
			zap.String("tenant_id", payload.Tags.TenantID),
			zap.Error(err))
		h.metrics.RecordRejected(ctx, "storage")
		_ = utils.WriteInternalServerError(w, "Failed to store event")
		return
	}

	h.record(ctx, payload)

	h.log.Debug(ctx, "event accepted",
		zap.String("key_id", middleware.GetKeyIDFromContext(ctx)),
		zap.String("event_id", ev.ID.String()),
		zap.String("endpoint", payload.Endpoint))

	_ = utils.WriteAccepted(w, IngestResponse{IDs: []uuid.UUID{ev.ID}})
}

// HandleIngestBatch handles POST /v1/events/batch. The batch is stored
// atomically: either every event is kept or none is.
func (h *EventsHandler) HandleIngestBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var batch BatchRequest
	if !h.decode(w, r, &batch) {
		return
	}

	stored := make([]*models.StoredEvent, len(batch.Events))
	for i, p := range batch.Events {
		stored[i] = models.NewStoredEvent(p)
	}

	err := h.tx.InTransaction(ctx, func(txCtx context.Context) error {
		for _, ev := range stored {
			if err := h.events.Insert(txCtx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.log.Error(ctx, "failed to store event batch",
			zap.Int("size", len(stored)),
			zap.Error(err))
		h.metrics.RecordRejected(ctx, "storage")
		_ = utils.WriteInternalServerError(w, "Failed to store events")
		return
	}

	ids := make([]uuid.UUID, len(stored))
	for i, ev := range stored {
		ids[i] = ev.ID
		h.record(ctx, batch.Events[i])
	}

	h.log.Debug(ctx, "event batch accepted", zap.Int("size", len(ids)))

	_ = utils.WriteAccepted(w, IngestResponse{IDs: ids})
}

// HandleList handles GET /v1/events?tenant_id=&limit=&offset=
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	tenantID := strings.TrimSpace(query.Get("tenant_id"))
	if tenantID == "" {
		_ = utils.WriteBadRequest(w, "tenant_id is required", nil)
		return
	}

	limit, err := queryInt(query.Get("limit"), h.cfg.DefaultListLimit)
	if err != nil || limit < 1 {
		_ = utils.WriteBadRequest(w, "Invalid limit", nil)
		return
	}
	if limit > h.cfg.MaxListLimit {
		limit = h.cfg.MaxListLimit
	}

	offset, err := queryInt(query.Get("offset"), 0)
	if err != nil || offset < 0 {
		_ = utils.WriteBadRequest(w, "Invalid offset", nil)
		return
	}

	events, err := h.events.ListByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		h.log.Error(ctx, "failed to list events",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve events")
		return
	}

	_ = utils.WriteOK(w, ListEventsResponse{
		Events: events,
		Limit:  limit,
		Offset: offset,
	})
}

// HandleGet handles GET /v1/events/{id}
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid event ID format", nil)
		return
	}

	ev, err := h.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			_ = utils.WriteNotFound(w, "Event not found")
			return
		}
		h.log.Error(ctx, "failed to get event",
			zap.String("event_id", id.String()),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve event")
		return
	}

	_ = utils.WriteOK(w, ev)
}

// HandleSummary handles GET /v1/events/summary?tenant_id=&since=
func (h *EventsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	tenantID := strings.TrimSpace(query.Get("tenant_id"))
	if tenantID == "" {
		_ = utils.WriteBadRequest(w, "tenant_id is required", nil)
		return
	}

	since := time.Now().UTC().Add(-defaultSummaryWindow)
	if raw := query.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "since must be an RFC 3339 timestamp", nil)
			return
		}
		since = parsed.UTC()
	}

	rows, err := h.events.SummarizeByTenant(ctx, tenantID, since)
	if err != nil {
		h.log.Error(ctx, "failed to summarize events",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to summarize events")
		return
	}

	_ = utils.WriteOK(w, SummaryResponse{
		TenantID: tenantID,
		Since:    since.Format(time.RFC3339),
		Rows:     rows,
	})
}

// decode reads a size-limited JSON body into dst and validates it. It
// writes the error response itself and reports whether to continue.
func (h *EventsHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.metrics.RecordRejected(ctx, "too_large")
			_ = utils.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return false
		}
		h.log.Warn(ctx, "invalid event body", zap.Error(err))
		h.metrics.RecordRejected(ctx, "malformed")
		_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
		return false
	}

	if err := utils.ValidateStruct(dst); err != nil {
		h.log.Warn(ctx, "event validation failed", zap.Error(err))
		h.metrics.RecordRejected(ctx, "invalid_payload")
		_ = utils.WriteBadRequest(w, "Validation failed", utils.ValidationDetails(err))
		return false
	}

	return true
}

func (h *EventsHandler) record(ctx context.Context, p models.Payload) {
	labels := observability.EventLabels{
		TenantID: p.Tags.TenantID,
		Feature:  p.Tags.Feature,
		Model:    p.Model,
		Endpoint: p.Endpoint,
		Status:   p.Status,
	}
	h.metrics.RecordEvent(ctx, labels)
	h.metrics.RecordLatency(ctx, p.LatencyMs, labels)
	h.metrics.RecordTokens(ctx, p.Usage.PromptTokens, p.Usage.CompletionTokens, labels)
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return cast.ToIntE(raw)
}
