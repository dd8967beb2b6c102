package models

import (
	"time"

	"github.com/google/uuid"
)

// StoredEvent is an analytics event as persisted by the collector
type StoredEvent struct {
	ID            uuid.UUID `json:"id" db:"id"`
	SchemaVersion string    `json:"schema_version" db:"schema_version"`
	EventType     string    `json:"event_type" db:"event_type"`
	Provider      string    `json:"provider" db:"provider"`
	Endpoint      string    `json:"endpoint" db:"endpoint"`
	Status        string    `json:"status" db:"status"`
	Model         string    `json:"model" db:"model"`

	// Metrics
	PromptTokens     int   `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens" db:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms" db:"latency_ms"`

	// Tags
	Feature     string  `json:"feature" db:"feature"`
	TenantID    string  `json:"tenant_id" db:"tenant_id"`
	CustomerID  *string `json:"customer_id,omitempty" db:"customer_id"`
	Plan        *string `json:"plan,omitempty" db:"plan"`
	Environment *string `json:"environment,omitempty" db:"environment"`
	TemplateID  *string `json:"template_id,omitempty" db:"template_id"`

	PromptHash   *string `json:"prompt_hash,omitempty" db:"prompt_hash"`
	ResponseHash *string `json:"response_hash,omitempty" db:"response_hash"`

	// Error handling
	ErrorType    *string `json:"error_type,omitempty" db:"error_type"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
}

// NewStoredEvent converts an inbound payload into a StoredEvent.
// A malformed timestamp falls back to the receive time.
func NewStoredEvent(p Payload) *StoredEvent {
	now := time.Now().UTC()
	occurred := p.OccurredAt()
	if occurred.IsZero() {
		occurred = now
	}

	ev := &StoredEvent{
		ID:               uuid.New(),
		SchemaVersion:    p.SchemaVersion,
		EventType:        p.EventType,
		Provider:         p.Provider,
		Endpoint:         p.Endpoint,
		Status:           p.Status,
		Model:            p.Model,
		PromptTokens:     p.Usage.PromptTokens,
		CompletionTokens: p.Usage.CompletionTokens,
		TotalTokens:      p.Usage.TotalTokens,
		LatencyMs:        p.LatencyMs,
		Feature:          p.Tags.Feature,
		TenantID:         p.Tags.TenantID,
		CustomerID:       cloneString(p.Tags.CustomerID),
		Plan:             cloneString(p.Tags.Plan),
		Environment:      cloneString(p.Tags.Environment),
		TemplateID:       cloneString(p.Tags.TemplateID),
		PromptHash:       optionalString(p.PromptHash),
		ResponseHash:     optionalString(p.ResponseHash),
		OccurredAt:       occurred,
		ReceivedAt:       now,
	}
	if p.Error != nil {
		ev.SetError(p.Error.Type, p.Error.Message)
	}
	return ev
}

// SetError sets the error information
func (e *StoredEvent) SetError(kind, message string) {
	e.ErrorType = &kind
	e.ErrorMessage = &message
}

// IsFailure reports whether the stored event records a failed call
func (e *StoredEvent) IsFailure() bool {
	return e.Status == string(EventStatusFailure)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
