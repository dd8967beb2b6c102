package models

import (
	"time"
)

const (
	// SchemaVersion is the version of the wire payload emitted by this SDK
	SchemaVersion = "2026-02-16"

	EventTypeOpenAIRequest = "openai.request"
	ProviderOpenAI         = "openai"

	// UnknownModel is reported when neither request nor response named a model
	UnknownModel = "unknown"
)

// Tracked endpoint names
const (
	EndpointChatCompletions = "chat.completions.create"
	EndpointResponses       = "responses.create"
)

// EventStatus represents the outcome of a tracked call
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
)

// UsageMetrics holds token counts reported by the provider.
// TotalTokens is passed through as reported, it is never recomputed.
type UsageMetrics struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// EventError describes the failure of a wrapped call
type EventError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnalyticsEvent is the normalized record of one tracked call
type AnalyticsEvent struct {
	SchemaVersion string
	EventType     string
	Provider      string
	Endpoint      string
	Status        EventStatus
	Timestamp     time.Time
	LatencyMs     int64
	Model         string
	Usage         UsageMetrics
	Context       TrackingContext

	PromptHash   string
	ResponseHash string
	Error        *EventError
}

// NewAnalyticsEvent creates an event for the given endpoint with constant
// schema fields filled in. A blank model becomes UnknownModel.
func NewAnalyticsEvent(endpoint string, tc TrackingContext, status EventStatus, model string, latency time.Duration) *AnalyticsEvent {
	if model == "" {
		model = UnknownModel
	}
	if status != EventStatusSuccess {
		status = EventStatusFailure
	}
	return &AnalyticsEvent{
		SchemaVersion: SchemaVersion,
		EventType:     EventTypeOpenAIRequest,
		Provider:      ProviderOpenAI,
		Endpoint:      endpoint,
		Status:        status,
		Timestamp:     time.Now().UTC(),
		LatencyMs:     latency.Milliseconds(),
		Model:         model,
		Context:       tc,
	}
}

// WithUsage sets the token usage
func (e *AnalyticsEvent) WithUsage(usage UsageMetrics) *AnalyticsEvent {
	e.Usage = usage
	return e
}

// WithHashes sets the content digests; empty strings mean absent
func (e *AnalyticsEvent) WithHashes(promptHash, responseHash string) *AnalyticsEvent {
	e.PromptHash = promptHash
	e.ResponseHash = responseHash
	return e
}

// WithError sets error information
func (e *AnalyticsEvent) WithError(kind, message string) *AnalyticsEvent {
	e.Error = &EventError{Type: kind, Message: message}
	return e
}

// WithTimestamp overrides the event time
func (e *AnalyticsEvent) WithTimestamp(ts time.Time) *AnalyticsEvent {
	e.Timestamp = ts.UTC()
	return e
}

// ToPayload converts the event into its transmission form
func (e *AnalyticsEvent) ToPayload() Payload {
	p := Payload{
		SchemaVersion: e.SchemaVersion,
		EventType:     e.EventType,
		Provider:      e.Provider,
		Endpoint:      e.Endpoint,
		Status:        string(e.Status),
		Timestamp:     e.Timestamp.UTC().Format(time.RFC3339Nano),
		LatencyMs:     e.LatencyMs,
		Model:         e.Model,
		Usage:         e.Usage,
		Tags:          e.Context.Tags(),
		PromptHash:    e.PromptHash,
		ResponseHash:  e.ResponseHash,
	}
	if e.Error != nil {
		errCopy := *e.Error
		p.Error = &errCopy
	}
	return p
}
