package models

import "time"

// Payload is the JSON object posted to the collector.
// The validate tags are enforced by the collector on receipt.
type Payload struct {
	SchemaVersion string       `json:"schema_version" validate:"required"`
	EventType     string       `json:"event_type" validate:"required"`
	Provider      string       `json:"provider" validate:"required"`
	Endpoint      string       `json:"endpoint" validate:"required"`
	Status        string       `json:"status" validate:"required,oneof=success failure"`
	Timestamp     string       `json:"timestamp" validate:"required,rfc3339"`
	LatencyMs     int64        `json:"latency_ms" validate:"gte=0"`
	Model         string       `json:"model" validate:"required"`
	Usage         UsageMetrics `json:"usage"`
	Tags          PayloadTags  `json:"tags"`
	PromptHash    string       `json:"prompt_hash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	ResponseHash  string       `json:"response_hash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	Error         *EventError  `json:"error,omitempty" validate:"required_if=Status failure,excluded_if=Status success"`
}

// PayloadTags carries the TrackingContext labels. Unset optional tags
// serialize as null.
type PayloadTags struct {
	Feature     string  `json:"feature" validate:"required"`
	TenantID    string  `json:"tenant_id" validate:"required"`
	CustomerID  *string `json:"customer_id"`
	Plan        *string `json:"plan"`
	Environment *string `json:"environment"`
	TemplateID  *string `json:"template_id"`
}

// IsFailure reports whether the payload describes a failed call
func (p *Payload) IsFailure() bool {
	return p.Status == string(EventStatusFailure)
}

// OccurredAt parses the payload timestamp, returning the zero time if it is malformed
func (p *Payload) OccurredAt() time.Time {
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
