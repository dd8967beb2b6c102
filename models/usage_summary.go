package models

// UsageSummary aggregates a tenant's events for one feature and model
type UsageSummary struct {
	Feature          string  `json:"feature" db:"feature"`
	Model            string  `json:"model" db:"model"`
	Events           int64   `json:"events" db:"events"`
	Failures         int64   `json:"failures" db:"failures"`
	PromptTokens     int64   `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens" db:"total_tokens"`
	AvgLatencyMs     float64 `json:"avg_latency_ms" db:"avg_latency_ms"`
}

// FailureRate returns the share of failed calls, 0 when there are no events
func (s *UsageSummary) FailureRate() float64 {
	if s.Events == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Events)
}
