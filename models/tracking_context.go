package models

// TrackingContext is the tag and credential set captured when a client is wrapped.
// It is copied into the tracker by value and never mutated afterwards.
type TrackingContext struct {
	APIKey      string  `json:"-" validate:"required"`
	Feature     string  `json:"feature" validate:"required"`
	TenantID    string  `json:"tenant_id" validate:"required"`
	CustomerID  *string `json:"customer_id"`
	Plan        *string `json:"plan"`
	Environment *string `json:"environment"`
	TemplateID  *string `json:"template_id"`

	// CaptureContent enables prompt/response hashing
	CaptureContent bool `json:"-"`
}

// NewTrackingContext creates a TrackingContext with the required fields set
func NewTrackingContext(apiKey, feature, tenantID string) TrackingContext {
	return TrackingContext{
		APIKey:   apiKey,
		Feature:  feature,
		TenantID: tenantID,
	}
}

// Tags returns the wire representation of the context's tag fields
func (c TrackingContext) Tags() PayloadTags {
	return PayloadTags{
		Feature:     c.Feature,
		TenantID:    c.TenantID,
		CustomerID:  cloneString(c.CustomerID),
		Plan:        cloneString(c.Plan),
		Environment: cloneString(c.Environment),
		TemplateID:  cloneString(c.TemplateID),
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
