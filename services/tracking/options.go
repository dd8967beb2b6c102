package tracking

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option configures a Tracker
type Option func(*settings)

type settings struct {
	customerID     *string
	plan           *string
	environment    *string
	templateID     *string
	captureContent bool

	emitter    Emitter
	logger     *zap.Logger
	httpClient *http.Client
	now        func() time.Time
}

// WithCustomerID tags events with the end customer
func WithCustomerID(id string) Option {
	return func(s *settings) { s.customerID = &id }
}

// WithPlan tags events with the customer's billing plan
func WithPlan(plan string) Option {
	return func(s *settings) { s.plan = &plan }
}

// WithEnvironment tags events with the deployment environment
func WithEnvironment(env string) Option {
	return func(s *settings) { s.environment = &env }
}

// WithTemplateID tags events with the prompt template identifier
func WithTemplateID(id string) Option {
	return func(s *settings) { s.templateID = &id }
}

// WithCaptureContent enables prompt and response hashing
func WithCaptureContent(enabled bool) Option {
	return func(s *settings) { s.captureContent = enabled }
}

// WithEmitter replaces the default collector delivery channel
func WithEmitter(e Emitter) Option {
	return func(s *settings) { s.emitter = e }
}

// WithLogger sets the SDK logger. The default is silent unless TOKVERA_LOG_LEVEL is set.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithHTTPClient sets the client used by the default delivery channel
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}
