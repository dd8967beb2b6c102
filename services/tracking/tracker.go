// Package tracking times provider calls and emits one analytics event per
// call without changing what the caller sees.
package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tokvera/tokvera-go/config"
	"github.com/tokvera/tokvera-go/internal/observability"
	"github.com/tokvera/tokvera-go/models"
	"github.com/tokvera/tokvera-go/services/extract"
	"github.com/tokvera/tokvera-go/services/hashing"
	"github.com/tokvera/tokvera-go/services/ingest"
	"github.com/tokvera/tokvera-go/utils"
)

// Emitter hands a payload off for delivery. Implementations must not block
// on the network.
type Emitter interface {
	Dispatch(payload models.Payload, apiKey string)
}

// Tracker holds the immutable tracking context of one wrapped client
type Tracker struct {
	context models.TrackingContext
	emitter Emitter
	logger  *zap.Logger
	now     func() time.Time
}

// New validates the tracking context and builds a Tracker
func New(apiKey, feature, tenantID string, opts ...Option) (*Tracker, error) {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}

	tc := models.NewTrackingContext(apiKey, feature, tenantID)
	tc.CustomerID = s.customerID
	tc.Plan = s.plan
	tc.Environment = s.environment
	tc.TemplateID = s.templateID
	tc.CaptureContent = s.captureContent

	if err := utils.ValidateStruct(&tc); err != nil {
		return nil, fmt.Errorf("invalid tracking context: %w", err)
	}

	logger := s.logger
	if logger == nil {
		logger = observability.NewSDKLogger(config.LoadSDK().LogLevel)
	}

	emitter := s.emitter
	if emitter == nil {
		emitter = ingest.NewChannel(s.httpClient, logger, ingest.DefaultConfig())
	}

	now := s.now
	if now == nil {
		now = time.Now
	}

	return &Tracker{
		context: tc,
		emitter: emitter,
		logger:  logger,
		now:     now,
	}, nil
}

// Context returns a copy of the tracking context
func (t *Tracker) Context() models.TrackingContext {
	tc := t.context
	tc.CustomerID = clone(tc.CustomerID)
	tc.Plan = clone(tc.Plan)
	tc.Environment = clone(tc.Environment)
	tc.TemplateID = clone(tc.TemplateID)
	return tc
}

// Call runs fn, measures it and emits exactly one event. The result and
// error of fn are returned unchanged; a panic in fn is recorded as a failure
// and re-raised with the same value.
//
// The re-panic happens inside the deferred recover, before the stack unwinds,
// so a crash traceback still shows fn's frames beneath the "[recovered]"
// marker. A caller that recovers sees the value only; Go panics carry no
// stack of their own to forward.
func Call[T any](ctx context.Context, t *Tracker, endpoint string, params any, fn func(context.Context) (T, error)) (T, error) {
	start := t.now()
	requested := extract.ModelFromRequest(params)

	completed := false
	defer func() {
		if completed {
			return
		}
		if r := recover(); r != nil {
			ev := t.failureEvent(endpoint, params, requested, start).
				WithError("panic", fmt.Sprint(r))
			t.emitSafely(ev)
			panic(r)
		}
	}()

	resp, err := fn(ctx)
	completed = true

	if err != nil {
		ev := t.failureEvent(endpoint, params, requested, start).
			WithError(errorKind(err), err.Error())
		t.emitSafely(ev)
		return resp, err
	}

	latency := t.since(start)
	model := extract.ResolveModel(requested, extract.ModelFromResponse(resp))
	ev := models.NewAnalyticsEvent(endpoint, t.context, models.EventStatusSuccess, model, latency).
		WithUsage(extract.Usage(resp)).
		WithTimestamp(t.now())
	if t.context.CaptureContent {
		ev.WithHashes(hashing.Hashes(params, resp))
	}
	t.emitSafely(ev)

	return resp, nil
}

func (t *Tracker) failureEvent(endpoint string, params any, requested string, start time.Time) *models.AnalyticsEvent {
	latency := t.since(start)
	ev := models.NewAnalyticsEvent(endpoint, t.context, models.EventStatusFailure, requested, latency).
		WithTimestamp(t.now())
	if t.context.CaptureContent {
		ev.WithHashes(hashing.Hashes(params, nil))
	}
	return ev
}

// emitSafely never lets the emitter disturb the caller
func (t *Tracker) emitSafely(ev *models.AnalyticsEvent) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Debug("event emission panicked",
				zap.Any("panic", r),
				zap.String("endpoint", ev.Endpoint))
		}
	}()

	t.logger.Debug("tracked call",
		zap.String("endpoint", ev.Endpoint),
		zap.String("status", string(ev.Status)),
		zap.String("model", ev.Model),
		zap.Int64("latency_ms", ev.LatencyMs),
		zap.Int("total_tokens", ev.Usage.TotalTokens))

	t.emitter.Dispatch(ev.ToPayload(), t.context.APIKey)
}

func (t *Tracker) since(start time.Time) time.Duration {
	d := t.now().Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

// errorKind names the concrete error type, e.g. "apierror.Error"
func errorKind(err error) string {
	return strings.TrimLeft(fmt.Sprintf("%T", err), "*")
}

func clone(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
