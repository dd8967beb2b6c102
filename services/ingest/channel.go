// Package ingest ships analytics events to the tokvera collector.
//
// Delivery is best effort: one POST per event, no retry, no queue. Failures
// are logged at debug level and discarded.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tokvera/tokvera-go/config"
	"github.com/tokvera/tokvera-go/models"
)

// Version is the SDK version reported in the User-Agent header
const Version = "0.1.0"

// maxErrorBody bounds how much of a non-2xx response body is kept
const maxErrorBody = 1024

// UserAgent returns the identifying client header value
func UserAgent() string {
	return "tokvera-go-sdk/" + Version
}

// Config holds configuration for the Channel
type Config struct {
	Timeout   time.Duration
	UserAgent string
	// Endpoint resolves the collector URL at delivery time; "" disables delivery
	Endpoint func() string
}

// DefaultConfig returns the configuration derived from the process environment
func DefaultConfig() Config {
	sdk := config.LoadSDK()
	return Config{
		Timeout:   sdk.IngestTimeout,
		UserAgent: UserAgent(),
		Endpoint:  config.IngestURL,
	}
}

// Channel delivers payloads to the collector
type Channel struct {
	httpClient *http.Client
	logger     *zap.Logger
	config     Config

	// inflight counts running dispatches; idle is closed when it drops to zero
	mu       sync.Mutex
	inflight int
	idle     chan struct{}

	dispatched atomic.Uint64
	delivered  atomic.Uint64
	failed     atomic.Uint64
}

// NewChannel creates a new Channel. A nil httpClient uses http.DefaultClient,
// a nil logger discards output.
func NewChannel(httpClient *http.Client, logger *zap.Logger, cfg Config) *Channel {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultIngestTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent()
	}
	if cfg.Endpoint == nil {
		cfg.Endpoint = config.IngestURL
	}

	return &Channel{
		httpClient: httpClient,
		logger:     logger,
		config:     cfg,
	}
}

// Deliver posts one payload synchronously. It returns nil without any network
// activity when no collector endpoint is configured.
func (c *Channel) Deliver(ctx context.Context, payload models.Payload, apiKey string) error {
	endpoint := c.config.Endpoint()
	if endpoint == "" {
		return nil
	}
	return c.post(ctx, endpoint, payload, apiKey)
}

// Dispatch delivers the payload on a detached goroutine and returns at once.
// Errors and panics are contained within that goroutine.
func (c *Channel) Dispatch(payload models.Payload, apiKey string) {
	endpoint := c.config.Endpoint()
	if endpoint == "" {
		return
	}

	c.dispatched.Add(1)
	c.begin()
	go func() {
		defer c.end()
		defer func() {
			if r := recover(); r != nil {
				c.failed.Add(1)
				c.logger.Debug("event delivery panicked",
					zap.Any("panic", r),
					zap.String("endpoint", payload.Endpoint))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
		defer cancel()

		if err := c.post(ctx, endpoint, payload, apiKey); err != nil {
			c.failed.Add(1)
			c.logger.Debug("event delivery failed",
				zap.Error(err),
				zap.String("endpoint", payload.Endpoint),
				zap.String("status", payload.Status))
			return
		}
		c.delivered.Add(1)
	}()
}

func (c *Channel) begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
}

func (c *Channel) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
	}
}

// Wait blocks until no dispatch is in flight or ctx is done. It is safe to
// call while other goroutines keep dispatching; sends started during the wait
// extend it. Nothing in the tracking path calls it; host processes may use it
// at shutdown.
func (c *Channel) Wait(ctx context.Context) error {
	c.mu.Lock()
	if c.inflight == 0 {
		c.mu.Unlock()
		return nil
	}
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for event delivery: %w", ctx.Err())
	}
}

func (c *Channel) post(ctx context.Context, endpoint string, payload models.Payload, apiKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("HTTP request failed with status %d: %s", resp.StatusCode, string(msg))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	return nil
}

// GetStats returns delivery counters
func (c *Channel) GetStats() Stats {
	return Stats{
		Dispatched: c.dispatched.Load(),
		Delivered:  c.delivered.Load(),
		Failed:     c.failed.Load(),
	}
}

// Stats represents delivery statistics
type Stats struct {
	Dispatched uint64
	Delivered  uint64
	Failed     uint64
}
