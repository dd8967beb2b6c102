package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tokvera/tokvera-go/services/ingest"
	"github.com/tokvera/tokvera-go/utils"
)

const readinessTimeout = 5 * time.Second

// HealthResponse is the body of /healthz and /readyz
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Timestamp     string            `json:"timestamp"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// HealthChecker reports whether a dependency is usable. *postgres.DB satisfies it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to HealthChecker
type HealthCheckerFunc func(ctx context.Context) error

func (f HealthCheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// HealthHandler serves liveness and readiness
type HealthHandler struct {
	checks  map[string]HealthChecker
	started time.Time
	logger  *zap.Logger
}

func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  make(map[string]HealthChecker),
		started: time.Now(),
		logger:  logger,
	}
}

// Register adds a named readiness check. It is not safe to call once serving.
func (h *HealthHandler) Register(name string, checker HealthChecker) *HealthHandler {
	h.checks[name] = checker
	return h
}

// HandleHealth handles GET /healthz. Liveness never consults dependencies.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.response("healthy", nil))
}

// HandleReadiness handles GET /readyz: 200 when every registered check passes, 503 otherwise
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	status, code := "healthy", http.StatusOK
	for _, name := range names {
		if err := h.checks[name].HealthCheck(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = "unhealthy"
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	if err := utils.WriteJSON(w, code, utils.SuccessResponse{Data: h.response(status, results)}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

func (h *HealthHandler) response(status string, checks map[string]string) HealthResponse {
	return HealthResponse{
		Status:        status,
		Version:       ingest.Version,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Checks:        checks,
	}
}
