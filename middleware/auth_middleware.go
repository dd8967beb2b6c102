package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tokvera/tokvera-go/internal/observability"
	"github.com/tokvera/tokvera-go/services/hashing"
	"github.com/tokvera/tokvera-go/utils"
)

// ErrKeyNotAccepted is returned by a KeyValidator for unknown project keys
var ErrKeyNotAccepted = errors.New("project key not accepted")

// KeyValidator decides whether a project key may post events
type KeyValidator interface {
	ValidateKey(ctx context.Context, key string) error
}

// KeyValidatorFunc adapts a function to KeyValidator
type KeyValidatorFunc func(ctx context.Context, key string) error

// ValidateKey calls f(ctx, key)
func (f KeyValidatorFunc) ValidateKey(ctx context.Context, key string) error {
	return f(ctx, key)
}

// AcceptedKeys builds a KeyValidator from a membership check such as
// config.IngestConfig.IsAcceptedKey
func AcceptedKeys(isAccepted func(string) bool) KeyValidator {
	return KeyValidatorFunc(func(_ context.Context, key string) error {
		if !isAccepted(key) {
			return ErrKeyNotAccepted
		}
		return nil
	})
}

// AuthMiddleware authenticates collector requests by project key
type AuthMiddleware struct {
	validator KeyValidator
	metrics   observability.Metrics
	log       observability.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator KeyValidator, metrics observability.Metrics, logger *zap.Logger) *AuthMiddleware {
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	return &AuthMiddleware{
		validator: validator,
		metrics:   metrics,
		log:       observability.NewContextLogger(logger),
	}
}

// RequireAPIKey is a middleware that requires an accepted Bearer project key.
// The key itself never reaches the context or the logs, only its fingerprint.
func (m *AuthMiddleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		key := extractBearerToken(r)
		if key == "" {
			m.log.Warn(ctx, "missing project key")
			m.metrics.RecordRejected(ctx, "unauthorized")
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		keyID := KeyFingerprint(key)
		if err := m.validator.ValidateKey(ctx, key); err != nil {
			m.log.Warn(ctx, "project key rejected",
				zap.String("key_id", keyID),
				zap.Error(err))
			m.metrics.RecordRejected(ctx, "forbidden")
			_ = utils.WriteForbidden(w, "Project key not accepted")
			return
		}

		m.log.Debug(ctx, "authentication successful", zap.String("key_id", keyID))

		ctx = WithKeyID(ctx, keyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// KeyFingerprint returns a short, non-reversible identifier for a project key
func KeyFingerprint(key string) string {
	digest := hashing.Digest(key)
	if len(digest) < 12 {
		return digest
	}
	return digest[:12]
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
