package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	keyIDKey
)

func stringFrom(ctx context.Context, key contextKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// GetRequestIDFromContext returns the request ID set by WithRequestID, or the
// one assigned by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	if id := stringFrom(ctx, requestIDKey); id != "" {
		return id
	}
	return chimw.GetReqID(ctx)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetKeyIDFromContext returns the fingerprint of the caller's project key
func GetKeyIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, keyIDKey)
}

func WithKeyID(ctx context.Context, keyID string) context.Context {
	return context.WithValue(ctx, keyIDKey, keyID)
}
