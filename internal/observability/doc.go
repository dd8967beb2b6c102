// Package observability provides structured logging and metrics for the
// tokvera collector and SDK.
//
// This package implements:
//   - zap logger construction for the collector and the opt-in SDK logger
//   - Request ID propagation into log entries
//   - Prometheus metrics for accepted and rejected events
package observability
