package config

import "time"

// Environment variables read by the SDK. The SDK never loads .env files;
// the host process owns its environment.
const (
	EnvIngestURL     = "TOKVERA_INGEST_URL"
	EnvIngestTimeout = "TOKVERA_INGEST_TIMEOUT"
	EnvLogLevel      = "TOKVERA_LOG_LEVEL"

	DefaultIngestTimeout = 2 * time.Second
)

// SDKConfig is the process-wide configuration of the tracking SDK
type SDKConfig struct {
	IngestURL     string
	IngestTimeout time.Duration
	// LogLevel enables SDK diagnostics when set; empty keeps the SDK silent
	LogLevel string
}

// LoadSDK reads the SDK configuration from the environment
func LoadSDK() SDKConfig {
	timeout := getEnvAsDuration(EnvIngestTimeout, DefaultIngestTimeout)
	if timeout <= 0 {
		timeout = DefaultIngestTimeout
	}
	return SDKConfig{
		IngestURL:     IngestURL(),
		IngestTimeout: timeout,
		LogLevel:      lookup(EnvLogLevel),
	}
}

// IngestURL returns the collector endpoint at call time. Empty disables delivery.
func IngestURL() string {
	return lookup(EnvIngestURL)
}

// DeliveryEnabled reports whether a collector endpoint is configured
func (c SDKConfig) DeliveryEnabled() bool {
	return c.IngestURL != ""
}
