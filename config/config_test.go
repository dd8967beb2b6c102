package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.False(t, cfg.Server.TLS.Enabled)
				assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "tokvera", cfg.Database.User)
				assert.Empty(t, cfg.Ingest.AcceptedKeys)
				assert.Equal(t, int64(1<<20), cfg.Ingest.MaxBodyBytes)
				assert.Equal(t, 50, cfg.Ingest.DefaultListLimit)
				assert.Equal(t, 500, cfg.Ingest.MaxListLimit)
				assert.Equal(t, "info", cfg.Observability.LogLevel)
				assert.True(t, cfg.Observability.MetricsEnabled)
			},
		},
		{
			name: "production configuration with accepted keys",
			envVars: map[string]string{
				"ENVIRONMENT":           "production",
				"PORT":                  "9000",
				"DATABASE_URL":          "postgres://u:p@db.example.com:5433/events?sslmode=require",
				"TOKVERA_ACCEPTED_KEYS": "key-a, key-b,,",
				"CORS_ALLOWED_ORIGINS":  "https://app.example.com",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.False(t, cfg.IsDevelopment())
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, []string{"key-a", "key-b"}, cfg.Ingest.AcceptedKeys)
				assert.Equal(t, []string{"https://app.example.com"}, cfg.Ingest.CORSAllowedOrigins)
				assert.Equal(t, "host=db.example.com port=5433 database=events", cfg.Database.LogString())
			},
		},
		{
			name: "production without accepted keys",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantErr: true,
		},
		{
			name: "invalid list limits",
			envVars: map[string]string{
				"EVENTS_DEFAULT_LIMIT": "100",
				"EVENTS_MAX_LIMIT":     "10",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Database: DatabaseConfig{
			Host:     "localhost",
			User:     "user",
			Database: "db",
		},
		Ingest: IngestConfig{
			MaxBodyBytes:     1024,
			DefaultListLimit: 10,
			MaxListLimit:     100,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid development config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: true,
			errMsg:  "database configuration required",
		},
		{
			name:    "missing database user",
			mutate:  func(c *Config) { c.Database.User = "" },
			wantErr: true,
			errMsg:  "database user is required",
		},
		{
			name:    "connection string skips field checks",
			mutate:  func(c *Config) { c.Database = DatabaseConfig{ConnectionString: "postgres://x"} },
			wantErr: false,
		},
		{
			name:    "non-positive body limit",
			mutate:  func(c *Config) { c.Ingest.MaxBodyBytes = 0 },
			wantErr: true,
			errMsg:  "max body bytes",
		},
		{
			name:    "production requires accepted keys",
			mutate:  func(c *Config) { c.Environment = "production" },
			wantErr: true,
			errMsg:  "accepted project keys",
		},
		{
			name:    "missing log level",
			mutate:  func(c *Config) { c.Observability.LogLevel = "" },
			wantErr: true,
			errMsg:  "log level is required",
		},
		{
			name:    "tls without key file",
			mutate:  func(c *Config) { c.Server.TLS = TLSConfig{Enabled: true, CertFile: "cert.pem"} },
			wantErr: true,
			errMsg:  "tls cert and key files",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Database.User = ""
	cfg.Database.Database = ""
	cfg.Ingest.MaxBodyBytes = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database user is required")
	assert.Contains(t, err.Error(), "database name is required")
	assert.Contains(t, err.Error(), "max body bytes")
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		want        bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "secret",
		Database: "events",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=localhost port=5432 user=user password=secret dbname=events sslmode=disable", cfg.DSN())
	assert.NotContains(t, cfg.LogString(), "secret")

	withURL := DatabaseConfig{ConnectionString: "postgres://u:p@h/db"}
	assert.Equal(t, "postgres://u:p@h/db", withURL.DSN())
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	}

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestIngestConfig_IsAcceptedKey(t *testing.T) {
	open := IngestConfig{}
	assert.True(t, open.IsAcceptedKey("anything"))
	assert.False(t, open.IsAcceptedKey(""))

	restricted := IngestConfig{AcceptedKeys: []string{"key-a"}}
	assert.True(t, restricted.IsAcceptedKey("key-a"))
	assert.False(t, restricted.IsAcceptedKey("key-b"))
}

func TestGetEnvAsSlice(t *testing.T) {
	os.Clearenv()
	assert.Nil(t, getEnvAsSlice("TEST_SLICE"))

	os.Setenv("TEST_SLICE", " a ,b,, c ")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsSlice("TEST_SLICE"))
}

func TestEnvHelpers(t *testing.T) {
	tests := []struct {
		name  string
		value string
		get   func() any
		want  any
	}{
		{"int", "42", func() any { return getEnvAsInt("TEST_VAR", 10) }, 42},
		{"int unset", "", func() any { return getEnvAsInt("TEST_VAR", 10) }, 10},
		{"int invalid", "not-a-number", func() any { return getEnvAsInt("TEST_VAR", 10) }, 10},
		{"int64", "2097152", func() any { return getEnvAsInt64("TEST_VAR", 1) }, int64(2097152)},
		{"bool", "true", func() any { return getEnvAsBool("TEST_VAR", false) }, true},
		{"bool false", "false", func() any { return getEnvAsBool("TEST_VAR", true) }, false},
		{"bool invalid", "not-a-bool", func() any { return getEnvAsBool("TEST_VAR", true) }, true},
		{"duration", "30s", func() any { return getEnvAsDuration("TEST_VAR", time.Second) }, 30 * time.Second},
		{"duration bare seconds", "45", func() any { return getEnvAsDuration("TEST_VAR", time.Second) }, 45 * time.Second},
		{"duration invalid", "soon", func() any { return getEnvAsDuration("TEST_VAR", time.Second) }, time.Second},
		{"string trimmed", "  value ", func() any { return getEnv("TEST_VAR", "def") }, "value"},
		{"string blank", "   ", func() any { return getEnv("TEST_VAR", "def") }, "def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_VAR", tt.value)
			}
			assert.Equal(t, tt.want, tt.get())
		})
	}
}

func TestFirstEnvAsInt(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, 8080, firstEnvAsInt(8080, "PORT", "SERVER_PORT"))

	os.Setenv("SERVER_PORT", "9001")
	assert.Equal(t, 9001, firstEnvAsInt(8080, "PORT", "SERVER_PORT"))

	os.Setenv("PORT", "bogus")
	assert.Equal(t, 9001, firstEnvAsInt(8080, "PORT", "SERVER_PORT"))

	os.Setenv("PORT", "7000")
	assert.Equal(t, 7000, firstEnvAsInt(8080, "PORT", "SERVER_PORT"))
}
