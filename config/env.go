package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// lookup returns the trimmed value of key, or "" when unset or blank
func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// envOr parses key with parse, falling back to def when the variable is
// unset or does not parse.
func envOr[T any](key string, def T, parse func(any) (T, error)) T {
	raw := lookup(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnv(key, def string) string {
	if v := lookup(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	return envOr(key, def, cast.ToIntE)
}

func getEnvAsInt64(key string, def int64) int64 {
	return envOr(key, def, cast.ToInt64E)
}

func getEnvAsBool(key string, def bool) bool {
	return envOr(key, def, cast.ToBoolE)
}

// getEnvAsDuration accepts Go durations ("30s", "1m30s"); a bare integer is
// read as seconds.
func getEnvAsDuration(key string, def time.Duration) time.Duration {
	return envOr(key, def, func(v any) (time.Duration, error) {
		if n, err := strconv.Atoi(v.(string)); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		return cast.ToDurationE(v)
	})
}

// getEnvAsSlice splits a comma-separated variable, dropping blank entries
func getEnvAsSlice(key string) []string {
	raw := lookup(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// firstEnvAsInt returns the first of keys that parses as an int
func firstEnvAsInt(def int, keys ...string) int {
	for _, key := range keys {
		raw := lookup(key)
		if raw == "" {
			continue
		}
		if v, err := cast.ToIntE(raw); err == nil {
			return v
		}
	}
	return def
}
