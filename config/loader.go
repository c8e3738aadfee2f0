package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the WIFIECHO_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Durations accept Go
// duration strings ("750ms", "2m") or a plain number of seconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.
func LoadFromEnv(cfg *Config) {
	// Link
	if v := env("SSID"); v != "" {
		cfg.SSID = v
	}
	if v := env("PASSPHRASE"); v != "" {
		cfg.Passphrase = v
	}
	if envBool("PROMPT_PASSPHRASE") {
		cfg.PromptPass = true
	}
	if v := env("DRIVER"); v != "" {
		cfg.Driver = v
	}
	if v := env("INTERFACE"); v != "" {
		cfg.Interface = v
	}
	if v, ok := envDuration("POLL_INTERVAL"); ok {
		cfg.PollInterval = v
	}
	if v, ok := envDuration("CONNECT_TIMEOUT"); ok {
		cfg.ConnectTimeout = v
	}
	if v, ok := envInt("MAX_CONNECT_ATTEMPTS"); ok {
		cfg.MaxConnectAttempts = v
	}
	if v, ok := envDuration("RETRY_INITIAL"); ok {
		cfg.RetryInitial = v
	}
	if v, ok := envDuration("RETRY_MAX"); ok {
		cfg.RetryMax = v
	}

	// Echo service
	if v := env("HOST"); v != "" {
		cfg.Host = v
	}
	if v, ok := envInt("PORT"); ok {
		cfg.Port = v
	}
	if v, ok := envInt("BUF_SIZE"); ok {
		cfg.BufSize = v
	}
	if v, ok := envInt("MAX_CONNS"); ok {
		cfg.MaxConns = v
	}
	if v, ok := envDuration("IDLE_TIMEOUT"); ok {
		cfg.IdleTimeout = v
	}
	if v, ok := envDuration("SHUTDOWN_GRACE"); ok {
		cfg.ShutdownGrace = v
	}

	// mDNS
	if envBool("ADVERTISE") {
		cfg.Advertise = true
	}
	if v := env("INSTANCE"); v != "" {
		cfg.Instance = v
	}

	// Output
	if v := env("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v, ok := envInt("VERBOSE"); ok && v > 0 {
		cfg.Verbose = v
	}
}

// ConfigPathFromEnv returns WIFIECHO_CONFIG.
func ConfigPathFromEnv() string {
	return env("CONFIG")
}

// ── helpers ──────────────────────────────────────────────────────────

func env(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func envInt(key string) (int, bool) {
	v := env(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := strings.ToLower(env(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) (time.Duration, bool) {
	v := env(key)
	if v == "" {
		return 0, false
	}
	d, err := parseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

// parseDuration accepts a Go duration string or whole seconds.
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return secondsDuration(n), nil
	}
	return time.ParseDuration(v)
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
