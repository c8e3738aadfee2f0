package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	ncerr "wifiecho/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Port != 12345 {
		t.Errorf("Port = %d, want 12345", cfg.Port)
	}
	if cfg.BufSize != 512 {
		t.Errorf("BufSize = %d, want 512", cfg.BufSize)
	}
	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", cfg.Host)
	}
	if cfg.SSID != "The password is password" || cfg.Passphrase != "password" {
		t.Errorf("credentials = %q/%q", cfg.SSID, cfg.Passphrase)
	}
	if cfg.ConnectTimeout != 0 || cfg.IdleTimeout != 0 || cfg.MaxConnectAttempts != 0 {
		t.Error("timeouts and attempt budget should default to unlimited")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestListenAddress(t *testing.T) {
	cfg := Default()
	if got := cfg.ListenAddress(); got != "0.0.0.0:12345" {
		t.Errorf("ListenAddress = %q", got)
	}
	cfg.Host = "::"
	if got := cfg.ListenAddress(); got != "[::]:12345" {
		t.Errorf("ListenAddress = %q", got)
	}
}

// ── Validation ───────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string // "" = valid
	}{
		{"defaults", func(c *Config) {}, ""},
		{"nmcli", func(c *Config) { c.Driver = "nmcli" }, ""},
		{"ephemeral port", func(c *Config) { c.Port = 0 }, ""},
		{"empty ssid", func(c *Config) { c.SSID = "" }, "ssid"},
		{"unknown driver", func(c *Config) { c.Driver = "esp-idf" }, "driver"},
		{"nmcli no interface", func(c *Config) { c.Driver = "nmcli"; c.Interface = "" }, "interface"},
		{"port too high", func(c *Config) { c.Port = 70000 }, "port"},
		{"zero buffer", func(c *Config) { c.BufSize = 0 }, "buf-size"},
		{"huge buffer", func(c *Config) { c.BufSize = 1 << 20 }, "buf-size"},
		{"no conns", func(c *Config) { c.MaxConns = 0 }, "max-conns"},
		{"negative attempts", func(c *Config) { c.MaxConnectAttempts = -1 }, "max-connect-attempts"},
		{"negative idle", func(c *Config) { c.IdleTimeout = -time.Second }, "idle-timeout"},
		{"retry order", func(c *Config) { c.RetryInitial = time.Minute; c.RetryMax = time.Second }, "retry-initial"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log-format"},
		{"probe ok", func(c *Config) { c.Probe = true; c.Target = "10.0.0.2" }, ""},
		{"probe discover", func(c *Config) { c.Probe = true; c.Discover = true }, ""},
		{"probe no target", func(c *Config) { c.Probe = true }, "target"},
		{"probe zero count", func(c *Config) { c.Probe = true; c.Target = "x"; c.Count = 0 }, "count"},
		{"probe nothing to send", func(c *Config) { c.Probe = true; c.Target = "x"; c.Payload = "" }, "payload"},
		{"probe size only", func(c *Config) { c.Probe = true; c.Target = "x"; c.Payload = ""; c.Size = 64 }, ""},
		{"probe no retries", func(c *Config) { c.Probe = true; c.Target = "x"; c.Retries = 0 }, "retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ce *ncerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

// TestValidate_ErrorMessages verifies that Validate returns actionable
// error messages with hints.
func TestValidate_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"ssid hint", func(c *Config) { c.SSID = "" }, "hint: pass --ssid"},
		{"driver hint", func(c *Config) { c.Driver = "wext" }, "hint:"},
		{"probe hint", func(c *Config) { c.Probe = true }, "hint:"},
		{"retry order", func(c *Config) { c.RetryInitial = time.Minute; c.RetryMax = time.Second }, "larger than --retry-max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}
