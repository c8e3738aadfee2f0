// Package config defines the runtime configuration for wifiecho and
// loads it from defaults, a config file, the environment and flags.
package config

import (
	"fmt"
	"time"

	ncerr "wifiecho/internal/errors"
	"wifiecho/util"
)

// Config holds every tuneable for a wifiecho run.
type Config struct {
	// ── Link ─────────────────────────────────────────────────────────
	SSID               string
	Passphrase         string
	PromptPass         bool // true → read the passphrase from the terminal
	Driver             string
	Interface          string
	PollInterval       time.Duration
	ConnectTimeout     time.Duration // 0 = wait for an address forever
	MaxConnectAttempts int           // 0 = retry forever
	RetryInitial       time.Duration
	RetryMax           time.Duration

	// ── Echo service ─────────────────────────────────────────────────
	Host          string
	Port          int
	BufSize       int
	MaxConns      int
	IdleTimeout   time.Duration // 0 = no read deadline
	ShutdownGrace time.Duration

	// ── mDNS ─────────────────────────────────────────────────────────
	Advertise bool
	Instance  string

	// ── Probe ────────────────────────────────────────────────────────
	Probe    bool
	Target   string
	Discover bool
	Payload  string
	Size     int // >0 sends Size random bytes instead of Payload
	Count    int
	Timeout  time.Duration
	Retries  int

	// ── Output ───────────────────────────────────────────────────────
	ConfigPath string
	LogFormat  string
	Verbose    int
}

// ListenAddress returns the echo bind address.
func (c *Config) ListenAddress() string {
	return util.FormatAddr(c.Host, c.Port)
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Errors are *errors.ConfigError values carrying a hint.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return &ncerr.ConfigError{
			Field: "log-format", Value: c.LogFormat,
			Message: "unknown log format",
			Hint:    "use console or json",
		}
	}
	if c.Probe {
		return c.validateProbe()
	}
	return c.validateServe()
}

func (c *Config) validateServe() error {
	if c.SSID == "" {
		return &ncerr.ConfigError{
			Field:   "ssid",
			Message: "network name is required",
			Hint:    "pass --ssid or set WIFIECHO_SSID",
		}
	}
	if c.Driver != "sim" && c.Driver != "nmcli" {
		return &ncerr.ConfigError{
			Field: "driver", Value: c.Driver,
			Message: "unknown link driver",
			Hint:    "use sim for a simulated radio or nmcli for NetworkManager",
		}
	}
	if c.Driver == "nmcli" && c.Interface == "" {
		return &ncerr.ConfigError{
			Field:   "interface",
			Message: "nmcli driver needs a wireless interface",
			Hint:    "list interfaces with: nmcli device status",
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &ncerr.ConfigError{
			Field: "port", Value: c.Port,
			Message: "port out of range 0-65535",
			Hint:    "the echo service listens on 12345 by default",
		}
	}
	if c.BufSize < 1 || c.BufSize > 64*1024 {
		return &ncerr.ConfigError{
			Field: "buf-size", Value: c.BufSize,
			Message: "read buffer must be between 1 and 65536 bytes",
		}
	}
	if c.MaxConns < 1 {
		return &ncerr.ConfigError{
			Field: "max-conns", Value: c.MaxConns,
			Message: "at least one concurrent connection is required",
		}
	}
	if c.MaxConnectAttempts < 0 {
		return &ncerr.ConfigError{
			Field: "max-connect-attempts", Value: c.MaxConnectAttempts,
			Message: "must not be negative",
			Hint:    "use 0 to retry forever",
		}
	}
	for _, d := range []struct {
		field string
		v     time.Duration
	}{
		{"idle-timeout", c.IdleTimeout},
		{"connect-timeout", c.ConnectTimeout},
		{"retry-initial", c.RetryInitial},
		{"retry-max", c.RetryMax},
	} {
		if d.v < 0 {
			return &ncerr.ConfigError{Field: d.field, Value: d.v, Message: "must not be negative"}
		}
	}
	if c.RetryMax > 0 && c.RetryInitial > c.RetryMax {
		return &ncerr.ConfigError{
			Field: "retry-initial", Value: c.RetryInitial,
			Message: fmt.Sprintf("larger than --retry-max (%v)", c.RetryMax),
		}
	}
	return nil
}

func (c *Config) validateProbe() error {
	if c.Target == "" && !c.Discover {
		return &ncerr.ConfigError{
			Field:   "target",
			Message: "probe needs an address",
			Hint:    "wifiecho probe HOST[:PORT], or --discover to find one over mDNS",
		}
	}
	if c.Count < 1 {
		return &ncerr.ConfigError{Field: "count", Value: c.Count, Message: "must be at least 1"}
	}
	if c.Size < 0 {
		return &ncerr.ConfigError{Field: "size", Value: c.Size, Message: "must not be negative"}
	}
	if c.Size == 0 && c.Payload == "" {
		return &ncerr.ConfigError{
			Field:   "payload",
			Message: "nothing to send",
			Hint:    "pass --payload TEXT or --size N",
		}
	}
	if c.Retries < 1 {
		return &ncerr.ConfigError{Field: "retries", Value: c.Retries, Message: "must be at least 1"}
	}
	return nil
}
