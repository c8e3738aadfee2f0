package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultSSID and DefaultPassphrase are placeholders meant to be
	// overridden by flags, env or a config file.
	DefaultSSID       = "The password is password"
	DefaultPassphrase = "password"

	// DefaultDriver is the link driver used when none is named.
	DefaultDriver = "sim"

	// DefaultInterface is the wireless interface driven by nmcli.
	DefaultInterface = "wlan0"

	// DefaultPollInterval is how often nmcli link state is sampled.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultHost binds the echo port on every interface.
	DefaultHost = "0.0.0.0"

	// DefaultPort is the echo service port.
	DefaultPort = 12345

	// DefaultBufSize is the largest chunk read per echo round.
	DefaultBufSize = 512

	// DefaultMaxConns bounds concurrently running echo handlers.
	DefaultMaxConns = 64

	// DefaultShutdownGrace is how long shutdown waits for handlers.
	DefaultShutdownGrace = 2 * time.Second

	// DefaultRetryInitial and DefaultRetryMax shape the reconnect
	// backoff.
	DefaultRetryInitial = 1 * time.Second
	DefaultRetryMax     = 30 * time.Second

	// DefaultProbePayload is what the probe sends when no size is set.
	DefaultProbePayload = "ping"

	// DefaultProbeTimeout bounds each probe dial and round trip.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultProbeRetries is the number of dial attempts.
	DefaultProbeRetries = 3

	// DefaultLogFormat is the log encoding used when none is named.
	DefaultLogFormat = "console"

	// DefaultVerbose prints normal (info) output.
	DefaultVerbose = 1

	// EnvPrefix prefixes every supported environment variable.
	EnvPrefix = "WIFIECHO_"
)

// Default returns a Config populated with every default value.
func Default() *Config {
	return &Config{
		SSID:          DefaultSSID,
		Passphrase:    DefaultPassphrase,
		Driver:        DefaultDriver,
		Interface:     DefaultInterface,
		PollInterval:  DefaultPollInterval,
		RetryInitial:  DefaultRetryInitial,
		RetryMax:      DefaultRetryMax,
		Host:          DefaultHost,
		Port:          DefaultPort,
		BufSize:       DefaultBufSize,
		MaxConns:      DefaultMaxConns,
		ShutdownGrace: DefaultShutdownGrace,
		Payload:       DefaultProbePayload,
		Count:         1,
		Timeout:       DefaultProbeTimeout,
		Retries:       DefaultProbeRetries,
		LogFormat:     DefaultLogFormat,
		Verbose:       DefaultVerbose,
	}
}
