package core

import (
	"fmt"

	"wifiecho/config"
	"wifiecho/internal/capability"
	"wifiecho/internal/discovery"
	"wifiecho/internal/link"
	"wifiecho/internal/server"
	"wifiecho/internal/supervisor"
	"wifiecho/internal/transport"
	"wifiecho/util"
)

// Build constructs the appropriate Mode from the given configuration.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Probe {
		return buildProbe(cfg, logger)
	}
	return buildServe(cfg, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildServe(cfg *config.Config, logger *util.Logger) (Mode, error) {
	drv, err := link.Open(cfg.Driver, link.Options{
		Interface:    cfg.Interface,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	sup := supervisor.New(drv, supervisor.Config{
		Credentials:        link.Credentials{SSID: cfg.SSID, Passphrase: cfg.Passphrase},
		ConnectTimeout:     cfg.ConnectTimeout,
		MaxConnectAttempts: cfg.MaxConnectAttempts,
		RetryInitial:       cfg.RetryInitial,
		RetryMax:           cfg.RetryMax,
	}, logger)

	srv := server.New(server.Config{
		Address:       cfg.ListenAddress(),
		MaxConns:      cfg.MaxConns,
		ShutdownGrace: cfg.ShutdownGrace,
	}, &transport.TCPListener{}, buildCapability(cfg), logger)

	mode := &ServeMode{
		Driver:     drv,
		Supervisor: sup,
		Server:     srv,
		Logger:     logger,
	}
	if cfg.Advertise {
		mode.Advertiser = &discovery.Advertiser{
			Instance: cfg.Instance,
			Port:     cfg.Port,
			Text:     []string{"proto=echo", fmt.Sprintf("bufsize=%d", cfg.BufSize)},
			Logger:   logger,
		}
	}
	return mode, nil
}

func buildProbe(cfg *config.Config, logger *util.Logger) (Mode, error) {
	var target string
	if !cfg.Discover {
		var err error
		target, err = util.SplitTarget(cfg.Target, config.DefaultPort)
		if err != nil {
			return nil, fmt.Errorf("probe target: %w", err)
		}
	}

	return &ProbeMode{
		Dialer:   &transport.TCPDialer{Timeout: cfg.Timeout},
		Target:   target,
		Discover: cfg.Discover,
		Instance: cfg.Instance,
		Payload:  []byte(cfg.Payload),
		Size:     cfg.Size,
		Count:    cfg.Count,
		Timeout:  cfg.Timeout,
		Retries:  cfg.Retries,
		Logger:   logger,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildCapability selects the per-connection behaviour.
func buildCapability(cfg *config.Config) capability.Capability {
	return &capability.Echo{
		BufSize:     cfg.BufSize,
		IdleTimeout: cfg.IdleTimeout,
	}
}
