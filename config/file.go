package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	ncerr "wifiecho/internal/errors"
)

// fileConfig mirrors the on-disk layout.  Pointer fields distinguish
// "absent" from a zero value so that only keys present in the file
// override earlier layers.
type fileConfig struct {
	Link struct {
		SSID               *string `yaml:"ssid" toml:"ssid"`
		Passphrase         *string `yaml:"passphrase" toml:"passphrase"`
		Driver             *string `yaml:"driver" toml:"driver"`
		Interface          *string `yaml:"interface" toml:"interface"`
		PollInterval       *string `yaml:"poll_interval" toml:"poll_interval"`
		ConnectTimeout     *string `yaml:"connect_timeout" toml:"connect_timeout"`
		MaxConnectAttempts *int    `yaml:"max_connect_attempts" toml:"max_connect_attempts"`
		RetryInitial       *string `yaml:"retry_initial" toml:"retry_initial"`
		RetryMax           *string `yaml:"retry_max" toml:"retry_max"`
	} `yaml:"link" toml:"link"`

	Echo struct {
		Host          *string `yaml:"host" toml:"host"`
		Port          *int    `yaml:"port" toml:"port"`
		BufSize       *int    `yaml:"buf_size" toml:"buf_size"`
		MaxConns      *int    `yaml:"max_conns" toml:"max_conns"`
		IdleTimeout   *string `yaml:"idle_timeout" toml:"idle_timeout"`
		ShutdownGrace *string `yaml:"shutdown_grace" toml:"shutdown_grace"`
	} `yaml:"echo" toml:"echo"`

	MDNS struct {
		Advertise *bool   `yaml:"advertise" toml:"advertise"`
		Instance  *string `yaml:"instance" toml:"instance"`
	} `yaml:"mdns" toml:"mdns"`

	Log struct {
		Format  *string `yaml:"format" toml:"format"`
		Verbose *int    `yaml:"verbose" toml:"verbose"`
	} `yaml:"log" toml:"log"`
}

// LoadFile overlays the YAML (.yaml, .yml) or TOML (.toml) file at path
// onto cfg.  Unknown keys are rejected.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ncerr.ConfigError{
			Field: "config", Value: path,
			Message: err.Error(),
		}
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return fileError(path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return fileError(path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return fileError(path, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", ")))
		}
	default:
		return &ncerr.ConfigError{
			Field: "config", Value: path,
			Message: fmt.Sprintf("unsupported config file type %q", ext),
			Hint:    "use a .yaml, .yml or .toml file",
		}
	}
	return fc.apply(cfg, path)
}

func fileError(path string, err error) error {
	return &ncerr.ConfigError{
		Field: "config", Value: path,
		Message: err.Error(),
		Hint:    "keys live under the link, echo, mdns and log sections",
	}
}

func (fc *fileConfig) apply(cfg *Config, path string) error {
	setString(&cfg.SSID, fc.Link.SSID)
	setString(&cfg.Passphrase, fc.Link.Passphrase)
	setString(&cfg.Driver, fc.Link.Driver)
	setString(&cfg.Interface, fc.Link.Interface)
	setInt(&cfg.MaxConnectAttempts, fc.Link.MaxConnectAttempts)

	setString(&cfg.Host, fc.Echo.Host)
	setInt(&cfg.Port, fc.Echo.Port)
	setInt(&cfg.BufSize, fc.Echo.BufSize)
	setInt(&cfg.MaxConns, fc.Echo.MaxConns)

	if fc.MDNS.Advertise != nil {
		cfg.Advertise = *fc.MDNS.Advertise
	}
	setString(&cfg.Instance, fc.MDNS.Instance)

	setString(&cfg.LogFormat, fc.Log.Format)
	setInt(&cfg.Verbose, fc.Log.Verbose)

	for _, d := range []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"link.poll_interval", fc.Link.PollInterval, &cfg.PollInterval},
		{"link.connect_timeout", fc.Link.ConnectTimeout, &cfg.ConnectTimeout},
		{"link.retry_initial", fc.Link.RetryInitial, &cfg.RetryInitial},
		{"link.retry_max", fc.Link.RetryMax, &cfg.RetryMax},
		{"echo.idle_timeout", fc.Echo.IdleTimeout, &cfg.IdleTimeout},
		{"echo.shutdown_grace", fc.Echo.ShutdownGrace, &cfg.ShutdownGrace},
	} {
		if d.src == nil {
			continue
		}
		v, err := parseDuration(*d.src)
		if err != nil {
			return fileError(path, fmt.Errorf("%s: %w", d.key, err))
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
