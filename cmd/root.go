// Package cmd wires up the CLI and dispatches to the serve and probe modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"wifiecho/config"
	"wifiecho/internal/core"
	"wifiecho/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X wifiecho/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// readPassphrase is swapped out in tests.
var readPassphrase = promptPassphrase //nolint:gochecknoglobals

// globalOpts are the flags every command shares.  They sit outside
// config.Config because verbosity counts up from the configured level
// rather than replacing it.
type globalOpts struct {
	configPath string
	logFormat  string
	verbose    int
	quiet      bool
	dryRun     bool
}

// Execute parses args and runs the selected command.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	g := &globalOpts{}

	root := &cobra.Command{
		Use:   "wifiecho",
		Short: "Join a Wi-Fi network and serve a TCP echo port",
		Long: `wifiecho keeps a wireless link connected and runs a raw TCP echo
service on it.  Every byte a client sends is written straight back.

Running wifiecho without a command is the same as "wifiecho serve".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g)
		},
	}

	bindGlobalFlags(root.PersistentFlags(), g)
	bindServeFlags(root.Flags(), config.Default())

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Connect the link and run the echo server",
		Example: `  wifiecho serve --ssid homenet --prompt-passphrase
  wifiecho serve --driver nmcli --interface wlan0 --advertise
  wifiecho serve --config /etc/wifiecho.yaml -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g)
		},
	}
	bindServeFlags(serve.Flags(), config.Default())

	probe := &cobra.Command{
		Use:   "probe [HOST[:PORT]]",
		Short: "Send a payload to an echo server and check the reply",
		Example: `  wifiecho probe espressif
  wifiecho probe 192.168.4.1:12345 --count 10 --size 1500
  wifiecho probe --discover`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, g, args)
		},
	}
	bindProbeFlags(probe.Flags(), config.Default())

	root.AddCommand(serve, probe, &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wifiecho %s\n", version)
		},
	})
	return root
}

// ── flag sets ────────────────────────────────────────────────────────

func bindGlobalFlags(fs *flag.FlagSet, g *globalOpts) {
	fs.StringVar(&g.configPath, "config", "", "YAML or TOML config file (env WIFIECHO_CONFIG)")
	fs.StringVar(&g.logFormat, "log-format", config.DefaultLogFormat, "Log encoding: console or json")
	fs.CountVarP(&g.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&g.quiet, "quiet", "q", false, "Only print errors")
	fs.BoolVar(&g.dryRun, "dry-run", false, "Validate the configuration and exit")
}

func bindServeFlags(fs *flag.FlagSet, cfg *config.Config) {
	// ── link ─────────────────────────────────────────────────────
	fs.StringVar(&cfg.SSID, "ssid", cfg.SSID, "Network name to join")
	fs.StringVar(&cfg.Passphrase, "passphrase", cfg.Passphrase, "Network passphrase")
	fs.BoolVar(&cfg.PromptPass, "prompt-passphrase", cfg.PromptPass, "Read the passphrase from the terminal")
	fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "Link driver: sim or nmcli")
	fs.StringVar(&cfg.Interface, "interface", cfg.Interface, "Wireless interface (nmcli driver)")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Link state poll interval (nmcli driver)")
	fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "Address wait per connect attempt (0 = forever)")
	fs.IntVar(&cfg.MaxConnectAttempts, "max-connect-attempts", cfg.MaxConnectAttempts, "Consecutive failed attempts before giving up (0 = forever)")
	fs.DurationVar(&cfg.RetryInitial, "retry-initial", cfg.RetryInitial, "First reconnect backoff delay")
	fs.DurationVar(&cfg.RetryMax, "retry-max", cfg.RetryMax, "Largest reconnect backoff delay")

	// ── echo service ─────────────────────────────────────────────
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Echo bind address")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Echo port")
	fs.IntVar(&cfg.BufSize, "buf-size", cfg.BufSize, "Largest chunk echoed per read")
	fs.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "Concurrent echo connections")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "Close a connection idle this long (0 = never)")
	fs.DurationVar(&cfg.ShutdownGrace, "shutdown-grace", cfg.ShutdownGrace, "How long shutdown waits for open connections")

	// ── mDNS ─────────────────────────────────────────────────────
	fs.BoolVar(&cfg.Advertise, "advertise", cfg.Advertise, "Advertise the echo port over mDNS")
	fs.StringVar(&cfg.Instance, "instance", cfg.Instance, "mDNS instance name (default: host name)")
}

func bindProbeFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Payload, "payload", cfg.Payload, "Text to send each round")
	fs.IntVar(&cfg.Size, "size", cfg.Size, "Send this many random bytes instead of --payload")
	fs.IntVarP(&cfg.Count, "count", "c", cfg.Count, "Number of rounds")
	fs.DurationVarP(&cfg.Timeout, "timeout", "w", cfg.Timeout, "Dial and round-trip timeout")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Dial attempts")
	fs.BoolVar(&cfg.Discover, "discover", cfg.Discover, "Find the server over mDNS")
	fs.StringVar(&cfg.Instance, "instance", cfg.Instance, "mDNS instance to look for (with --discover)")
}

// ── commands ─────────────────────────────────────────────────────────

func runServe(cmd *cobra.Command, g *globalOpts) error {
	cfg, err := resolve(cmd, g, bindServeFlags)
	if err != nil {
		return err
	}
	if cfg.PromptPass && !g.dryRun {
		pass, err := readPassphrase(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		cfg.Passphrase = pass
	}
	return run(cmd, g, cfg)
}

func runProbe(cmd *cobra.Command, g *globalOpts, args []string) error {
	cfg, err := resolve(cmd, g, bindProbeFlags)
	if err != nil {
		return err
	}
	cfg.Probe = true
	if len(args) == 1 {
		cfg.Target = args[0]
	}
	return run(cmd, g, cfg)
}

func run(cmd *cobra.Command, g *globalOpts, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(cmd.ErrOrStderr())
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return err
	}
	if cfg.LogFormat == util.FormatJSON {
		logger.SetTimestamps(true)
	}
	defer logger.Sync()

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	if g.dryRun {
		logger.Info("configuration ok")
		return nil
	}
	return mode.Run(cmd.Context())
}

// resolve layers defaults, the config file, the environment and the
// flags the user actually set, in that order.
func resolve(cmd *cobra.Command, g *globalOpts, bind func(*flag.FlagSet, *config.Config)) (*config.Config, error) {
	cfg := config.Default()

	path := config.ConfigPathFromEnv()
	if cmd.Flags().Changed("config") {
		path = g.configPath
	}
	if path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			return nil, err
		}
		cfg.ConfigPath = path
	}
	config.LoadFromEnv(cfg)

	overlay := flag.NewFlagSet("overlay", flag.ContinueOnError)
	bind(overlay, cfg)
	var err error
	cmd.Flags().Visit(func(f *flag.Flag) {
		if err != nil || overlay.Lookup(f.Name) == nil {
			return
		}
		if serr := overlay.Set(f.Name, f.Value.String()); serr != nil {
			err = fmt.Errorf("--%s: %w", f.Name, serr)
		}
	})
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = g.logFormat
	}
	cfg.Verbose += g.verbose
	if g.quiet {
		cfg.Verbose = 0
	}
	return cfg, nil
}

func promptPassphrase(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--prompt-passphrase needs a terminal on stdin")
	}
	fmt.Fprint(w, "Passphrase: ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}
