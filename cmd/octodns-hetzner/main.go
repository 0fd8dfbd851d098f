// octodns-hetzner syncs declarative DNS zone files to Hetzner DNS, on the
// record-based DNS API or the RRSet-based Cloud API.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/octodns/octodns-hetzner/internal/config"
	"github.com/octodns/octodns-hetzner/internal/metrics"
	"github.com/octodns/octodns-hetzner/pkg/provider"
	"github.com/octodns/octodns-hetzner/providers/hetzner"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-01-03"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		cancel()
		os.Exit(1)
	}
}

// app carries the global flags and what PersistentPreRunE builds from them.
type app struct {
	configPath      string
	logLevel        string
	logFormat       string
	metricsTextfile string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "octodns-hetzner",
		Short: "Sync DNS zone files to Hetzner DNS",
		Long: `octodns-hetzner plans and applies the changes needed to make Hetzner DNS
zones match declarative zone files.

Quick start:
  octodns-hetzner sync --config config.yaml            # show planned changes
  octodns-hetzner sync --config config.yaml --doit     # apply them
  octodns-hetzner dump --provider hetzner example.com. # export a live zone`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.metricsTextfile == "" {
				return nil
			}
			if err := metrics.WriteTextfile(a.metricsTextfile); err != nil {
				return fmt.Errorf("writing metrics textfile: %w", err)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "config.yaml", "configuration file (YAML, or TOML with a .toml extension)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides the config file)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: json, text (overrides the config file)")
	flags.StringVar(&a.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")

	cmd.AddCommand(newSyncCmd(a))
	cmd.AddCommand(newDumpCmd(a))
	cmd.AddCommand(newListZonesCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads the configuration and installs the logger.
func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	a.cfg = cfg

	level, format := cfg.LogLevel, cfg.LogFormat
	if a.logLevel != "" {
		level = a.logLevel
	}
	if a.logFormat != "" {
		format = a.logFormat
	}
	a.logger = setupLogger(stderr, level, format)
	slog.SetDefault(a.logger)

	metrics.SetBuildInfo(Version, runtime.Version())

	a.logger.Debug("configuration loaded",
		slog.String("path", a.configPath),
		slog.String("config", cfg.String()),
	)
	return nil
}

// providers builds a registry holding an instance of each named provider.
func (a *app) providers(names ...string) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	registry.RegisterFactory(hetzner.ProviderType, hetzner.Factory(
		hetzner.WithLogger(a.logger),
		hetzner.WithVersion(Version),
	))

	for _, name := range names {
		if _, ok := registry.Get(name); ok {
			continue
		}
		pc, ok := a.cfg.Provider(name)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		if err := registry.CreateInstance(pc.Name, pc.Type, pc.Settings); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (a *app) provider(name string) (provider.Provider, error) {
	registry, err := a.providers(name)
	if err != nil {
		return nil, err
	}
	p, _ := registry.Get(name)
	return p, nil
}

func setupLogger(w io.Writer, level, format string) *slog.Logger {
	logLevel := parseLogLevel(level)

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})
	}

	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
