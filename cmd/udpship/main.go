package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/udpship/internal/cliconfig"
	"github.com/bft-labs/udpship/pkg/log"
)

const longHelp = `Ship newline-delimited JSON events to a UDP collector in batches.

Events are read from a file or stdin, buffered until the threshold is
reached and sent as one JSON envelope per datagram:

  {"host":...,"schema":...,"timeStamp":<unix ms>,"events":[...]}

Delivery is best effort. On EOF or SIGINT/SIGTERM the remaining events are
flushed and the exit code reports whether that last send succeeded.

Configuration is read from a TOML or YAML file, then UDPSHIP_* environment
variables, then flags; later sources win.`

var exampleUsage = strings.TrimSpace(`
  tail -F app.log | udpship udp://collector:33333
  udpship --input events.ndjson --follow --threshold 50 udp://127.0.0.1:33333
  udpship --config $HOME/.udpship/config.yaml --metrics-addr :9100
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "udpship [flags] [endpoint]",
		Short:        "Batch JSON events and ship them over UDP",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			// a positional endpoint counts as the flag
			if len(args) == 1 {
				cfg.Endpoint = args[0]
				changed["endpoint"] = true
			}

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Apply environment variables (UDPSHIP_*)
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			level, err := log.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logger := log.NewZerologAdapter(os.Stderr, level)
			logger.Info("configuration", log.Any("config", cfg))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.InOrStdin(), logger)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file, .toml or .yaml (default: $HOME/.udpship/config.toml)")
	root.Flags().StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "destination as udp://host:port (or positional argument)")

	root.Flags().IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "events buffered before a datagram is sent (0 sends every event)")
	root.Flags().StringVar(&cfg.Schema, "schema", cfg.Schema, "schema tag written into every envelope")
	root.Flags().StringVar(&cfg.UDPType, "udp-type", cfg.UDPType, "socket family: udp4 or udp6")
	root.Flags().StringVar(&cfg.Host, "host", cfg.Host, "host name written into every envelope (default: system hostname)")
	root.Flags().StringVar(&cfg.Codec, "codec", cfg.Codec, "payload codec: json or cbor")
	root.Flags().StringVar(&cfg.Compression, "compression", cfg.Compression, "payload compression: none, gzip, zstd or lz4")

	root.Flags().StringVar(&cfg.Input, "input", cfg.Input, "newline-delimited JSON input file, - for stdin")
	root.Flags().BoolVar(&cfg.Follow, "follow", cfg.Follow, "keep reading the input file as it grows")
	root.Flags().StringVar(&cfg.OffsetFile, "offset-file", cfg.OffsetFile, "where --follow stores its read position (default: <input>.offset)")
	root.Flags().DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "poll interval when following")

	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (disabled when empty)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: trace, debug, info, warn, error")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fallback := log.NewZerologAdapter(os.Stderr, zerolog.InfoLevel)
		fallback.Error("udpship", log.Err(err))
		os.Exit(1)
	}
}
