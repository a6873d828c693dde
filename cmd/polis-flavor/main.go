// Package main is the entry point for the polis-flavor binary.
// It resolves the build flavor and serves it on a method channel.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polisai/polis-flavor/pkg/bridge"
	"github.com/polisai/polis-flavor/pkg/channel"
	"github.com/polisai/polis-flavor/pkg/config"
	"github.com/polisai/polis-flavor/pkg/flavor"
	"github.com/polisai/polis-flavor/pkg/logging"
)

const (
	defaultURL           = "http://localhost:8091"
	exitNotImplemented   = 2
	shutdownGracePeriod  = 10 * time.Second
	notImplementedOutput = "not implemented"
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		code := 1
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			code = exitErr.code
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(code)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

// newRootCmd creates the root command for polis-flavor
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "polis-flavor",
		Short: "Build flavor resolution and the flavor method channel",
		Long: `Resolves the build flavor (dev, stg or prod) from the configured signal
sources and serves it on the flavor method channel.

Example:
  polis-flavor resolve
  polis-flavor serve --addr :8091
  polis-flavor call getFlavor --url http://localhost:8091`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newResolveCmd(opts),
		newServeCmd(opts),
		newStdioCmd(opts),
		newCallCmd(opts),
	)
	return rootCmd
}

// load reads configuration and builds the logger. Logs go to stderr so the
// stdio bridge owns stdout.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
		if err := cfg.Logging.Validate(); err != nil {
			return nil, nil, err
		}
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved flavor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if source != "" {
				cfg.Flavor.Sources = []string{source}
				if err := cfg.Flavor.Validate(); err != nil {
					return err
				}
			}

			provider, closer, err := config.BuildProvider(cfg.Flavor, logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			resolver := flavor.NewResolver(provider, flavor.WithLogger(logger))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), resolver.Resolve(cmd.Context()))
			return err
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Use a single source (resource, env, embedded, symbols)")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the flavor channel over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			h, err := newHost(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeHost(h, logger)

			server := bridge.NewServer(&bridge.ServerConfig{
				ListenAddr:  cfg.Server.Address,
				ServiceName: cfg.Telemetry.ServiceName,
				Metrics: &bridge.MetricsConfig{
					Enabled: cfg.Metrics.Enabled,
					Path:    cfg.Metrics.Path,
				},
			}, h.messenger, logger)

			logger.Info("Starting polis-flavor",
				"addr", cfg.Server.Address,
				"channel", cfg.Channel.Name,
				"sources", cfg.Flavor.Sources,
			)
			if err := server.Start(ctx); err != nil {
				logger.Error("Bridge error", "error", err)
				return err
			}
			logger.Info("Bridge stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.address)")
	return cmd
}

func newStdioCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve the flavor channel as line-delimited JSON on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			h, err := newHost(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeHost(h, logger)

			err = bridge.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), h.messenger, bridge.WithStdioLogger(logger))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func newCallCmd(opts *rootOptions) *cobra.Command {
	var (
		url      string
		name     string
		argsJSON string
		retries  int
	)

	cmd := &cobra.Command{
		Use:   "call <method>",
		Short: "Invoke a method on a running bridge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var callArgs any
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &callArgs); err != nil {
					return fmt.Errorf("invalid --args: %w", err)
				}
			}

			retry := bridge.DefaultRetryConfig()
			retry.MaxRetries = retries
			client := bridge.NewClient(url, nil).WithRetry(retry)

			mc := channel.NewMethodChannel(name, client, nil)
			reply, err := mc.Invoke(cmd.Context(), args[0], callArgs)
			if err != nil {
				return err
			}
			return printReply(cmd, reply)
		},
	}

	cmd.Flags().StringVar(&url, "url", defaultURL, "Bridge base URL")
	cmd.Flags().StringVar(&name, "channel", flavor.DefaultChannel, "Channel name")
	cmd.Flags().StringVar(&argsJSON, "args", "", "Call arguments as JSON")
	cmd.Flags().IntVar(&retries, "retries", bridge.DefaultRetryConfig().MaxRetries, "Retries on connection errors and 429/502/503/504")
	return cmd
}

func printReply(cmd *cobra.Command, reply channel.Reply) error {
	out := cmd.OutOrStdout()
	switch reply.Status {
	case channel.StatusSuccess:
		if s, ok := reply.Value.(string); ok {
			_, err := fmt.Fprintln(out, s)
			return err
		}
		data, err := json.Marshal(reply.Value)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case channel.StatusError:
		if reply.Err == nil {
			return errors.New("empty error reply")
		}
		return reply.Err
	default:
		fmt.Fprintln(out, notImplementedOutput)
		return &exitError{code: exitNotImplemented, err: channel.ErrNotImplemented}
	}
}

func closeHost(h *host, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := h.Close(ctx); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}
}
