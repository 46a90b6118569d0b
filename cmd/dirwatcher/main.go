// Package main provides the dirwatcher CLI application.
//
// dirwatcher watches a directory and publishes every file event to an
// MQTT broker on <topic>/<created|modified|deleted|moved>, with the file
// path as payload.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xmhha/dirwatcher/pkg/bridge"
	"github.com/0xmhha/dirwatcher/pkg/broker"
	"github.com/0xmhha/dirwatcher/pkg/config"
	"github.com/0xmhha/dirwatcher/pkg/lifecycle"
	"github.com/0xmhha/dirwatcher/pkg/logger"
	"github.com/0xmhha/dirwatcher/pkg/watcher"
)

// version is set during build time.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the command-line flag values.
type options struct {
	configPath  string
	broker      string
	port        int
	topic       string
	path        string
	recursive   bool
	clientID    string
	logLevel    string
	logFormat   string
	logOutput   string
	printConfig bool
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	exitCode := lifecycle.ExitOK
	cmd := newRootCommand(&options{}, stdout, func(code int) { exitCode = code })
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return lifecycle.ExitStartupFailure
	}
	return exitCode
}

// newRootCommand builds the root command with flags bound to opts.
// setExit receives the exit code of a completed run.
func newRootCommand(opts *options, stdout io.Writer, setExit func(int)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirwatcher",
		Short: "Publish filesystem events to an MQTT broker",
		Long: `Watch a directory and publish each file event to an MQTT broker.

Messages go to <topic>/created, <topic>/modified, <topic>/deleted or
<topic>/moved with the affected path as payload, at QoS 2. Directory
events are not published.

Settings are read from flags, then DIRWATCHER_* environment variables,
then the config file, then defaults.

Example usage:
  dirwatcher -b localhost -t sensors/dir -p /srv/inbox
  dirwatcher -c /etc/dirwatcher.yaml
  dirwatcher -c /etc/dirwatcher.yaml --print-config`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath, flagOverrides(cmd, opts)...)
			if err != nil {
				return err
			}

			if opts.printConfig {
				return config.Write(cfg, stdout)
			}

			code, err := serve(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			setExit(code)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file path")
	flags.StringVarP(&opts.broker, "broker", "b", "", "MQTT broker host")
	flags.IntVar(&opts.port, "port", config.DefaultBrokerPort, "MQTT broker port")
	flags.StringVarP(&opts.topic, "topic", "t", "", "MQTT base topic")
	flags.StringVarP(&opts.path, "path", "p", "", "path to watch")
	flags.BoolVar(&opts.recursive, "recursive", true, "watch subdirectories")
	flags.StringVar(&opts.clientID, "client-id", "", "MQTT client identifier")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (text, json, auto)")
	flags.StringVar(&opts.logOutput, "log-output", "", "log output (stdout, stderr, or file path)")
	flags.BoolVar(&opts.printConfig, "print-config", false, "print the effective configuration and exit")

	return cmd
}

// flagOverrides returns overrides for the flags set on the command line.
// Unset flags leave file and environment values in place.
func flagOverrides(cmd *cobra.Command, opts *options) []config.Override {
	flags := cmd.Flags()
	var overrides []config.Override

	set := func(name string, apply config.Override) {
		if flags.Changed(name) {
			overrides = append(overrides, apply)
		}
	}

	set("broker", func(c *config.Config) { c.Broker.Host = opts.broker })
	set("port", func(c *config.Config) { c.Broker.Port = opts.port })
	set("topic", func(c *config.Config) { c.Topic = opts.topic })
	set("path", func(c *config.Config) { c.Watch.Path = opts.path })
	set("recursive", func(c *config.Config) { c.Watch.Recursive = opts.recursive })
	set("client-id", func(c *config.Config) { c.Broker.ClientID = opts.clientID })
	set("log-level", func(c *config.Config) { c.Logging.Level = opts.logLevel })
	set("log-format", func(c *config.Config) { c.Logging.Format = opts.logFormat })
	set("log-output", func(c *config.Config) { c.Logging.Output = opts.logOutput })

	return overrides
}

// serve wires the components together and runs until shutdown.
// Errors are returned only for failures before the controller starts.
func serve(ctx context.Context, cfg *config.Config) (int, error) {
	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Output:     cfg.Logging.Output,
		Format:     cfg.Logging.Format,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})

	conn, err := broker.New(brokerConfig(cfg), log.With("component", "broker"))
	if err != nil {
		_ = log.Close() // nolint:errcheck
		return 0, fmt.Errorf("failed to create broker connection: %w", err)
	}

	br, err := bridge.New(bridge.Config{BaseTopic: cfg.Topic}, conn, log.With("component", "bridge"))
	if err != nil {
		_ = log.Close() // nolint:errcheck
		return 0, fmt.Errorf("failed to create bridge: %w", err)
	}

	w, err := watcher.New(watcher.Config{Buffer: cfg.Watch.Buffer}, br, log.With("component", "watcher"))
	if err != nil {
		_ = log.Close() // nolint:errcheck
		return 0, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctrl := lifecycle.New(lifecycle.Config{
		WatchPath:   cfg.Watch.Path,
		Recursive:   cfg.Watch.Recursive,
		JoinTimeout: cfg.Watch.JoinTimeout,
	}, conn, w, log, lifecycle.WithStats(br))

	return ctrl.Run(ctx), nil
}

// brokerConfig maps the loaded configuration onto connection settings.
func brokerConfig(cfg *config.Config) broker.Config {
	return broker.Config{
		Host:           cfg.Broker.Host,
		Port:           cfg.Broker.Port,
		ClientID:       cfg.Broker.ClientID,
		Username:       cfg.Broker.Username,
		Password:       cfg.Broker.Password,
		KeepAlive:      cfg.Broker.KeepAlive,
		ConnectTimeout: cfg.Broker.ConnectTimeout,
		PublishTimeout: cfg.Broker.PublishTimeout,
		InitialDelay:   cfg.Reconnect.InitialDelay,
		RetryBackoff:   cfg.Reconnect.RetryBackoff,
		PollInterval:   cfg.Reconnect.PollInterval,
	}
}
