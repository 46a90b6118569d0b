package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0xmhha/dirwatcher/pkg/config"
	"github.com/0xmhha/dirwatcher/pkg/lifecycle"
)

// clearEnv blanks the DIRWATCHER_* variables for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvConfig, config.EnvBroker, config.EnvPort,
		config.EnvTopic, config.EnvPath, config.EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
}

// writeConfig writes a YAML config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// TestFlagOverrides tests that only flags given on the command line
// override loaded values.
func TestFlagOverrides(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "no flags",
			args: []string{},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Broker.Host != "file-host" {
					t.Errorf("Broker.Host = %s, want file-host", cfg.Broker.Host)
				}
				if !cfg.Watch.Recursive {
					t.Error("Watch.Recursive = false, want true")
				}
			},
		},
		{
			name: "short flags",
			args: []string{"-b", "mqtt.local", "-t", "sensors/dir", "-p", "/data"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Broker.Host != "mqtt.local" {
					t.Errorf("Broker.Host = %s, want mqtt.local", cfg.Broker.Host)
				}
				if cfg.Topic != "sensors/dir" {
					t.Errorf("Topic = %s, want sensors/dir", cfg.Topic)
				}
				if cfg.Watch.Path != "/data" {
					t.Errorf("Watch.Path = %s, want /data", cfg.Watch.Path)
				}
				if cfg.Broker.Port != 1883 {
					t.Errorf("Broker.Port = %d, want unchanged 1883", cfg.Broker.Port)
				}
			},
		},
		{
			name: "long flags",
			args: []string{"--port", "8883", "--recursive=false", "--client-id", "cid", "--log-level", "debug", "--log-format", "json", "--log-output", "stdout"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Broker.Port != 8883 {
					t.Errorf("Broker.Port = %d, want 8883", cfg.Broker.Port)
				}
				if cfg.Watch.Recursive {
					t.Error("Watch.Recursive = true, want false")
				}
				if cfg.Broker.ClientID != "cid" {
					t.Errorf("Broker.ClientID = %s, want cid", cfg.Broker.ClientID)
				}
				if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" || cfg.Logging.Output != "stdout" {
					t.Errorf("Logging = %+v", cfg.Logging)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &options{}
			cmd := newRootCommand(opts, io.Discard, func(int) {})
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			cfg := config.Default()
			cfg.Broker.Host = "file-host"
			for _, apply := range flagOverrides(cmd, opts) {
				apply(cfg)
			}

			tt.check(t, cfg)
		})
	}
}

func TestRunPrintConfig(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
broker:
  host: broker.local
  password: hunter2
topic: sensors/dir
watch:
  path: /srv/inbox
`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-c", path, "--print-config", "-t", "override/topic"}, &stdout, &stderr)

	if code != lifecycle.ExitOK {
		t.Fatalf("run() = %d, want %d; stderr: %s", code, lifecycle.ExitOK, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{"host: broker.local", "topic: override/topic", "path: /srv/inbox"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hunter2") {
		t.Error("Output contains the password")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
broker:
  host: broker.local
watch:
  path: /srv/inbox
`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-c", path}, &stdout, &stderr)

	if code != lifecycle.ExitStartupFailure {
		t.Errorf("run() = %d, want %d", code, lifecycle.ExitStartupFailure)
	}
	if !strings.Contains(stderr.String(), "Error:") {
		t.Errorf("stderr = %q, want error message", stderr.String())
	}
}

func TestRunMissingConfigFile(t *testing.T) {
	clearEnv(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-c", filepath.Join(t.TempDir(), "none.yaml")}, &stdout, &stderr)

	if code != lifecycle.ExitStartupFailure {
		t.Errorf("run() = %d, want %d", code, lifecycle.ExitStartupFailure)
	}
}

func TestRunMissingWatchPath(t *testing.T) {
	clearEnv(t)

	missing := filepath.Join(t.TempDir(), "missing")
	path := writeConfig(t, "topic: sensors/dir\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-c", path, "-b", "127.0.0.1", "-p", missing, "--log-level", "error"}, &stdout, &stderr)

	if code != lifecycle.ExitStartupFailure {
		t.Errorf("run() = %d, want %d", code, lifecycle.ExitStartupFailure)
	}
}

func TestRunBadArguments(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--nope"}},
		{"positional argument", []string{"extra"}},
		{"bad port", []string{"--port", "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != lifecycle.ExitStartupFailure {
				t.Errorf("run(%v) = %d, want %d", tt.args, code, lifecycle.ExitStartupFailure)
			}
		})
	}
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--version"}, &stdout, &stderr)

	if code != lifecycle.ExitOK {
		t.Errorf("run() = %d, want %d", code, lifecycle.ExitOK)
	}
	if !strings.Contains(stdout.String(), version) {
		t.Errorf("Output = %q, want version %s", stdout.String(), version)
	}
}

func TestBrokerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Broker.Host = "h"
	cfg.Broker.Username = "u"

	bc := brokerConfig(cfg)

	if bc.Host != "h" || bc.Port != cfg.Broker.Port || bc.Username != "u" {
		t.Errorf("brokerConfig() = %+v", bc)
	}
	if bc.InitialDelay != cfg.Reconnect.InitialDelay || bc.RetryBackoff != cfg.Reconnect.RetryBackoff {
		t.Errorf("reconnect timing not copied: %+v", bc)
	}
}

func TestRunInvalidEnvPort(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvPort, "eighteen83")

	path := writeConfig(t, "broker:\n  host: broker.local\ntopic: t\nwatch:\n  path: /srv\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-c", path, "--print-config"}, &stdout, &stderr)

	if code != lifecycle.ExitStartupFailure {
		t.Errorf("run() = %d, want %d", code, lifecycle.ExitStartupFailure)
	}
	if !strings.Contains(stderr.String(), config.EnvPort) {
		t.Errorf("stderr = %q, want it to name %s", stderr.String(), config.EnvPort)
	}
}
