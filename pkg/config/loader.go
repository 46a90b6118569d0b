package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by the loader.
const (
	EnvConfig   = "DIRWATCHER_CONFIG"
	EnvBroker   = "DIRWATCHER_BROKER"
	EnvPort     = "DIRWATCHER_PORT"
	EnvTopic    = "DIRWATCHER_TOPIC"
	EnvPath     = "DIRWATCHER_PATH"
	EnvLogLevel = "DIRWATCHER_LOG_LEVEL"
)

// Override mutates a loaded configuration before validation.
// Command-line flags are applied this way.
type Override func(*Config)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Overrides
	// 2. Environment variables
	// 3. Configuration file
	// 4. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load(overrides ...Override) (*Config, error)

	// LoadFromFile decodes a specific file on top of the defaults
	// without validating the result.
	LoadFromFile(path string) (*Config, error)
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, the loader uses $DIRWATCHER_CONFIG, then
// ./config.yaml, then ~/.config/dirwatcher/config.yaml.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load(overrides ...Override) (*Config, error) {
	cfg := Default()

	configPath := l.configPath
	explicit := configPath != ""
	if !explicit {
		if envPath := os.Getenv(EnvConfig); envPath != "" {
			configPath = envPath
			explicit = true
		} else {
			configPath = l.findConfigFile()
		}
	}

	if configPath != "" {
		if err := decodeFile(configPath, cfg); err != nil {
			// A file that was asked for must load; a discovered one may not.
			if explicit {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
			cfg = Default()
		}
	}

	cfg, err := l.applyEnvVars(cfg)
	if err != nil {
		return nil, err
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile decodes the YAML file at path into cfg. Keys absent from
// the file keep the values already present in cfg.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations.
//
// Returns empty string if no config file is found.
func (l *loader) findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		defaultConfigPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - DIRWATCHER_BROKER: Broker host
//   - DIRWATCHER_PORT: Broker port
//   - DIRWATCHER_TOPIC: Base topic
//   - DIRWATCHER_PATH: Watch path
//   - DIRWATCHER_LOG_LEVEL: Log level
//
// An unparsable DIRWATCHER_PORT is an error.
func (l *loader) applyEnvVars(cfg *Config) (*Config, error) {
	result := *cfg

	if host := os.Getenv(EnvBroker); host != "" {
		result.Broker.Host = host
	}

	if port := os.Getenv(EnvPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidBrokerPort, EnvPort, port)
		}
		result.Broker.Port = p
	}

	if topic := os.Getenv(EnvTopic); topic != "" {
		result.Topic = topic
	}

	if path := os.Getenv(EnvPath); path != "" {
		result.Watch.Path = path
	}

	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	return &result, nil
}

// Load is a convenience function that creates a loader for path and
// loads configuration with the given overrides.
func Load(path string, overrides ...Override) (*Config, error) {
	return NewLoader(path).Load(overrides...)
}

// Write encodes the configuration as YAML to w with the broker
// password redacted.
func Write(cfg *Config, w io.Writer) error {
	redacted := *cfg
	if redacted.Broker.Password != "" {
		redacted.Broker.Password = "********"
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&redacted); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return enc.Close()
}
