package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Default values.
const (
	DefaultBrokerPort     = 1883
	DefaultKeepAlive      = 60 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultPublishTimeout = 5 * time.Second
	DefaultJoinTimeout    = 5 * time.Second
	DefaultInitialDelay   = 1 * time.Second
	DefaultRetryBackoff   = 5 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond
)

// defaultClientID returns a client identifier unique to this process.
func defaultClientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return "dirwatcher-" + host + "-" + strconv.Itoa(os.Getpid())
}

// defaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/dirwatcher/config.yaml.
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "dirwatcher", "config.yaml")
}
