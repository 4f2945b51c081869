package config

import (
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Config represents the configuration of one ledger node
type Config struct {
	// Default config file location
	configFile string

	Node struct {
		ListenAddress     string `json:"listen"`
		AdvertisedAddress string `json:"advertised,omitempty"`
	} `json:"node"`

	Peers struct {
		// Path of the on-disk peer cache. Empty disables caching.
		CachePath string `json:"cache,omitempty"`
		// Addresses greeted automatically at startup
		Bootstrap []string `json:"bootstrap,omitempty"`
		// Conflict-resolution period in seconds. 0 disables the ticker.
		ResolveIntervalSec int `json:"resolve_interval_sec,omitempty"`
	} `json:"peers"`
}

// NewEmptyConfig generates a new configuration with default settings
func NewEmptyConfig(configFile string) *Config {
	cfg := &Config{}

	cfg.configFile = configFile

	cfg.Node.ListenAddress = "127.0.0.1:4000"
	cfg.Peers.ResolveIntervalSec = 0

	return cfg
}

func NewConfigFromFile(configFile string) (*Config, error) {
	cfg := NewEmptyConfig(configFile)
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to a file
func (c *Config) Save() error {
	log.Infof("Saving config to %s", c.configFile)

	// We'll marshall our structure to JSON and write it into a file
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configFile, data, 0644)
}

func (c *Config) Load() error {
	log.Infof("Loading config from %s", c.configFile)
	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, c); err != nil {
		return err
	}

	return nil
}
