// CLAUDE:SUMMARY Profile configuration, defaults, YAML loader and environment overrides.
package profile

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of one profile handle.
type Config struct {
	DBPath        string `yaml:"db_path"`
	RegistryPath  string `yaml:"registry_path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
	CacheSize     int    `yaml:"cache_size"`
	MaxDepth      int    `yaml:"max_depth"`
}

// Environment variables read by ApplyEnv.
const (
	EnvDB       = "XMLPROFILE_DB"
	EnvRegistry = "XMLPROFILE_REGISTRY"
)

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "profile.db"
	}
	if c.RegistryPath == "" {
		c.RegistryPath = "profiles.list"
	}
	if c.BusyTimeoutMS <= 0 {
		c.BusyTimeoutMS = 10000
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 1024
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 512
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides paths from XMLPROFILE_DB and XMLPROFILE_REGISTRY when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvRegistry); v != "" {
		c.RegistryPath = v
	}
}
