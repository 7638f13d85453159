/*
Package config loads the server configuration from a YAML file.

PURPOSE:
  Single source for runtime settings: HTTP port, database path, artifact
  directory, auth secret and TTL, log settings, and the static user and
  store directory. Flags in cmd/server may override the file values.

SEE ALSO:
  - cmd/server/main.go: loading and overrides
  - directory: consumes Users and Stores
*/
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Users     []UserConfig    `yaml:"users"`
	Stores    []StoreConfig   `yaml:"stores"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type UserConfig struct {
	ID       int    `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Store    string `yaml:"store"`
	Role     string `yaml:"role"`
}

type StoreConfig struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// Load reads and parses the config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config with only defaults applied, for running
// without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Path == "" {
		c.Database.Path = "delivery.db"
	}
	if c.Artifacts.Dir == "" {
		c.Artifacts.Dir = "generated_txt_files"
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 8
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// StoreCodes returns the store name to code mapping.
func (c *Config) StoreCodes() map[string]string {
	codes := make(map[string]string, len(c.Stores))
	for _, s := range c.Stores {
		codes[s.Name] = s.Code
	}
	return codes
}
