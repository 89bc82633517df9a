// Package config loads the finalkey YAML configuration and applies
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/remiblancher/finalkey/pkg/native"
)

// Environment variables read by ApplyEnv.
const (
	EnvLibrary     = "FINALKEY_LIBRARY"
	EnvLibraryPath = "FINALKEY_LIBRARY_PATH"
	EnvAuditLog    = "FINALKEY_AUDIT_LOG"
	EnvPort        = "FINALKEY_PORT"
)

// Config is the top-level configuration.
type Config struct {
	Library LibrarySettings `yaml:"library"`
	PKCS11  PKCS11Settings  `yaml:"pkcs11"`
	Audit   AuditSettings   `yaml:"audit"`
	Server  ServerSettings  `yaml:"server"`
}

// LibrarySettings describes how to find the native library.
type LibrarySettings struct {
	// Name is the logical name or an explicit path
	Name string `yaml:"name"`

	// SearchPaths are tried before the platform search path
	SearchPaths []string `yaml:"search_paths"`

	// Symbols must be exported by the library
	Symbols []string `yaml:"symbols"`
}

// PKCS11Settings holds the optional PKCS#11 module to probe.
type PKCS11Settings struct {
	// Lib is the path to the PKCS#11 library (.so/.dylib/.dll)
	Lib string `yaml:"lib"`
}

// AuditSettings configures the audit log.
type AuditSettings struct {
	Log string `yaml:"log"`
}

// ServerSettings configures the status API.
type ServerSettings struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	MaxConns        int           `yaml:"max_conns"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Library: LibrarySettings{
			Name: native.LibraryName,
		},
		Server: ServerSettings{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load reads a YAML configuration file on top of the defaults, applies
// environment overrides and validates the library settings. An empty path
// yields the defaults plus environment overrides. Server settings are
// left to ValidateServer, so a bad port only fails serve.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvLibrary); v != "" {
		c.Library.Name = v
	}
	if v := getenv(EnvLibraryPath); v != "" {
		c.Library.SearchPaths = filepath.SplitList(v)
	}
	if v := getenv(EnvAuditLog); v != "" {
		c.Audit.Log = v
	}
	return nil
}

// ApplyServerEnv overrides server settings from environment variables.
func (c *Config) ApplyServerEnv(getenv func(string) string) error {
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.Library.Name == "" {
		return fmt.Errorf("library.name is required")
	}
	return nil
}

// ValidateServer checks the settings used by the status API.
func (c *Config) ValidateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxConns < 0 {
		return fmt.Errorf("server.max_conns must not be negative")
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	return nil
}

// Loader returns the dynamic loader described by the library settings.
func (c *Config) Loader() *native.DynamicLoader {
	return &native.DynamicLoader{
		Name:        c.Library.Name,
		SearchPaths: c.Library.SearchPaths,
		Symbols:     c.Library.Symbols,
	}
}

// PKCS11Loader returns the PKCS#11 probe, or nil when no module is set.
func (c *Config) PKCS11Loader() *native.PKCS11Loader {
	if c.PKCS11.Lib == "" {
		return nil
	}
	return &native.PKCS11Loader{ModulePath: c.PKCS11.Lib}
}

// Address returns the listen address of the status API.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
