package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name under $HOME.
	ConfigDir = ".crewdesk"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
	// envPrefix namespaces environment overrides (CREWDESK_API_KEY, ...).
	envPrefix = "CREWDESK"
)

// ConfigPath returns the path to the config file. CREWDESK_CONFIG overrides
// the default ~/.crewdesk/config.json.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("CREWDESK_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load reads the config file (if present), applies environment overrides,
// then fills defaults. A missing file is not an error: env plus defaults is
// a valid configuration.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// fine, env + defaults below
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.Provider.APIBase == "" {
		c.Provider.APIBase = "https://api.openai.com/v1"
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = 4096
	}
	if c.Model.Temperature == 0 {
		c.Model.Temperature = 0.7
	}
	if c.Model.MaxToolIterations == 0 {
		c.Model.MaxToolIterations = 20
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(home, ConfigDir, "crewdesk.db")
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = filepath.Join(home, ConfigDir, "logs", "audit")
	}
	if c.Threads.Dir == "" {
		c.Threads.Dir = filepath.Join(home, ConfigDir, "threads")
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = 8000
	}
	if len(c.Gateway.AllowOrigins) == 0 {
		c.Gateway.AllowOrigins = []string{"http://localhost:3000"}
	}
}

// Save writes the config to its default location with private permissions.
// Used by the CLI to scaffold an initial config.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
