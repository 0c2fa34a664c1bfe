package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/choplin/unblockpreview/internal/logging"
	"github.com/choplin/unblockpreview/internal/powershell"
)

const appName = "unblockpreview"

// Config holds the settings read from config.yaml.
type Config struct {
	PowerShell PowerShellConfig `yaml:"powershell"`
	Scan       ScanConfig       `yaml:"scan"`
	Unblock    UnblockConfig    `yaml:"unblock"`
	Logging    logging.Config   `yaml:"logging"`
}

// PowerShellConfig selects the executable and the arguments placed before -Command.
type PowerShellConfig struct {
	Path string   `yaml:"path"`
	Args []string `yaml:"args"`
}

// ScanConfig holds scan defaults.
type ScanConfig struct {
	Recursive bool `yaml:"recursive"`
}

// UnblockConfig holds unblock defaults.
type UnblockConfig struct {
	DryRun bool `yaml:"dry_run"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		PowerShell: PowerShellConfig{
			Path: powershell.DefaultPath(),
			Args: append([]string(nil), powershell.DefaultArgs...),
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads config from a YAML file if it exists. An empty path means the
// default location from GetConfigPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	cfg := Default()
	if err := cfg.loadFromFile(path); err != nil {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) validate() error {
	if c.PowerShell.Path == "" {
		c.PowerShell.Path = powershell.DefaultPath()
	}
	if c.PowerShell.Args == nil {
		c.PowerShell.Args = append([]string(nil), powershell.DefaultArgs...)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Logging.FilePath != "" && !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(GetStateDir(), c.Logging.FilePath)
	}
	return nil
}

// GetStateDir resolves the directory holding the database and log files.
// UNBLOCKPREVIEW_DIR wins, then the XDG data home.
func GetStateDir() string {
	if explicit := os.Getenv("UNBLOCKPREVIEW_DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), appName)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, appName)
}

// GetDBPath returns the path of the SQLite state database.
func GetDBPath() string {
	return filepath.Join(GetStateDir(), "state.db")
}

// GetConfigPath returns the config file location. UNBLOCKPREVIEW_CONFIG wins,
// then the XDG config home.
func GetConfigPath() string {
	if explicit := os.Getenv("UNBLOCKPREVIEW_CONFIG"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	configHome := xdg.ConfigHome
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), appName, "config.yaml")
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName, "config.yaml")
}
