package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/mla/config.yml.
// It holds the one machine-level setting that does not belong in a
// repository: the default anthology location.
type GlobalConfig struct {
	AnthologyPath string `yaml:"anthology_path,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "mla"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/mla/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.AnthologyPath != "" {
		cfg.AnthologyPath = ExpandPath(cfg.AnthologyPath)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetAnthologyPath returns the configured default anthology path.
func GetAnthologyPath() string {
	cfg, _ := LoadGlobalConfig()
	return cfg.AnthologyPath
}

// ErrAnthologyPathNotConfigured is returned when anthology_path is not set.
var ErrAnthologyPathNotConfigured = errors.New("anthology_path not configured")

// ErrAnthologyPathNotExist is returned when the configured anthology_path
// doesn't exist on disk.
var ErrAnthologyPathNotExist = errors.New("anthology_path does not exist")

// ValidateAnthologyPath returns the anthology path from global config after
// validation. Returns an error if not configured or if the path is missing.
func ValidateAnthologyPath() (string, error) {
	path := GetAnthologyPath()
	if path == "" {
		return "", ErrAnthologyPathNotConfigured
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrAnthologyPathNotExist, path)
	}
	return path, nil
}

// HelpfulConfigMessage returns guidance shown when no repository can be found.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No anthology repository found.

Run 'mla build' inside a repository directory, set %s, or create
%s to point at a default anthology:
  mkdir -p %s
  echo 'anthology_path: /path/to/your/anthology' > %s`,
		EnvRoot,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
