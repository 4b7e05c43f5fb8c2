// Package config handles repository layout and configuration. An
// anthology repository is any directory containing a .anthology
// snapshot directory; source data lives under data/<source>/ next to
// it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the repository configuration stored in .anthology/config.json.
// Everything has a working default: a repository with no config file is
// fully usable.
type Config struct {
	DataDir        string  `json:"data_dir,omitempty"`        // source records, default "data"
	VenuesFile     string  `json:"venues_file,omitempty"`     // venue table overlay, default "venues.yaml"
	PDFRoot        string  `json:"pdf_root,omitempty"`        // downloaded PDFs for metadata recovery
	TitleThreshold float64 `json:"title_threshold,omitempty"` // fuzzy title match cutoff
}

const (
	AnthologyDir = ".anthology"
	ConfigFile   = "config.json"
	CacheDir     = "cache"
	DBFile       = "index.db"

	defaultDataDir    = "data"
	defaultVenuesFile = "venues.yaml"
)

// EnvRoot overrides repository discovery when set.
const EnvRoot = "ANTHOLOGY_ROOT"

// AnthologyPath returns the .anthology directory under root.
func AnthologyPath(root string) string {
	return filepath.Join(root, AnthologyDir)
}

// ConfigPath returns the config.json path under root.
func ConfigPath(root string) string {
	return filepath.Join(root, AnthologyDir, ConfigFile)
}

// CachePath returns the cache directory under root.
func CachePath(root string) string {
	return filepath.Join(root, AnthologyDir, CacheDir)
}

// DBPath returns the SQLite index path under root.
func DBPath(root string) string {
	return filepath.Join(root, AnthologyDir, CacheDir, DBFile)
}

// IsRepository checks whether root contains an anthology repository.
func IsRepository(root string) bool {
	info, err := os.Stat(AnthologyPath(root))
	return err == nil && info.IsDir()
}

// FindRepository locates the repository root: ANTHOLOGY_ROOT when set,
// otherwise walking up from start until a .anthology directory shows
// up, falling back to the global config's anthology_path.
func FindRepository(start string) (string, error) {
	if env := os.Getenv(EnvRoot); env != "" {
		abs, err := filepath.Abs(ExpandPath(env))
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", EnvRoot, err)
		}
		return abs, nil
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			if global, err := ValidateAnthologyPath(); err == nil && IsRepository(global) {
				return global, nil
			}
			return "", fmt.Errorf("not in an anthology repository (no %s directory found)", AnthologyDir)
		}
		abs = parent
	}
}

// Load reads the configuration for the repository at root. A missing
// config file yields the defaults.
func Load(root string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.VenuesFile == "" {
		cfg.VenuesFile = defaultVenuesFile
	}
	return cfg, nil
}

// Save writes the configuration to the repository at root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(AnthologyPath(root), 0755); err != nil {
		return fmt.Errorf("creating repository dir: %w", err)
	}
	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// DataPath resolves the source data directory relative to root.
func (c *Config) DataPath(root string) string {
	if filepath.IsAbs(c.DataDir) {
		return c.DataDir
	}
	return filepath.Join(root, c.DataDir)
}

// VenuesPath resolves the venue overlay file relative to root.
func (c *Config) VenuesPath(root string) string {
	if filepath.IsAbs(c.VenuesFile) {
		return c.VenuesFile
	}
	return filepath.Join(root, c.VenuesFile)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
