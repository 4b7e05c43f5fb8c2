package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGlobalConfigPath(t *testing.T) {
	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	path := GlobalConfigPath()
	want := "/custom/config/mla/config.yml"
	if path != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", path, want)
	}

	os.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	path = GlobalConfigPath()
	want = filepath.Join(home, ".config", "mla", "config.yml")
	if path != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", path, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadGlobalConfig() returned nil")
	}
	if cfg.AnthologyPath != "" {
		t.Errorf("AnthologyPath = %q, want empty", cfg.AnthologyPath)
	}
}

func writeGlobalConfig(t *testing.T, content string) {
	t.Helper()
	tmpDir := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmpDir)
	dir := filepath.Join(tmpDir, GlobalConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigFile), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestLoadGlobalConfig(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	writeGlobalConfig(t, "anthology_path: /data/anthology\n")

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg.AnthologyPath != "/data/anthology" {
		t.Errorf("AnthologyPath = %q, want %q", cfg.AnthologyPath, "/data/anthology")
	}
}

func TestLoadGlobalConfig_TildeExpansion(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	writeGlobalConfig(t, "anthology_path: ~/anthology\n")

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	want := filepath.Join(home, "anthology")
	if cfg.AnthologyPath != want {
		t.Errorf("AnthologyPath = %q, want %q", cfg.AnthologyPath, want)
	}
}

func TestLoadGlobalConfig_Invalid(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	writeGlobalConfig(t, "anthology_path: [not, a, string\n")

	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() expected error for invalid YAML")
	}
}

func TestLoadGlobalConfig_Caching(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	writeGlobalConfig(t, "anthology_path: /data/first\n")

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg.AnthologyPath != "/data/first" {
		t.Fatalf("AnthologyPath = %q, want %q", cfg.AnthologyPath, "/data/first")
	}

	// A second load returns the cached config even after the env changes.
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg2, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg2.AnthologyPath != "/data/first" {
		t.Errorf("cached AnthologyPath = %q, want %q", cfg2.AnthologyPath, "/data/first")
	}
}

func TestValidateAnthologyPath_NotConfigured(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := ValidateAnthologyPath()
	if !errors.Is(err, ErrAnthologyPathNotConfigured) {
		t.Errorf("ValidateAnthologyPath() error = %v, want ErrAnthologyPathNotConfigured", err)
	}
}

func TestValidateAnthologyPath_NotExist(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	writeGlobalConfig(t, "anthology_path: /no/such/anthology\n")

	_, err := ValidateAnthologyPath()
	if !errors.Is(err, ErrAnthologyPathNotExist) {
		t.Errorf("ValidateAnthologyPath() error = %v, want ErrAnthologyPathNotExist", err)
	}
}

func TestValidateAnthologyPath_OK(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	target := t.TempDir()
	writeGlobalConfig(t, "anthology_path: "+target+"\n")

	path, err := ValidateAnthologyPath()
	if err != nil {
		t.Fatalf("ValidateAnthologyPath() error = %v", err)
	}
	if path != target {
		t.Errorf("ValidateAnthologyPath() = %q, want %q", path, target)
	}
}
