package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathFunctions(t *testing.T) {
	root := "/test/repo"

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"AnthologyPath", AnthologyPath, "/test/repo/.anthology"},
		{"ConfigPath", ConfigPath, "/test/repo/.anthology/config.json"},
		{"CachePath", CachePath, "/test/repo/.anthology/cache"},
		{"DBPath", DBPath, "/test/repo/.anthology/cache/index.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(root)
			if got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, root, got, tt.want)
			}
		})
	}
}

func TestIsRepository(t *testing.T) {
	tmpDir := t.TempDir()

	if IsRepository(tmpDir) {
		t.Error("IsRepository() = true for non-repo directory")
	}

	if err := os.Mkdir(filepath.Join(tmpDir, AnthologyDir), 0755); err != nil {
		t.Fatalf("Failed to create .anthology: %v", err)
	}

	if !IsRepository(tmpDir) {
		t.Error("IsRepository() = false for repo directory")
	}
}

func TestIsRepository_FileNotDir(t *testing.T) {
	tmpDir := t.TempDir()

	// .anthology as a plain file does not make a repository.
	if err := os.WriteFile(filepath.Join(tmpDir, AnthologyDir), []byte("not a dir"), 0644); err != nil {
		t.Fatalf("Failed to create .anthology file: %v", err)
	}

	if IsRepository(tmpDir) {
		t.Error("IsRepository() = true when .anthology is a file")
	}
}

func TestFindRepository_WalkUp(t *testing.T) {
	orig := os.Getenv(EnvRoot)
	defer os.Setenv(EnvRoot, orig)
	os.Setenv(EnvRoot, "")

	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, AnthologyDir), 0755); err != nil {
		t.Fatalf("Failed to create .anthology: %v", err)
	}

	nested := filepath.Join(tmpDir, "data", "dblp")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}

	root, err := FindRepository(nested)
	if err != nil {
		t.Fatalf("FindRepository() error = %v", err)
	}
	resolved, _ := filepath.EvalSymlinks(tmpDir)
	gotResolved, _ := filepath.EvalSymlinks(root)
	if gotResolved != resolved {
		t.Errorf("FindRepository() = %q, want %q", root, tmpDir)
	}
}

func TestFindRepository_EnvOverride(t *testing.T) {
	orig := os.Getenv(EnvRoot)
	defer os.Setenv(EnvRoot, orig)

	tmpDir := t.TempDir()
	os.Setenv(EnvRoot, tmpDir)

	root, err := FindRepository("/nowhere/in/particular")
	if err != nil {
		t.Fatalf("FindRepository() error = %v", err)
	}
	if root != tmpDir {
		t.Errorf("FindRepository() = %q, want %q", root, tmpDir)
	}
}

func TestFindRepository_NotFound(t *testing.T) {
	orig := os.Getenv(EnvRoot)
	defer os.Setenv(EnvRoot, orig)
	os.Setenv(EnvRoot, "")

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	if _, err := FindRepository(t.TempDir()); err == nil {
		t.Error("FindRepository() expected error outside any repository")
	}
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "data")
	}
	if cfg.VenuesFile != "venues.yaml" {
		t.Errorf("VenuesFile = %q, want %q", cfg.VenuesFile, "venues.yaml")
	}
	if cfg.TitleThreshold != 0 {
		t.Errorf("TitleThreshold = %v, want 0", cfg.TitleThreshold)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	saved := &Config{
		DataDir:        "records",
		VenuesFile:     "conf/venues.yaml",
		PDFRoot:        "/srv/pdfs",
		TitleThreshold: 0.85,
	}
	if err := saved.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataDir != saved.DataDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, saved.DataDir)
	}
	if cfg.PDFRoot != saved.PDFRoot {
		t.Errorf("PDFRoot = %q, want %q", cfg.PDFRoot, saved.PDFRoot)
	}
	if cfg.TitleThreshold != saved.TitleThreshold {
		t.Errorf("TitleThreshold = %v, want %v", cfg.TitleThreshold, saved.TitleThreshold)
	}
}

func TestLoadCorruptConfig(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(AnthologyPath(tmpDir), 0755); err != nil {
		t.Fatalf("Failed to create .anthology: %v", err)
	}
	if err := os.WriteFile(ConfigPath(tmpDir), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load() expected error for corrupt config")
	}
}

func TestDataPath(t *testing.T) {
	cfg := &Config{DataDir: "data"}
	if got := cfg.DataPath("/repo"); got != "/repo/data" {
		t.Errorf("DataPath() = %q, want %q", got, "/repo/data")
	}

	cfg = &Config{DataDir: "/abs/data"}
	if got := cfg.DataPath("/repo"); got != "/abs/data" {
		t.Errorf("DataPath() = %q, want %q", got, "/abs/data")
	}
}

func TestVenuesPath(t *testing.T) {
	cfg := &Config{VenuesFile: "venues.yaml"}
	if got := cfg.VenuesPath("/repo"); got != "/repo/venues.yaml" {
		t.Errorf("VenuesPath() = %q, want %q", got, "/repo/venues.yaml")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/anthology", filepath.Join(home, "anthology")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
