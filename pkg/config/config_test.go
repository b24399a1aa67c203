package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate clears every variable Load consults so the host environment
// cannot leak into assertions.
func isolate(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GEMINI_API_KEY", "GOOGLE_API_KEY",
		"CHARTFORGE_API_KEY", "CHARTFORGE_MODEL", "CHARTFORGE_TEMPERATURE",
		"CHARTFORGE_DOCUMENTS_ROOT", "CHARTFORGE_BATCH_PARALLELISM",
		"CHARTFORGE_GENERATIVE_TIMEOUT", "CHARTFORGE_REDIS_ADDR",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("XDG_CACHE_HOME", filepath.Join(t.TempDir(), "xdg"))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	root := t.TempDir()

	cfg, err := Load(LoadOptions{ProjectRoot: root})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.Model, DefaultModel)
	}
	if cfg.HasCredential() {
		t.Error("HasCredential() = true with no key configured")
	}
	if want := filepath.Join(root, DefaultDocumentsRoot); cfg.DocumentsRoot != want {
		t.Errorf("DocumentsRoot = %q, want %q", cfg.DocumentsRoot, want)
	}
	if want := filepath.Join(root, DefaultImagesRoot); cfg.ImagesRoot != want {
		t.Errorf("ImagesRoot = %q, want %q", cfg.ImagesRoot, want)
	}
	if cfg.GenerativeTimeout != 30*time.Second {
		t.Errorf("GenerativeTimeout = %v, want 30s", cfg.GenerativeTimeout)
	}
	if cfg.GenerativeAttempts != 3 {
		t.Errorf("GenerativeAttempts = %d, want 3", cfg.GenerativeAttempts)
	}
	if cfg.RasterWidth != 1280 || cfg.RasterHeight != 720 {
		t.Errorf("raster size = %dx%d, want 1280x720", cfg.RasterWidth, cfg.RasterHeight)
	}
	if filepath.Base(cfg.CacheDir) != AppName {
		t.Errorf("CacheDir = %q, want suffix %q", cfg.CacheDir, AppName)
	}
}

func TestLoadPriority(t *testing.T) {
	isolate(t)
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "chartforge.toml"), `
model = "from-file"
batch_parallelism = 2
documents_root = "file-docs"
`)
	writeFile(t, filepath.Join(root, ".env"), `
CHARTFORGE_BATCH_PARALLELISM=6
CHARTFORGE_DOCUMENTS_ROOT=dotenv-docs
GEMINI_API_KEY=dotenv-key
`)
	t.Setenv("CHARTFORGE_DOCUMENTS_ROOT", "/abs/env-docs")

	cfg, err := Load(LoadOptions{ProjectRoot: root})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model != "from-file" {
		t.Errorf("Model = %q, want from-file", cfg.Model)
	}
	if cfg.BatchParallelism != 6 {
		t.Errorf("BatchParallelism = %d, want 6 (.env over file)", cfg.BatchParallelism)
	}
	if cfg.DocumentsRoot != "/abs/env-docs" {
		t.Errorf("DocumentsRoot = %q, want env value", cfg.DocumentsRoot)
	}
	if cfg.APIKey != "dotenv-key" {
		t.Errorf("APIKey = %q, want dotenv-key", cfg.APIKey)
	}
}

func TestLoadCredentialFallback(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_API_KEY", "google")

	cfg, err := Load(LoadOptions{ProjectRoot: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "google" {
		t.Errorf("APIKey = %q, want google", cfg.APIKey)
	}

	t.Setenv("GEMINI_API_KEY", "gemini")
	cfg, err = Load(LoadOptions{ProjectRoot: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "gemini" {
		t.Errorf("APIKey = %q, want gemini (preferred over GOOGLE_API_KEY)", cfg.APIKey)
	}
}

func TestLoadExplicitConfigFile(t *testing.T) {
	isolate(t)
	root := t.TempDir()

	path := filepath.Join(root, "custom.yaml")
	writeFile(t, path, "model: yaml-model\ngenerative_timeout: 5s\n")

	cfg, err := Load(LoadOptions{ProjectRoot: root, ConfigFile: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "yaml-model" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.GenerativeTimeout != 5*time.Second {
		t.Errorf("GenerativeTimeout = %v, want 5s", cfg.GenerativeTimeout)
	}

	if _, err := Load(LoadOptions{ProjectRoot: root, ConfigFile: filepath.Join(root, "missing.toml")}); err == nil {
		t.Error("Load() with missing explicit file: error = nil")
	}
}

func TestLoadInvalid(t *testing.T) {
	isolate(t)
	t.Setenv("CHARTFORGE_BATCH_PARALLELISM", "0")

	if _, err := Load(LoadOptions{ProjectRoot: t.TempDir()}); err == nil {
		t.Error("Load() error = nil for batch_parallelism 0")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model", func(c *Config) { c.Model = "" }},
		{"temperature", func(c *Config) { c.Temperature = 3 }},
		{"timeout", func(c *Config) { c.GenerativeTimeout = 0 }},
		{"attempts", func(c *Config) { c.GenerativeAttempts = 0 }},
		{"concurrency", func(c *Config) { c.GenerativeConcurrency = 0 }},
		{"raster size", func(c *Config) { c.RasterWidth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Default().Validate() error = %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() error = nil")
			}
		})
	}
}

func TestDefaultCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
	dir, err := DefaultCacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/custom-cache", AppName); dir != want {
		t.Errorf("DefaultCacheDir() = %q, want %q", dir, want)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
