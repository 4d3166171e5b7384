package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm/hxnav"
	"github.com/pthm/hxnav/lib/browser"
	"github.com/pthm/hxnav/lib/demo"
)

func TestConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		config := Default()

		if config.Engine != hxnav.DefaultConfig() {
			t.Errorf("engine section = %+v, want %+v", config.Engine, hxnav.DefaultConfig())
		}
		if config.Browser != browser.DefaultConfig() {
			t.Errorf("browser section = %+v, want %+v", config.Browser, browser.DefaultConfig())
		}
		if config.Demo != demo.DefaultConfig() {
			t.Errorf("demo section = %+v, want %+v", config.Demo, demo.DefaultConfig())
		}
		if config.Log.Level != "info" {
			t.Errorf("expected log level info, got %s", config.Log.Level)
		}
	})

	t.Run("WriteExample", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "hxnav.toml")

		if err := WriteExample(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := Load(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if *config != *Default() {
			t.Errorf("created config doesn't match default")
		}

		if err := WriteExample(configPath); err == nil {
			t.Error("writing the example again should fail")
		}
	})

	t.Run("Load", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "hxnav.toml")

		testConfig := `[log]
level = "debug"

[engine]
required_clicks = 2
confirm_timeout = "500ms"

[demo]
addr = ":9000"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := Load(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Log.Level != "debug" {
			t.Errorf("expected log level debug, got %s", config.Log.Level)
		}
		if config.Engine.RequiredClicks != 2 {
			t.Errorf("expected 2 required clicks, got %d", config.Engine.RequiredClicks)
		}
		if config.Engine.ConfirmTimeout != 500*time.Millisecond {
			t.Errorf("expected 500ms timeout, got %v", config.Engine.ConfirmTimeout)
		}
		if config.Engine.FormDepth != hxnav.DefaultFormDepth {
			t.Errorf("unset keys should keep defaults, got form depth %d", config.Engine.FormDepth)
		}
		if config.Demo.Addr != ":9000" {
			t.Errorf("expected addr :9000, got %s", config.Demo.Addr)
		}
		if config.Demo.PageSize != demo.DefaultConfig().PageSize {
			t.Errorf("unset keys should keep defaults, got page size %d", config.Demo.PageSize)
		}
	})

	t.Run("LoadUnknownKey", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "hxnav.toml")
		if err := os.WriteFile(configPath, []byte("[engine]\nrequired_klicks = 3\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(configPath); err == nil {
			t.Error("expected an error for an unknown key")
		}
	})

	t.Run("LoadInvalid", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "hxnav.toml")
		if err := os.WriteFile(configPath, []byte("[engine\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(configPath); err == nil {
			t.Error("expected a parse error")
		}
	})

	t.Run("LoadOrDefault", func(t *testing.T) {
		config, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("missing file should fall back to defaults: %v", err)
		}
		if *config != *Default() {
			t.Error("expected defaults")
		}

		if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("Load of a missing file should fail")
		}
	})
}
