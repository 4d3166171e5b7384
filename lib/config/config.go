// Package config loads the hxnav configuration file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/pthm/hxnav"
	"github.com/pthm/hxnav/lib/browser"
	"github.com/pthm/hxnav/lib/demo"
	"github.com/pthm/hxnav/lib/logging"
)

//go:embed config.example.toml
var exampleConf []byte

// Config is the whole configuration file.
type Config struct {
	Log     logging.Options `toml:"log"`
	Engine  hxnav.Config    `toml:"engine"`
	Browser browser.Config  `toml:"browser"`
	Demo    demo.Config     `toml:"demo"`
}

// Load reads path on top of the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	md, err := toml.Decode(string(data), config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	return config, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty or
// names a file that does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	config, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// Default returns the configuration from the embedded example file.
func Default() *Config {
	var config Config
	if _, err := toml.Decode(string(exampleConf), &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Example returns the embedded example file.
func Example() []byte {
	return append([]byte(nil), exampleConf...)
}

// WriteExample writes the example file to path. It refuses to overwrite an
// existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
