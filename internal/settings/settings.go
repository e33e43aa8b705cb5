// Package settings loads the configuration of the extreg command itself
// (not to be confused with the pyRevit config it edits).
//
// Values are merged in this order, later sources win:
//
//  1. built-in defaults
//  2. a TOML file (--settings or $XDG_CONFIG_HOME/extreg/extreg.toml)
//  3. EXTREG_* environment variables, e.g. EXTREG_PYREVIT_CONFIG
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/cpsk-tools/extreg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables overriding settings.
const EnvPrefix = "EXTREG_"

// Settings is the resolved tool configuration.
type Settings struct {
	PyRevit   PyRevit   `koanf:"pyrevit"`
	Log       Log       `koanf:"log"`
	Cleanup   Cleanup   `koanf:"cleanup"`
	Companion Companion `koanf:"companion"`
}

// PyRevit selects the config file and the key holding the extension list.
type PyRevit struct {
	Config  string `koanf:"config"`
	Section string `koanf:"section"`
	Key     string `koanf:"key"`
}

// Log configures the log file.
type Log struct {
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
}

// Cleanup lists cache directories removed on unregister.
type Cleanup struct {
	Root     string   `koanf:"root"`
	Patterns []string `koanf:"patterns"`
}

// Companion configures the uninstall of a dependency installed alongside
// the extension. Marker may be relative to the extension's parent dir.
type Companion struct {
	Marker  string   `koanf:"marker"`
	Command []string `koanf:"command"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"pyrevit.config":    "",
		"pyrevit.section":   extreg.DefaultSection,
		"pyrevit.key":       extreg.DefaultKey,
		"log.file":          "",
		"log.max_size_mb":   5,
		"log.max_backups":   3,
		"cleanup.root":      filepath.Dir(extreg.UserConfigPath()),
		"cleanup.patterns":  []string{"*/CPSK*", "**/__pycache__"},
		"companion.marker":  ".pyrevit-installed",
		"companion.command": []string{},
	}
}

// DefaultFile returns the settings file looked up when none is given.
func DefaultFile() string {
	return filepath.Join(xdg.ConfigHome, "extreg", "extreg.toml")
}

// Load merges defaults, the settings file and the environment. An explicit
// path must exist, the default file is optional.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load settings file, if any
	if path == "" {
		if _, err := os.Stat(DefaultFile()); err == nil {
			path = DefaultFile()
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
		}
	}

	// 3. Load environment overrides
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	return &s, nil
}

// envValue maps EXTREG_LOG_MAX_SIZE_MB to log.max_size_mb. Only the first
// underscore separates section and key. List settings are split on commas
// (patterns) or whitespace (command).
func envValue(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.Replace(key, "_", ".", 1)

	switch key {
	case "cleanup.patterns":
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}

		return key, out
	case "companion.command":
		return key, strings.Fields(value)
	}

	return key, value
}
