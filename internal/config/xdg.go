// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

const appDir = "switchlife"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultProfilePath returns the default path of the JSON profile.
func DefaultProfilePath() string {
	return filepath.Join(XDGDataHome(), appDir, "profile.json")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appDir, "switchlife.db")
}

// DefaultLogPath is where logs go while the dashboard owns the terminal.
func DefaultLogPath() string {
	return filepath.Join(XDGDataHome(), appDir, "switchlife.log")
}

// DefaultPresetDir returns the directory scanned for preset files.
func DefaultPresetDir() string {
	return filepath.Join(XDGConfigHome(), appDir, "presets")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appDir, "config.toml")
}
