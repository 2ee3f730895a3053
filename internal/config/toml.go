// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/switchlife/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Paths   PathsConfig   `toml:"paths"`
	Monitor MonitorConfig `toml:"monitor"`
	Device  DeviceConfig  `toml:"device"`
	Overlay OverlayConfig `toml:"overlay"`
}

// PathsConfig overrides where switchlife keeps its files.
type PathsConfig struct {
	Profile *string `toml:"profile"`
	DB      *string `toml:"db"`
	Presets *string `toml:"presets"`
	Log     *string `toml:"log"`
}

// MonitorConfig maps loop settings that are not stored in the profile.
type MonitorConfig struct {
	RecentSessions *int  `toml:"recent-sessions"`
	Debug          *bool `toml:"debug"`
}

// DeviceConfig overrides the controller settings stored in the profile.
type DeviceConfig struct {
	ControllerIndex       *int    `toml:"controller-index"`
	InputMethod           *string `toml:"input-method"`
	ChatterThresholdMs    *int    `toml:"chatter-threshold-ms"`
	PollingConnectedMs    *int    `toml:"polling-connected-ms"`
	PollingDisconnectedMs *int    `toml:"polling-disconnected-ms"`
	ProcessName           *string `toml:"process-name"`
}

// OverlayConfig maps the overlay server settings.
type OverlayConfig struct {
	Enabled        *bool `toml:"enabled"`
	Port           *int  `toml:"port"`
	PollIntervalMs *int  `toml:"poll-interval-ms"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// HasDeviceOverrides reports whether the file sets any AppConfig field.
func (c FileConfig) HasDeviceOverrides() bool {
	d, o := c.Device, c.Overlay
	return d.ControllerIndex != nil || d.InputMethod != nil || d.ChatterThresholdMs != nil ||
		d.PollingConnectedMs != nil || d.PollingDisconnectedMs != nil || d.ProcessName != nil ||
		o.Enabled != nil || o.Port != nil || o.PollIntervalMs != nil
}

// Apply returns base with the [device] and [overlay] values of c applied.
func (c FileConfig) Apply(base model.AppConfig) (model.AppConfig, error) {
	out := base
	d := c.Device
	if d.ControllerIndex != nil {
		if *d.ControllerIndex < 0 {
			return base, fmt.Errorf("device.controller-index must be >= 0")
		}
		out.TargetControllerIndex = uint32(*d.ControllerIndex)
	}
	if d.InputMethod != nil {
		m, err := model.ParseInputMethod(*d.InputMethod)
		if err != nil {
			return base, fmt.Errorf("device.input-method: %w", err)
		}
		out.InputMethod = m
	}
	if d.ChatterThresholdMs != nil {
		if *d.ChatterThresholdMs <= 0 {
			return base, fmt.Errorf("device.chatter-threshold-ms must be > 0")
		}
		out.ChatterThresholdMs = uint64(*d.ChatterThresholdMs)
	}
	if d.PollingConnectedMs != nil {
		if *d.PollingConnectedMs <= 0 {
			return base, fmt.Errorf("device.polling-connected-ms must be > 0")
		}
		out.PollingRateMsConnected = uint64(*d.PollingConnectedMs)
	}
	if d.PollingDisconnectedMs != nil {
		if *d.PollingDisconnectedMs <= 0 {
			return base, fmt.Errorf("device.polling-disconnected-ms must be > 0")
		}
		out.PollingRateMsDisconnected = uint64(*d.PollingDisconnectedMs)
	}
	if d.ProcessName != nil {
		out.TargetProcessName = *d.ProcessName
	}
	o := c.Overlay
	if o.Enabled != nil {
		out.OverlayEnabled = *o.Enabled
	}
	if o.Port != nil {
		if *o.Port <= 0 || *o.Port > 65535 {
			return base, fmt.Errorf("overlay.port must be between 1 and 65535")
		}
		out.OverlayPort = uint16(*o.Port)
	}
	if o.PollIntervalMs != nil {
		if *o.PollIntervalMs <= 0 {
			return base, fmt.Errorf("overlay.poll-interval-ms must be > 0")
		}
		out.OverlayPollIntervalMs = uint64(*o.PollIntervalMs)
	}
	return out, nil
}
