package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/switchlife/internal/model"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.HasDeviceOverrides() {
		t.Fatalf("expected no overrides, got %+v", cfg)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[paths]
db = "/tmp/s.db"

[monitor]
recent-sessions = 5
debug = true

[device]
input-method = "xinput"
chatter-threshold-ms = 20
process-name = "game.exe"

[overlay]
enabled = true
port = 9000
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Paths.DB == nil || *cfg.Paths.DB != "/tmp/s.db" {
		t.Fatalf("unexpected db path: %v", cfg.Paths.DB)
	}
	if cfg.Paths.Profile != nil {
		t.Fatalf("profile path should be unset")
	}
	if cfg.Monitor.RecentSessions == nil || *cfg.Monitor.RecentSessions != 5 {
		t.Fatalf("unexpected recent-sessions: %v", cfg.Monitor.RecentSessions)
	}
	if !cfg.HasDeviceOverrides() {
		t.Fatalf("expected device overrides")
	}

	out, err := cfg.Apply(model.DefaultAppConfig())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.InputMethod != model.InputXInput {
		t.Fatalf("expected XInput, got %q", out.InputMethod)
	}
	if out.ChatterThresholdMs != 20 || out.TargetProcessName != "game.exe" {
		t.Fatalf("unexpected config: %+v", out)
	}
	if !out.OverlayEnabled || out.OverlayPort != 9000 {
		t.Fatalf("unexpected overlay settings: %+v", out)
	}
	def := model.DefaultAppConfig()
	if out.PollingRateMsConnected != def.PollingRateMsConnected {
		t.Fatalf("unset field changed: %d", out.PollingRateMsConnected)
	}
}

func TestLoadConfigDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[device\nport = ")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestApplyRejectsInvalidValues(t *testing.T) {
	zero := 0
	bad := "keyboard"
	port := 70000
	cases := []struct {
		name string
		cfg  FileConfig
	}{
		{name: "threshold", cfg: FileConfig{Device: DeviceConfig{ChatterThresholdMs: &zero}}},
		{name: "method", cfg: FileConfig{Device: DeviceConfig{InputMethod: &bad}}},
		{name: "port", cfg: FileConfig{Overlay: OverlayConfig{Port: &port}}},
		{name: "poll", cfg: FileConfig{Overlay: OverlayConfig{PollIntervalMs: &zero}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := model.DefaultAppConfig()
			out, err := tc.cfg.Apply(base)
			if err == nil {
				t.Fatalf("expected error")
			}
			if out != base {
				t.Fatalf("base should be returned unchanged on error")
			}
		})
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	cfgHome := t.TempDir()
	dataHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	t.Setenv("XDG_DATA_HOME", dataHome)

	if got := DefaultConfigPath(); got != filepath.Join(cfgHome, "switchlife", "config.toml") {
		t.Fatalf("unexpected config path: %s", got)
	}
	if got := DefaultPresetDir(); got != filepath.Join(cfgHome, "switchlife", "presets") {
		t.Fatalf("unexpected preset dir: %s", got)
	}
	for _, p := range []string{DefaultProfilePath(), DefaultDBPath(), DefaultLogPath()} {
		if !strings.HasPrefix(p, filepath.Join(dataHome, "switchlife")) {
			t.Fatalf("expected %s under data home", p)
		}
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[device]\nchatter-threshold-ms = 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan FileConfig, 4)
	if err := Watch(ctx, path, nil, func(cfg FileConfig) { got <- cfg }); err != nil {
		t.Fatalf("watch: %v", err)
	}

	writeFile(t, filepath.Join(dir, "other.toml"), "ignored = true\n")
	writeFile(t, path, "[device]\nchatter-threshold-ms = 25\n")

	select {
	case cfg := <-got:
		if cfg.Device.ChatterThresholdMs == nil || *cfg.Device.ChatterThresholdMs != 25 {
			t.Fatalf("unexpected reloaded config: %+v", cfg.Device)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for reload")
	}
}
