package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/switchlife/internal/config"
	"github.com/verte-zerg/switchlife/internal/logger"
	"github.com/verte-zerg/switchlife/internal/model"
	"github.com/verte-zerg/switchlife/internal/monitor"
	"github.com/verte-zerg/switchlife/internal/profile"
)

type cliEnv struct {
	dir     string
	config  string
	profile string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	return cliEnv{
		dir:     dir,
		config:  filepath.Join(dir, "config.toml"),
		profile: filepath.Join(dir, "profile.json"),
	}
}

func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	full := append([]string{
		"--config", e.config,
		"--profile", e.profile,
		"--db", filepath.Join(e.dir, "switchlife.db"),
		"--presets", filepath.Join(e.dir, "presets"),
	}, args...)
	root.SetArgs(full)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	return out.String(), err
}

func (e cliEnv) load(t *testing.T) *model.UserProfile {
	t.Helper()
	p, err := profile.NewFileRepository(e.profile, logger.Noop()).Load()
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	return p
}

func TestDescribeTransition(t *testing.T) {
	got := describeTransition(1500*time.Millisecond, 1, 1|32)
	want := "    1.500s  0000000000100001     33  down: 32"
	if got != want {
		t.Fatalf("describeTransition = %q, want %q", got, want)
	}
	got = describeTransition(2*time.Second, 3|64, 1)
	if !strings.HasSuffix(got, "  up: 2 64") {
		t.Fatalf("release not listed: %q", got)
	}
	if strings.Contains(got, "down:") {
		t.Fatalf("unexpected down list: %q", got)
	}
}

func TestParseMask(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{in: "32", want: 32},
		{in: "0x20", want: 32},
		{in: "0b100000", want: 32},
		{in: " 0 ", want: 0},
		{in: "abc", wantErr: true},
		{in: "4294967296", wantErr: true},
		{in: "-1", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseMask(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseMask(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseMask(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("parseMask(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestConfigTemplateDecodesToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	tmpl := defaultConfigTemplate()
	if err := os.WriteFile(path, []byte(tmpl), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("commented template: %v", err)
	}
	if cfg.HasDeviceOverrides() {
		t.Fatalf("commented template should not override anything")
	}

	// Uncomment every setting line.
	var lines []string
	for _, line := range strings.Split(tmpl, "\n") {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			line = strings.TrimPrefix(line, "# ")
		}
		lines = append(lines, line)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err = config.LoadConfig(path)
	if err != nil {
		t.Fatalf("uncommented template: %v", err)
	}
	if cfg.Paths.DB == nil || *cfg.Paths.DB != config.DefaultDBPath() {
		t.Fatalf("paths.db = %v", cfg.Paths.DB)
	}
	if cfg.Monitor.RecentSessions == nil || *cfg.Monitor.RecentSessions != monitor.DefaultRecentSessionLimit {
		t.Fatalf("monitor.recent-sessions = %v", cfg.Monitor.RecentSessions)
	}
	applied, err := cfg.Apply(model.DefaultAppConfig())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied != model.DefaultAppConfig() {
		t.Fatalf("template values differ from defaults: %+v", applied)
	}
}

func TestApplyConfigRespectsFlags(t *testing.T) {
	var target string
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().StringVar(&target, "db", "default", "")

	fromFile := "file"
	applyStringConfig(cmd, "db", &target, &fromFile)
	if target != "file" {
		t.Fatalf("unset flag should take file value, got %q", target)
	}
	if err := cmd.Flags().Set("db", "flag"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	applyStringConfig(cmd, "db", &target, &fromFile)
	if target != "flag" {
		t.Fatalf("changed flag should win, got %q", target)
	}
	applyStringConfig(cmd, "db", &target, nil)
	if target != "flag" {
		t.Fatalf("nil value should be ignored, got %q", target)
	}
}

func TestConfigFilePaths(t *testing.T) {
	env := newCLIEnv(t)
	other := filepath.Join(env.dir, "elsewhere.json")
	body := "[paths]\nprofile = " + tomlString(other) + "\n"
	if err := os.WriteFile(env.config, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := newRootCmd()
	root.SetArgs([]string{"--config", env.config, "switch", "replace", "Key2", "--model", "omron_v_10_1a4"})
	root.SetOut(&bytes.Buffer{})
	if err := root.Execute(); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("profile not written to configured path: %v", err)
	}
}

func tomlString(s string) string {
	return `"` + strings.ReplaceAll(s, `\`, `\\`) + `"`
}

func TestRecentSessionsMustBePositive(t *testing.T) {
	env := newCLIEnv(t)
	for _, n := range []string{"0", "-2"} {
		_, err := env.run(t, "--headless", "--recent-sessions="+n)
		if err == nil || !strings.Contains(err.Error(), "must be >= 1") {
			t.Fatalf("--recent-sessions %s: err = %v", n, err)
		}
	}

	if err := os.WriteFile(env.config, []byte("[monitor]\nrecent-sessions = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := env.run(t, "--headless"); err == nil {
		t.Fatalf("recent-sessions = 0 in the config file should fail")
	}
	if _, err := os.Stat(filepath.Join(env.dir, "switchlife.db")); !os.IsNotExist(err) {
		t.Fatalf("rejected run must not open the db")
	}
}

func TestBindUnbindsPreviousOwner(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run(t, "bind", "Key1", "0x40")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if !strings.Contains(out, "Bound Key1 to mask 64") {
		t.Fatalf("unexpected output: %q", out)
	}
	p := env.load(t)
	if p.Mapping.Bindings[model.Key1] != 64 {
		t.Fatalf("Key1 = %d, want 64", p.Mapping.Bindings[model.Key1])
	}
	if p.Mapping.Bindings[model.Key5] != 0 {
		t.Fatalf("Key5 should be unbound, got %d", p.Mapping.Bindings[model.Key5])
	}
}

func TestBindRejectsBadInput(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := env.run(t, "bind", "Key9", "1"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if _, err := env.run(t, "bind", "Key1", "lots"); err == nil {
		t.Fatalf("expected error for bad mask")
	}
	if _, err := os.Stat(env.profile); !os.IsNotExist(err) {
		t.Fatalf("rejected bind must not write the profile")
	}
}

func TestSwitchCommands(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := env.run(t, "switch", "reset", "Key3"); err == nil {
		t.Fatalf("reset of an unrecorded switch should fail")
	}
	if _, err := env.run(t, "switch", "replace", "Key3", "--model", "nope"); err == nil {
		t.Fatalf("unknown model should fail")
	}

	if _, err := env.run(t, "switch", "replace", "Key3", "--model", "omron_d2mv_01_1c3"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	p := env.load(t)
	sw := p.Switches[model.Key3]
	if sw == nil || sw.SwitchModelID != "omron_d2mv_01_1c3" || sw.LastReplacedAt == nil {
		t.Fatalf("switch not recorded: %+v", sw)
	}

	if _, err := env.run(t, "switch", "set-date", "Key3", "2024-02-30"); err == nil {
		t.Fatalf("invalid date should fail")
	}
	if _, err := env.run(t, "switch", "set-date", "Key3", "2024-03-01"); err != nil {
		t.Fatalf("set-date: %v", err)
	}
	if _, err := env.run(t, "switch", "reset", "key3"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	p = env.load(t)
	if len(p.SwitchHistory) != 2 {
		t.Fatalf("history entries = %d, want 2", len(p.SwitchHistory))
	}
	if p.SwitchHistory[0].EventType != model.EventManualEdit || p.SwitchHistory[1].EventType != model.EventReset {
		t.Fatalf("unexpected history: %+v", p.SwitchHistory)
	}
}

func TestPresetApplyAndList(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run(t, "preset", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Official Controller") || !strings.Contains(out, "PhoenixWAN") {
		t.Fatalf("built-ins missing: %q", out)
	}

	if _, err := env.run(t, "preset", "apply", "missing"); err == nil {
		t.Fatalf("unknown preset should fail")
	}
	if _, err := env.run(t, "preset", "apply", "official controller"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	p := env.load(t)
	if p.Mapping.ProfileName != "Official Controller" {
		t.Fatalf("profile name = %q", p.Mapping.ProfileName)
	}
	if p.Mapping.Bindings[model.Key1] != 1 || p.Mapping.Bindings[model.E1] != 1<<8 {
		t.Fatalf("unexpected bindings: %v", p.Mapping.Bindings)
	}
}

func TestStatusShowsWear(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := env.run(t, "switch", "replace", "Key1", "--model", "omron_v_10_1a4"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	out, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Mapping: Default", "Switch Wear", "Key1", "All switches OK", "Overlay: disabled"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status missing %q:\n%s", want, out)
		}
	}
}

func TestSessionsAndReportOnEmptyHistory(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run(t, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if strings.Contains(out, "Showing") {
		t.Fatalf("empty history should not print a range: %q", out)
	}
	if _, err := env.run(t, "session", "1"); err == nil {
		t.Fatalf("missing session should fail")
	}
	if _, err := env.run(t, "session", "abc"); err == nil {
		t.Fatalf("bad id should fail")
	}
	if _, err := env.run(t, "report", "--key", "Key1"); err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := env.run(t, "report", "--key", "Bogus"); err == nil {
		t.Fatalf("bad key should fail")
	}
}

func TestModelsListsCatalog(t *testing.T) {
	var buf bytes.Buffer
	if err := writeModels(&buf); err != nil {
		t.Fatalf("writeModels: %v", err)
	}
	for _, m := range model.SwitchModels() {
		if !strings.Contains(buf.String(), m.ID) {
			t.Fatalf("missing %s in:\n%s", m.ID, buf.String())
		}
	}
}
