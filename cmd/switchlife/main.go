// Package main provides the CLI entrypoint for switchlife.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/switchlife/internal/config"
	"github.com/verte-zerg/switchlife/internal/input"
	"github.com/verte-zerg/switchlife/internal/logger"
	"github.com/verte-zerg/switchlife/internal/model"
	"github.com/verte-zerg/switchlife/internal/monitor"
	"github.com/verte-zerg/switchlife/internal/overlay"
	"github.com/verte-zerg/switchlife/internal/preset"
	"github.com/verte-zerg/switchlife/internal/procwatch"
	"github.com/verte-zerg/switchlife/internal/profile"
	"github.com/verte-zerg/switchlife/internal/store"
	"github.com/verte-zerg/switchlife/internal/tui"
)

var (
	configPath  string
	profilePath string
	dbPath      string
	presetDir   string
	logPath     string
	debugLog    bool

	runHeadless bool
	runRecent   int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "switchlife",
		Short:         "Controller switch wear and chatter monitor",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runMonitorCmd,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultConfigPath(), "config file")
	pf.StringVar(&profilePath, "profile", config.DefaultProfilePath(), "profile file")
	pf.StringVar(&dbPath, "db", config.DefaultDBPath(), "session history database")
	pf.StringVar(&presetDir, "presets", config.DefaultPresetDir(), "directory of binding presets")
	pf.StringVar(&logPath, "log", config.DefaultLogPath(), "log file used while the dashboard runs")
	pf.BoolVar(&debugLog, "debug", false, "enable debug logging")

	rootCmd.Flags().BoolVar(&runHeadless, "headless", false, "run without the dashboard")
	rootCmd.Flags().IntVar(&runRecent, "recent-sessions", monitor.DefaultRecentSessionLimit, "sessions kept in the profile")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newModelsCmd())
	rootCmd.AddCommand(newBindCmd())
	rootCmd.AddCommand(newSwitchCmd())
	rootCmd.AddCommand(newPresetCmd())
	rootCmd.AddCommand(newDiagnoseCmd())

	return rootCmd
}

// loadSettings reads the config file and lets it fill the path and debug
// flags the user did not set.
func loadSettings(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "profile", &profilePath, fileCfg.Paths.Profile)
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Paths.DB)
	applyStringConfig(cmd, "presets", &presetDir, fileCfg.Paths.Presets)
	applyStringConfig(cmd, "log", &logPath, fileCfg.Paths.Log)
	applyBoolConfig(cmd, "debug", &debugLog, fileCfg.Monitor.Debug)
	logger.SetDebug(debugLog)
	return fileCfg, nil
}

func runMonitorCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "recent-sessions", &runRecent, fileCfg.Monitor.RecentSessions)
	if runRecent < 1 {
		return fmt.Errorf("--recent-sessions must be >= 1")
	}

	headless := runHeadless || !term.IsTerminal(int(os.Stdout.Fd()))
	if !headless {
		restore, err := logger.ToFile(logPath)
		if err != nil {
			return err
		}
		defer restore()
	}
	log := logger.New("[switchlife]")

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	dev := input.NewDynamic(model.InputDirectInput)
	svc, err := monitor.New(monitor.Options{
		Input:              dev,
		Process:            procwatch.New(logger.New("[procwatch]")),
		Profiles:           profile.NewFileRepository(profilePath, logger.New("[profile]")),
		Sessions:           st,
		Logger:             logger.New("[monitor]"),
		RecentSessionLimit: runRecent,
	})
	if err != nil {
		_ = dev.Close()
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	applyDeviceConfig(svc, fileCfg, log)
	if err := config.Watch(ctx, configPath, logger.New("[config]"), func(fc config.FileConfig) {
		log.Info("config file changed")
		applyDeviceConfig(svc, fc, log)
	}); err != nil {
		log.Warn("config reload disabled: %v", err)
	}

	ov := overlay.New(svc.Shared(), logger.New("[overlay]"))
	overlayDone := make(chan struct{})
	go func() {
		defer close(overlayDone)
		ov.Follow(ctx)
	}()

	runErr := make(chan error, 1)
	go func() {
		runErr <- svc.Run(ctx)
	}()

	if headless {
		log.Info("running headless, interrupt to stop")
		err = <-runErr
	} else {
		dashboard := tui.NewModel(tui.Options{
			Shared:   svc.Shared(),
			Commands: svc.Commands(),
			History:  st,
			Presets:  preset.List(presetDir, logger.New("[preset]")),
		})
		program := tea.NewProgram(dashboard, tea.WithAltScreen())
		_, perr := program.Run()
		cancel()
		err = <-runErr
		if perr != nil {
			err = fmt.Errorf("failed to run TUI: %w", perr)
		}
	}
	cancel()
	<-overlayDone
	if cerr := dev.Close(); cerr != nil {
		log.Warn("failed to close input: %v", cerr)
	}
	return err
}

// applyDeviceConfig sends the [device] and [overlay] values of fc on top of
// the running config.
func applyDeviceConfig(svc *monitor.Service, fc config.FileConfig, log logger.Logger) {
	if !fc.HasDeviceOverrides() {
		return
	}
	cfg, err := fc.Apply(svc.Shared().Load().Config)
	if err != nil {
		log.Warn("ignoring config: %v", err)
		return
	}
	svc.Commands().Send(monitor.UpdateConfig{Config: cfg})
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	d := model.DefaultAppConfig()
	return fmt.Sprintf(`# switchlife configuration
# Uncomment a value to enable it. CLI flags override config values.
# [device] and [overlay] override the settings stored in the profile and are
# reapplied while the monitor runs whenever this file is saved.

[paths]
# profile = %q
# db = %q
# presets = %q
# log = %q

[monitor]
# recent-sessions = %d        # Sessions kept in the profile
# debug = false               # Verbose logging

[device]
# controller-index = %d
# input-method = %q  # XInput or DirectInput
# chatter-threshold-ms = %d
# polling-connected-ms = %d
# polling-disconnected-ms = %d
# process-name = %q

[overlay]
# enabled = false
# port = %d
# poll-interval-ms = %d
`,
		config.DefaultProfilePath(),
		config.DefaultDBPath(),
		config.DefaultPresetDir(),
		config.DefaultLogPath(),
		monitor.DefaultRecentSessionLimit,
		d.TargetControllerIndex,
		string(d.InputMethod),
		d.ChatterThresholdMs,
		d.PollingRateMsConnected,
		d.PollingRateMsDisconnected,
		d.TargetProcessName,
		d.OverlayPort,
		d.OverlayPollIntervalMs,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
