package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/switchlife/internal/input"
	"github.com/verte-zerg/switchlife/internal/logger"
	"github.com/verte-zerg/switchlife/internal/model"
	"github.com/verte-zerg/switchlife/internal/monitor"
	"github.com/verte-zerg/switchlife/internal/preset"
	"github.com/verte-zerg/switchlife/internal/profile"
	"github.com/verte-zerg/switchlife/internal/stats"
	"github.com/verte-zerg/switchlife/internal/store"
)

const (
	defaultReportLast    = 20
	defaultSessionsLimit = 20
)

var (
	reportLast int
	reportKeys []string
	reportTop  int

	sessionsLimit  int
	sessionsOffset int

	replaceModel string
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored profile and switch wear",
		Args:  cobra.NoArgs,
		RunE:  runStatusCmd,
	}
}

func runStatusCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadSettings(cmd); err != nil {
		return err
	}
	p, err := loadProfile()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	bound := 0
	for _, mask := range p.Mapping.Bindings {
		if mask != 0 {
			bound++
		}
	}
	cfg := p.Config
	lines := []string{
		fmt.Sprintf("Profile: %s", profilePath),
		fmt.Sprintf("Mapping: %s (%d keys bound)", p.Mapping.ProfileName, bound),
		fmt.Sprintf("Controller: index %d via %s", cfg.TargetControllerIndex, cfg.InputMethod),
		fmt.Sprintf("Game process: %s", cfg.TargetProcessName),
		fmt.Sprintf("Chatter threshold: %d ms", cfg.ChatterThresholdMs),
		fmt.Sprintf("Overlay: %s", overlayLabel(cfg)),
		"",
	}
	if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	rows := stats.BuildWear(model.CloneSwitches(p.Switches))
	if err := stats.RenderWear(w, rows); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	flagged := stats.NeedsAttention(rows)
	if len(rows) > 0 && len(flagged) == 0 {
		_, err = fmt.Fprintln(w, "All switches OK")
	}
	for _, row := range flagged {
		if _, err = fmt.Fprintf(w, "%s needs attention: %s\n", row.Key, row.Status); err != nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func overlayLabel(cfg model.AppConfig) string {
	if !cfg.OverlayEnabled {
		return "disabled"
	}
	return fmt.Sprintf("http://127.0.0.1:%d/", cfg.OverlayPort)
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print switch wear and session history",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	cmd.Flags().IntVar(&reportLast, "last", defaultReportLast, "number of recent sessions covered")
	cmd.Flags().StringSliceVar(&reportKeys, "key", nil, "keys to plot (default: the keys chattering most)")
	cmd.Flags().IntVar(&reportTop, "top", 3, "number of keys plotted when --key is not set")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadSettings(cmd); err != nil {
		return err
	}
	if reportLast <= 0 {
		return fmt.Errorf("--last must be > 0")
	}
	keys := make([]string, 0, len(reportKeys))
	for _, raw := range reportKeys {
		key, err := model.ParseLogicalKey(raw)
		if err != nil {
			return fmt.Errorf("invalid --key: %w", err)
		}
		keys = append(keys, key.String())
	}

	p, err := loadProfile()
	if err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := stats.BuildReport(cmd.Context(), st, model.CloneSwitches(p.Switches), stats.ReportConfig{
		Last:      reportLast,
		TrendKeys: keys,
		TopTrends: reportTop,
	})
	if err != nil {
		return err
	}
	width, color := outputInfo(cmd.OutOrStdout())
	return stats.RenderReport(cmd.OutOrStdout(), report, width, color)
}

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions, newest first",
		Args:  cobra.NoArgs,
		RunE:  runSessionsCmd,
	}
	cmd.Flags().IntVar(&sessionsLimit, "limit", defaultSessionsLimit, "number of sessions to list")
	cmd.Flags().IntVar(&sessionsOffset, "offset", 0, "number of newest sessions to skip")
	return cmd
}

func runSessionsCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadSettings(cmd); err != nil {
		return err
	}
	if sessionsLimit <= 0 {
		return fmt.Errorf("--limit must be > 0")
	}
	if sessionsOffset < 0 {
		return fmt.Errorf("--offset must be >= 0")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	sessions, err := st.RecentSessions(ctx, sessionsLimit, sessionsOffset)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	total, err := st.CountSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}
	w := cmd.OutOrStdout()
	if err := stats.RenderSessions(w, sessions); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(sessions) > 0 {
		if _, err := fmt.Fprintf(w, "Showing %d-%d of %d\n",
			sessionsOffset+1, sessionsOffset+len(sessions), total); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session ID",
		Short: "Show per-key stats of one session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionCmd,
	}
}

func runSessionCmd(cmd *cobra.Command, args []string) error {
	if _, err := loadSettings(cmd); err != nil {
		return err
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid session id %q", args[0])
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	rec, keys, err := st.SessionDetails(cmd.Context(), id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return fmt.Errorf("no session with id %d", id)
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	return stats.RenderSessionDetail(cmd.OutOrStdout(), rec, keys)
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List known switch models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeModels(cmd.OutOrStdout())
		},
	}
}

func writeModels(w io.Writer) error {
	rows := make([][]string, 0)
	for _, m := range model.SwitchModels() {
		rows = append(rows, []string{m.ID, m.Manufacturer, m.Name, strconv.FormatUint(m.RatedLifespanPresses, 10)})
	}
	lines := stats.FormatTable([]string{"ID", "Maker", "Model", "Rated"}, rows, map[int]bool{3: true})
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newBindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bind KEY MASK",
		Short: "Bind a key to a raw button mask (0 unbinds)",
		Long: "Bind a key to a raw button mask. MASK accepts decimal, 0x hex or 0b binary.\n" +
			"Run 'switchlife diagnose' to see the mask of each button.",
		Args: cobra.ExactArgs(2),
		RunE: runBindCmd,
	}
}

func runBindCmd(cmd *cobra.Command, args []string) error {
	key, err := model.ParseLogicalKey(args[0])
	if err != nil {
		return err
	}
	mask, err := parseMask(args[1])
	if err != nil {
		return err
	}
	svc, err := openOffline(cmd)
	if err != nil {
		return err
	}
	before := svc.Shared().Load().Bindings
	snap, err := commitOffline(cmd, svc, monitor.SetKeyBinding{Key: key, Button: mask})
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for k, prev := range before {
		if k != key && prev != 0 && snap.Bindings[k] == 0 {
			logErrf("%s was unbound (it used mask %d)\n", k, prev)
		}
	}
	_, err = fmt.Fprintf(w, "Bound %s to mask %d\n", key, mask)
	return err
}

func parseMask(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid button mask %q", s)
	}
	return uint32(v), nil
}

func newSwitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch",
		Short: "Record switch replacements and corrections",
	}

	replace := &cobra.Command{
		Use:   "replace KEY",
		Short: "Record a new switch on KEY and zero its counters",
		Args:  cobra.ExactArgs(1),
		RunE:  runSwitchReplaceCmd,
	}
	replace.Flags().StringVar(&replaceModel, "model", "", "switch model id (see 'switchlife models')")

	reset := &cobra.Command{
		Use:   "reset KEY",
		Short: "Zero the counters of KEY without changing its model",
		Args:  cobra.ExactArgs(1),
		RunE:  runSwitchResetCmd,
	}

	setDate := &cobra.Command{
		Use:   "set-date KEY YYYY-MM-DD",
		Short: "Correct the date KEY's switch was last replaced",
		Args:  cobra.ExactArgs(2),
		RunE:  runSwitchSetDateCmd,
	}

	cmd.AddCommand(replace, reset, setDate)
	return cmd
}

func runSwitchReplaceCmd(cmd *cobra.Command, args []string) error {
	key, err := model.ParseLogicalKey(args[0])
	if err != nil {
		return err
	}
	modelID := strings.TrimSpace(replaceModel)
	if modelID == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("--model is required when not running in a terminal")
		}
		if modelID, err = pickModel(key); err != nil {
			return err
		}
	}
	if _, ok := model.LookupSwitchModel(modelID); !ok {
		return fmt.Errorf("unknown switch model %q (run 'switchlife models')", modelID)
	}

	svc, err := openOffline(cmd)
	if err != nil {
		return err
	}
	if _, err := commitOffline(cmd, svc, monitor.ReplaceSwitch{Key: key, NewModelID: modelID}); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Replaced switch on %s with %s\n", key, modelID)
	return err
}

func pickModel(key model.LogicalKey) (string, error) {
	models := model.SwitchModels()
	options := make([]huh.Option[string], 0, len(models))
	for _, m := range models {
		label := fmt.Sprintf("%s %s (%d presses)", m.Manufacturer, m.Name, m.RatedLifespanPresses)
		options = append(options, huh.NewOption(label, m.ID))
	}
	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("New switch model for %s", key)).
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("model selection cancelled: %w", err)
	}
	return selected, nil
}

func runSwitchResetCmd(cmd *cobra.Command, args []string) error {
	key, err := model.ParseLogicalKey(args[0])
	if err != nil {
		return err
	}
	svc, err := openOffline(cmd)
	if err != nil {
		return err
	}
	if err := requireSwitch(svc, key); err != nil {
		return err
	}
	if _, err := commitOffline(cmd, svc, monitor.ResetStats{Key: key}); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Reset counters of %s\n", key)
	return err
}

func runSwitchSetDateCmd(cmd *cobra.Command, args []string) error {
	key, err := model.ParseLogicalKey(args[0])
	if err != nil {
		return err
	}
	date, err := time.ParseInLocation("2006-01-02", args[1], time.Local)
	if err != nil {
		return fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", args[1])
	}
	svc, err := openOffline(cmd)
	if err != nil {
		return err
	}
	if err := requireSwitch(svc, key); err != nil {
		return err
	}
	if _, err := commitOffline(cmd, svc, monitor.SetLastReplacedDate{Key: key, Date: date}); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Set last replaced date of %s to %s\n", key, args[1])
	return err
}

func requireSwitch(svc *monitor.Service, key model.LogicalKey) error {
	if _, ok := svc.Shared().Load().Switches[key]; !ok {
		return fmt.Errorf("no switch recorded for %s", key)
	}
	return nil
}

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "List or apply binding presets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List built-in and user presets",
		Args:  cobra.NoArgs,
		RunE:  runPresetListCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "apply NAME",
		Short: "Replace all bindings with a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  runPresetApplyCmd,
	})
	return cmd
}

func runPresetListCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadSettings(cmd); err != nil {
		return err
	}
	presets := preset.List(presetDir, logger.New("[preset]"))
	rows := make([][]string, 0, len(presets))
	for _, p := range presets {
		rows = append(rows, []string{p.Name, strconv.Itoa(len(p.Bindings)), p.Source})
	}
	for _, line := range stats.FormatTable([]string{"Name", "Keys", "Source"}, rows, map[int]bool{1: true}) {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runPresetApplyCmd(cmd *cobra.Command, args []string) error {
	if _, err := loadSettings(cmd); err != nil {
		return err
	}
	p, ok := preset.Find(preset.List(presetDir, logger.New("[preset]")), args[0])
	if !ok {
		return fmt.Errorf("unknown preset %q (run 'switchlife preset list')", args[0])
	}
	svc, err := openOffline(cmd)
	if err != nil {
		return err
	}
	if _, err := commitOffline(cmd, svc, monitor.UpdateMapping{
		ProfileName: p.Name,
		Bindings:    model.CloneBindings(p.Bindings),
	}); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Applied preset %s (%d keys)\n", p.Name, len(p.Bindings))
	return err
}

func loadProfile() (*model.UserProfile, error) {
	p, err := profile.NewFileRepository(profilePath, logger.New("[profile]")).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

// idleInput and idlePresence stand in for hardware when the profile is edited
// without polling the controller.
type idleInput struct{}

func (idleInput) State(uint32) (uint32, error)  { return 0, input.ErrDisconnected }
func (idleInput) SetMethod(m model.InputMethod) {}

type idlePresence struct{}

func (idlePresence) IsRunning(string) bool { return false }

// openOffline loads the profile into a monitor that is never polled, so
// edits go through the same command handlers as the live dashboard.
func openOffline(cmd *cobra.Command) (*monitor.Service, error) {
	if _, err := loadSettings(cmd); err != nil {
		return nil, err
	}
	log := logger.Noop()
	if debugLog {
		log = logger.New("[monitor]")
	}
	return monitor.New(monitor.Options{
		Input:    idleInput{},
		Process:  idlePresence{},
		Profiles: profile.NewFileRepository(profilePath, logger.New("[profile]")),
		Logger:   log,
	})
}

// commitOffline applies cmds, then saves and returns the final snapshot.
// Commands queued ahead of Shutdown are handled before the loop polls.
func commitOffline(cmd *cobra.Command, svc *monitor.Service, cmds ...monitor.Command) (*monitor.Snapshot, error) {
	for _, c := range append(cmds, monitor.Shutdown{}) {
		if !svc.Commands().Send(c) {
			return nil, fmt.Errorf("failed to queue %T", c)
		}
	}
	if err := svc.Run(cmd.Context()); err != nil {
		return nil, err
	}
	snap := svc.Shared().Load()
	if snap.StatusMessage != "" {
		logErrln(snap.StatusMessage)
	}
	return snap, nil
}

// outputInfo returns the render width and whether to use colour for w.
// Colour follows NO_COLOR and CLICOLOR_FORCE.
func outputInfo(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return 80, false
	}
	color := termenv.NewOutput(f).EnvColorProfile() != termenv.Ascii
	if !term.IsTerminal(int(f.Fd())) {
		return 80, color
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return width, color
}
