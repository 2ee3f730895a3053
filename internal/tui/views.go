package tui

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/switchlife/internal/model"
	"github.com/verte-zerg/switchlife/internal/monitor"
	"github.com/verte-zerg/switchlife/internal/stats"
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	okStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	pressedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#1A1A1A")).Background(lipgloss.Color("#C89A3A")).Bold(true)
	idleKeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	barStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#4FC3F7"))
	chatterStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
	modalTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

const keyLabelWidth = 9

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return m.renderTabs() + "\n" + renderStatusLine(m.snap, time.Now(), m.width)
}

func renderStatusLine(snap *monitor.Snapshot, now time.Time, width int) string {
	controller := errorStyle.Render("controller disconnected")
	if snap.Connected {
		controller = okStyle.Render("controller connected")
	}
	game := headerStyle.Render("game not running")
	if snap.GameRunning {
		game = okStyle.Render("game running")
	}
	parts := []string{controller, game}
	if snap.SessionStartedAt != nil {
		secs := uint64(max(now.Sub(*snap.SessionStartedAt), 0) / time.Second)
		parts = append(parts, "session "+stats.FormatDuration(secs))
	}
	if snap.ProfileName != "" {
		parts = append(parts, headerStyle.Render("mapping: "+snap.ProfileName))
	}
	return truncateLine(strings.Join(parts, "  "), width)
}

func (m *Model) renderFooter() string {
	var status string
	switch {
	case m.binding:
		status = fmt.Sprintf("Press a controller button to bind %s (esc to cancel)", m.bindKey)
	case m.notice != "":
		status = m.notice
	}
	if snap := m.snap; snap != nil {
		if save := snap.LastSave; save != nil {
			saved := fmt.Sprintf("%s (%s)", save.Message, save.Timestamp.Local().Format("15:04:05"))
			if save.Success {
				saved = headerStyle.Render(saved)
			} else {
				saved = errorStyle.Render(saved)
			}
			status = joinNonEmpty(status, saved)
		}
		if status == "" {
			status = snap.StatusMessage
		}
	}
	return truncateLine(status, m.width) + "\n" + headerStyle.Render(truncateLine(m.renderHelp(), m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Save: s  Preset: p  Quit: q"
	switch m.activeTab {
	case tabWear:
		help = "Nav: left/right  Select: up/down  Bind: b  Replace: r  Reset: z  Date: d  Preset: p  Save: s  Quit: q"
	case tabHistory:
		help = "Nav: left/right  Scroll: up/down/pgup/pgdn  Save: s  Quit: q"
	case tabSessions:
		help = "Nav: left/right  Scroll: up/down/pgup/pgdn  Reload: R  Save: s  Quit: q"
	}
	return help
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "  " + b
	}
}

// liveKeys lists the named keys followed by any other key with a switch.
func liveKeys(snap *monitor.Snapshot) []model.LogicalKey {
	seen := map[model.LogicalKey]bool{}
	keys := append([]model.LogicalKey(nil), model.NamedKeys...)
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range model.SortedKeys(snap.Switches) {
		if !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	return keys
}

func renderLive(snap *monitor.Snapshot, width, height int) string {
	if snap == nil {
		return ""
	}
	keys := liveKeys(snap)
	var maxPresses uint64 = 10
	for _, k := range keys {
		maxPresses = max(maxPresses, snap.Switches[k].Stats.LastSessionPresses)
	}
	barWidth := max(width-keyLabelWidth-40, 10)
	lines := make([]string, 0, len(keys)+2)
	lines = append(lines, headerStyle.Render(fmt.Sprintf("raw buttons: %032b", snap.RawButtons)), "")
	for _, k := range keys {
		sw, ok := snap.Switches[k]
		label := fmt.Sprintf(" %-*s", keyLabelWidth-1, k)
		if snap.IsPressed(k) {
			label = pressedStyle.Render(label)
		} else {
			label = idleKeyStyle.Render(label)
		}
		if !ok {
			lines = append(lines, label+headerStyle.Render(" no presses yet"))
			continue
		}
		st := sw.Stats
		fill := int(st.LastSessionPresses * uint64(barWidth) / maxPresses)
		bar := barStyle.Render(strings.Repeat("█", fill)) + strings.Repeat(" ", barWidth-fill)
		line := fmt.Sprintf("%s %s %7d presses  %8d total", label, bar, st.LastSessionPresses, st.TotalPresses)
		if st.LastSessionChatters > 0 {
			line += chatterStyle.Render(fmt.Sprintf("  %d chatter", st.LastSessionChatters))
		}
		lines = append(lines, line)
		if len(lines) >= height {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func wearColumns() []table.Column {
	return []table.Column{
		{Title: "Key", Width: 9},
		{Title: "Button", Width: 7},
		{Title: "Model", Width: 20},
		{Title: "Presses", Width: 10},
		{Title: "Life", Width: 8},
		{Title: "Chatter", Width: 8},
		{Title: "Session", Width: 8},
		{Title: "Replaced", Width: 10},
		{Title: "Status", Width: 7},
	}
}

func wearTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

// wearKeys lists every key that is named, bound, or has a switch record.
func wearKeys(snap *monitor.Snapshot) []model.LogicalKey {
	set := map[model.LogicalKey]struct{}{}
	for _, k := range model.NamedKeys {
		set[k] = struct{}{}
	}
	for k := range snap.Switches {
		set[k] = struct{}{}
	}
	for k, mask := range snap.Bindings {
		if mask != 0 {
			set[k] = struct{}{}
		}
	}
	return model.SortedKeys(set)
}

func wearRows(snap *monitor.Snapshot, keys []model.LogicalKey) []table.Row {
	graded := map[model.LogicalKey]stats.WearRow{}
	for _, r := range stats.BuildWear(snap.Switches) {
		graded[r.Key] = r
	}
	rows := make([]table.Row, 0, len(keys))
	for _, k := range keys {
		button := "-"
		if mask := snap.Bindings[k]; mask != 0 {
			button = fmt.Sprintf("%d", mask)
		}
		r, ok := graded[k]
		if !ok {
			rows = append(rows, table.Row{k.String(), button, "-", "0", "-", "-", "0", "-", "-"})
			continue
		}
		sw := snap.Switches[k]
		replaced := "-"
		if r.LastReplacedAt != nil {
			replaced = r.LastReplacedAt.Local().Format("2006-01-02")
		}
		rows = append(rows, table.Row{
			k.String(),
			button,
			r.ModelName,
			fmt.Sprintf("%d", r.Presses),
			fmt.Sprintf("%.2f%%", r.LifeUsedPct),
			fmt.Sprintf("%.2f%%", r.ChatterPct),
			fmt.Sprintf("%d", sw.Stats.LastSessionPresses),
			replaced,
			string(r.Status),
		})
	}
	return rows
}

func renderHistory(entries []model.SwitchHistoryEntry, width int) string {
	if len(entries) == 0 {
		return "No switch history yet."
	}
	headers := []string{"Date", "Key", "Event", "Old Model", "New Model", "Presses", "Chatters"}
	rows := make([][]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		rows = append(rows, []string{
			e.Date.Local().Format("2006-01-02 15:04"),
			e.Key.String(),
			string(e.EventType),
			e.OldModelID,
			e.NewModelID,
			fmt.Sprintf("%d", e.PreviousStats.TotalPresses),
			fmt.Sprintf("%d", e.PreviousStats.TotalChatters),
		})
	}
	lines := stats.FormatTable(headers, rows, map[int]bool{5: true, 6: true})
	for i := range lines {
		lines[i] = truncateLine(lines[i], width)
	}
	return strings.Join(lines, "\n")
}

func renderSessions(recent []model.SessionRecord, totals []model.KeyAggregate, sparks map[string]string, errMsg string, width int) string {
	var buf bytes.Buffer
	newestFirst := make([]model.SessionRecord, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		newestFirst = append(newestFirst, recent[i])
	}
	if err := stats.RenderSessions(&buf, newestFirst); err != nil {
		return fmt.Sprintf("Failed to render sessions: %v", err)
	}
	if errMsg != "" {
		buf.WriteString(errorStyle.Render("Failed to load history: "+errMsg) + "\n")
	}
	if len(totals) > 0 {
		headers := []string{"Key", "Sessions", "Presses", "Chatters", "Chatter %", "Trend"}
		rows := make([][]string, 0, len(totals))
		for _, agg := range totals {
			rows = append(rows, []string{
				agg.KeyName,
				fmt.Sprintf("%d", agg.Sessions),
				fmt.Sprintf("%d", agg.Presses),
				fmt.Sprintf("%d", agg.Chatters),
				fmt.Sprintf("%.2f%%", stats.ChatterRatePct(agg.Chatters, agg.Presses)),
				sparks[agg.KeyName],
			})
		}
		buf.WriteString(fmt.Sprintf("Last %d sessions\n", historyWindow))
		for _, line := range stats.FormatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true}) {
			buf.WriteString(truncateLine(line, width) + "\n")
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}
