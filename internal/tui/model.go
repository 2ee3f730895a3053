// Package tui provides the Bubble Tea dashboard for a running monitor.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/switchlife/internal/model"
	"github.com/verte-zerg/switchlife/internal/monitor"
	"github.com/verte-zerg/switchlife/internal/preset"
	"github.com/verte-zerg/switchlife/internal/stats"
)

const (
	tabLive = iota
	tabWear
	tabHistory
	tabSessions
)

const (
	refreshInterval = 50 * time.Millisecond
	historyWindow   = 20
	historyTimeout  = 5 * time.Second
)

// Sender accepts commands for the monitor loop.
type Sender interface {
	Send(cmd monitor.Command) bool
}

// Options wires the dashboard to a monitor.
type Options struct {
	Shared   *monitor.Shared
	Commands Sender
	// History is optional; without it the Sessions tab shows only the
	// sessions kept in the profile.
	History stats.Source
	Presets []preset.Preset
}

type tickMsg time.Time

type historyMsg struct {
	totals []model.KeyAggregate
	sparks map[string]string
	err    error
}

type modalKind int

const (
	modalNone modalKind = iota
	modalSwitchModel
	modalPreset
	modalDate
	modalConfirmReset
)

// Model implements the Bubble Tea dashboard.
type Model struct {
	shared   *monitor.Shared
	commands Sender
	history  stats.Source
	presets  []preset.Preset
	models   []model.SwitchModelInfo

	snap      *monitor.Snapshot
	tabs      []string
	activeTab int
	width     int
	height    int

	wear      table.Model
	wearKeys  []model.LogicalKey
	viewports []viewport.Model

	modal       modalKind
	modalCursor int
	modalKey    model.LogicalKey
	modalErr    string
	dateInput   textinput.Model

	binding  bool
	bindKey  model.LogicalKey
	bindHeld uint32

	totals     []model.KeyAggregate
	sparks     map[string]string
	historyErr string
	notice     string
}

// NewModel constructs a dashboard model.
func NewModel(opts Options) *Model {
	m := &Model{
		shared:   opts.Shared,
		commands: opts.Commands,
		history:  opts.History,
		presets:  opts.Presets,
		models:   model.SwitchModels(),
		tabs:     []string{"Live", "Wear", "Switch History", "Sessions"},
	}
	if len(m.presets) == 0 {
		m.presets = preset.Builtins()
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.wear = table.New(
		table.WithColumns(wearColumns()),
		table.WithFocused(true),
		table.WithHeight(1),
	)
	m.wear.SetStyles(wearTableStyles())
	m.dateInput = textinput.New()
	m.dateInput.Prompt = "Date: "
	m.dateInput.Placeholder = "YYYY-MM-DD"
	m.dateInput.CharLimit = 10
	m.refresh()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tickMsg:
		m.refresh()
		return m, tick()
	case historyMsg:
		m.historyErr = ""
		if msg.err != nil {
			m.historyErr = msg.err.Error()
		} else {
			m.totals, m.sparks = msg.totals, msg.sparks
		}
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.modal != modalNone {
			return m.updateModal(msg)
		}
		if m.binding {
			if msg.Type == tea.KeyEsc {
				m.binding = false
				m.notice = "Binding cancelled"
			}
			return m, nil
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		return m, m.moveTab(-1)
	case "right", "l", "tab":
		return m, m.moveTab(1)
	case "s":
		m.send(monitor.ForceSave{}, "Saving...")
		return m, nil
	case "p":
		m.openModal(modalPreset, "")
		return m, nil
	}

	if m.activeTab == tabWear {
		key, ok := m.selectedKey()
		switch msg.String() {
		case "b":
			if ok {
				m.startBinding(key)
			}
			return m, nil
		case "r":
			if ok {
				m.openModal(modalSwitchModel, key)
			}
			return m, nil
		case "z":
			if ok {
				m.openModal(modalConfirmReset, key)
			}
			return m, nil
		case "d":
			if ok {
				m.openModal(modalDate, key)
				m.dateInput.SetValue("")
				return m, m.dateInput.Focus()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.wear, cmd = m.wear.Update(msg)
		return m, cmd
	}

	if m.activeTab == tabSessions && msg.String() == "R" {
		return m, m.loadHistory()
	}
	if m.activeTab == tabLive {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.modal != modalNone {
		return fitLines(m.renderModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 2
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.wear.SetWidth(m.width)
	m.wear.SetHeight(max(bodyHeight-1, 1))
	m.dateInput.Width = max(10, modalWidth(m.width)-10)
}

func (m *Model) moveTab(delta int) tea.Cmd {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabSessions {
		return m.loadHistory()
	}
	return nil
}

func (m *Model) send(cmd monitor.Command, notice string) {
	if m.commands == nil {
		m.notice = "No monitor attached"
		return
	}
	if !m.commands.Send(cmd) {
		m.notice = "Monitor busy, try again"
		return
	}
	m.notice = notice
}

// refresh picks up a newly published snapshot and advances bind mode.
func (m *Model) refresh() {
	if m.shared == nil {
		if m.snap == nil {
			m.snap = &monitor.Snapshot{}
		}
		return
	}
	snap := m.shared.Load()
	if snap != m.snap {
		m.snap = snap
		m.rebuildWear()
		m.renderTabContents()
	}
	if m.binding {
		m.checkBinding()
	}
}

func (m *Model) rebuildWear() {
	cursor := m.wear.Cursor()
	m.wearKeys = wearKeys(m.snap)
	m.wear.SetRows(wearRows(m.snap, m.wearKeys))
	if cursor >= len(m.wearKeys) {
		cursor = len(m.wearKeys) - 1
	}
	m.wear.SetCursor(max(cursor, 0))
}

func (m *Model) selectedKey() (model.LogicalKey, bool) {
	i := m.wear.Cursor()
	if i < 0 || i >= len(m.wearKeys) {
		return "", false
	}
	return m.wearKeys[i], true
}

// startBinding waits for the next button that goes down. Buttons already
// held when binding starts are ignored until released.
func (m *Model) startBinding(key model.LogicalKey) {
	m.binding = true
	m.bindKey = key
	m.bindHeld = m.snap.RawButtons
	m.notice = ""
}

func (m *Model) checkBinding() {
	raw := m.snap.RawButtons
	fresh := raw &^ m.bindHeld
	if fresh == 0 {
		m.bindHeld &= raw
		return
	}
	mask := fresh & -fresh
	m.binding = false
	m.send(monitor.SetKeyBinding{Key: m.bindKey, Button: mask},
		fmt.Sprintf("Bound %s to button mask %d", m.bindKey, mask))
}

func (m *Model) loadHistory() tea.Cmd {
	src := m.history
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		totals, err := src.KeyTotals(ctx, historyWindow)
		if err != nil {
			return historyMsg{err: err}
		}
		sparks := make(map[string]string, len(totals))
		for _, agg := range totals {
			points, err := src.ChatterTrend(ctx, agg.KeyName, historyWindow)
			if err != nil {
				return historyMsg{err: err}
			}
			sparks[agg.KeyName] = stats.TrendSparkline(points)
		}
		return historyMsg{totals: totals, sparks: sparks}
	}
}

func (m *Model) renderTabContents() {
	if m.snap == nil {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabHistory].SetContent(renderHistory(m.snap.SwitchHistory, width))
	m.viewports[tabSessions].SetContent(renderSessions(m.snap.RecentSessions, m.totals, m.sparks, m.historyErr, width))
}

func (m *Model) renderBody(height int) string {
	switch m.activeTab {
	case tabLive:
		return renderLive(m.snap, m.width, height)
	case tabWear:
		return tableMutedStyle.Render(m.wear.View())
	default:
		return m.viewports[m.activeTab].View()
	}
}
