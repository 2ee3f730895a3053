package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/switchlife/internal/model"
	"github.com/verte-zerg/switchlife/internal/monitor"
)

func (m *Model) openModal(kind modalKind, key model.LogicalKey) {
	m.modal = kind
	m.modalKey = key
	m.modalCursor = 0
	m.modalErr = ""
	if kind == modalSwitchModel {
		// Start on the model currently installed.
		if sw, ok := m.snap.Switches[key]; ok {
			for i, info := range m.models {
				if info.ID == sw.SwitchModelID {
					m.modalCursor = i
				}
			}
		}
	}
}

func (m *Model) closeModal() {
	m.modal = modalNone
	m.modalErr = ""
	m.dateInput.Blur()
}

func (m *Model) modalItems() []string {
	switch m.modal {
	case modalSwitchModel:
		items := make([]string, len(m.models))
		for i, info := range m.models {
			items[i] = fmt.Sprintf("%s  %s, %dM presses", info.Name, info.Manufacturer, info.RatedLifespanPresses/1_000_000)
		}
		return items
	case modalPreset:
		items := make([]string, len(m.presets))
		for i, p := range m.presets {
			items[i] = p.Name
		}
		return items
	}
	return nil
}

func (m *Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.closeModal()
		return m, nil
	}
	switch m.modal {
	case modalConfirmReset:
		switch msg.String() {
		case "y", "Y":
			m.send(monitor.ResetStats{Key: m.modalKey}, fmt.Sprintf("Reset stats for %s", m.modalKey))
			m.closeModal()
		case "n", "N":
			m.closeModal()
		}
		return m, nil

	case modalDate:
		if msg.Type == tea.KeyEnter {
			date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(m.dateInput.Value()), time.Local)
			if err != nil {
				m.modalErr = "invalid date (expected YYYY-MM-DD)"
				return m, nil
			}
			m.send(monitor.SetLastReplacedDate{Key: m.modalKey, Date: date},
				fmt.Sprintf("Set %s replacement date to %s", m.modalKey, date.Format("2006-01-02")))
			m.closeModal()
			return m, nil
		}
		var cmd tea.Cmd
		m.dateInput, cmd = m.dateInput.Update(msg)
		return m, cmd
	}

	items := m.modalItems()
	switch msg.String() {
	case "up", "k":
		if m.modalCursor > 0 {
			m.modalCursor--
		}
	case "down", "j":
		if m.modalCursor < len(items)-1 {
			m.modalCursor++
		}
	case "enter":
		m.applyModalChoice()
		m.closeModal()
	}
	return m, nil
}

func (m *Model) applyModalChoice() {
	switch m.modal {
	case modalSwitchModel:
		if m.modalCursor >= len(m.models) {
			return
		}
		info := m.models[m.modalCursor]
		m.send(monitor.ReplaceSwitch{Key: m.modalKey, NewModelID: info.ID},
			fmt.Sprintf("Replaced %s with %s", m.modalKey, info.Name))
	case modalPreset:
		if m.modalCursor >= len(m.presets) {
			return
		}
		p := m.presets[m.modalCursor]
		m.send(monitor.UpdateMapping{ProfileName: p.Name, Bindings: model.CloneBindings(p.Bindings)},
			fmt.Sprintf("Applied preset %s", p.Name))
	}
}

func (m *Model) renderModal() string {
	var title string
	var body []string
	switch m.modal {
	case modalSwitchModel:
		title = fmt.Sprintf("Replace switch on %s", m.modalKey)
	case modalPreset:
		title = "Apply binding preset"
	case modalDate:
		title = fmt.Sprintf("Replacement date for %s", m.modalKey)
		body = append(body, m.dateInput.View())
	case modalConfirmReset:
		title = fmt.Sprintf("Reset all stats for %s?", m.modalKey)
		body = append(body, "y: reset  n: keep")
	}
	for i, item := range m.modalItems() {
		marker := "  "
		if i == m.modalCursor {
			marker = "> "
			item = modalTitleStyle.Render(item)
		}
		body = append(body, marker+item)
	}
	lines := append([]string{modalTitleStyle.Render(title), ""}, body...)
	if m.modalErr != "" {
		lines = append(lines, errorStyle.Render(m.modalErr))
	}
	lines = append(lines, "", headerStyle.Render("Enter to apply / Esc to cancel"))
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func modalWidth(width int) int {
	return max(40, min(width-4, 80))
}
