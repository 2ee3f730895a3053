package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/switchlife/internal/monitor"
)

func TestRenderFooterShowsSaveResult(t *testing.T) {
	m := &Model{
		width:  200,
		notice: "Replaced Key1 with D2MV-01-1C3 (50g)",
		snap: &monitor.Snapshot{
			LastSave: &monitor.SaveResult{Success: false, Message: "Save failed: disk full", Timestamp: time.Now()},
		},
	}
	out := m.renderFooter()
	if !containsAll(out, []string{"Replaced Key1", "Save failed: disk full", "Quit: q"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestRenderFooterFallsBackToStatusMessage(t *testing.T) {
	m := &Model{width: 200, snap: &monitor.Snapshot{StatusMessage: "Config rejected: bad"}}
	if out := m.renderFooter(); !strings.Contains(out, "Config rejected: bad") {
		t.Fatalf("expected status message in footer: %s", out)
	}
}

func TestRenderFooterBindPrompt(t *testing.T) {
	m := &Model{width: 200, binding: true, bindKey: "E2", activeTab: tabWear, snap: &monitor.Snapshot{}}
	out := m.renderFooter()
	if !containsAll(out, []string{"bind E2", "Bind: b"}) {
		t.Fatalf("expected bind prompt and wear help: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
