package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestFitLinesPadsAndCuts(t *testing.T) {
	out := fitLines("a\nbb\ncc\ndd", 4, 3)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "a   " || lines[1] != "bb  " || lines[2] != "cc  " {
		t.Fatalf("unexpected lines: %q", lines)
	}

	out = fitLines("x", 2, 2)
	if out != "x \n  " {
		t.Fatalf("expected blank filler line, got %q", out)
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("short", 10); got != "short" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := truncateLine("abcdefghij", 6); got != "abc..." {
		t.Fatalf("unexpected: %q", got)
	}
	if got := truncateLine("abcdef", 2); got != "ab" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestTruncateLineKeepsStyledWidth(t *testing.T) {
	lipgloss.SetColorProfile(termenv.TrueColor)
	t.Cleanup(func() { lipgloss.SetColorProfile(termenv.Ascii) })

	styled := errorStyle.Render("controller disconnected")
	if !strings.Contains(styled, "\x1b[") {
		t.Fatalf("expected ANSI styling, got %q", styled)
	}
	got := truncateLine(styled, 10)
	if w := lipgloss.Width(got); w > 10 {
		t.Fatalf("expected at most 10 cells, got %d", w)
	}
}
