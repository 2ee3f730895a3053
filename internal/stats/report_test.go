package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/switchlife/internal/model"
	"github.com/verte-zerg/switchlife/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "switchlife.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Hour)
		end := start.Add(30 * time.Minute)
		rec := model.SessionRecord{StartTime: start, EndTime: end, DurationSecs: 1800}
		keys := []model.SessionKeyStats{
			{KeyName: "Key1", Presses: 100, Chatters: uint64(i)},
			{KeyName: "Key2", Presses: 50},
		}
		id, err := st.SaveSession(ctx, rec, keys)
		if err != nil {
			t.Fatalf("save session: %v", err)
		}
		ids = append(ids, id)
	}

	switches := map[model.LogicalKey]model.SwitchData{
		model.Key1: {SwitchModelID: model.DefaultSwitchModelID, Stats: model.ButtonStats{TotalPresses: 300, TotalChatters: 3}},
	}
	report, err := BuildReport(ctx, st, switches, ReportConfig{Last: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if *report.Sessions[0].ID != ids[2] || *report.Sessions[1].ID != ids[1] {
		t.Fatalf("expected newest first, got %d, %d", *report.Sessions[0].ID, *report.Sessions[1].ID)
	}
	if len(report.Totals) != 2 || report.Totals[0].KeyName != "Key1" || report.Totals[0].Chatters != 3 {
		t.Fatalf("unexpected totals: %+v", report.Totals)
	}
	if len(report.Trends) != 1 || report.Trends[0].Key != "Key1" {
		t.Fatalf("expected a Key1 trend, got %+v", report.Trends)
	}
	points := report.Trends[0].Points
	if len(points) != 2 || points[0].Chatters != 1 || points[1].Chatters != 2 {
		t.Fatalf("expected oldest-first trend, got %+v", points)
	}
	if len(report.Wear) != 1 || report.Wear[0].Status != StatusReplace {
		t.Fatalf("unexpected wear: %+v", report.Wear)
	}

	var buf bytes.Buffer
	if err := RenderReport(&buf, report, 80, false); err != nil {
		t.Fatalf("render report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Switch Wear", "Needs attention:", "Sessions", "Per-Key (Windowed)", "Key1 over 2 sessions"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in report:\n%s", want, out)
		}
	}
}

func TestBuildReportExplicitTrendKeys(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "switchlife.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	ctx := context.Background()
	start := time.Unix(100, 0)
	if _, err := st.SaveSession(ctx, model.SessionRecord{StartTime: start, EndTime: start.Add(time.Minute), DurationSecs: 60}, nil); err != nil {
		t.Fatalf("save session: %v", err)
	}

	report, err := BuildReport(ctx, st, nil, ReportConfig{TrendKeys: []string{"E2"}})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Trends) != 1 || len(report.Trends[0].Points) != 1 || report.Trends[0].Points[0].Presses != 0 {
		t.Fatalf("expected one zero point for E2, got %+v", report.Trends)
	}
	if len(report.Wear) != 0 {
		t.Fatalf("expected no wear rows")
	}
}
