package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/switchlife/internal/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLifeUsedAndChatterRate(t *testing.T) {
	if got := LifeUsedPct(500_000, 1_000_000); !almostEqual(got, 50) {
		t.Fatalf("expected 50%%, got %v", got)
	}
	if got := LifeUsedPct(10, 0); got != 0 {
		t.Fatalf("unrated switch should report 0, got %v", got)
	}
	if got := ChatterRatePct(1, 200); !almostEqual(got, 0.5) {
		t.Fatalf("expected 0.5%%, got %v", got)
	}
	if got := ChatterRatePct(0, 0); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := ChatterRatePct(3, 0); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestGrade(t *testing.T) {
	cases := []struct {
		life, chatter float64
		want          Status
	}{
		{life: 10, chatter: 0, want: StatusOK},
		{life: 80, chatter: 0, want: StatusWatch},
		{life: 10, chatter: 0.1, want: StatusWatch},
		{life: 100, chatter: 0, want: StatusReplace},
		{life: 5, chatter: 2, want: StatusReplace},
	}
	for _, tc := range cases {
		if got := Grade(tc.life, tc.chatter); got != tc.want {
			t.Fatalf("Grade(%v, %v) = %s, want %s", tc.life, tc.chatter, got, tc.want)
		}
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
	in := []float64{1, 2}
	same := MovingAverage(in, 1)
	same[0] = 9
	if in[0] != 1 {
		t.Fatalf("window 1 should return a copy")
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]float64{0, 9}); got != " @" {
		t.Fatalf("unexpected sparkline: %q", got)
	}
	if got := Sparkline([]float64{0, 0, 0}); got != "   " {
		t.Fatalf("flat zero should be blank, got %q", got)
	}
	if got := Sparkline([]float64{2, 2}); got != "++" {
		t.Fatalf("flat nonzero should sit mid-scale, got %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[uint64]string{
		0:    "0s",
		42:   "42s",
		310:  "5m10s",
		3723: "1h02m03s",
	}
	for secs, want := range cases {
		if got := FormatDuration(secs); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", secs, got, want)
		}
	}
}

func TestBuildWear(t *testing.T) {
	replaced := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	switches := map[model.LogicalKey]model.SwitchData{
		model.Key2: {SwitchModelID: model.DefaultSwitchModelID, Stats: model.ButtonStats{TotalPresses: 900_000}},
		model.Key1: {SwitchModelID: "omron_d2mv_01_1c3", Stats: model.ButtonStats{TotalPresses: 1000, TotalChatters: 20}, LastReplacedAt: &replaced},
		model.E1:   {SwitchModelID: "omron_d2mv_01_1c3", Stats: model.ButtonStats{TotalPresses: 1000}},
		model.Key3: {SwitchModelID: "custom_part", Stats: model.ButtonStats{TotalPresses: 5}},
	}
	rows := BuildWear(switches)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	order := []model.LogicalKey{model.Key1, model.Key2, model.Key3, model.E1}
	for i, key := range order {
		if rows[i].Key != key {
			t.Fatalf("row %d: expected %s, got %s", i, key, rows[i].Key)
		}
	}
	if rows[0].Status != StatusReplace || !almostEqual(rows[0].ChatterPct, 2) {
		t.Fatalf("unexpected Key1 row: %+v", rows[0])
	}
	if rows[1].Status != StatusWatch || !almostEqual(rows[1].LifeUsedPct, 90) {
		t.Fatalf("unexpected Key2 row: %+v", rows[1])
	}
	if rows[2].ModelName != "custom_part" || rows[2].RatedPresses != 0 || rows[2].Status != StatusOK {
		t.Fatalf("unexpected unknown-model row: %+v", rows[2])
	}
	if rows[3].Status != StatusOK {
		t.Fatalf("unexpected E1 row: %+v", rows[3])
	}

	flagged := NeedsAttention(rows)
	if len(flagged) != 2 || flagged[0].Key != model.Key1 || flagged[1].Key != model.Key2 {
		t.Fatalf("unexpected attention list: %+v", flagged)
	}
}

func TestRenderWear(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderWear(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No switches recorded yet.") {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}

	buf.Reset()
	rows := BuildWear(map[model.LogicalKey]model.SwitchData{
		model.Key1: {SwitchModelID: model.DefaultSwitchModelID, Stats: model.ButtonStats{TotalPresses: 10}},
	})
	if err := RenderWear(&buf, rows); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Switch Wear", "Generic / Unknown", "1000000", "0.00%", "OK"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderSessionDetail(t *testing.T) {
	id := int64(4)
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	rec := model.SessionRecord{ID: &id, StartTime: start, EndTime: start.Add(90 * time.Second), DurationSecs: 90}
	var buf bytes.Buffer
	err := RenderSessionDetail(&buf, rec, []model.SessionKeyStats{
		{SessionID: id, KeyName: "Key1", Presses: 50, Chatters: 1, ChatterReleases: 1},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Session 4", "Duration: 1m30s", "Key1", "2.00%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
