// Package stats contains wear calculations and text reports.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/switchlife/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Status grades a switch by wear and chatter.
type Status string

const (
	StatusOK      Status = "OK"
	StatusWatch   Status = "WATCH"
	StatusReplace Status = "REPLACE"
)

// Grading thresholds. Life is a percent of rated presses, chatter is a
// percent of presses.
const (
	watchLifePct      = 80.0
	replaceLifePct    = 100.0
	watchChatterPct   = 0.1
	replaceChatterPct = 1.0
)

// LifeUsedPct returns presses as a percent of the rated lifespan.
func LifeUsedPct(presses, rated uint64) float64 {
	if rated == 0 {
		return 0
	}
	return float64(presses) / float64(rated) * 100
}

// ChatterRatePct returns chatters per hundred presses. Chatter without any
// counted press is 100%.
func ChatterRatePct(chatters, presses uint64) float64 {
	if presses == 0 {
		if chatters > 0 {
			return 100
		}
		return 0
	}
	return float64(chatters) / float64(presses) * 100
}

// Grade picks the status for a life-used and chatter-rate pair.
func Grade(lifePct, chatterPct float64) Status {
	switch {
	case lifePct >= replaceLifePct || chatterPct >= replaceChatterPct:
		return StatusReplace
	case lifePct >= watchLifePct || chatterPct >= watchChatterPct:
		return StatusWatch
	default:
		return StatusOK
	}
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		// Flat series: all zero stays blank, anything else sits mid-scale.
		ch := sparkChars[len(sparkChars)/2]
		if hi == 0 {
			ch = sparkChars[0]
		}
		return strings.Repeat(string(ch), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// FormatDuration renders whole seconds as 1h02m03s, 5m10s or 42s.
func FormatDuration(secs uint64) string {
	d := time.Duration(secs) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

func writeTable(w io.Writer, title string, headers []string, rows [][]string, rightAlign map[int]bool) error {
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for _, line := range FormatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderWear prints one row per switch with its wear grade.
func RenderWear(w io.Writer, rows []WearRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No switches recorded yet.")
		return err
	}
	headers := []string{"Key", "Model", "Presses", "Rated", "Life Used", "Chatters", "Chatter %", "Replaced", "Status"}
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		rated := "-"
		if r.RatedPresses > 0 {
			rated = fmt.Sprintf("%d", r.RatedPresses)
		}
		table = append(table, []string{
			r.Key.String(),
			r.ModelName,
			fmt.Sprintf("%d", r.Presses),
			rated,
			formatPct(r.LifeUsedPct),
			fmt.Sprintf("%d", r.Chatters),
			formatPct(r.ChatterPct),
			formatDate(r.LastReplacedAt),
			string(r.Status),
		})
	}
	return writeTable(w, "Switch Wear", headers, table, map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true})
}

// RenderSessions prints sessions in the order given.
func RenderSessions(w io.Writer, sessions []model.SessionRecord) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	headers := []string{"ID", "Start", "End", "Duration"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		id := "-"
		if s.ID != nil {
			id = fmt.Sprintf("%d", *s.ID)
		}
		rows = append(rows, []string{
			id,
			s.StartTime.Local().Format("2006-01-02 15:04:05"),
			s.EndTime.Local().Format("15:04:05"),
			FormatDuration(s.DurationSecs),
		})
	}
	return writeTable(w, "Sessions", headers, rows, map[int]bool{0: true, 3: true})
}

// RenderSessionDetail prints one session and its per-key counts.
func RenderSessionDetail(w io.Writer, rec model.SessionRecord, keys []model.SessionKeyStats) error {
	id := "-"
	if rec.ID != nil {
		id = fmt.Sprintf("%d", *rec.ID)
	}
	if _, err := fmt.Fprintf(w, "Session %s\nStart: %s\nEnd: %s\nDuration: %s\n\n",
		id,
		rec.StartTime.Local().Format(time.RFC3339),
		rec.EndTime.Local().Format(time.RFC3339),
		FormatDuration(rec.DurationSecs),
	); err != nil {
		return err
	}
	if len(keys) == 0 {
		_, err := fmt.Fprintln(w, "No key activity recorded.")
		return err
	}
	headers := []string{"Key", "Presses", "Chatters", "Chatter Releases", "Chatter %"}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{
			k.KeyName,
			fmt.Sprintf("%d", k.Presses),
			fmt.Sprintf("%d", k.Chatters),
			fmt.Sprintf("%d", k.ChatterReleases),
			formatPct(ChatterRatePct(k.Chatters, k.Presses)),
		})
	}
	return writeTable(w, "", headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})
}

// RenderKeyTotals prints per-key sums across the report window.
func RenderKeyTotals(w io.Writer, aggs []model.KeyAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No key stats found.")
		return err
	}
	headers := []string{"Key", "Sessions", "Presses", "Chatters", "Chatter %"}
	rows := make([][]string, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, []string{
			a.KeyName,
			fmt.Sprintf("%d", a.Sessions),
			fmt.Sprintf("%d", a.Presses),
			fmt.Sprintf("%d", a.Chatters),
			formatPct(ChatterRatePct(a.Chatters, a.Presses)),
		})
	}
	return writeTable(w, "Per-Key (Windowed)", headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})
}

// RenderTrends plots presses and chatter rate per session for each trend.
func RenderTrends(w io.Writer, trends []KeyTrend, totalWidth, height int, useColor bool) error {
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	for _, t := range trends {
		if len(t.Points) == 0 {
			continue
		}
		presses, rates := t.Series()
		title := fmt.Sprintf("%s over %d sessions  %s", t.Key, len(t.Points), TrendSparkline(t.Points))
		if err := PlotSeriesWithColor(w, title, []Series{
			{Name: "Presses", Values: presses},
			{Name: "Chatter %", Values: rates},
		}, width, height, useColor); err != nil {
			return err
		}
	}
	return nil
}

// TrendSparkline summarizes per-session chatter counts on one line.
func TrendSparkline(points []model.SessionKeyStats) string {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = float64(p.Chatters)
	}
	return Sparkline(values)
}
