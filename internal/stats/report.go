package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/switchlife/internal/model"
)

const (
	defaultReportSessions = 20
	defaultTopTrends      = 3
	trendPlotHeight       = 8
)

// Source is the session history a report reads from.
type Source interface {
	RecentSessions(ctx context.Context, limit, offset int) ([]model.SessionRecord, error)
	KeyTotals(ctx context.Context, window int) ([]model.KeyAggregate, error)
	ChatterTrend(ctx context.Context, key string, window int) ([]model.SessionKeyStats, error)
}

// ReportConfig selects what BuildReport loads.
type ReportConfig struct {
	// Last is the number of recent sessions covered; 0 means 20.
	Last int
	// TrendKeys lists keys to plot. Empty picks the keys chattering most.
	TrendKeys []string
	TopTrends int
}

// KeyTrend is one key's stats per session, oldest first.
type KeyTrend struct {
	Key    string
	Points []model.SessionKeyStats
}

// Series splits the trend into presses and chatter-rate values.
func (t KeyTrend) Series() (presses, chatterPct []float64) {
	presses = make([]float64, len(t.Points))
	chatterPct = make([]float64, len(t.Points))
	for i, p := range t.Points {
		presses[i] = float64(p.Presses)
		chatterPct[i] = ChatterRatePct(p.Chatters, p.Presses)
	}
	return presses, chatterPct
}

// Report contains precomputed data for report rendering.
type Report struct {
	Wear     []WearRow
	Sessions []model.SessionRecord
	Totals   []model.KeyAggregate
	Trends   []KeyTrend
}

// BuildReport grades switches and loads the windowed session history.
func BuildReport(ctx context.Context, src Source, switches map[model.LogicalKey]model.SwitchData, cfg ReportConfig) (Report, error) {
	window := cfg.Last
	if window <= 0 {
		window = defaultReportSessions
	}
	report := Report{Wear: BuildWear(switches)}

	sessions, err := src.RecentSessions(ctx, window, 0)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load sessions: %w", err)
	}
	report.Sessions = sessions

	totals, err := src.KeyTotals(ctx, window)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load key totals: %w", err)
	}
	report.Totals = totals

	keys := cfg.TrendKeys
	if len(keys) == 0 {
		top := cfg.TopTrends
		if top <= 0 {
			top = defaultTopTrends
		}
		keys = TopChattering(totals, top)
	}
	for _, key := range keys {
		points, err := src.ChatterTrend(ctx, key, window)
		if err != nil {
			return Report{}, fmt.Errorf("failed to load trend for %s: %w", key, err)
		}
		report.Trends = append(report.Trends, KeyTrend{Key: key, Points: points})
	}
	return report, nil
}

// RenderReport prints every section of r.
func RenderReport(w io.Writer, r Report, totalWidth int, useColor bool) error {
	if err := RenderWear(w, r.Wear); err != nil {
		return err
	}
	if flagged := NeedsAttention(r.Wear); len(flagged) > 0 {
		if _, err := fmt.Fprintln(w, "Needs attention:"); err != nil {
			return err
		}
		for _, row := range flagged {
			if _, err := fmt.Fprintf(w, "  %s %s (life %s, chatter %s)\n",
				row.Key, row.Status, formatPct(row.LifeUsedPct), formatPct(row.ChatterPct)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return err
		}
	}
	if err := RenderSessions(w, r.Sessions); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	if err := RenderKeyTotals(w, r.Totals); err != nil {
		return err
	}
	return RenderTrends(w, r.Trends, totalWidth, trendPlotHeight, useColor)
}
