package stats

import (
	"sort"
	"time"

	"github.com/verte-zerg/switchlife/internal/model"
)

// WearRow is the graded state of one installed switch.
type WearRow struct {
	Key            model.LogicalKey
	ModelID        string
	ModelName      string
	RatedPresses   uint64
	Presses        uint64
	Chatters       uint64
	LifeUsedPct    float64
	ChatterPct     float64
	LastReplacedAt *time.Time
	Status         Status
}

// BuildWear grades every switch, ordered by key. Unknown model ids keep
// their id as the name and report no rated life.
func BuildWear(switches map[model.LogicalKey]model.SwitchData) []WearRow {
	rows := make([]WearRow, 0, len(switches))
	for _, key := range model.SortedKeys(switches) {
		sw := switches[key]
		row := WearRow{
			Key:            key,
			ModelID:        sw.SwitchModelID,
			ModelName:      sw.SwitchModelID,
			Presses:        sw.Stats.TotalPresses,
			Chatters:       sw.Stats.TotalChatters,
			LastReplacedAt: sw.LastReplacedAt,
		}
		if info, ok := model.LookupSwitchModel(sw.SwitchModelID); ok {
			row.ModelName = info.Name
			row.RatedPresses = info.RatedLifespanPresses
		}
		row.LifeUsedPct = LifeUsedPct(row.Presses, row.RatedPresses)
		row.ChatterPct = ChatterRatePct(row.Chatters, row.Presses)
		row.Status = Grade(row.LifeUsedPct, row.ChatterPct)
		rows = append(rows, row)
	}
	return rows
}

func severity(s Status) int {
	switch s {
	case StatusReplace:
		return 2
	case StatusWatch:
		return 1
	default:
		return 0
	}
}

// NeedsAttention returns the rows that are not OK, worst first.
func NeedsAttention(rows []WearRow) []WearRow {
	var out []WearRow
	for _, r := range rows {
		if r.Status != StatusOK {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := severity(out[i].Status), severity(out[j].Status)
		if si != sj {
			return si > sj
		}
		if out[i].ChatterPct != out[j].ChatterPct {
			return out[i].ChatterPct > out[j].ChatterPct
		}
		return out[i].LifeUsedPct > out[j].LifeUsedPct
	})
	return out
}
