package store

import (
	"sort"

	"github.com/verte-zerg/switchlife/internal/model"
)

// keyLess orders stored key names like the dashboard does; names that no
// longer parse sort after all known keys.
func keyLess(a, b string) bool {
	ka, errA := model.ParseLogicalKey(a)
	kb, errB := model.ParseLogicalKey(b)
	switch {
	case errA == nil && errB == nil:
		return ka.Less(kb)
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

func sortKeyStats(stats []model.SessionKeyStats) {
	sort.SliceStable(stats, func(i, j int) bool {
		return keyLess(stats[i].KeyName, stats[j].KeyName)
	})
}

func sortAggregates(aggs []model.KeyAggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		return keyLess(aggs[i].KeyName, aggs[j].KeyName)
	})
}
