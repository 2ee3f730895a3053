package stats

import (
	"sort"

	"github.com/verte-zerg/switchlife/internal/model"
)

// TopChattering returns the names of up to n keys with the most chatters.
// Keys that never chattered are left out.
func TopChattering(aggs []model.KeyAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	items := make([]model.KeyAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Chatters > 0 {
			items = append(items, agg)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Chatters == items[j].Chatters {
			return keyNameLess(items[i].KeyName, items[j].KeyName)
		}
		return items[i].Chatters > items[j].Chatters
	})
	n = min(n, len(items))
	out := make([]string, 0, n)
	for _, it := range items[:n] {
		out = append(out, it.KeyName)
	}
	return out
}

func keyNameLess(a, b string) bool {
	return model.LogicalKey(a).Less(model.LogicalKey(b))
}
