package stats

import (
	"testing"

	"github.com/verte-zerg/switchlife/internal/model"
)

func TestTopChattering(t *testing.T) {
	aggs := []model.KeyAggregate{
		{KeyName: "Key3", Chatters: 2},
		{KeyName: "Key1", Chatters: 5},
		{KeyName: "E1", Chatters: 2},
		{KeyName: "Key2", Chatters: 0},
		{KeyName: "Key4", Chatters: 2},
	}
	top := TopChattering(aggs, 3)
	if len(top) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(top))
	}
	if top[0] != "Key1" || top[1] != "Key3" || top[2] != "Key4" {
		t.Fatalf("unexpected order: %v", top)
	}
	if got := TopChattering(aggs, 10); len(got) != 4 {
		t.Fatalf("keys without chatter should be skipped: %v", got)
	}
	if got := TopChattering(aggs, 0); got != nil {
		t.Fatalf("expected nil for n=0, got %v", got)
	}
}
