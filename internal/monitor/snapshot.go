package monitor

import (
	"sync/atomic"
	"time"

	"github.com/verte-zerg/switchlife/internal/model"
)

// SaveResult is the outcome of the most recent persistence attempt.
type SaveResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a read-only projection of monitor state. A published Snapshot
// is never modified; readers must not modify it either.
type Snapshot struct {
	Connected        bool                                  `json:"is_connected"`
	GameRunning      bool                                  `json:"is_game_running"`
	Config           model.AppConfig                       `json:"config"`
	ProfileName      string                                `json:"profile_name"`
	Bindings         map[model.LogicalKey]uint32           `json:"bindings"`
	Switches         map[model.LogicalKey]model.SwitchData `json:"switches"`
	SwitchHistory    []model.SwitchHistoryEntry            `json:"switch_history"`
	PressedKeys      []model.LogicalKey                    `json:"current_pressed_keys"`
	RawButtons       uint32                                `json:"raw_button_state"`
	RecentSessions   []model.SessionRecord                 `json:"recent_sessions"`
	StatusMessage    string                                `json:"last_status_message,omitempty"`
	LastSave         *SaveResult                           `json:"last_save_result,omitempty"`
	SessionStartedAt *time.Time                            `json:"session_started_at,omitempty"`
	PublishedAt      time.Time                             `json:"published_at"`
}

// IsPressed reports whether key was held when the snapshot was taken.
func (s *Snapshot) IsPressed(key model.LogicalKey) bool {
	for _, k := range s.PressedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Shared holds the latest Snapshot. Load never blocks the publisher.
type Shared struct {
	p atomic.Pointer[Snapshot]
}

// NewShared returns a Shared holding an empty Snapshot.
func NewShared() *Shared {
	s := &Shared{}
	s.p.Store(&Snapshot{})
	return s
}

// Load returns the current Snapshot. It is never nil.
func (s *Shared) Load() *Snapshot {
	if snap := s.p.Load(); snap != nil {
		return snap
	}
	return &Snapshot{}
}

// Store publishes snap. Only the goroutine owning the profile calls it.
func (s *Shared) Store(snap *Snapshot) {
	s.p.Store(snap)
}
