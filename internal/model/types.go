// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the profile schema this build reads and writes.
const SchemaVersion = 1

// DefaultSwitchModelID is assigned to keys seen for the first time.
const DefaultSwitchModelID = "generic_unknown"

// InputMethod selects the controller API used to read button state.
type InputMethod string

const (
	InputXInput      InputMethod = "XInput"
	InputDirectInput InputMethod = "DirectInput"
)

// ParseInputMethod accepts the method name case-insensitively.
func ParseInputMethod(s string) (InputMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xinput":
		return InputXInput, nil
	case "directinput", "dinput":
		return InputDirectInput, nil
	default:
		return "", fmt.Errorf("unknown input method %q (want XInput or DirectInput)", s)
	}
}

// AppConfig holds the monitor settings persisted with the profile.
type AppConfig struct {
	TargetControllerIndex     uint32      `json:"target_controller_index"`
	InputMethod               InputMethod `json:"input_method"`
	ChatterThresholdMs        uint64      `json:"chatter_threshold_ms"`
	PollingRateMsConnected    uint64      `json:"polling_rate_ms_connected"`
	PollingRateMsDisconnected uint64      `json:"polling_rate_ms_disconnected"`
	TargetProcessName         string      `json:"target_process_name"`
	OverlayEnabled            bool        `json:"overlay_enabled"`
	OverlayPort               uint16      `json:"overlay_port"`
	OverlayPollIntervalMs     uint64      `json:"overlay_poll_interval_ms"`
}

// DefaultAppConfig returns the settings used for a fresh profile.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		TargetControllerIndex:     0,
		InputMethod:               InputDirectInput,
		ChatterThresholdMs:        15,
		PollingRateMsConnected:    1,
		PollingRateMsDisconnected: 1000,
		TargetProcessName:         "bm2dx.exe",
		OverlayEnabled:            false,
		OverlayPort:               8765,
		OverlayPollIntervalMs:     100,
	}
}

// Validate rejects settings the monitor loop cannot run with.
func (c AppConfig) Validate() error {
	if c.ChatterThresholdMs == 0 {
		return fmt.Errorf("chatter threshold must be > 0")
	}
	if c.PollingRateMsConnected == 0 || c.PollingRateMsDisconnected == 0 {
		return fmt.Errorf("polling rates must be > 0")
	}
	if _, err := ParseInputMethod(string(c.InputMethod)); err != nil {
		return err
	}
	if c.OverlayEnabled && c.OverlayPort == 0 {
		return fmt.Errorf("overlay port must be set when the overlay is enabled")
	}
	return nil
}

// ButtonStats counts transitions of one physical switch.
// Session counters never exceed their lifetime counterparts.
type ButtonStats struct {
	TotalPresses         uint64 `json:"total_presses"`
	TotalReleases        uint64 `json:"total_releases"`
	TotalChatters        uint64 `json:"total_chatters"`
	TotalChatterReleases uint64 `json:"total_chatter_releases"`

	LastSessionPresses         uint64 `json:"last_session_presses"`
	LastSessionReleases        uint64 `json:"last_session_releases"`
	LastSessionChatters        uint64 `json:"last_session_chatters"`
	LastSessionChatterReleases uint64 `json:"last_session_chatter_releases"`
}

// ResetSession zeroes the per-session counters.
func (s *ButtonStats) ResetSession() {
	s.LastSessionPresses = 0
	s.LastSessionReleases = 0
	s.LastSessionChatters = 0
	s.LastSessionChatterReleases = 0
}

// SwitchData is the switch installed under a key and its accumulated wear.
type SwitchData struct {
	SwitchModelID  string      `json:"switch_model_id"`
	Stats          ButtonStats `json:"stats"`
	LastReplacedAt *time.Time  `json:"last_replaced_at"`
}

// Clone returns a copy that shares nothing with s.
func (s *SwitchData) Clone() *SwitchData {
	out := *s
	if s.LastReplacedAt != nil {
		t := *s.LastReplacedAt
		out.LastReplacedAt = &t
	}
	return &out
}

// ButtonMap binds logical keys to raw controller bitmasks. A mask of 0 is unbound.
type ButtonMap struct {
	ProfileName string                `json:"profile_name"`
	Bindings    map[LogicalKey]uint32 `json:"bindings"`
}

// DefaultButtonMap returns the mapping of a PhoenixWAN-style controller.
func DefaultButtonMap() ButtonMap {
	return ButtonMap{
		ProfileName: "Default",
		Bindings: map[LogicalKey]uint32{
			Key1: 8,
			Key2: 1,
			Key3: 2,
			Key4: 4,
			Key5: 64,
			Key6: 256,
			Key7: 128,
			E1:   1024,
			E2:   2048,
			E3:   8192,
			E4:   16384,
		},
	}
}

// Bind sets key to button. A different key already owning the same nonzero
// button is set to 0 and returned, so no two keys share a nonzero mask.
func (m *ButtonMap) Bind(key LogicalKey, button uint32) (LogicalKey, bool) {
	if m.Bindings == nil {
		m.Bindings = map[LogicalKey]uint32{}
	}
	var unbound LogicalKey
	found := false
	if button != 0 {
		for k, v := range m.Bindings {
			if v == button && k != key {
				m.Bindings[k] = 0
				unbound = k
				found = true
				break
			}
		}
	}
	m.Bindings[key] = button
	return unbound, found
}

// CloneBindings copies a binding map.
func CloneBindings(in map[LogicalKey]uint32) map[LogicalKey]uint32 {
	out := make(map[LogicalKey]uint32, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// HistoryEvent classifies a switch history entry.
type HistoryEvent string

const (
	EventReplace    HistoryEvent = "Replace"
	EventReset      HistoryEvent = "Reset"
	EventManualEdit HistoryEvent = "ManualEdit"
)

// SwitchHistoryEntry is an append-only audit record of a switch change.
type SwitchHistoryEntry struct {
	ID            string       `json:"id"`
	Date          time.Time    `json:"date"`
	Key           LogicalKey   `json:"key"`
	OldModelID    string       `json:"old_model_id"`
	NewModelID    string       `json:"new_model_id"`
	PreviousStats ButtonStats  `json:"previous_stats"`
	EventType     HistoryEvent `json:"event_type"`
}

// SessionRecord captures a completed play session.
type SessionRecord struct {
	ID           *int64    `json:"id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	DurationSecs uint64    `json:"duration_secs"`
}

// SessionKeyStats stores per-key counts for a session.
type SessionKeyStats struct {
	SessionID       int64  `json:"session_id"`
	KeyName         string `json:"key_name"`
	Presses         uint64 `json:"presses"`
	Chatters        uint64 `json:"chatters"`
	ChatterReleases uint64 `json:"chatter_releases"`
}

// KeyAggregate sums per-key session stats across sessions.
type KeyAggregate struct {
	KeyName         string
	Sessions        int
	Presses         uint64
	Chatters        uint64
	ChatterReleases uint64
}

// UserProfile is the persisted aggregate owned by the monitor.
type UserProfile struct {
	SchemaVersion  int                        `json:"schema_version"`
	Config         AppConfig                  `json:"config"`
	Mapping        ButtonMap                  `json:"mapping"`
	Switches       map[LogicalKey]*SwitchData `json:"switches"`
	SwitchHistory  []SwitchHistoryEntry       `json:"switch_history"`
	RecentSessions []SessionRecord            `json:"recent_sessions"`
}

// DefaultProfile returns a fresh profile with default config and mapping.
func DefaultProfile() *UserProfile {
	return &UserProfile{
		SchemaVersion:  SchemaVersion,
		Config:         DefaultAppConfig(),
		Mapping:        DefaultButtonMap(),
		Switches:       map[LogicalKey]*SwitchData{},
		SwitchHistory:  []SwitchHistoryEntry{},
		RecentSessions: []SessionRecord{},
	}
}

// Normalize fills nil collections left by older or hand-edited files.
func (p *UserProfile) Normalize() {
	if p.Mapping.Bindings == nil {
		p.Mapping.Bindings = map[LogicalKey]uint32{}
	}
	if p.Switches == nil {
		p.Switches = map[LogicalKey]*SwitchData{}
	}
	for k, sw := range p.Switches {
		if sw == nil {
			delete(p.Switches, k)
		}
	}
	if p.SwitchHistory == nil {
		p.SwitchHistory = []SwitchHistoryEntry{}
	}
	if p.RecentSessions == nil {
		p.RecentSessions = []SessionRecord{}
	}
}

// CloneSwitches deep-copies a switch map.
func CloneSwitches(in map[LogicalKey]*SwitchData) map[LogicalKey]SwitchData {
	out := make(map[LogicalKey]SwitchData, len(in))
	for k, v := range in {
		out[k] = *v.Clone()
	}
	return out
}
