// Package chatter classifies raw button edges into presses, releases and
// chatter re-triggers.
package chatter

import "github.com/verte-zerg/switchlife/internal/model"

type keyState struct {
	lastReleaseAt         int64
	hasRelease            bool
	cooldownUntil         int64
	pressed               bool
	countedChatterRelease bool
}

// Detector tracks per-key edge state. It is not safe for concurrent use; the
// monitor loop is its only caller.
type Detector struct {
	threshold int64
	states    map[model.LogicalKey]*keyState
}

// New returns a detector that treats re-presses closer than thresholdMs to the
// previous release as chatter.
func New(thresholdMs uint64) *Detector {
	return &Detector{
		threshold: int64(thresholdMs),
		states:    make(map[model.LogicalKey]*keyState),
	}
}

// Threshold reports the current chatter window in milliseconds.
func (d *Detector) Threshold() int64 {
	return d.threshold
}

// SetThreshold changes the chatter window. Existing cooldowns keep their end time.
func (d *Detector) SetThreshold(thresholdMs uint64) {
	d.threshold = int64(thresholdMs)
}

// Forget drops the release history of key. A held key stays held, so the
// new switch only counts presses that start after the call.
func (d *Detector) Forget(key model.LogicalKey) {
	st, ok := d.states[key]
	if !ok {
		return
	}
	if !st.pressed {
		delete(d.states, key)
		return
	}
	*st = keyState{pressed: true}
}

// Process folds one observation of key into stats. nowMs must not decrease
// between calls for the same key.
func (d *Detector) Process(key model.LogicalKey, pressedNow bool, nowMs int64, stats *model.ButtonStats, sessionActive bool) {
	st, ok := d.states[key]
	if !ok {
		st = &keyState{}
		d.states[key] = st
	}

	switch {
	case pressedNow && !st.pressed:
		st.pressed = true
		if nowMs < st.cooldownUntil {
			// Bounce inside an episode already counted.
			return
		}
		if st.hasRelease && nowMs-st.lastReleaseAt < d.threshold {
			stats.TotalChatters++
			if sessionActive {
				stats.LastSessionChatters++
			}
			if !st.countedChatterRelease {
				stats.TotalChatterReleases++
				if sessionActive {
					stats.LastSessionChatterReleases++
				}
				st.countedChatterRelease = true
			}
			st.cooldownUntil = nowMs + d.threshold
			return
		}
		stats.TotalPresses++
		if sessionActive {
			stats.LastSessionPresses++
		}

	case !pressedNow && st.pressed:
		st.pressed = false
		stats.TotalReleases++
		if sessionActive {
			stats.LastSessionReleases++
		}
		st.lastReleaseAt = nowMs
		st.hasRelease = true
		st.countedChatterRelease = false
	}
}

// Pressed reports whether the detector currently sees key as held.
func (d *Detector) Pressed(key model.LogicalKey) bool {
	st, ok := d.states[key]
	return ok && st.pressed
}
