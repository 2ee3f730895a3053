package monitor

import (
	"context"
	"time"

	"github.com/verte-zerg/switchlife/internal/model"
)

func (s *Service) startSession(now time.Time) {
	start := now.UTC()
	s.sessionStart = &start
	for _, sw := range s.profile.Switches {
		sw.Stats.ResetSession()
	}
	s.log.Info("game started, session stats reset")
}

// endSession closes the open session, keeps it in the rolling window and
// submits it to the session store once.
func (s *Service) endSession(ctx context.Context, now time.Time) {
	start := s.sessionStart
	s.sessionStart = nil
	if start == nil {
		s.log.Info("game ended")
		return
	}
	end := now.UTC()
	secs := int64(end.Sub(*start) / time.Second)
	if secs < 0 {
		secs = 0
	}
	rec := model.SessionRecord{
		StartTime:    *start,
		EndTime:      end,
		DurationSecs: uint64(secs),
	}

	s.profile.RecentSessions = append(s.profile.RecentSessions, rec)
	if over := len(s.profile.RecentSessions) - s.recentLimit; over > 0 {
		s.profile.RecentSessions = append([]model.SessionRecord(nil), s.profile.RecentSessions[over:]...)
	}
	s.log.Info("game ended, session recorded: %ds", rec.DurationSecs)

	if s.sessions == nil {
		return
	}
	stats := s.sessionKeyStats()
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SessionStoreTimeout)
	defer cancel()
	id, err := s.sessions.SaveSession(storeCtx, rec, stats)
	if err != nil {
		s.log.Error("failed to save session to history: %v", err)
		return
	}
	last := &s.profile.RecentSessions[len(s.profile.RecentSessions)-1]
	last.ID = &id
	s.log.Debug("session %d saved to history", id)
}

func (s *Service) sessionKeyStats() []model.SessionKeyStats {
	keys := model.SortedKeys(s.profile.Switches)
	out := make([]model.SessionKeyStats, 0, len(keys))
	for _, key := range keys {
		st := s.profile.Switches[key].Stats
		out = append(out, model.SessionKeyStats{
			KeyName:         key.String(),
			Presses:         st.LastSessionPresses,
			Chatters:        st.LastSessionChatters,
			ChatterReleases: st.LastSessionChatterReleases,
		})
	}
	return out
}
