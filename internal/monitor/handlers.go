package monitor

import "github.com/verte-zerg/switchlife/internal/model"

// handle applies one command and reports whether the loop should stop.
func (s *Service) handle(cmd Command) bool {
	switch c := cmd.(type) {
	case Shutdown:
		s.log.Info("shutdown requested")
		return true
	case ForceSave:
		_ = s.save("force", s.now())
	case UpdateConfig:
		s.updateConfig(c.Config)
	case UpdateMapping:
		s.profile.Mapping.ProfileName = c.ProfileName
		s.profile.Mapping.Bindings = model.CloneBindings(c.Bindings)
		s.refreshBindings()
		s.log.Info("mapping updated to %q (%d bindings)", c.ProfileName, len(c.Bindings))
	case SetKeyBinding:
		if other, ok := s.profile.Mapping.Bind(c.Key, c.Button); ok {
			s.log.Info("unbound %s (was button %d)", other, c.Button)
		}
		s.refreshBindings()
		s.log.Info("set binding %s -> %d", c.Key, c.Button)
	case ReplaceSwitch:
		s.replaceSwitch(c.Key, c.NewModelID)
	case ResetStats:
		s.resetStats(c.Key)
	case SetLastReplacedDate:
		s.setLastReplaced(c)
	default:
		s.log.Warn("ignoring unknown command %T", cmd)
	}
	return false
}

func (s *Service) updateConfig(cfg model.AppConfig) {
	if err := cfg.Validate(); err != nil {
		s.log.Warn("rejected config update: %v", err)
		s.setStatus("Config rejected: %v", err)
		return
	}
	method, _ := model.ParseInputMethod(string(cfg.InputMethod))
	cfg.InputMethod = method
	if cfg.InputMethod != s.profile.Config.InputMethod {
		s.input.SetMethod(cfg.InputMethod)
		s.log.Info("input method switched to %s", cfg.InputMethod)
	}
	s.profile.Config = cfg
	s.detector.SetThreshold(cfg.ChatterThresholdMs)
	s.log.Info("config updated")
}

func (s *Service) appendHistory(entry model.SwitchHistoryEntry) {
	s.profile.SwitchHistory = append(s.profile.SwitchHistory, entry)
	s.refreshHistory()
}

func (s *Service) replaceSwitch(key model.LogicalKey, modelID string) {
	if _, known := model.LookupSwitchModel(modelID); !known {
		s.log.Warn("replacing %s with unlisted model %q", key, modelID)
	}
	now := s.now().UTC()
	s.detector.Forget(key)

	sw, ok := s.profile.Switches[key]
	if !ok {
		s.profile.Switches[key] = &model.SwitchData{SwitchModelID: modelID, LastReplacedAt: &now}
		s.log.Info("added switch for %s with model %s", key, modelID)
		return
	}
	s.log.Info("replacing switch for %s: old model %s, presses %d, chatters %d",
		key, sw.SwitchModelID, sw.Stats.TotalPresses, sw.Stats.TotalChatters)
	s.appendHistory(model.SwitchHistoryEntry{
		ID:            s.newID(now),
		Date:          now,
		Key:           key,
		OldModelID:    sw.SwitchModelID,
		NewModelID:    modelID,
		PreviousStats: sw.Stats,
		EventType:     model.EventReplace,
	})
	sw.Stats = model.ButtonStats{}
	sw.SwitchModelID = modelID
	sw.LastReplacedAt = &now
}

func (s *Service) resetStats(key model.LogicalKey) {
	sw, ok := s.profile.Switches[key]
	if !ok {
		return
	}
	now := s.now().UTC()
	s.log.Info("resetting stats for %s: model %s, presses %d, chatters %d",
		key, sw.SwitchModelID, sw.Stats.TotalPresses, sw.Stats.TotalChatters)
	s.appendHistory(model.SwitchHistoryEntry{
		ID:            s.newID(now),
		Date:          now,
		Key:           key,
		OldModelID:    sw.SwitchModelID,
		NewModelID:    sw.SwitchModelID,
		PreviousStats: sw.Stats,
		EventType:     model.EventReset,
	})
	sw.Stats = model.ButtonStats{}
	sw.LastReplacedAt = &now
}

func (s *Service) setLastReplaced(c SetLastReplacedDate) {
	sw, ok := s.profile.Switches[c.Key]
	if !ok {
		return
	}
	now := s.now().UTC()
	s.appendHistory(model.SwitchHistoryEntry{
		ID:            s.newID(now),
		Date:          now,
		Key:           c.Key,
		OldModelID:    sw.SwitchModelID,
		NewModelID:    sw.SwitchModelID,
		PreviousStats: sw.Stats,
		EventType:     model.EventManualEdit,
	})
	date := c.Date.UTC()
	sw.LastReplacedAt = &date
	s.log.Info("set last replaced date for %s to %s", c.Key, date.Format("2006-01-02"))
}
