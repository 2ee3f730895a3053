// Package monitor runs the polling loop that owns the user profile, feeds the
// chatter detector and publishes snapshots for readers.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/verte-zerg/switchlife/internal/chatter"
	"github.com/verte-zerg/switchlife/internal/hirestimer"
	"github.com/verte-zerg/switchlife/internal/input"
	"github.com/verte-zerg/switchlife/internal/logger"
	"github.com/verte-zerg/switchlife/internal/model"
)

// Loop timing defaults.
const (
	ProcessCheckInterval = 2 * time.Second
	PublishInterval      = 30 * time.Millisecond
	AutoSaveInterval     = 60 * time.Second
	SessionStoreTimeout  = 5 * time.Second

	DefaultRecentSessionLimit = 3
)

// InputSource reads the raw button bitmask of a controller.
type InputSource interface {
	State(index uint32) (uint32, error)
	SetMethod(method model.InputMethod)
}

// ProcessMonitor reports whether a process with the given name is running.
type ProcessMonitor interface {
	IsRunning(name string) bool
}

// ProfileRepository loads and persists the user profile.
type ProfileRepository interface {
	Load() (*model.UserProfile, error)
	Save(p *model.UserProfile) error
}

// SessionRepository stores completed sessions.
type SessionRepository interface {
	SaveSession(ctx context.Context, rec model.SessionRecord, stats []model.SessionKeyStats) (int64, error)
}

// Options configures a Service. Input, Process and Profiles are required.
type Options struct {
	Input    InputSource
	Process  ProcessMonitor
	Profiles ProfileRepository
	Sessions SessionRepository

	Commands *Commands
	Shared   *Shared
	Logger   logger.Logger

	// Now defaults to time.Now.
	Now func() time.Time
	// AcquireTimer defaults to hirestimer.Acquire.
	AcquireTimer func() hirestimer.Release

	RecentSessionLimit   int
	ProcessCheckInterval time.Duration
	PublishInterval      time.Duration
	AutoSaveInterval     time.Duration
}

// Service is the single writer of the profile. Run must be called from one
// goroutine only.
type Service struct {
	input    InputSource
	procs    ProcessMonitor
	profiles ProfileRepository
	sessions SessionRepository
	cmds     *Commands
	shared   *Shared
	log      logger.Logger
	now      func() time.Time
	acquire  func() hirestimer.Release
	entropy  *ulid.MonotonicEntropy

	recentLimit   int
	processEvery  time.Duration
	publishEvery  time.Duration
	autoSaveEvery time.Duration

	profile  *model.UserProfile
	detector *chatter.Detector
	epoch    time.Time
	lastMs   int64

	connected        bool
	gameRunning      bool
	processChecked   bool
	lastProcessCheck time.Time
	lastPublish      time.Time
	lastAutoSave     time.Time
	releaseTimer     hirestimer.Release
	sessionStart     *time.Time
	lastInputErr     string

	pressed      []model.LogicalKey
	raw          uint32
	status       string
	lastSave     *SaveResult
	bindingsView map[model.LogicalKey]uint32
	historyView  []model.SwitchHistoryEntry
}

// New loads the profile and prepares a Service. A profile that cannot be
// loaded safely, such as one with a different schema version, is an error.
func New(opts Options) (*Service, error) {
	if opts.Input == nil || opts.Process == nil || opts.Profiles == nil {
		return nil, errors.New("monitor: input, process and profile backends are required")
	}
	s := &Service{
		input:         opts.Input,
		procs:         opts.Process,
		profiles:      opts.Profiles,
		sessions:      opts.Sessions,
		cmds:          opts.Commands,
		shared:        opts.Shared,
		log:           opts.Logger,
		now:           opts.Now,
		acquire:       opts.AcquireTimer,
		recentLimit:   opts.RecentSessionLimit,
		processEvery:  opts.ProcessCheckInterval,
		publishEvery:  opts.PublishInterval,
		autoSaveEvery: opts.AutoSaveInterval,
	}
	if s.log == nil {
		s.log = logger.New("[monitor]")
	}
	if s.cmds == nil {
		s.cmds = NewCommands(DefaultQueueSize, s.log)
	}
	if s.shared == nil {
		s.shared = NewShared()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.acquire == nil {
		s.acquire = hirestimer.Acquire
	}
	if s.recentLimit <= 0 {
		s.recentLimit = DefaultRecentSessionLimit
	}
	if s.processEvery <= 0 {
		s.processEvery = ProcessCheckInterval
	}
	if s.publishEvery <= 0 {
		s.publishEvery = PublishInterval
	}
	if s.autoSaveEvery <= 0 {
		s.autoSaveEvery = AutoSaveInterval
	}

	profile, err := s.profiles.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		profile = model.DefaultProfile()
	}
	profile.Normalize()
	s.profile = profile

	s.epoch = s.now()
	s.lastPublish = s.epoch
	s.lastAutoSave = s.epoch
	s.entropy = ulid.Monotonic(rand.New(rand.NewSource(s.epoch.UnixNano())), 0)
	s.detector = chatter.New(profile.Config.ChatterThresholdMs)
	s.input.SetMethod(profile.Config.InputMethod)
	s.refreshBindings()
	s.refreshHistory()
	s.publish(s.epoch)
	return s, nil
}

// Commands returns the queue drained by this service.
func (s *Service) Commands() *Commands {
	return s.cmds
}

// Shared returns the published snapshot holder.
func (s *Service) Shared() *Shared {
	return s.shared
}

// Run drives the loop until a Shutdown command arrives or ctx is done. It
// returns the error of the final save, if any.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("monitor started (profile %q)", s.profile.Mapping.ProfileName)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

loop:
	for {
		forced := false

	drain:
		for {
			select {
			case cmd := <-s.cmds.ch:
				if s.handle(cmd) {
					break loop
				}
				forced = true
			default:
				break drain
			}
		}

		timer.Reset(s.pollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			break loop
		case cmd := <-s.cmds.ch:
			timer.Stop()
			if s.handle(cmd) {
				break loop
			}
			forced = true
		case <-timer.C:
		}

		s.tick(ctx, forced)
	}

	return s.teardown(ctx)
}

func (s *Service) pollInterval() time.Duration {
	ms := s.profile.Config.PollingRateMsDisconnected
	if s.connected {
		ms = s.profile.Config.PollingRateMsConnected
	}
	if ms == 0 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}

// tick runs one poll: input, connection, process presence, detector,
// session transitions, publish and auto-save.
func (s *Service) tick(ctx context.Context, forced bool) {
	now := s.now()

	raw, err := s.input.State(s.profile.Config.TargetControllerIndex)
	connected := err == nil
	switch {
	case err == nil:
		s.lastInputErr = ""
	case errors.Is(err, input.ErrDisconnected):
		s.lastInputErr = ""
	default:
		if msg := err.Error(); msg != s.lastInputErr {
			s.log.Error("input error: %v", err)
			s.lastInputErr = msg
		}
	}

	if connected != s.connected {
		s.log.Info("connection state changed: %t -> %t", s.connected, connected)
		s.connected = connected
		forced = true
		if connected {
			if s.releaseTimer == nil {
				s.releaseTimer = s.acquire()
				s.log.Debug("high resolution timer enabled")
			}
		} else {
			s.dropTimer()
		}
	}

	running := s.gameRunning
	if !s.processChecked || now.Sub(s.lastProcessCheck) >= s.processEvery {
		running = s.procs.IsRunning(s.profile.Config.TargetProcessName)
		s.lastProcessCheck = now
		s.processChecked = true
	}

	if running && !s.gameRunning {
		s.startSession(now)
		forced = true
	}

	s.pressed = s.pressed[:0]
	s.raw = 0
	if connected {
		s.raw = raw
		s.sample(raw, now, running)
	}

	if !running && s.gameRunning {
		s.endSession(ctx, now)
		forced = true
	}
	s.gameRunning = running

	if now.Sub(s.lastAutoSave) >= s.autoSaveEvery {
		s.save("auto", now)
		s.lastAutoSave = now
		forced = true
	}

	if forced || now.Sub(s.lastPublish) >= s.publishEvery {
		s.publish(now)
	}
}

func (s *Service) sample(raw uint32, now time.Time, sessionActive bool) {
	ms := now.Sub(s.epoch).Milliseconds()
	if ms < s.lastMs {
		ms = s.lastMs
	}
	s.lastMs = ms

	for _, key := range model.SortedKeys(s.profile.Mapping.Bindings) {
		mask := s.profile.Mapping.Bindings[key]
		if mask == 0 {
			continue
		}
		pressed := raw&mask != 0
		if pressed {
			s.pressed = append(s.pressed, key)
		}
		sw, ok := s.profile.Switches[key]
		if !ok {
			sw = &model.SwitchData{SwitchModelID: model.DefaultSwitchModelID}
			s.profile.Switches[key] = sw
		}
		s.detector.Process(key, pressed, ms, &sw.Stats, sessionActive)
	}
}

func (s *Service) dropTimer() {
	if s.releaseTimer != nil {
		s.releaseTimer()
		s.releaseTimer = nil
		s.log.Debug("high resolution timer released")
	}
}

func (s *Service) teardown(ctx context.Context) error {
	now := s.now()
	s.log.Info("monitor stopping, saving profile")
	if s.gameRunning {
		s.endSession(ctx, now)
		s.gameRunning = false
	}
	err := s.save("exit", now)
	s.dropTimer()
	s.publish(now)
	return err
}

// save persists the profile and records the outcome. kind is "force",
// "auto" or "exit".
func (s *Service) save(kind string, now time.Time) error {
	err := s.profiles.Save(s.profile)
	var msg string
	switch {
	case err == nil && kind == "force":
		msg = "Saved successfully"
	case err == nil && kind == "auto":
		msg = "Auto save succeeded"
	case err == nil:
		msg = "Exit save succeeded"
	case kind == "force":
		msg = fmt.Sprintf("Save failed: %v", err)
	case kind == "auto":
		msg = fmt.Sprintf("Auto save failed: %v", err)
	default:
		msg = fmt.Sprintf("Exit save failed: %v", err)
	}
	if err != nil {
		s.log.Error("%s", msg)
	} else {
		s.log.Debug("%s", msg)
	}
	s.lastSave = &SaveResult{Success: err == nil, Message: msg, Timestamp: now.UTC()}
	if kind == "force" {
		s.status = msg
	}
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *Service) setStatus(format string, args ...interface{}) {
	s.status = fmt.Sprintf(format, args...)
}

func (s *Service) newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *Service) refreshBindings() {
	s.bindingsView = model.CloneBindings(s.profile.Mapping.Bindings)
}

// refreshHistory rebuilds the published history view. Entries are never
// mutated, so published slices can be shared between snapshots.
func (s *Service) refreshHistory() {
	h := make([]model.SwitchHistoryEntry, len(s.profile.SwitchHistory))
	copy(h, s.profile.SwitchHistory)
	s.historyView = h
}

func (s *Service) publish(now time.Time) {
	snap := &Snapshot{
		Connected:     s.connected,
		GameRunning:   s.gameRunning,
		Config:        s.profile.Config,
		ProfileName:   s.profile.Mapping.ProfileName,
		Bindings:      s.bindingsView,
		Switches:      model.CloneSwitches(s.profile.Switches),
		SwitchHistory: s.historyView,
		PressedKeys:   append([]model.LogicalKey(nil), s.pressed...),
		RawButtons:    s.raw,
		StatusMessage: s.status,
		PublishedAt:   now.UTC(),
	}
	snap.RecentSessions = make([]model.SessionRecord, len(s.profile.RecentSessions))
	for i, rec := range s.profile.RecentSessions {
		if rec.ID != nil {
			id := *rec.ID
			rec.ID = &id
		}
		snap.RecentSessions[i] = rec
	}
	if s.lastSave != nil {
		res := *s.lastSave
		snap.LastSave = &res
	}
	if s.sessionStart != nil {
		t := *s.sessionStart
		snap.SessionStartedAt = &t
	}
	s.shared.Store(snap)
	s.lastPublish = now
}
