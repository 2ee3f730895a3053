package monitor

import (
	"time"

	"github.com/verte-zerg/switchlife/internal/logger"
	"github.com/verte-zerg/switchlife/internal/model"
)

// DefaultQueueSize is the command buffer used when none is given.
const DefaultQueueSize = 256

// Command is an intent handled by the monitor goroutine. Commands return
// nothing to the sender; the effect shows up in a later Snapshot.
type Command interface {
	command()
}

// UpdateConfig replaces the whole AppConfig.
type UpdateConfig struct {
	Config model.AppConfig
}

// UpdateMapping replaces the profile name and every binding at once.
type UpdateMapping struct {
	ProfileName string
	Bindings    map[model.LogicalKey]uint32
}

// SetKeyBinding binds one key, unbinding any other key that owned Button.
type SetKeyBinding struct {
	Key    model.LogicalKey
	Button uint32
}

// ReplaceSwitch records a switch swap and zeroes the key's stats.
type ReplaceSwitch struct {
	Key        model.LogicalKey
	NewModelID string
}

// ResetStats zeroes a key's stats without changing its model.
type ResetStats struct {
	Key model.LogicalKey
}

// SetLastReplacedDate corrects the replacement stamp of a key.
type SetLastReplacedDate struct {
	Key  model.LogicalKey
	Date time.Time
}

// ForceSave persists the profile immediately.
type ForceSave struct{}

// Shutdown stops the loop after a final save.
type Shutdown struct{}

func (UpdateConfig) command()        {}
func (UpdateMapping) command()       {}
func (SetKeyBinding) command()       {}
func (ReplaceSwitch) command()       {}
func (ResetStats) command()          {}
func (SetLastReplacedDate) command() {}
func (ForceSave) command()           {}
func (Shutdown) command()            {}

// Commands is a bounded multi-producer queue drained by one Service.
type Commands struct {
	ch  chan Command
	log logger.Logger
}

// NewCommands creates a queue holding up to size pending commands.
func NewCommands(size int, log logger.Logger) *Commands {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		log = logger.New("[commands]")
	}
	return &Commands{ch: make(chan Command, size), log: log}
}

// Send enqueues cmd without blocking. A full queue drops the command and
// returns false.
func (c *Commands) Send(cmd Command) bool {
	if cmd == nil {
		return false
	}
	select {
	case c.ch <- cmd:
		return true
	default:
		c.log.Warn("command queue full, dropping %T", cmd)
		return false
	}
}

// Len reports the number of queued commands.
func (c *Commands) Len() int {
	return len(c.ch)
}
