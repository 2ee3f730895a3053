// Package procwatch reports whether the monitored game process is running.
package procwatch

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/verte-zerg/switchlife/internal/logger"
)

// Lister returns the executable names of running processes.
type Lister func() ([]string, error)

// Detector matches process names case-insensitively by base name.
type Detector struct {
	list Lister
	log  logger.Logger
}

// New returns a Detector using the platform process table.
func New(log logger.Logger) *Detector {
	return NewWithLister(listProcesses, log)
}

// NewWithLister returns a Detector backed by list.
func NewWithLister(list Lister, log logger.Logger) *Detector {
	if log == nil {
		log = logger.Noop()
	}
	return &Detector{list: list, log: log}
}

// IsRunning reports whether a process called name exists. A failing process
// listing counts as not running.
func (d *Detector) IsRunning(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	names, err := d.list()
	if err != nil {
		d.log.Warn("process listing failed: %v", err)
		return false
	}
	for _, n := range names {
		if matches(n, name) {
			return true
		}
	}
	return false
}

func matches(candidate, want string) bool {
	base := baseName(strings.TrimSpace(candidate))
	return strings.EqualFold(base, want)
}

// baseName strips both Unix and Windows directory prefixes, since games run
// under Wine report Windows paths in their command line.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// listProcesses returns the name and argv[0] of every visible process.
// Processes that exit or deny access mid-walk are skipped.
func listProcesses() ([]string, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		if name, err := p.Name(); err == nil && name != "" {
			names = append(names, name)
		}
		// Wine games show their Windows path only in the command line.
		if args, err := p.CmdlineSlice(); err == nil && len(args) > 0 && args[0] != "" {
			names = append(names, args[0])
		}
	}
	return names, nil
}
