package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/verte-zerg/switchlife/internal/logger"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 200 * time.Millisecond

// Watch calls onChange with the freshly decoded file every time path changes,
// until ctx is done. The parent directory is watched so that editors which
// replace the file by rename are seen. Decode errors are logged and skipped.
func Watch(ctx context.Context, path string, log logger.Logger, onChange func(FileConfig)) error {
	if log == nil {
		log = logger.Noop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer fsw.Close()
		target := filepath.Clean(path)
		var (
			timer   *time.Timer
			pending <-chan time.Time
		)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDelay)
				} else {
					timer.Reset(reloadDelay)
				}
				pending = timer.C

			case <-pending:
				pending = nil
				cfg, err := LoadConfig(path)
				if err != nil {
					log.Warn("ignoring config change: %v", err)
					continue
				}
				log.Info("config reloaded from %s", path)
				onChange(cfg)

			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher: %v", err)
			}
		}
	}()
	return nil
}
