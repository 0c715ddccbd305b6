package server

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
)

// reloadDelay coalesces the burst of events a single save produces.
var reloadDelay = 250 * time.Millisecond

// Watch reloads the artifact at path whenever it is written or replaced,
// until ctx is cancelled. It returns once the watch is registered.
func (s *Server) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create file watcher")
	}
	// The trainer saves by renaming a temp file over the artifact, which
	// only the parent directory sees.
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		_ = watcher.Close()
		return errors.Wrapf(err, "watch %s", filepath.Dir(target))
	}
	s.logger.Info("Watching artifact", log.PathKey, target)

	go func() {
		defer watcher.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					pending = time.After(reloadDelay)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("File watcher error", "error", err.Error())
			case <-pending:
				pending = nil
				if err := s.Reload(target); err != nil {
					s.logger.Warn("Artifact reload failed, keeping current model",
						log.PathKey, target, "error", err.Error())
				}
			}
		}
	}()
	return nil
}
