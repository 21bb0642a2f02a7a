package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"payrollrag/internal/logger"
)

// Watch reloads the engine when the dataset file changes, until ctx is done.
// The parent directory is watched so editors that replace the file by
// rename are seen too. Bursts of events collapse into one reload.
func (e *Engine) Watch(ctx context.Context) error {
	path, err := filepath.Abs(e.opts.DatasetPath)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	logger.Info("watching %s for changes", path)

	var timer *time.Timer
	reload := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, path) {
				continue
			}
			logger.Debug("dataset event: %s", ev)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(e.opts.WatchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			if err := e.Reload(ctx); err != nil {
				logger.Error("reload failed, keeping previous dataset: %v", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}

func relevant(ev fsnotify.Event, path string) bool {
	name, err := filepath.Abs(ev.Name)
	if err != nil || name != path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
