package schedule

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "signage/internal/log"
)

// Watch calls onChange when the file at path is written, created or
// replaced, at most once per debounce interval. It watches the parent
// directory so editors that save via rename are noticed. Watch blocks
// until ctx is cancelled.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("schedule: fsnotify.NewWatcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("schedule: watch %s: %w", filepath.Dir(abs), err)
	}

	appLog.Info("watching schedule file", "path", abs)

	d := &debouncer{interval: debounce}
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if d.allow(time.Now()) {
				appLog.Debug("schedule file changed", "path", abs, "op", event.Op.String())
				onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			appLog.Error("schedule watcher error", err, "path", abs)
		}
	}
}

// debouncer lets one call through per interval.
type debouncer struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (d *debouncer) allow(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.last.IsZero() && now.Sub(d.last) < d.interval {
		return false
	}
	d.last = now
	return true
}
