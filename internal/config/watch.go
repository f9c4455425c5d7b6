package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	. "github.com/fukura-dev/fukura/internal/logging"
	"github.com/fukura-dev/fukura/internal/paths"
)

// reloadDebounce waits for writes to settle before reacting, so a
// multi-step save doesn't trigger several reloads in a row.
const reloadDebounce = 150 * time.Millisecond

// Watcher hot-reloads config and notification.toml on external changes
// (spec.md's "Configuration" ambient concern — redaction_overrides and
// notification.toml are expected to change while the daemon is running).
type Watcher struct {
	repoRoot string
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// WatchRepo starts watching <repo>/.fukura for changes to "config" and
// "notification.toml", invoking onConfigChange / onNotificationChange
// after a short debounce. Call Stop to release the watcher.
func WatchRepo(repoRoot string, onConfigChange func(*Config), onNotificationChange func(*NotificationConfig)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := paths.RepoDir(repoRoot)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	cw := &Watcher{
		repoRoot: repoRoot,
		watcher:  w,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go cw.run(onConfigChange, onNotificationChange)
	return cw, nil
}

// Stop releases the underlying fsnotify watcher and waits for the run
// loop to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run(onConfigChange func(*Config), onNotificationChange func(*NotificationConfig)) {
	defer close(w.doneCh)

	var debounce *time.Timer
	var debounceC <-chan time.Time
	var pendingConfig, pendingNotification bool

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			switch filepath.Base(event.Name) {
			case "config":
				pendingConfig = true
			case "notification.toml":
				pendingNotification = true
			default:
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(reloadDebounce)
				debounceC = debounce.C
			} else {
				debounce.Reset(reloadDebounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			L_warn("config: watcher error", "error", err)

		case <-debounceC:
			debounce = nil
			debounceC = nil
			if pendingConfig && onConfigChange != nil {
				pendingConfig = false
				cfg, err := Load(w.repoRoot)
				if err != nil {
					L_warn("config: failed to reload after change", "error", err)
				} else {
					L_info("config: reloaded after external change")
					onConfigChange(cfg)
				}
			}
			if pendingNotification && onNotificationChange != nil {
				pendingNotification = false
				cfg, err := LoadNotificationConfig(w.repoRoot)
				if err != nil {
					L_warn("config: failed to reload notification.toml after change", "error", err)
				} else {
					onNotificationChange(cfg)
				}
			}
		}
	}
}
