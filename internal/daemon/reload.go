package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/raoulx24/zfs-autosnapd/internal/config"
)

// reload events within this window collapse into one; editors often
// write a file several times in quick succession.
const reloadDebounce = 500 * time.Millisecond

// WatchConfig reloads the config file whenever it changes on disk and
// pushes the daemon section into the running daemon. It blocks until the
// context is cancelled. A file that temporarily fails to parse is logged
// and skipped; the daemon keeps its last good settings.
func WatchConfig(ctx context.Context, path string, d *Daemon, log *slog.Logger) error {
	log = log.With("component", "config-watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files by rename, which drops
	// a watch held on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	resetCh := make(chan struct{}, 1)
	go func() {
		var t *time.Timer
		for range resetCh {
			if t != nil {
				t.Stop()
			}
			t = time.AfterFunc(reloadDebounce, func() {
				cfg, err := config.Load(path)
				if err != nil {
					log.Error("config reload failed, keeping previous settings", "error", err)
					return
				}
				d.UpdateConfig(cfg.Daemon)
				log.Info("config reloaded", "path", path)
			})
		}
	}()
	defer close(resetCh)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			select {
			case resetCh <- struct{}{}:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("fsnotify error", "error", err)
		}
	}
}
