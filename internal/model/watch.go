package model

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long the model file must stay quiet before a reload. Copy
// tools write in several chunks.
const settle = 250 * time.Millisecond

// Watch reloads the model each time its file is written, created or renamed
// into place, until ctx is done. The parent directory is watched rather than
// the file so atomic replacements are seen too. A failed reload keeps the
// current handle.
func (l *Loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	target := filepath.Clean(l.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return err
	}
	l.logger.Info("watching model file", "path", target)

	go func() {
		defer w.Close()

		timer := time.NewTimer(settle)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				timer.Reset(settle)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("model watcher error", "error", err)
			case <-timer.C:
				_ = l.Reload()
			}
		}
	}()

	return nil
}
