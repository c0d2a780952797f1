package ingest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher triggers an update run when staged publications appear in the
// inbound directory. Events are debounced so a batch of files landing
// together results in a single run after the directory settles.
type Watcher struct {
	dir      string
	debounce time.Duration
	updater  *Updater
	logger   *zap.Logger
}

func NewWatcher(dir string, debounce time.Duration, updater *Updater, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 10 * time.Second
	}
	return &Watcher{dir: dir, debounce: debounce, updater: updater, logger: logger}
}

// Watch blocks until ctx is cancelled, running the updater each time JSON
// files stop arriving in the inbound directory.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("Watching inbound directory for staged publications",
		zap.String("dir", w.dir))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			w.logger.Debug("Staged publication activity", zap.String("file", event.Name))
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case <-timer.C:
			if err := w.updater.Run(ctx); err != nil {
				w.logger.Error("Update run failed", zap.Error(err))
			}
		}
	}
}
