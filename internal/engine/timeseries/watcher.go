package timeseries

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher signals when the contents of a series directory change, so
// the viewer can rediscover frames without a restart. Bursts of events
// (a solver writing many frames) collapse into one signal.
type Watcher struct {
	fs     *fsnotify.Watcher
	log    *zap.Logger
	done   chan struct{}
	events chan struct{}
}

const watchDebounce = 500 * time.Millisecond

// Watch starts watching dir for new, renamed or removed series files.
func Watch(dir string, log *zap.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, err
	}

	w := &Watcher{
		fs:     fs,
		log:    log,
		done:   make(chan struct{}),
		events: make(chan struct{}, 1),
	}
	go w.loop()
	return w, nil
}

// Changed delivers one signal per burst of directory changes.
func (w *Watcher) Changed() <-chan struct{} { return w.events }

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Create | fsnotify.Write | fsnotify.Rename | fsnotify.Remove) {
				continue
			}
			switch filepath.Ext(ev.Name) {
			case ".vtk", ".vtu", ".vtp":
			default:
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				fire = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			select {
			case w.events <- struct{}{}:
			default:
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("series watch error", zap.Error(err))
		}
	}
}
