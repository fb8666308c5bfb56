package media

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher keeps catalog counts current by watching the media and audio
// directories.
type Watcher struct {
	catalog  *Catalog
	fs       *fsnotify.Watcher
	logger   *logrus.Logger
	debounce time.Duration

	mu     sync.RWMutex
	counts Counts
}

// NewWatcher starts watching whichever catalog directories exist and takes
// an initial count.
func NewWatcher(ctx context.Context, catalog *Catalog, logger *logrus.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		catalog:  catalog,
		fs:       fsw,
		logger:   logger,
		debounce: 250 * time.Millisecond,
	}
	for _, dir := range []string{catalog.MediaDir(), catalog.AudioDir()} {
		if err := fsw.Add(dir); err != nil {
			logger.WithError(err).WithField("directory", dir).Warn("Not watching media directory")
			continue
		}
		logger.WithField("directory", dir).Info("Watching media directory")
	}
	w.refresh(ctx)
	return w, nil
}

// Counts returns the latest counts.
func (w *Watcher) Counts() Counts {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.counts
}

// Run dispatches events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fs.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(event) && pending == nil {
				pending = time.After(w.debounce)
			}

		case <-pending:
			pending = nil
			w.refresh(ctx)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Media watcher error")
		}
	}
}

// relevant ignores hidden and temporary files and pure permission changes.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return false
	}
	return !event.Has(fsnotify.Chmod) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Write)
}

func (w *Watcher) refresh(ctx context.Context) {
	counts, err := w.catalog.Count(ctx)
	if err != nil {
		w.logger.WithError(err).Debug("Media count unavailable")
	}

	w.mu.Lock()
	changed := counts != w.counts
	w.counts = counts
	w.mu.Unlock()

	if changed {
		w.logger.WithFields(logrus.Fields{
			"sidecars": counts.Sidecars,
			"images":   counts.Images,
			"videos":   counts.Videos,
			"audio":    counts.Audio,
		}).Info("Media catalog changed")
	}
}
