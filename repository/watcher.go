package repository

import (
	"path/filepath"
	"time"

	"BerryBox/logger"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the burst of write/rename events an atomic
// catalog replace produces into a single reload.
const debounceWindow = 500 * time.Millisecond

// selfWriteWindow filters out the events our own saves raise. The
// in-memory state is already current, so reloading would only churn.
const selfWriteWindow = time.Second

// Watcher reloads the catalog when the admin backend rewrites the
// document. The data directory is watched rather than the file itself
// because atomic writers replace the file by rename.
type Watcher struct {
	repo     *FileCatalogRepository
	onReload func()
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher creates a catalog file watcher. onReload fires after a
// successful reload so dependents can refresh derived state.
func NewWatcher(repo *FileCatalogRepository, onReload func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(repo.path)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		repo:     repo,
		onReload: onReload,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.run()
	logger.Info("catalog watcher started", logger.String("path", w.repo.path))
}

// Stop terminates the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

func (w *Watcher) run() {
	var debounce *time.Timer
	target := filepath.Clean(w.repo.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if w.repo.wroteWithin(selfWriteWindow) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("catalog watcher error", logger.ErrorField(err))

		case <-w.done:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	logger.Info("catalog changed on disk, reloading")
	if err := w.repo.Load(); err != nil {
		logger.Warn("catalog reload failed", logger.ErrorField(err))
		return
	}
	if w.onReload != nil {
		w.onReload()
	}
}
