package filemanager

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hkxedit/hkxedit/internal/logging"
)

// DefaultDebounce is the quiet period before a burst of disk events is reported.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports writes to a set of files. Directories are watched rather
// than files so that editors saving through rename are still seen.
type Watcher struct {
	watcher  *fsnotify.Watcher
	handler  func(paths []string)
	debounce time.Duration
	logger   *slog.Logger

	changes  chan string
	done     chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]int
}

// NewWatcher creates a stopped watcher. handler receives deduplicated
// absolute paths once events settle for debounce.
func NewWatcher(handler func(paths []string), debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:  fw,
		handler:  handler,
		debounce: debounce,
		logger:   logging.OrDiscard(logger),
		changes:  make(chan string, 256),
		done:     make(chan struct{}),
		files:    make(map[string]bool),
		dirs:     make(map[string]int),
	}, nil
}

// Start runs the event and debounce loops until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

// Add starts reporting changes to path.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[abs] {
		return nil
	}
	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[abs] = true
	return nil
}

// Remove stops reporting changes to path.
func (w *Watcher) Remove(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[abs] {
		return
	}
	delete(w.files, abs)
	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.watcher.Remove(dir)
	}
}

func (w *Watcher) watched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[filepath.Clean(path)]
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.watched(event.Name) {
				continue
			}
			select {
			case w.changes <- filepath.Clean(event.Name):
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	pending := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) > 0 && w.handler != nil {
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			w.handler(paths)
		}
		pending = make(map[string]bool)
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case path := <-w.changes:
			pending[path] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			flush()
		}
	}
}
