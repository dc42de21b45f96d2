// Package filemanager tracks the behavior files open in an editing session,
// the current file, and the skeleton and character files that accompany them.
package filemanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hkxedit/hkxedit/internal/behavior"
	"github.com/hkxedit/hkxedit/internal/fileutil"
	"github.com/hkxedit/hkxedit/internal/hkx"
	"github.com/hkxedit/hkxedit/internal/logging"
)

// Event is a change notification. Events carry no payload; subscribers
// re-query the manager.
type Event int

const (
	// FileChanged: a file was loaded or closed, or the current file changed.
	FileChanged Event = iota
	// ObjectChanged: the graph of an open file was mutated.
	ObjectChanged
	// DiskChanged: an open file was modified on disk by someone else.
	DiskChanged
)

func (e Event) String() string {
	switch e {
	case FileChanged:
		return "file-changed"
	case ObjectChanged:
		return "object-changed"
	case DiskChanged:
		return "disk-changed"
	default:
		return "unknown"
	}
}

var (
	ErrNoCurrent  = errors.New("no current file")
	ErrOutOfRange = errors.New("file index out of range")
	ErrNotOpen    = errors.New("file is not open")
)

// OpenFile is a behavior file held by the manager.
type OpenFile struct {
	*behavior.File
	Handle uuid.UUID

	hash string
}

// Options configures a Manager.
type Options struct {
	HKX    hkx.Options
	Logger *slog.Logger
	// Debounce is the quiet period used by Watch.
	Debounce time.Duration
}

// Manager holds the open behavior files. The zero current index is -1.
type Manager struct {
	mu        sync.Mutex
	files     []*OpenFile
	current   int
	skeleton  *hkx.SkeletonFile
	character *hkx.CharacterFile

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSub     int

	watcher *Watcher
	opts    Options
	logger  *slog.Logger
}

func New(opts Options) *Manager {
	opts.Logger = logging.OrDiscard(opts.Logger)
	if opts.HKX.Logger == nil {
		opts.HKX.Logger = opts.Logger
	}
	return &Manager{
		current:     -1,
		subscribers: make(map[int]func(Event)),
		opts:        opts,
		logger:      opts.Logger,
	}
}

// Subscribe registers fn for every event and returns a function that
// unregisters it.
func (m *Manager) Subscribe(fn func(Event)) (cancel func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subscribers, id)
	}
}

// emit must be called without m.mu held so subscribers can query the manager.
func (m *Manager) emit(e Event) {
	m.subMu.Lock()
	subs := make([]func(Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}

// Load opens a behavior file, appends it and makes it current. On failure
// the open files and the current index are left untouched.
func (m *Manager) Load(path string) (*OpenFile, error) {
	f, err := behavior.Load(path, m.opts.HKX)
	if err != nil {
		return nil, err
	}
	hash, err := fileutil.HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	open := &OpenFile{File: f, Handle: uuid.New(), hash: hash}
	f.OnChange(func() { m.emit(ObjectChanged) })

	m.mu.Lock()
	m.files = append(m.files, open)
	m.current = len(m.files) - 1
	watcher := m.watcher
	m.mu.Unlock()

	if watcher != nil {
		if err := watcher.Add(path); err != nil {
			m.logger.Warn("cannot watch file", "file", path, "error", err)
		}
	}
	m.logger.Info("opened", "file", path, "handle", open.Handle.String())
	m.emit(FileChanged)
	return open, nil
}

// Close closes the current file and clamps the current index.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.current < 0 {
		m.mu.Unlock()
		return ErrNoCurrent
	}
	closed := m.files[m.current]
	m.files = append(m.files[:m.current:m.current], m.files[m.current+1:]...)
	if m.current >= len(m.files) {
		m.current = len(m.files) - 1
	}
	watcher := m.watcher
	m.mu.Unlock()

	if watcher != nil {
		watcher.Remove(closed.Path())
	}
	m.logger.Info("closed", "file", closed.Path())
	m.emit(FileChanged)
	return nil
}

// SetCurrent selects the file at index i.
func (m *Manager) SetCurrent(i int) error {
	m.mu.Lock()
	if i < 0 || i >= len(m.files) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(m.files))
	}
	changed := m.current != i
	m.current = i
	m.mu.Unlock()

	if changed {
		m.emit(FileChanged)
	}
	return nil
}

// Current returns the current file.
func (m *Manager) Current() (*OpenFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current < 0 {
		return nil, false
	}
	return m.files[m.current], true
}

// CurrentIndex returns the index of the current file, or -1.
func (m *Manager) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Files returns the open files in load order.
func (m *Manager) Files() []*OpenFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*OpenFile(nil), m.files...)
}

func (m *Manager) ByHandle(handle uuid.UUID) (*OpenFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.Handle == handle {
			return f, true
		}
	}
	return nil, false
}

// IndexOf returns the index of the open file loaded from path, or -1.
func (m *Manager) IndexOf(path string) int {
	want, err := filepath.Abs(path)
	if err != nil {
		return -1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.files {
		if abs, err := filepath.Abs(f.Path()); err == nil && abs == want {
			return i
		}
	}
	return -1
}

// Save saves an open file and records its new on-disk hash so the write is
// not reported as an external change.
func (m *Manager) Save(handle uuid.UUID, path string) error {
	f, ok := m.ByHandle(handle)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotOpen, handle)
	}
	old := f.Path()
	if err := f.File.Save(path); err != nil {
		return err
	}
	hash, err := fileutil.HashFile(f.Path())
	if err != nil {
		return fmt.Errorf("failed to hash %s: %w", f.Path(), err)
	}
	m.mu.Lock()
	f.hash = hash
	watcher := m.watcher
	m.mu.Unlock()
	if watcher != nil && old != f.Path() {
		watcher.Remove(old)
		if err := watcher.Add(f.Path()); err != nil {
			m.logger.Warn("cannot watch file", "file", f.Path(), "error", err)
		}
	}
	return nil
}

// LoadSkeleton replaces the session skeleton.
func (m *Manager) LoadSkeleton(path string) (*hkx.SkeletonFile, error) {
	s, err := hkx.LoadSkeleton(path, m.opts.HKX)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.skeleton = s
	m.mu.Unlock()
	m.emit(FileChanged)
	return s, nil
}

// LoadCharacter replaces the session character.
func (m *Manager) LoadCharacter(path string) (*hkx.CharacterFile, error) {
	c, err := hkx.LoadCharacter(path, m.opts.HKX)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.character = c
	m.mu.Unlock()
	m.emit(FileChanged)
	return c, nil
}

func (m *Manager) Skeleton() (*hkx.SkeletonFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skeleton, m.skeleton != nil
}

func (m *Manager) Character() (*hkx.CharacterFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.character, m.character != nil
}

// Watch starts reporting external modifications of open files as DiskChanged
// until ctx ends or Unwatch is called.
func (m *Manager) Watch(ctx context.Context) error {
	m.mu.Lock()
	if m.watcher != nil {
		m.mu.Unlock()
		return nil
	}
	w, err := NewWatcher(m.diskChanged, m.opts.Debounce, m.logger)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	m.watcher = w
	files := append([]*OpenFile(nil), m.files...)
	m.mu.Unlock()

	for _, f := range files {
		if err := w.Add(f.Path()); err != nil {
			m.logger.Warn("cannot watch file", "file", f.Path(), "error", err)
		}
	}
	w.Start(ctx)
	return nil
}

func (m *Manager) Unwatch() {
	m.mu.Lock()
	w := m.watcher
	m.watcher = nil
	m.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}

// diskChanged emits DiskChanged when one of paths now hashes differently
// from what the manager last loaded or saved.
func (m *Manager) diskChanged(paths []string) {
	changed := false
	for _, path := range paths {
		hash, err := fileutil.HashFile(path)
		if err != nil {
			continue
		}
		m.mu.Lock()
		for _, f := range m.files {
			abs, err := filepath.Abs(f.Path())
			if err != nil || abs != path || f.hash == hash {
				continue
			}
			f.hash = hash
			changed = true
			m.logger.Info("file changed on disk", "file", path)
		}
		m.mu.Unlock()
	}
	if changed {
		m.emit(DiskChanged)
	}
}
