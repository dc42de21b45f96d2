// Package state persists the editing session between command invocations:
// which behavior files are open, which one is current, and the skeleton and
// character files loaded alongside them.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hkxedit/hkxedit/internal/fileutil"
)

const (
	SessionDir          = ".hkxedit"
	SessionFile         = "session.json"
	CurrentStateVersion = "2"
)

// FileState tracks one open behavior file.
type FileState struct {
	Path     string    `json:"path"`
	Handle   string    `json:"handle,omitempty"`
	Hash     string    `json:"hash"`
	OpenedAt time.Time `json:"opened_at"`
}

// State is the persisted session.
type State struct {
	Version   string      `json:"version"`
	UpdatedAt time.Time   `json:"updated_at"`
	Files     []FileState `json:"files"`
	Current   int         `json:"current"`
	Skeleton  string      `json:"skeleton,omitempty"`
	Character string      `json:"character,omitempty"`
}

// NewState creates an empty session.
func NewState() *State {
	return &State{
		Version: CurrentStateVersion,
		Files:   []FileState{},
		Current: -1,
	}
}

// Path returns the session file location under rootPath.
func Path(rootPath string) string {
	return filepath.Join(rootPath, SessionDir, SessionFile)
}

// Load reads the session under rootPath. A missing session is empty.
func Load(rootPath string) (*State, error) {
	path := Path(rootPath)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", path, err)
	}

	migrateState(&state)

	return &state, nil
}

// Save writes the session under rootPath.
func (s *State) Save(rootPath string) error {
	if s.Version == "" {
		s.Version = CurrentStateVersion
	}
	if s.Files == nil {
		s.Files = []FileState{}
	}
	s.clampCurrent()
	s.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	data = append(data, '\n')

	path := Path(rootPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	return fileutil.WriteIfChanged(path, data)
}

// AddFile appends an open file and makes it current.
func (s *State) AddFile(path, handle, hash string) {
	s.Files = append(s.Files, FileState{
		Path:     path,
		Handle:   handle,
		Hash:     hash,
		OpenedAt: time.Now(),
	})
	s.Current = len(s.Files) - 1
}

// RemoveCurrent drops the current file and clamps the current index.
func (s *State) RemoveCurrent() (FileState, bool) {
	if s.Current < 0 || s.Current >= len(s.Files) {
		return FileState{}, false
	}
	removed := s.Files[s.Current]
	s.Files = append(s.Files[:s.Current:s.Current], s.Files[s.Current+1:]...)
	s.clampCurrent()
	return removed, true
}

// CurrentFile returns the current file.
func (s *State) CurrentFile() (FileState, bool) {
	if s.Current < 0 || s.Current >= len(s.Files) {
		return FileState{}, false
	}
	return s.Files[s.Current], true
}

// IndexOf returns the index of the file opened from path, or -1.
func (s *State) IndexOf(path string) int {
	want, err := filepath.Abs(path)
	if err != nil {
		return -1
	}
	for i, f := range s.Files {
		if abs, err := filepath.Abs(f.Path); err == nil && abs == want {
			return i
		}
	}
	return -1
}

// SetFileHash records the on-disk hash of an open file after a save.
func (s *State) SetFileHash(path, hash string) {
	if i := s.IndexOf(path); i >= 0 {
		s.Files[i].Hash = hash
	}
}

// HasChanged reports whether an open file no longer matches its recorded hash.
func (s *State) HasChanged(path, currentHash string) bool {
	i := s.IndexOf(path)
	if i < 0 {
		return true
	}
	return s.Files[i].Hash != currentHash
}

// ChangedFiles lists the open files whose on-disk content differs from the
// recorded hash. Missing files count as changed.
func (s *State) ChangedFiles() []string {
	changed := make([]string, 0)
	for _, f := range s.Files {
		hash, err := fileutil.HashFile(f.Path)
		if err != nil || hash != f.Hash {
			changed = append(changed, f.Path)
		}
	}
	return changed
}

func (s *State) clampCurrent() {
	if s.Current >= len(s.Files) {
		s.Current = len(s.Files) - 1
	}
	if s.Current < -1 {
		s.Current = -1
	}
}

func migrateState(s *State) {
	if s.Files == nil {
		s.Files = []FileState{}
	}

	switch s.Version {
	case "", "1":
		// Version 1 sessions had no current index and treated the last file
		// as current.
		s.Current = len(s.Files) - 1
		s.Version = CurrentStateVersion
	case CurrentStateVersion:
		// no-op
	default:
		// Keep unknown versions untouched but ensure required fields are sane.
	}
	s.clampCurrent()
}
