package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hkxedit/hkxedit/internal/config"
	"github.com/hkxedit/hkxedit/internal/filemanager"
	"github.com/hkxedit/hkxedit/internal/fileutil"
	"github.com/hkxedit/hkxedit/internal/hkx"
	"github.com/hkxedit/hkxedit/internal/logging"
	"github.com/hkxedit/hkxedit/internal/state"
	"github.com/hkxedit/hkxedit/internal/templates"
)

var errNoFile = errors.New("no file open (run hkxedit open <file>)")

// session is the editing session of one command invocation: settings, the
// persisted session state and a file manager holding the files it names.
type session struct {
	rootPath string
	cfg      config.Config
	logger   *slog.Logger
	state    *state.State
	manager  *filemanager.Manager
	opts     hkx.Options

	restored bool
}

func resolveWorkingDirectory() (string, error) {
	rootPath, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return rootPath, nil
}

func openSession(cmd *cobra.Command) (*session, error) {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return nil, err
	}
	configPath, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(rootPath, configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Logging(os.Stderr))

	registry := templates.NewDefaultRegistry()
	if cfg.TemplatesFile != "" {
		count, err := registry.LoadFile(cfg.TemplatesFile)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded class templates", "file", cfg.TemplatesFile, "count", count)
	}
	opts := hkx.Options{Templates: registry, Logger: logger, Workers: cfg.Workers}

	st, err := state.Load(rootPath)
	if err != nil {
		return nil, err
	}

	return &session{
		rootPath: rootPath,
		cfg:      cfg,
		logger:   logger,
		state:    st,
		manager: filemanager.New(filemanager.Options{
			HKX:      opts,
			Logger:   logger,
			Debounce: cfg.Debounce(),
		}),
		opts: opts,
	}, nil
}

// restore loads the session's open files into the manager. Files that no
// longer load are dropped from the session.
func (s *session) restore() error {
	if s.restored {
		return nil
	}
	s.restored = true

	changed := fileutil.ToSet(s.state.ChangedFiles())
	kept := make([]state.FileState, 0, len(s.state.Files))
	current := s.state.Current
	dropped := false
	for i, fs := range s.state.Files {
		f, err := s.manager.Load(fs.Path)
		if err != nil {
			s.logger.Warn("dropping file from session", "file", fs.Path, "error", err)
			dropped = true
			switch {
			case i < s.state.Current:
				current--
			case i == s.state.Current:
				current = -1
			}
			continue
		}
		if changed[fs.Path] {
			s.logger.Info("file changed on disk since it was opened", "file", fs.Path)
			if hash, err := fileutil.HashFile(fs.Path); err == nil {
				fs.Hash = hash
			}
		}
		fs.Handle = f.Handle.String()
		kept = append(kept, fs)
	}
	if current < 0 && len(kept) > 0 {
		current = len(kept) - 1
	}
	s.state.Files = kept
	s.state.Current = current
	if current >= 0 {
		if err := s.manager.SetCurrent(current); err != nil {
			return err
		}
	}
	if dropped {
		return s.persist()
	}
	return nil
}

// target returns the file a command acts on: --file when given (an index
// into the session or a path), else the current file. A path that is not
// part of the session is loaded for this command only.
func (s *session) target(cmd *cobra.Command) (*filemanager.OpenFile, error) {
	if err := s.restore(); err != nil {
		return nil, err
	}
	selector, err := OptionalStringFlag(cmd, "file")
	if err != nil {
		return nil, err
	}
	if selector == "" {
		f, ok := s.manager.Current()
		if !ok {
			return nil, errNoFile
		}
		return f, nil
	}

	files := s.manager.Files()
	if i, err := strconv.Atoi(selector); err == nil {
		if i < 0 || i >= len(files) {
			return nil, fmt.Errorf("%w: %d of %d", filemanager.ErrOutOfRange, i, len(files))
		}
		return files[i], nil
	}
	if i := s.manager.IndexOf(selector); i >= 0 {
		return files[i], nil
	}
	return s.manager.Load(selector)
}

// commit writes f back to disk, keeping a backup when configured.
func (s *session) commit(f *filemanager.OpenFile) error {
	path := f.Path()
	if s.cfg.Backup {
		backup, err := fileutil.Backup(path)
		if err != nil {
			return err
		}
		s.logger.Debug("wrote backup", "file", backup)
	}
	if err := s.manager.Save(f.Handle, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	hash, err := fileutil.HashFile(path)
	if err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}
	if s.state.IndexOf(path) < 0 {
		return nil
	}
	s.state.SetFileHash(path, hash)
	return s.persist()
}

func (s *session) persist() error {
	if err := s.state.Save(s.rootPath); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
