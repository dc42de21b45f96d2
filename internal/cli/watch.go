package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hkxedit/hkxedit/internal/filemanager"
	"github.com/hkxedit/hkxedit/internal/fileutil"
)

type diskChange struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// RunWatch reports external modifications of the session's open files until
// interrupted. Reported files get their recorded hash updated.
func RunWatch(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	once, err := OptionalBoolFlag(cmd, "once", false)
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	if err := s.restore(); err != nil {
		return err
	}
	files := s.manager.Files()
	if len(files) == 0 {
		return errNoFile
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan struct{}, 1)
	cancel := s.manager.Subscribe(func(e filemanager.Event) {
		if e != filemanager.DiskChanged {
			return
		}
		select {
		case events <- struct{}{}:
		default:
		}
	})
	defer cancel()

	if err := s.manager.Watch(ctx); err != nil {
		return err
	}
	defer s.manager.Unwatch()

	p := stdout()
	if !asJSON {
		p.printf("watching %d files\n", len(files))
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-events:
		}

		var changes []diskChange
		for _, path := range s.state.ChangedFiles() {
			hash, err := fileutil.HashFile(path)
			if err != nil {
				s.logger.Warn("changed file is unreadable", "file", path, "error", err)
				continue
			}
			s.state.SetFileHash(path, hash)
			changes = append(changes, diskChange{Path: path, Hash: hash})
		}
		if len(changes) == 0 {
			continue
		}
		if err := s.persist(); err != nil {
			return err
		}
		for _, change := range changes {
			if asJSON {
				if err := fileutil.PrintJSON(change); err != nil {
					return err
				}
				continue
			}
			p.printf("%s %s\n", p.warn("changed"), change.Path)
		}
		if once {
			return nil
		}
	}
}
