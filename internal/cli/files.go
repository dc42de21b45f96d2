package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hkxedit/hkxedit/internal/fileutil"
)

type fileRecord struct {
	Index   int    `json:"index"`
	Path    string `json:"path"`
	Objects int    `json:"objects"`
	Current bool   `json:"current"`
}

func RunOpen(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
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

	path := args[0]
	if i := s.state.IndexOf(path); i >= 0 {
		if err := s.manager.SetCurrent(i); err != nil {
			return err
		}
		s.state.Current = i
	} else {
		f, err := s.manager.Load(path)
		if err != nil {
			return err
		}
		hash, err := fileutil.HashFile(path)
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", path, err)
		}
		s.state.AddFile(f.Path(), f.Handle.String(), hash)
	}
	if err := s.persist(); err != nil {
		return err
	}

	f, _ := s.manager.Current()
	record := fileRecord{Index: s.manager.CurrentIndex(), Path: f.Path(), Objects: f.Len(), Current: true}
	if asJSON {
		return fileutil.PrintJSON(record)
	}
	p := stdout()
	p.printf("opened %s [%d] (%d objects, %d variables, %d events, %d properties)\n",
		record.Path, record.Index, record.Objects,
		f.Variables().Live(), f.Events().Live(), f.Properties().Live())
	return nil
}

func RunClose(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	if err := s.restore(); err != nil {
		return err
	}
	f, ok := s.manager.Current()
	if !ok {
		return errNoFile
	}
	if f.Dirty() {
		s.logger.Warn("closing file with unsaved changes", "file", f.Path())
	}
	if err := s.manager.Close(); err != nil {
		return err
	}
	s.state.RemoveCurrent()
	if err := s.persist(); err != nil {
		return err
	}
	fmt.Printf("closed %s\n", f.Path())
	return nil
}

func RunUse(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	if err := s.restore(); err != nil {
		return err
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		i = s.state.IndexOf(args[0])
		if i < 0 {
			return fmt.Errorf("%s is not open", args[0])
		}
	}
	if err := s.manager.SetCurrent(i); err != nil {
		return err
	}
	s.state.Current = i
	if err := s.persist(); err != nil {
		return err
	}
	f, _ := s.manager.Current()
	fmt.Printf("current file is %s [%d]\n", f.Path(), i)
	return nil
}

func RunFiles(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
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

	current := s.manager.CurrentIndex()
	files := s.manager.Files()
	records := make([]fileRecord, 0, len(files))
	for i, f := range files {
		records = append(records, fileRecord{Index: i, Path: f.Path(), Objects: f.Len(), Current: i == current})
	}

	if asJSON {
		return fileutil.PrintJSON(map[string]any{
			"files":     records,
			"current":   current,
			"skeleton":  s.state.Skeleton,
			"character": s.state.Character,
		})
	}

	p := stdout()
	if len(records) == 0 {
		p.println("no files open")
	}
	for _, r := range records {
		marker := " "
		if r.Current {
			marker = "*"
		}
		p.printf("%s [%d] %s %s\n", marker, r.Index, r.Path, p.muted(fmt.Sprintf("(%d objects)", r.Objects)))
	}
	if s.state.Skeleton != "" {
		p.printf("skeleton: %s\n", s.state.Skeleton)
	}
	if s.state.Character != "" {
		p.printf("character: %s\n", s.state.Character)
	}
	return nil
}

func RunSkeleton(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	path := s.state.Skeleton
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no skeleton loaded (run hkxedit skeleton <file>)")
	}
	skeleton, err := s.manager.LoadSkeleton(path)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		s.state.Skeleton = path
		if err := s.persist(); err != nil {
			return err
		}
	}

	bones := skeleton.Bones()
	if asJSON {
		return fileutil.PrintJSON(map[string]any{
			"path":  path,
			"bones": bones,
		})
	}
	p := stdout()
	p.printf("skeleton %s (%d bones)\n", path, len(bones))
	for i, bone := range bones {
		p.printf("  %3d %s\n", i, bone)
	}
	return nil
}

func RunCharacter(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	path := s.state.Character
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no character loaded (run hkxedit character <file>)")
	}
	character, err := s.manager.LoadCharacter(path)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		s.state.Character = path
		if err := s.persist(); err != nil {
			return err
		}
	}

	summary := map[string]any{
		"path":       path,
		"rig":        character.RigName(),
		"behavior":   character.BehaviorFilename(),
		"animations": character.AnimationNames(),
		"properties": character.PropertyNames(),
	}
	if asJSON {
		return fileutil.PrintJSON(summary)
	}
	p := stdout()
	p.printf("character %s\n", path)
	p.printf("  rig: %s\n", character.RigName())
	p.printf("  behavior: %s\n", character.BehaviorFilename())
	p.printf("  animations (%d)\n", len(character.AnimationNames()))
	for _, name := range character.AnimationNames() {
		p.printf("    %s\n", name)
	}
	if names := character.PropertyNames(); len(names) > 0 {
		p.printf("  properties (%d)\n", len(names))
		for _, name := range names {
			p.printf("    %s\n", name)
		}
	}
	return nil
}
