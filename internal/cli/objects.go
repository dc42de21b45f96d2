package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hkxedit/hkxedit/internal/fileutil"
	"github.com/hkxedit/hkxedit/internal/nav"
)

func RunInfo(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	f, err := s.target(cmd)
	if err != nil {
		return err
	}

	classes := make(map[string]int)
	for _, class := range f.Classes() {
		classes[class] = len(f.ObjectsByClass(class))
	}
	info := map[string]any{
		"path":       f.Path(),
		"objects":    f.Len(),
		"references": f.EdgeCount(),
		"graph":      f.Graph(),
		"essentials": f.Essentials(),
		"variables":  f.Variables().Names(),
		"events":     f.Events().Names(),
		"properties": f.Properties().Names(),
		"classes":    classes,
	}
	if asJSON {
		return fileutil.PrintJSON(info)
	}

	p := stdout()
	p.printf("%s\n", f.Path())
	p.printf("  objects: %d  references: %d\n", f.Len(), f.EdgeCount())
	p.printf("  graph: %s\n", p.id(f.Graph()))
	p.printf("  variables: %d  events: %d  properties: %d\n",
		f.Variables().Live(), f.Events().Live(), f.Properties().Live())
	p.println("  classes:")
	for _, class := range fileutil.MapKeysSorted(classes) {
		p.printf("    %4d %s\n", classes[class], p.class(class))
	}
	return nil
}

func RunObjects(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	class, err := OptionalStringFlag(cmd, "class")
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	f, err := s.target(cmd)
	if err != nil {
		return err
	}

	ids := f.Objects()
	if class != "" {
		ids = f.ObjectsByClass(class)
	}
	records := make([]nav.ObjectRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, nav.Record(f, id))
	}
	if asJSON {
		return fileutil.PrintJSON(records)
	}
	p := stdout()
	for _, r := range records {
		p.println(p.object(r.ID, r.Class))
	}
	return nil
}

func RunShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	f, err := s.target(cmd)
	if err != nil {
		return err
	}
	text, err := f.Render(args[0])
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

func RunClasses(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	names := s.opts.Templates.Classes()
	if asJSON {
		return fileutil.PrintJSON(names)
	}
	p := stdout()
	for _, name := range names {
		class, _ := s.opts.Templates.Lookup(name)
		p.printf("%s %s\n", p.class(name), p.muted(class.Signature()))
	}
	return nil
}

func RunAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	f, err := s.target(cmd)
	if err != nil {
		return err
	}
	id, err := f.AddObject(args[0])
	if err != nil {
		return err
	}
	if err := s.commit(f); err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func RunDel(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	f, err := s.target(cmd)
	if err != nil {
		return err
	}
	if err := f.DeleteObject(args[0]); err != nil {
		return err
	}
	if err := s.commit(f); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func RunSet(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	f, err := s.target(cmd)
	if err != nil {
		return err
	}
	id, param, value := args[0], args[1], args[2]
	if err := f.SetParam(id, param, value); err != nil {
		return err
	}
	if err := s.commit(f); err != nil {
		return err
	}
	fmt.Printf("%s.%s = %s\n", id, param, value)
	return nil
}
