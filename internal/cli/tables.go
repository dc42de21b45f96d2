package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hkxedit/hkxedit/internal/behavior"
	"github.com/hkxedit/hkxedit/internal/filemanager"
	"github.com/hkxedit/hkxedit/internal/fileutil"
	"github.com/hkxedit/hkxedit/internal/linked"
)

type entryRecord struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
	Flags string `json:"flags,omitempty"`
	Uses  int    `json:"uses"`
}

// resolveEntry accepts an index or a case-insensitive entry name.
func resolveEntry(table *linked.Table, arg string) (int, error) {
	if idx, err := strconv.Atoi(arg); err == nil {
		if _, ok := table.Entry(idx); !ok {
			return -1, fmt.Errorf("%s entry %d: %w", table.TableName(), idx, linked.ErrNoEntry)
		}
		return idx, nil
	}
	entry, ok := table.EntryByName(arg)
	if !ok {
		return -1, fmt.Errorf("%s entry %q: %w", table.TableName(), arg, linked.ErrNoEntry)
	}
	return entry.Index, nil
}

func variableValue(m *linked.VariableManager, idx int, typ linked.VariableType) string {
	switch {
	case typ == linked.TypePointer:
		value, _ := m.Pointer(idx)
		return value
	case typ.IsQuad():
		q, _ := m.Quad(idx)
		parts := make([]string, len(q))
		for i, v := range q {
			parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		value, _ := m.Value(idx)
		return strconv.Itoa(value)
	}
}

func entryRecords(f *behavior.File, kind behavior.Kind) []entryRecord {
	table, _ := f.Table(kind)
	records := make([]entryRecord, 0, table.Live())
	for _, entry := range table.Entries() {
		if !entry.Valid {
			continue
		}
		name, _ := table.Name(entry.Index)
		record := entryRecord{
			Index: entry.Index,
			Name:  name,
			Uses:  len(f.XRefs(kind, entry.Index)),
		}
		switch kind {
		case behavior.KindVariable:
			typ, _ := f.Variables().Type(entry.Index)
			record.Type = string(typ)
			record.Value = variableValue(f.Variables(), entry.Index, typ)
		case behavior.KindEvent:
			record.Flags, _ = f.Events().Flags(entry.Index)
		case behavior.KindProperty:
			typ, _ := f.Properties().Type(entry.Index)
			record.Type = string(typ)
		}
		records = append(records, record)
	}
	return records
}

func tableTarget(cmd *cobra.Command) (*session, *filemanager.OpenFile, error) {
	s, err := openSession(cmd)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.target(cmd)
	if err != nil {
		return nil, nil, err
	}
	return s, f, nil
}

func runTableList(kind behavior.Kind) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		asJSON, err := OptionalBoolFlag(cmd, "json", false)
		if err != nil {
			return err
		}
		_, f, err := tableTarget(cmd)
		if err != nil {
			return err
		}

		records := entryRecords(f.File, kind)
		if asJSON {
			return fileutil.PrintJSON(records)
		}
		p := stdout()
		p.printf("%ss (%d)\n", kind, len(records))
		for _, r := range records {
			line := fmt.Sprintf("%4d %s", r.Index, p.id(r.Name))
			if r.Type != "" {
				line += " " + p.class(strings.TrimPrefix(r.Type, "VARIABLE_TYPE_"))
			}
			if r.Value != "" {
				line += " = " + r.Value
			}
			if r.Flags != "" && r.Flags != "0" {
				line += " flags=" + r.Flags
			}
			uses := p.muted(fmt.Sprintf("(%d uses)", r.Uses))
			if r.Uses == 0 {
				uses = p.warn("(unused)")
			}
			p.printf("%s %s\n", line, uses)
		}
		return nil
	}
}

func runTableAdd(kind behavior.Kind) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, f, err := tableTarget(cmd)
		if err != nil {
			return err
		}
		table, _ := f.Table(kind)
		if _, exists := table.EntryByName(args[0]); exists {
			return fmt.Errorf("%s %q already exists", kind, args[0])
		}

		var idx int
		switch kind {
		case behavior.KindEvent:
			idx, err = f.AddEvent(args[0])
		default:
			if len(args) < 2 {
				return fmt.Errorf("%s add needs a name and a type", kind)
			}
			typ, perr := linked.ParseVariableType(args[1])
			if perr != nil {
				return perr
			}
			if kind == behavior.KindVariable {
				idx, err = f.AddVariable(args[0], typ)
			} else {
				idx, err = f.AddProperty(args[0], typ)
			}
		}
		if err != nil {
			return err
		}
		if err := s.commit(f); err != nil {
			return err
		}
		fmt.Printf("added %s %d %s\n", kind, idx, args[0])
		return nil
	}
}

func runTableDel(kind behavior.Kind) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, f, err := tableTarget(cmd)
		if err != nil {
			return err
		}
		table, _ := f.Table(kind)
		idx, err := resolveEntry(table, args[0])
		if err != nil {
			return err
		}
		switch kind {
		case behavior.KindVariable:
			err = f.DeleteVariable(idx)
		case behavior.KindEvent:
			err = f.DeleteEvent(idx)
		case behavior.KindProperty:
			err = f.DeleteProperty(idx)
		}
		if err != nil {
			return err
		}
		if err := s.commit(f); err != nil {
			return err
		}
		fmt.Printf("deleted %s %d\n", kind, idx)
		return nil
	}
}

func runTableRename(kind behavior.Kind) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, f, err := tableTarget(cmd)
		if err != nil {
			return err
		}
		table, _ := f.Table(kind)
		idx, err := resolveEntry(table, args[0])
		if err != nil {
			return err
		}
		if err := f.Rename(kind, idx, args[1]); err != nil {
			return err
		}
		if err := s.commit(f); err != nil {
			return err
		}
		fmt.Printf("renamed %s %d to %s\n", kind, idx, args[1])
		return nil
	}
}

// RunVarSet sets the initial value of a variable. Quad types take four
// numbers, pointers take an object ID or null.
func RunVarSet(cmd *cobra.Command, args []string) error {
	s, f, err := tableTarget(cmd)
	if err != nil {
		return err
	}
	vars := f.Variables()
	idx, err := resolveEntry(vars.Table, args[0])
	if err != nil {
		return err
	}
	typ, err := vars.Type(idx)
	if err != nil {
		return err
	}
	values := args[1:]

	switch {
	case typ == linked.TypePointer:
		if len(values) != 1 {
			return fmt.Errorf("pointer variables take one value")
		}
		err = f.SetVariablePointer(idx, values[0])
	case typ.IsQuad():
		if len(values) != 4 {
			return fmt.Errorf("%s variables take four values", strings.TrimPrefix(string(typ), "VARIABLE_TYPE_"))
		}
		var q linked.Quad
		for i, v := range values {
			parsed, perr := strconv.ParseFloat(v, 32)
			if perr != nil {
				return fmt.Errorf("invalid component %q: %w", v, perr)
			}
			q[i] = float32(parsed)
		}
		err = f.SetVariableQuad(idx, q)
	default:
		if len(values) != 1 {
			return fmt.Errorf("%s variables take one value", strings.TrimPrefix(string(typ), "VARIABLE_TYPE_"))
		}
		value, perr := strconv.Atoi(values[0])
		if perr != nil {
			return fmt.Errorf("invalid value %q: %w", values[0], perr)
		}
		err = f.SetVariableValue(idx, value)
	}
	if err != nil {
		return err
	}
	if err := s.commit(f); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", args[0], variableValue(vars, idx, typ))
	return nil
}
