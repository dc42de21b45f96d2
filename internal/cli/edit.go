package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/hkxedit/hkxedit/internal/behavior"
	"github.com/hkxedit/hkxedit/internal/fileutil"
)

type cleanupSummary struct {
	Variables  int `json:"variables"`
	Events     int `json:"events"`
	Properties int `json:"properties"`
}

func cleanupTables(cmd *cobra.Command, f *behavior.File) (cleanupSummary, error) {
	var summary cleanupSummary
	vars, err := OptionalBoolFlag(cmd, "vars", false)
	if err != nil {
		return summary, err
	}
	events, err := OptionalBoolFlag(cmd, "events", false)
	if err != nil {
		return summary, err
	}
	props, err := OptionalBoolFlag(cmd, "props", false)
	if err != nil {
		return summary, err
	}
	if !vars && !events && !props {
		vars, events, props = true, true, true
	}
	if vars {
		summary.Variables = f.CleanupVariables()
	}
	if events {
		summary.Events = f.CleanupEvents()
	}
	if props {
		summary.Properties = f.CleanupProperties()
	}
	return summary, nil
}

func RunCleanup(cmd *cobra.Command, args []string) error {
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
	summary, err := cleanupTables(cmd, f.File)
	if err != nil {
		return err
	}
	if err := s.commit(f); err != nil {
		return err
	}
	if asJSON {
		return fileutil.PrintJSON(summary)
	}
	fmt.Printf("removed %d variables, %d events, %d properties\n",
		summary.Variables, summary.Events, summary.Properties)
	return nil
}

// moved returns the entries of remap whose index changed, sorted by old index.
func moved(remap map[int]int) [][2]int {
	var out [][2]int
	for from, to := range remap {
		if from != to {
			out = append(out, [2]int{from, to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i][0] < out[j][0]
	})
	return out
}

func RunReindex(cmd *cobra.Command, args []string) error {
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
	remaps := f.ReindexAll()
	if err := s.commit(f); err != nil {
		return err
	}
	if asJSON {
		return fileutil.PrintJSON(remaps)
	}

	p := stdout()
	tables := []struct {
		name  string
		remap map[int]int
	}{
		{"variables", remaps.Variables},
		{"events", remaps.Events},
		{"properties", remaps.Properties},
	}
	for _, table := range tables {
		changes := moved(table.remap)
		p.printf("%s: %d entries, %d moved\n", table.name, len(table.remap), len(changes))
		for _, change := range changes {
			p.printf("  %d -> %d\n", change[0], change[1])
		}
	}
	return nil
}

func RunSave(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	f, err := s.target(cmd)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		if err := s.commit(f); err != nil {
			return err
		}
		fmt.Printf("saved %s\n", f.Path())
		return nil
	}

	// Save-as writes a copy; the session keeps editing the original.
	out := args[0]
	f.ReindexAll()
	if err := fileutil.WriteIfChanged(out, f.Bytes()); err != nil {
		return fmt.Errorf("failed to save %s: %w", out, err)
	}
	fmt.Printf("saved %s\n", out)
	return nil
}

type diffLine struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

// lineDiff compares before and after line by line.
func lineDiff(before, after string) []diffLine {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []diffLine
	for _, d := range diffs {
		op := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = "+"
		case diffmatchpatch.DiffDelete:
			op = "-"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out = append(out, diffLine{Op: op, Text: strings.TrimSuffix(line, "\n")})
		}
	}
	return out
}

// RunDiff shows what saving the file would change on disk. With --cleanup it
// previews a cleanup of unused entries first.
func RunDiff(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	withCleanup, err := OptionalBoolFlag(cmd, "cleanup", false)
	if err != nil {
		return err
	}
	contextLines, err := OptionalIntFlag(cmd, "context", 2)
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

	before, err := os.ReadFile(f.Path())
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Path(), err)
	}
	preview := f.File
	if withCleanup {
		preview = f.Clone()
		if _, err := cleanupTables(cmd, preview); err != nil {
			return err
		}
	}
	lines := lineDiff(string(before), string(preview.Preview()))

	changed := 0
	for _, line := range lines {
		if line.Op != " " {
			changed++
		}
	}
	if asJSON {
		var edits []diffLine
		for _, line := range lines {
			if line.Op != " " {
				edits = append(edits, line)
			}
		}
		return fileutil.PrintJSON(map[string]any{
			"path":    f.Path(),
			"changed": changed > 0,
			"lines":   edits,
		})
	}

	p := stdout()
	if changed == 0 {
		p.printf("%s: no changes\n", f.Path())
		return nil
	}
	p.printf("--- %s\n+++ %s (on save)\n", f.Path(), f.Path())
	for i, line := range lines {
		switch line.Op {
		case "+":
			p.println(p.added("+" + line.Text))
		case "-":
			p.println(p.removed("-" + line.Text))
		default:
			if nearChange(lines, i, contextLines) {
				p.println(p.muted(" " + line.Text))
			}
		}
	}
	return nil
}

func nearChange(lines []diffLine, i, context int) bool {
	for j := max(0, i-context); j <= min(len(lines)-1, i+context); j++ {
		if lines[j].Op != " " {
			return true
		}
	}
	return false
}

func RunCheck(cmd *cobra.Command, args []string) error {
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

	problems := f.Check()
	if asJSON {
		if err := fileutil.PrintJSON(map[string]any{
			"path":     f.Path(),
			"problems": problems,
		}); err != nil {
			return err
		}
	} else {
		p := stdout()
		if len(problems) == 0 {
			p.printf("%s: ok\n", f.Path())
		}
		for _, problem := range problems {
			if problem.ID == "" {
				p.printf("%s %s\n", p.warn("!"), problem.Message)
				continue
			}
			p.printf("%s %s %s\n", p.warn("!"), p.id(problem.ID), problem.Message)
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d problems found", len(problems))
	}
	return nil
}
