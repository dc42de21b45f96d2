package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hkxedit/hkxedit/internal/fileutil"
	"github.com/hkxedit/hkxedit/internal/hkx"
	"github.com/hkxedit/hkxedit/internal/nav"
	"github.com/hkxedit/hkxedit/internal/search"
)

func requireObject(g nav.Graph, id string) error {
	if g.Class(id) == "" {
		return fmt.Errorf("%w: %s", hkx.ErrNoObject, id)
	}
	return nil
}

func printRecords(p *printer, title string, records []nav.ObjectRecord) {
	p.printf("%s (%d)\n", title, len(records))
	if len(records) == 0 {
		p.println("none")
		return
	}
	for _, r := range records {
		p.printf("- %s\n", p.object(r.ID, r.Class))
	}
}

func runEdges(cmd *cobra.Command, args []string, reverse bool) error {
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
	id := args[0]
	if err := requireObject(f, id); err != nil {
		return err
	}

	title := "references of " + id
	records := nav.References(f, id)
	key := "references"
	if reverse {
		title = "referrers of " + id
		records = nav.Referrers(f, id)
		key = "referrers"
	}
	if asJSON {
		return fileutil.PrintJSON(map[string]any{
			"object": nav.Record(f, id),
			key:      records,
		})
	}
	printRecords(stdout(), title, records)
	return nil
}

func RunRefs(cmd *cobra.Command, args []string) error {
	return runEdges(cmd, args, false)
}

func RunRefBy(cmd *cobra.Command, args []string) error {
	return runEdges(cmd, args, true)
}

func RunPath(cmd *cobra.Command, args []string) error {
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
	for _, id := range args {
		if err := requireObject(f, id); err != nil {
			return err
		}
	}

	path := nav.ShortestPath(f, args[0], args[1])
	if asJSON {
		records := make([]nav.ObjectRecord, 0, len(path))
		for _, id := range path {
			records = append(records, nav.Record(f, id))
		}
		return fileutil.PrintJSON(map[string]any{
			"from":  args[0],
			"to":    args[1],
			"found": path != nil,
			"path":  records,
		})
	}

	p := stdout()
	if path == nil {
		p.printf("no path from %s to %s\n", args[0], args[1])
		return nil
	}
	p.printf("path from %s to %s (%d hops)\n", args[0], args[1], len(path)-1)
	for i, id := range path {
		p.printf("%s%s\n", strings.Repeat("  ", i), p.object(id, f.Class(id)))
	}
	return nil
}

func RunTrace(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	depth, err := OptionalIntFlag(cmd, "depth", 2)
	if err != nil {
		return err
	}
	if depth < 1 {
		return fmt.Errorf("--depth must be >= 1")
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	f, err := s.target(cmd)
	if err != nil {
		return err
	}
	if err := requireObject(f, args[0]); err != nil {
		return err
	}

	hops := nav.Trace(f, args[0], depth)
	if asJSON {
		return fileutil.PrintJSON(map[string]any{
			"start": nav.Record(f, args[0]),
			"depth": depth,
			"hops":  hops,
		})
	}

	p := stdout()
	p.printf("trace from %s depth=%d hops=%d\n", args[0], depth, len(hops))
	if len(hops) == 0 {
		p.println("no outgoing references")
		return nil
	}
	for _, hop := range hops {
		p.printf("%d %s -> %s\n", hop.Depth, p.id(hop.From.ID), p.object(hop.To.ID, hop.To.Class))
	}
	return nil
}

func RunTop(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	limit, err := OptionalIntFlag(cmd, "limit", 10)
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

	top := nav.TopObjects(f, limit)
	if asJSON {
		return fileutil.PrintJSON(top)
	}
	p := stdout()
	for _, r := range top {
		p.printf("%.4f %s\n", r.Rank, p.object(r.ID, r.Class))
	}
	return nil
}

func RunOrphans(cmd *cobra.Command, args []string) error {
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

	ids := nav.Orphans(f, f.Essentials()...)
	records := make([]nav.ObjectRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, nav.Record(f, id))
	}
	if asJSON {
		return fileutil.PrintJSON(records)
	}
	printRecords(stdout(), "unreferenced objects", records)
	return nil
}

func RunFind(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	where, err := OptionalStringFlag(cmd, "where")
	if err != nil {
		return err
	}
	limit, err := OptionalIntFlag(cmd, "limit", 10)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" && where == "" {
		return fmt.Errorf("find needs a query or --where")
	}

	var filter *search.Filter
	if where != "" {
		if filter, err = search.Compile(where); err != nil {
			return err
		}
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	f, err := s.target(cmd)
	if err != nil {
		return err
	}

	var results []search.Result
	if query != "" {
		// Rank every match so that --where narrows before --limit applies.
		results = search.Search(search.Build(f), query, f.Len())
	} else {
		for _, id := range f.Objects() {
			results = append(results, search.Result{ID: id})
		}
	}
	if filter != nil {
		kept := results[:0]
		for _, r := range results {
			ok, err := filter.Match(f, r.ID)
			if err != nil {
				return err
			}
			if ok {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	if asJSON {
		return fileutil.PrintJSON(map[string]any{
			"query":   query,
			"where":   where,
			"results": results,
		})
	}
	p := stdout()
	p.printf("matches (%d)\n", len(results))
	for _, r := range results {
		line := p.object(r.ID, f.Class(r.ID))
		if query != "" {
			line += " " + p.muted(fmt.Sprintf("%.3f", r.Score))
		}
		p.println(line)
	}
	return nil
}
