package hkx

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hkxedit/hkxedit/internal/tree"
)

// BuildRefList rebuilds both reference indexes from scratch. Each worker
// scans one object's subtree and writes only that object's slot; the reverse
// index is derived afterward in a single pass.
func (f *File) BuildRefList(ctx context.Context) error {
	ids := f.Objects()
	outgoing := make([][]string, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outgoing[i] = f.scanOutgoing(id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to build references: %w", err)
	}

	forward := make(map[string]idSet, len(ids))
	reverse := make(map[string]idSet, len(ids))
	for _, id := range ids {
		forward[id] = make(idSet)
		reverse[id] = make(idSet)
	}
	for i, parent := range ids {
		for _, child := range outgoing[i] {
			forward[parent][child] = struct{}{}
			reverse[child][parent] = struct{}{}
		}
	}
	f.forward = forward
	f.reverse = reverse
	return nil
}

// scanOutgoing lists the objects referenced from the subtree of id. It only
// reads shared state.
func (f *File) scanOutgoing(id string) []string {
	node := f.objects[id]
	seen := make(map[string]bool)
	var out []string
	f.doc.Walk(node, func(n tree.NodeID) bool {
		for _, token := range strings.Fields(f.doc.Text(n)) {
			if token == id || seen[token] {
				continue
			}
			if _, ok := f.objects[token]; ok {
				seen[token] = true
				out = append(out, token)
			}
		}
		return true
	})
	sort.Strings(out)
	return out
}

// mentions reports whether some text token in the subtree of id equals target.
func (f *File) mentions(id, target string) bool {
	found := false
	f.doc.Walk(f.objects[id], func(n tree.NodeID) bool {
		if found {
			return false
		}
		for _, token := range strings.Fields(f.doc.Text(n)) {
			if token == target {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// BuildRefListFor recomputes every edge incident to id: what id references
// and which objects reference id.
func (f *File) BuildRefListFor(id string) error {
	if _, ok := f.objects[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNoObject)
	}
	f.dropEdges(id)
	for _, child := range f.scanOutgoing(id) {
		f.link(child, id)
	}
	for other := range f.objects {
		if other != id && f.mentions(other, id) {
			f.link(id, other)
		}
	}
	return nil
}

// RefreshOutgoing recomputes the edges leaving id after its content changed.
func (f *File) RefreshOutgoing(id string) error {
	if _, ok := f.objects[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNoObject)
	}
	for child := range f.forward[id] {
		delete(f.reverse[child], id)
	}
	f.forward[id] = make(idSet)
	for _, child := range f.scanOutgoing(id) {
		f.link(child, id)
	}
	return nil
}

func (f *File) dropEdges(id string) {
	for child := range f.forward[id] {
		delete(f.reverse[child], id)
	}
	for parent := range f.reverse[id] {
		delete(f.forward[parent], id)
	}
	f.forward[id] = make(idSet)
	f.reverse[id] = make(idSet)
}

func (f *File) link(child, parent string) {
	f.forward[parent][child] = struct{}{}
	f.reverse[child][parent] = struct{}{}
}

// AddRef records parent -> child. Both objects must exist.
func (f *File) AddRef(child, parent string) error {
	if _, ok := f.objects[child]; !ok {
		return fmt.Errorf("%s: %w", child, ErrNoObject)
	}
	if _, ok := f.objects[parent]; !ok {
		return fmt.Errorf("%s: %w", parent, ErrNoObject)
	}
	f.link(child, parent)
	return nil
}

// DeRef removes parent -> child. A missing edge is logged and treated as
// already removed.
func (f *File) DeRef(child, parent string) error {
	if _, ok := f.objects[child]; !ok {
		return fmt.Errorf("%s: %w", child, ErrNoObject)
	}
	if _, ok := f.objects[parent]; !ok {
		return fmt.Errorf("%s: %w", parent, ErrNoObject)
	}
	_, inForward := f.forward[parent][child]
	_, inReverse := f.reverse[child][parent]
	if !inForward || !inReverse {
		f.logger.Warn("dereferencing missing edge", "id", child, "parent", parent,
			"forward", inForward, "reverse", inReverse)
	}
	delete(f.forward[parent], child)
	delete(f.reverse[child], parent)
	return nil
}

// References returns the objects id references, sorted.
func (f *File) References(id string) []string {
	return sortedSet(f.forward[id])
}

// ReferencedBy returns the objects referencing id, sorted.
func (f *File) ReferencedBy(id string) []string {
	return sortedSet(f.reverse[id])
}

// EdgeCount returns the number of forward edges.
func (f *File) EdgeCount() int {
	count := 0
	for _, set := range f.forward {
		count += len(set)
	}
	return count
}

// VerifyRefs checks that the reverse index is the transpose of the forward
// index and that every edge endpoint exists.
func (f *File) VerifyRefs() error {
	for parent, children := range f.forward {
		if _, ok := f.objects[parent]; !ok {
			return fmt.Errorf("forward index has unknown object %s", parent)
		}
		for child := range children {
			if _, ok := f.reverse[child][parent]; !ok {
				return fmt.Errorf("edge %s -> %s missing from reverse index", parent, child)
			}
		}
	}
	for child, parents := range f.reverse {
		if _, ok := f.objects[child]; !ok {
			return fmt.Errorf("reverse index has unknown object %s", child)
		}
		for parent := range parents {
			if _, ok := f.forward[parent][child]; !ok {
				return fmt.Errorf("edge %s -> %s missing from forward index", parent, child)
			}
		}
	}
	return nil
}
