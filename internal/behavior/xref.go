package behavior

import (
	"fmt"
	"strings"

	"github.com/hkxedit/hkxedit/internal/hkx"
	"github.com/hkxedit/hkxedit/internal/linked"
	"github.com/hkxedit/hkxedit/internal/tree"
)

// XRef is one param holding a linked index, with the object that owns it.
type XRef struct {
	Kind   Kind
	Index  int
	Node   tree.NodeID
	Object string
}

// visit calls fn for every param of kind in document order with its current
// integer value. Params whose text is not an integer are skipped. Returning
// false stops the walk.
func (f *File) visit(kind Kind, fn func(object string, node tree.NodeID, value int) bool) {
	doc := f.Document()
	for _, node := range doc.Children(f.Section()) {
		object := doc.Attr(node, "name")
		stop := false
		doc.Walk(node, func(n tree.NodeID) bool {
			if stop {
				return false
			}
			if Classify(doc, n) != kind {
				return true
			}
			value, err := doc.Int(n)
			if err != nil {
				return true
			}
			if !fn(object, n, value) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

// FirstXRef finds the first param in document order that uses index idx of
// the kind table.
func (f *File) FirstXRef(kind Kind, idx int) (XRef, bool) {
	var ref XRef
	found := false
	f.visit(kind, func(object string, node tree.NodeID, value int) bool {
		if value != idx {
			return true
		}
		ref = XRef{Kind: kind, Index: idx, Node: node, Object: object}
		found = true
		return false
	})
	return ref, found
}

// XRefs lists every param using index idx of the kind table.
func (f *File) XRefs(kind Kind, idx int) []XRef {
	var refs []XRef
	f.visit(kind, func(object string, node tree.NodeID, value int) bool {
		if value == idx {
			refs = append(refs, XRef{Kind: kind, Index: idx, Node: node, Object: object})
		}
		return true
	})
	return refs
}

// Usage returns the set of kind indices referenced anywhere in the document.
func (f *File) Usage(kind Kind) map[int]bool {
	used := make(map[int]bool)
	f.visit(kind, func(_ string, _ tree.NodeID, value int) bool {
		used[value] = true
		return true
	})
	return used
}

// rewrite applies remap to every param of kind. Pending writes are collected
// in one walk and applied afterward. Values without a remap entry (-1 and
// dangling indices) are left alone.
func (f *File) rewrite(kind Kind, remap map[int]int) int {
	type pending struct {
		node  tree.NodeID
		value int
	}
	var writes []pending
	f.visit(kind, func(_ string, node tree.NodeID, value int) bool {
		if next, ok := remap[value]; ok && next != value {
			writes = append(writes, pending{node: node, value: next})
		}
		return true
	})
	doc := f.Document()
	for _, w := range writes {
		doc.SetInt(w.node, w.value)
	}
	return len(writes)
}

func (f *File) reindex(kind Kind) map[int]int {
	var remap map[int]int
	before := 0
	switch kind {
	case KindVariable:
		before = f.variables.Len()
		remap = f.variables.Reindex()
		f.refreshValueSet()
	case KindEvent:
		before = f.events.Len()
		remap = f.events.Reindex()
	case KindProperty:
		before = f.properties.Len()
		remap = f.properties.Reindex()
	default:
		return nil
	}
	rewritten := f.rewrite(kind, remap)
	if rewritten > 0 || len(remap) != before {
		f.Logger().Debug("reindexed", "table", kind.String(), "removed", before-len(remap), "rewritten", rewritten)
		f.touch()
	}
	return remap
}

func (f *File) ReindexVariables() map[int]int  { return f.reindex(KindVariable) }
func (f *File) ReindexEvents() map[int]int     { return f.reindex(KindEvent) }
func (f *File) ReindexProperties() map[int]int { return f.reindex(KindProperty) }

// Remaps holds the result of ReindexAll.
type Remaps struct {
	Variables  map[int]int `json:"variables"`
	Events     map[int]int `json:"events"`
	Properties map[int]int `json:"properties"`
}

// ReindexAll compacts all three tables.
func (f *File) ReindexAll() Remaps {
	return Remaps{
		Variables:  f.ReindexVariables(),
		Events:     f.ReindexEvents(),
		Properties: f.ReindexProperties(),
	}
}

// cleanup tombstones every live entry of kind that nothing references and
// returns how many were tombstoned. The tree is compacted on the next reindex.
func (f *File) cleanup(kind Kind) int {
	table, ok := f.Table(kind)
	if !ok {
		return 0
	}
	used := f.Usage(kind)
	removed := 0
	for _, entry := range table.Entries() {
		if !entry.Valid || used[entry.Index] {
			continue
		}
		if err := table.Delete(entry.Index); err != nil {
			f.Logger().Warn("cleanup skipped entry", "table", kind.String(), "index", entry.Index, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		f.touch()
	}
	return removed
}

func (f *File) CleanupVariables() int  { return f.cleanup(KindVariable) }
func (f *File) CleanupEvents() int     { return f.cleanup(KindEvent) }
func (f *File) CleanupProperties() int { return f.cleanup(KindProperty) }

func (f *File) deleteEntry(kind Kind, idx int) error {
	table, ok := f.Table(kind)
	if !ok {
		return fmt.Errorf("unknown table %s", kind)
	}
	if err := table.Delete(idx); err != nil {
		return err
	}
	f.touch()
	return nil
}

// DeleteVariable tombstones variable idx. It fails with a *linked.InUseError
// while any param still uses it.
func (f *File) DeleteVariable(idx int) error { return f.deleteEntry(KindVariable, idx) }
func (f *File) DeleteEvent(idx int) error    { return f.deleteEntry(KindEvent, idx) }
func (f *File) DeleteProperty(idx int) error { return f.deleteEntry(KindProperty, idx) }

func (f *File) AddVariable(name string, typ linked.VariableType) (int, error) {
	idx, err := f.variables.AddVariable(name, typ)
	if err != nil {
		return -1, err
	}
	f.touch()
	return idx, nil
}

// refreshValueSet recomputes the edges leaving the variable value set. Its
// pointer slots hold object IDs.
func (f *File) refreshValueSet() {
	if err := f.RefreshOutgoing(f.valueSet); err != nil {
		f.Logger().Warn("cannot refresh value set references", "id", f.valueSet, "error", err)
	}
}

func (f *File) SetVariableValue(idx, value int) error {
	if err := f.variables.SetValue(idx, value); err != nil {
		return err
	}
	f.touch()
	return nil
}

func (f *File) SetVariableQuad(idx int, q linked.Quad) error {
	if err := f.variables.SetQuad(idx, q); err != nil {
		return err
	}
	f.touch()
	return nil
}

// SetVariablePointer points variable idx at target, an object ID or "null".
// The value set gains or loses the matching reference.
func (f *File) SetVariablePointer(idx int, target string) error {
	target = strings.TrimSpace(target)
	if target != "null" {
		if _, ok := f.Object(target); !ok {
			return fmt.Errorf("variable %d: %s: %w", idx, target, hkx.ErrNoObject)
		}
	}
	if err := f.variables.SetPointer(idx, target); err != nil {
		return err
	}
	f.refreshValueSet()
	f.touch()
	return nil
}

func (f *File) AddEvent(name string) (int, error) {
	idx, err := f.events.AddEvent(name)
	if err != nil {
		return -1, err
	}
	f.touch()
	return idx, nil
}

func (f *File) AddProperty(name string, typ linked.VariableType) (int, error) {
	idx, err := f.properties.AddProperty(name, typ)
	if err != nil {
		return -1, err
	}
	f.touch()
	return idx, nil
}

// Rename sets the name of entry idx of the kind table.
func (f *File) Rename(kind Kind, idx int, name string) error {
	table, ok := f.Table(kind)
	if !ok {
		return fmt.Errorf("unknown table %s", kind)
	}
	if err := table.SetName(idx, name); err != nil {
		return err
	}
	f.touch()
	return nil
}
