// Package behavior specializes the hkx object graph for behavior files: it
// locates the structural objects, owns the variable, event and character
// property tables, and keeps every index reference in the document in step
// with those tables.
package behavior

import (
	"fmt"
	"io"

	"github.com/hkxedit/hkxedit/internal/hkx"
	"github.com/hkxedit/hkxedit/internal/linked"
)

const (
	classRoot       = "hkRootLevelContainer"
	classGraph      = "hkbBehaviorGraph"
	classGraphData  = "hkbBehaviorGraphData"
	classStringData = "hkbBehaviorGraphStringData"
	classValueSet   = "hkbVariableValueSet"
)

// File is a loaded behavior file.
//
// The managers are exposed for queries; mutations should go through File so
// that references, dirty tracking and change hooks stay consistent.
type File struct {
	*hkx.File

	root       string
	graph      string
	data       string
	stringData string
	valueSet   string

	variables  *linked.VariableManager
	events     *linked.EventManager
	properties *linked.PropertyManager

	dirty bool
}

// Load reads a behavior file. Any structural problem fails the whole load.
func Load(path string, opts hkx.Options) (*File, error) {
	base, err := hkx.Load(path, opts)
	if err != nil {
		return nil, err
	}
	return FromHkx(base)
}

func Parse(r io.Reader, name string, opts hkx.Options) (*File, error) {
	base, err := hkx.Parse(r, name, opts)
	if err != nil {
		return nil, err
	}
	return FromHkx(base)
}

// FromHkx locates the essential objects of base and builds the linked tables.
func FromHkx(base *hkx.File) (*File, error) {
	f := &File{File: base}
	if err := f.locate(); err != nil {
		base.Logger().Error("not a behavior file", "error", err)
		return nil, fmt.Errorf("%s: %w: %w", base.Path(), hkx.ErrMalformed, err)
	}
	if err := f.buildManagers(); err != nil {
		base.Logger().Error("failed to build linked tables", "error", err)
		return nil, fmt.Errorf("%s: %w: %w", base.Path(), hkx.ErrMalformed, err)
	}
	f.wire()
	return f, nil
}

func (f *File) locate() error {
	root, ok := f.FirstOfClass(classRoot)
	if !ok {
		return fmt.Errorf("no %s", classRoot)
	}
	f.root = root

	graph := ""
	doc := f.Document()
	for _, variant := range doc.Children(f.Param(root, "namedVariants")) {
		target := doc.ParamText(variant, "variant")
		if f.Class(target) == classGraph {
			graph = target
			break
		}
	}
	if graph == "" {
		return fmt.Errorf("root %s has no %s variant", root, classGraph)
	}
	if err := f.checkHop(root, graph); err != nil {
		return err
	}
	f.graph = graph

	var err error
	if f.data, err = f.follow(graph, "data", classGraphData); err != nil {
		return err
	}
	if f.stringData, err = f.follow(f.data, "stringData", classStringData); err != nil {
		return err
	}
	if f.valueSet, err = f.follow(f.data, "variableInitialValues", classValueSet); err != nil {
		return err
	}
	return nil
}

func (f *File) follow(from, param, class string) (string, error) {
	target, ok := f.RefTarget(from, param)
	if !ok {
		return "", fmt.Errorf("%s param %q does not reference an object", from, param)
	}
	if got := f.Class(target); got != class {
		return "", fmt.Errorf("%s param %q references %s of class %s, want %s", from, param, target, got, class)
	}
	return target, f.checkHop(from, target)
}

func (f *File) checkHop(from, to string) error {
	for _, ref := range f.References(from) {
		if ref == to {
			return nil
		}
	}
	return fmt.Errorf("missing reference %s -> %s", from, to)
}

func (f *File) buildManagers() error {
	doc := f.Document()
	logger := f.Logger()

	var err error
	f.variables, err = linked.NewVariableManager(doc, linked.VariableNodes{
		Names:    f.Param(f.stringData, "variableNames"),
		Infos:    f.Param(f.data, "variableInfos"),
		Values:   f.Param(f.valueSet, "wordVariableValues"),
		Quads:    f.Param(f.valueSet, "quadVariableValues"),
		Pointers: f.Param(f.valueSet, "variantVariableValues"),
	}, logger)
	if err != nil {
		return err
	}
	f.events, err = linked.NewEventManager(doc,
		f.Param(f.stringData, "eventNames"),
		f.Param(f.data, "eventInfos"),
		logger)
	if err != nil {
		return err
	}
	f.properties, err = linked.NewPropertyManager(doc,
		f.Param(f.stringData, "characterPropertyNames"),
		f.Param(f.data, "characterPropertyInfos"),
		logger)
	return err
}

// wire installs the essential predicate, the delete guards and dirty tracking.
func (f *File) wire() {
	f.SetEssential(func(id string) bool {
		return id == f.root || id == f.graph || id == f.data || id == f.stringData || id == f.valueSet
	})
	f.variables.SetUsageCheck(f.usageCheck(KindVariable))
	f.events.SetUsageCheck(f.usageCheck(KindEvent))
	f.properties.SetUsageCheck(f.usageCheck(KindProperty))
	f.OnChange(func() { f.dirty = true })
}

func (f *File) usageCheck(kind Kind) linked.UsageCheck {
	return func(idx int) (string, bool) {
		ref, ok := f.FirstXRef(kind, idx)
		return ref.Object, ok
	}
}

// Essentials returns the IDs of the structural objects in load order: root,
// graph, graph data, string data and variable value set.
func (f *File) Essentials() []string {
	return []string{f.root, f.graph, f.data, f.stringData, f.valueSet}
}

func (f *File) Graph() string { return f.graph }

func (f *File) Variables() *linked.VariableManager  { return f.variables }
func (f *File) Events() *linked.EventManager        { return f.events }
func (f *File) Properties() *linked.PropertyManager { return f.properties }

// Table returns the linked table of kind.
func (f *File) Table(kind Kind) (*linked.Table, bool) {
	switch kind {
	case KindVariable:
		return f.variables.Table, true
	case KindEvent:
		return f.events.Table, true
	case KindProperty:
		return f.properties.Table, true
	default:
		return nil, false
	}
}

// Dirty reports whether the file changed since it was loaded or saved.
func (f *File) Dirty() bool {
	return f.dirty
}

func (f *File) touch() {
	f.NotifyChanged()
}

// Clone returns an independent copy of the file.
func (f *File) Clone() *File {
	base := f.File.Clone()
	doc := base.Document()
	out := &File{
		File:       base,
		root:       f.root,
		graph:      f.graph,
		data:       f.data,
		stringData: f.stringData,
		valueSet:   f.valueSet,
		variables:  f.variables.Clone(doc),
		events:     f.events.Clone(doc),
		properties: f.properties.Clone(doc),
		dirty:      f.dirty,
	}
	out.wire()
	return out
}

// Save reindexes every linked table, rewriting references across the
// document, and writes the result. Save therefore mutates the file.
func (f *File) Save(path string) error {
	f.ReindexAll()
	if err := f.File.Save(path); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// Preview returns the bytes Save would write without touching f.
func (f *File) Preview() []byte {
	clone := f.Clone()
	clone.ReindexAll()
	return clone.Bytes()
}
