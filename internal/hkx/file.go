// Package hkx is the object graph of a Havok packfile in XML form.
//
// A File owns the parsed document and four indexes derived from it: objects by
// ID, IDs by class, and the forward and reverse reference sets. An object B
// references A when any whitespace-separated token of any text in B's subtree
// equals A's ID.
package hkx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strconv"

	"github.com/hkxedit/hkxedit/internal/fileutil"
	"github.com/hkxedit/hkxedit/internal/logging"
	"github.com/hkxedit/hkxedit/internal/templates"
	"github.com/hkxedit/hkxedit/internal/tree"
)

const (
	// MaxObjects is the hard ceiling on objects per file.
	MaxObjects = 9999
	idLength   = 5

	packfileTag = "hkpackfile"
	sectionTag  = "hksection"
	objectTag   = "hkobject"
)

// Options configures loading.
type Options struct {
	// Templates supplies default values for AddObject. Nil means the
	// built-in registry.
	Templates *templates.Registry
	Logger    *slog.Logger
	// Workers bounds the reference build fan-out. Zero means GOMAXPROCS.
	Workers int
}

func (o Options) withDefaults() Options {
	if o.Templates == nil {
		o.Templates = templates.NewDefaultRegistry()
	}
	o.Logger = logging.OrDiscard(o.Logger)
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

type idSet map[string]struct{}

// File is a loaded hkx object graph.
type File struct {
	path    string
	doc     *tree.Document
	section tree.NodeID

	objects map[string]tree.NodeID
	classes map[string][]string
	forward map[string]idSet
	reverse map[string]idSet
	maxID   int

	essential func(id string) bool
	hooks     []func()

	opts   Options
	logger *slog.Logger
}

// FormatID renders n as an object ID.
func FormatID(n int) string {
	return fmt.Sprintf("#%04d", n)
}

// ParseID returns the number of an object ID of the form #NNNN.
func ParseID(id string) (int, bool) {
	if len(id) != idLength || id[0] != '#' {
		return 0, false
	}
	for _, c := range id[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(id[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Load reads and indexes the file at path.
func Load(path string, opts Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, path, opts)
}

// Parse reads and indexes a file from r. name is used for logs and errors
// and becomes the save path.
func Parse(r io.Reader, name string, opts Options) (*File, error) {
	doc, err := tree.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ErrMalformed, err)
	}
	return FromDocument(doc, name, opts)
}

// FromDocument indexes an already parsed document. The File takes ownership of doc.
func FromDocument(doc *tree.Document, name string, opts Options) (*File, error) {
	opts = opts.withDefaults()
	f := &File{
		path:    name,
		doc:     doc,
		objects: make(map[string]tree.NodeID),
		classes: make(map[string][]string),
		forward: make(map[string]idSet),
		reverse: make(map[string]idSet),
		maxID:   -1,
		opts:    opts,
		logger:  opts.Logger.With("file", name),
	}
	if err := f.index(); err != nil {
		f.logger.Error("failed to load", "error", err)
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := f.BuildRefList(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	f.logger.Debug("loaded", "objects", len(f.objects), "edges", f.EdgeCount())
	return f, nil
}

func (f *File) index() error {
	root := f.doc.Root()
	if f.doc.Tag(root) != packfileTag {
		return fmt.Errorf("%w: root element is %q, want %q", ErrMalformed, f.doc.Tag(root), packfileTag)
	}
	f.section = tree.InvalidNode
	for _, child := range f.doc.Children(root) {
		if f.doc.Tag(child) != sectionTag {
			continue
		}
		if f.section != tree.InvalidNode {
			return fmt.Errorf("%w: more than one %s", ErrMalformed, sectionTag)
		}
		f.section = child
	}
	if f.section == tree.InvalidNode {
		return fmt.Errorf("%w: no %s", ErrMalformed, sectionTag)
	}

	for ordinal, node := range f.doc.Children(f.section) {
		id := f.doc.Attr(node, "name")
		if f.doc.Tag(node) != objectTag {
			return fmt.Errorf("%w: object %d: unexpected element %q", ErrMalformed, ordinal, f.doc.Tag(node))
		}
		n, ok := ParseID(id)
		if !ok {
			return fmt.Errorf("%w: object %d: invalid id %q", ErrMalformed, ordinal, id)
		}
		class := f.doc.Attr(node, "class")
		if class == "" {
			return fmt.Errorf("%w: object %d (%s): missing class", ErrMalformed, ordinal, id)
		}
		if _, exists := f.objects[id]; exists {
			return fmt.Errorf("%w: object %d: %s", ErrDuplicateID, ordinal, id)
		}
		f.register(id, class, node)
		if n > f.maxID {
			f.maxID = n
		}
	}
	return nil
}

func (f *File) register(id, class string, node tree.NodeID) {
	f.objects[id] = node
	f.classes[class] = append(f.classes[class], id)
	f.forward[id] = make(idSet)
	f.reverse[id] = make(idSet)
}

// Path returns the file's save path.
func (f *File) Path() string {
	return f.path
}

// Document exposes the underlying tree.
func (f *File) Document() *tree.Document {
	return f.doc
}

// Section returns the data section node holding every object.
func (f *File) Section() tree.NodeID {
	return f.section
}

func (f *File) Logger() *slog.Logger {
	return f.logger
}

func (f *File) Templates() *templates.Registry {
	return f.opts.Templates
}

// OnChange registers fn to run after every graph mutation.
func (f *File) OnChange(fn func()) {
	f.hooks = append(f.hooks, fn)
}

// NotifyChanged runs the change hooks. Callers editing object content
// directly use it after their edit.
func (f *File) NotifyChanged() {
	for _, fn := range f.hooks {
		fn()
	}
}

// SetEssential installs the predicate used by IsEssential.
func (f *File) SetEssential(fn func(id string) bool) {
	f.essential = fn
}

func (f *File) IsEssential(id string) bool {
	if _, ok := f.objects[id]; !ok || f.essential == nil {
		return false
	}
	return f.essential(id)
}

// Object returns the node of object id.
func (f *File) Object(id string) (tree.NodeID, bool) {
	node, ok := f.objects[id]
	return node, ok
}

// Class returns the class of object id, or "".
func (f *File) Class(id string) string {
	node, ok := f.objects[id]
	if !ok {
		return ""
	}
	return f.doc.Attr(node, "class")
}

// Objects returns every object ID, sorted.
func (f *File) Objects() []string {
	return fileutil.MapKeysSorted(f.objects)
}

// ObjectsByClass returns the IDs of class in document order.
func (f *File) ObjectsByClass(class string) []string {
	return append([]string(nil), f.classes[class]...)
}

// FirstOfClass returns the first object of class in document order.
func (f *File) FirstOfClass(class string) (string, bool) {
	ids := f.classes[class]
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

// Classes returns every class present, sorted.
func (f *File) Classes() []string {
	return fileutil.MapKeysSorted(f.classes)
}

func (f *File) Len() int {
	return len(f.objects)
}

// Param returns the named top-level param of object id.
func (f *File) Param(id, name string) tree.NodeID {
	node, ok := f.objects[id]
	if !ok {
		return tree.InvalidNode
	}
	return f.doc.GetByName(node, name)
}

// ParamText returns the trimmed text of the named top-level param.
func (f *File) ParamText(id, name string) string {
	node, ok := f.objects[id]
	if !ok {
		return ""
	}
	return f.doc.ParamText(node, name)
}

// RefTarget resolves a param holding a single object reference.
func (f *File) RefTarget(id, name string) (string, bool) {
	target := f.ParamText(id, name)
	if _, ok := f.objects[target]; !ok {
		return "", false
	}
	return target, true
}

// Render serializes object id.
func (f *File) Render(id string) (string, error) {
	node, ok := f.objects[id]
	if !ok {
		return "", fmt.Errorf("%s: %w", id, ErrNoObject)
	}
	return f.doc.Render(node), nil
}

// WriteTo serializes the document.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	return f.doc.WriteTo(w)
}

// Bytes returns the serialized document.
func (f *File) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = f.WriteTo(&buf)
	return buf.Bytes()
}

// Save writes the document to path, or to the load path when path is empty.
// An unchanged file on disk is left untouched.
func (f *File) Save(path string) error {
	if path == "" {
		path = f.path
	}
	if err := fileutil.WriteIfChanged(path, f.Bytes()); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	f.path = path
	f.logger.Info("saved", "path", path, "objects", len(f.objects))
	return nil
}

// Clone returns an independent copy of the graph. Change hooks are not copied.
func (f *File) Clone() *File {
	out := &File{
		path:      f.path,
		doc:       f.doc.Clone(),
		section:   f.section,
		objects:   make(map[string]tree.NodeID, len(f.objects)),
		classes:   make(map[string][]string, len(f.classes)),
		forward:   copyEdges(f.forward),
		reverse:   copyEdges(f.reverse),
		maxID:     f.maxID,
		essential: f.essential,
		opts:      f.opts,
		logger:    f.logger,
	}
	for id, node := range f.objects {
		out.objects[id] = node
	}
	for class, ids := range f.classes {
		out.classes[class] = append([]string(nil), ids...)
	}
	return out
}

func copyEdges(edges map[string]idSet) map[string]idSet {
	out := make(map[string]idSet, len(edges))
	for id, set := range edges {
		dup := make(idSet, len(set))
		for other := range set {
			dup[other] = struct{}{}
		}
		out[id] = dup
	}
	return out
}

func sortedSet(set idSet) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
