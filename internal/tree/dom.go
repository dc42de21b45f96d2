// Package tree is the attributed element tree behind every hkx document.
//
// Nodes live in an arena owned by a Document and are addressed by NodeID.
// Handles stay valid for the lifetime of the document: removing a node only
// detaches it and marks its subtree dead, so indexes holding NodeIDs never
// need pointer fix-ups.
package tree

import (
	"strconv"
	"strings"
)

// NodeID identifies a node in the document arena.
type NodeID int

// InvalidNode represents an invalid node reference.
const InvalidNode NodeID = -1

// Attr is one element attribute. Values are kept in their raw on-disk spelling.
type Attr struct {
	Name  string
	Value string
}

// Document is an arena of element nodes.
type Document struct {
	nodes []node
	root  NodeID
	decl  string
}

type node struct {
	tag      string
	attrs    []Attr
	children []NodeID
	text     string
	parent   NodeID
	dead     bool
}

// New returns an empty document without a root element.
func New() *Document {
	return &Document{root: InvalidNode}
}

// Root returns the document element.
func (d *Document) Root() NodeID {
	if d == nil {
		return InvalidNode
	}
	return d.root
}

// Declaration returns the raw XML declaration, if the source had one.
func (d *Document) Declaration() string {
	return d.decl
}

// Valid reports whether id refers to a live node.
func (d *Document) Valid(id NodeID) bool {
	return d != nil && id >= 0 && int(id) < len(d.nodes) && !d.nodes[id].dead
}

// Len returns the number of arena slots, live or dead.
func (d *Document) Len() int {
	return len(d.nodes)
}

// NewElement allocates a detached element.
func (d *Document) NewElement(tag string, attrs ...Attr) NodeID {
	id := NodeID(len(d.nodes))
	d.nodes = append(d.nodes, node{
		tag:    tag,
		attrs:  append([]Attr(nil), attrs...),
		parent: InvalidNode,
	})
	return id
}

func (d *Document) Tag(id NodeID) string {
	if !d.Valid(id) {
		return ""
	}
	return d.nodes[id].tag
}

func (d *Document) Parent(id NodeID) NodeID {
	if !d.Valid(id) {
		return InvalidNode
	}
	return d.nodes[id].parent
}

// Children returns a read-only view of the element children.
// The returned slice aliases the arena; do not modify or retain it across mutations.
func (d *Document) Children(id NodeID) []NodeID {
	if !d.Valid(id) {
		return nil
	}
	return d.nodes[id].children
}

// Attrs returns a copy of the attributes of id in source order.
func (d *Document) Attrs(id NodeID) []Attr {
	if !d.Valid(id) {
		return nil
	}
	return append([]Attr(nil), d.nodes[id].attrs...)
}

// Attr returns the raw value of attribute name, or "" when absent.
func (d *Document) Attr(id NodeID, name string) string {
	value, _ := d.LookupAttr(id, name)
	return value
}

// LookupAttr returns the attribute value and whether it is present.
func (d *Document) LookupAttr(id NodeID, name string) (string, bool) {
	if !d.Valid(id) {
		return "", false
	}
	for _, attr := range d.nodes[id].attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// SetAttr sets or appends an attribute.
func (d *Document) SetAttr(id NodeID, name, value string) {
	if !d.Valid(id) {
		return
	}
	n := &d.nodes[id]
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Name: name, Value: value})
}

// Text returns the raw text content directly under id.
func (d *Document) Text(id NodeID) string {
	if !d.Valid(id) {
		return ""
	}
	return d.nodes[id].text
}

// SetText replaces the raw text content of id.
func (d *Document) SetText(id NodeID, text string) {
	if !d.Valid(id) {
		return
	}
	d.nodes[id].text = text
}

// Int parses the trimmed text of id as a base-10 integer.
func (d *Document) Int(id NodeID) (int, error) {
	return strconv.Atoi(strings.TrimSpace(d.Text(id)))
}

func (d *Document) SetInt(id NodeID, value int) {
	d.SetText(id, strconv.Itoa(value))
}

// AppendChild attaches a detached node as the last child of parent.
func (d *Document) AppendChild(parent, child NodeID) {
	if !d.Valid(parent) || !d.Valid(child) {
		return
	}
	if old := d.nodes[child].parent; old != InvalidNode {
		d.detach(old, child)
	}
	d.nodes[parent].children = append(d.nodes[parent].children, child)
	d.nodes[child].parent = parent
}

// Remove detaches id from its parent and kills its whole subtree.
func (d *Document) Remove(id NodeID) {
	if !d.Valid(id) {
		return
	}
	if parent := d.nodes[id].parent; parent != InvalidNode {
		d.detach(parent, id)
	}
	if d.root == id {
		d.root = InvalidNode
	}
	d.kill(id)
}

func (d *Document) detach(parent, child NodeID) {
	children := d.nodes[parent].children
	for i, c := range children {
		if c == child {
			d.nodes[parent].children = append(children[:i:i], children[i+1:]...)
			break
		}
	}
	d.nodes[child].parent = InvalidNode
}

func (d *Document) kill(id NodeID) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, d.nodes[current].children...)
		d.nodes[current].dead = true
		d.nodes[current].children = nil
	}
}

// Walk visits id and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func (d *Document) Walk(id NodeID, fn func(NodeID) bool) {
	if !d.Valid(id) {
		return
	}
	stack := []NodeID{id}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(current) {
			continue
		}
		children := d.nodes[current].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Clone returns a deep copy sharing no state with d. NodeIDs are preserved.
func (d *Document) Clone() *Document {
	out := &Document{
		nodes: make([]node, len(d.nodes)),
		root:  d.root,
		decl:  d.decl,
	}
	for i, n := range d.nodes {
		n.attrs = append([]Attr(nil), n.attrs...)
		n.children = append([]NodeID(nil), n.children...)
		out.nodes[i] = n
	}
	return out
}
