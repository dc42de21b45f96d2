package tree

import (
	"fmt"
	"strconv"
	"strings"
)

// NumElementsAttr is the array-size attribute carried by list-valued params.
const NumElementsAttr = "numelements"

// AppendFragment parses a standalone XML fragment and appends a copy of it as
// the last child of container, bumping the container's numelements counter
// when it has one. A malformed fragment leaves container untouched.
func (d *Document) AppendFragment(container NodeID, fragment string) (NodeID, error) {
	if !d.Valid(container) {
		return InvalidNode, fmt.Errorf("invalid container node %d", container)
	}
	id, err := d.parseInto([]byte(fragment), false)
	if err != nil {
		return InvalidNode, fmt.Errorf("malformed fragment: %w", err)
	}
	d.AppendChild(container, id)
	if count, ok := d.NumElements(container); ok {
		d.SetNumElements(container, count+1)
	}
	return id, nil
}

// GetByName returns the first child whose name attribute equals name.
func (d *Document) GetByName(id NodeID, name string) NodeID {
	for _, child := range d.Children(id) {
		if d.Attr(child, "name") == name {
			return child
		}
	}
	return InvalidNode
}

// FirstChildByTag returns the first child element with the given tag.
func (d *Document) FirstChildByTag(id NodeID, tag string) NodeID {
	for _, child := range d.Children(id) {
		if d.nodes[child].tag == tag {
			return child
		}
	}
	return InvalidNode
}

// NthChild returns the 0-based nth element child of id.
func (d *Document) NthChild(id NodeID, n int) NodeID {
	children := d.Children(id)
	if n < 0 || n >= len(children) {
		return InvalidNode
	}
	return children[n]
}

// Fields splits the text of id on whitespace.
func (d *Document) Fields(id NodeID) []string {
	return strings.Fields(d.Text(id))
}

// Field returns the 0-based nth whitespace-separated token of the text of id.
func (d *Document) Field(id NodeID, n int) (string, bool) {
	fields := d.Fields(id)
	if n < 0 || n >= len(fields) {
		return "", false
	}
	return fields[n], true
}

// NumElements reads the numelements attribute of id.
func (d *Document) NumElements(id NodeID) (int, bool) {
	raw, ok := d.LookupAttr(id, NumElementsAttr)
	if !ok {
		return 0, false
	}
	count, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return count, true
}

func (d *Document) SetNumElements(id NodeID, count int) {
	d.SetAttr(id, NumElementsAttr, strconv.Itoa(count))
}

// ParamText returns the text of the named child param of id, or "" when absent.
func (d *Document) ParamText(id NodeID, name string) string {
	return strings.TrimSpace(d.Text(d.GetByName(id, name)))
}
