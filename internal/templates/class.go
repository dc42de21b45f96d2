package templates

import (
	"fmt"
	"sync"

	"github.com/hkxedit/hkxedit/internal/tree"
)

// FragmentClass is a Class backed by a literal hkparam body.
type FragmentClass struct {
	name      string
	signature string
	body      string

	once   sync.Once
	params []string
}

func NewFragmentClass(name, signature, body string) *FragmentClass {
	return &FragmentClass{name: name, signature: signature, body: body}
}

func (c *FragmentClass) Name() string      { return c.name }
func (c *FragmentClass) Signature() string { return c.signature }

func (c *FragmentClass) DefaultValue(id string) string {
	return fmt.Sprintf(`<hkobject name="%s" class="%s" signature="%s">%s</hkobject>`, id, c.name, c.signature, c.body)
}

// Params returns the top-level param names of the template in order.
func (c *FragmentClass) Params() []string {
	c.once.Do(func() {
		doc, err := tree.ParseBytes([]byte(c.DefaultValue("#0000")))
		if err != nil {
			return
		}
		for _, child := range doc.Children(doc.Root()) {
			c.params = append(c.params, doc.Attr(child, "name"))
		}
	})
	return c.params
}

// Validate reports params that are missing from object or unknown to the
// template, plus a class mismatch.
func (c *FragmentClass) Validate(doc *tree.Document, object tree.NodeID) []string {
	var problems []string
	if class := doc.Attr(object, "class"); class != c.name {
		problems = append(problems, fmt.Sprintf("class is %q, want %q", class, c.name))
	}
	known := make(map[string]bool, len(c.Params()))
	for _, name := range c.Params() {
		known[name] = true
		if doc.GetByName(object, name) == tree.InvalidNode {
			problems = append(problems, fmt.Sprintf("missing param %q", name))
		}
	}
	for _, child := range doc.Children(object) {
		if name := doc.Attr(child, "name"); !known[name] {
			problems = append(problems, fmt.Sprintf("unexpected param %q", name))
		}
	}
	return problems
}
