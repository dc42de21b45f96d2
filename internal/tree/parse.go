package tree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrEmptyDocument is returned when the input holds no root element.
var ErrEmptyDocument = errors.New("no root element")

// Parse reads a whole document from r.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// ParseBytes builds a document from XML bytes.
//
// Entity and character references are not interpreted. Every '&' is escaped
// before tokenizing so the decoder hands back the original spelling, which
// keeps load/save round-trips byte-stable for text and attribute values.
func ParseBytes(data []byte) (*Document, error) {
	d := New()
	root, err := d.parseInto(data, true)
	if err != nil {
		return nil, err
	}
	d.root = root
	return d, nil
}

func (d *Document) parseInto(data []byte, document bool) (NodeID, error) {
	raw := bytes.ReplaceAll(data, []byte("&"), []byte("&amp;"))
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.Strict = true
	decoder.CharsetReader = charset.NewReaderLabel

	var stack []NodeID
	root := InvalidNode
	rootClosed := false
	fail := func(err error) (NodeID, error) {
		line, column := decoder.InputPos()
		if root != InvalidNode {
			d.Remove(root)
		}
		return InvalidNode, fmt.Errorf("line %d column %d: %w", line, column, err)
	}

	for {
		tok, err := decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if rootClosed {
				return fail(fmt.Errorf("unexpected element %s after document end", qualified(t.Name)))
			}
			attrs := make([]Attr, 0, len(t.Attr))
			for _, a := range t.Attr {
				attrs = append(attrs, Attr{Name: qualified(a.Name), Value: a.Value})
			}
			id := d.NewElement(qualified(t.Name), attrs...)
			if len(stack) > 0 {
				d.AppendChild(stack[len(stack)-1], id)
			} else {
				root = id
			}
			stack = append(stack, id)

		case xml.EndElement:
			if len(stack) == 0 {
				return fail(fmt.Errorf("unexpected end element %s", qualified(t.Name)))
			}
			top := stack[len(stack)-1]
			if d.nodes[top].tag != qualified(t.Name) {
				return fail(fmt.Errorf("element <%s> closed by </%s>", d.nodes[top].tag, qualified(t.Name)))
			}
			if len(d.nodes[top].children) > 0 && strings.TrimSpace(d.nodes[top].text) == "" {
				d.nodes[top].text = ""
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				rootClosed = true
			}

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return fail(errors.New("character data outside root element"))
				}
				continue
			}
			top := stack[len(stack)-1]
			d.nodes[top].text += string(t)

		case xml.ProcInst:
			if document && t.Target == "xml" && root == InvalidNode {
				d.decl = "<?xml " + string(t.Inst) + "?>"
			}
		}
	}

	if len(stack) > 0 {
		return fail(io.ErrUnexpectedEOF)
	}
	if root == InvalidNode {
		return InvalidNode, ErrEmptyDocument
	}
	return root, nil
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}
