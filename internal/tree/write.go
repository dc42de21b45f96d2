package tree

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// WriteTo serializes the document with tab indentation. Text and attribute
// values are written in their raw spelling; only characters that would break
// well-formedness are escaped.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	if d.decl != "" {
		cw.WriteString(d.decl)
		cw.WriteString("\n")
	}
	if d.Valid(d.root) {
		d.writeNode(cw, d.root, 0)
	}
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}

// Bytes returns the serialized document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.Bytes()
}

// Render serializes the subtree rooted at id without a declaration.
func (d *Document) Render(id NodeID) string {
	var buf bytes.Buffer
	cw := &countingWriter{w: bufio.NewWriter(&buf)}
	if d.Valid(id) {
		d.writeNode(cw, id, 0)
	}
	_ = cw.w.Flush()
	return buf.String()
}

func (d *Document) writeNode(w *countingWriter, id NodeID, depth int) {
	n := &d.nodes[id]
	indent := strings.Repeat("\t", depth)
	w.WriteString(indent)
	w.WriteString("<")
	w.WriteString(n.tag)
	for _, attr := range n.attrs {
		w.WriteString(" ")
		w.WriteString(attr.Name)
		w.WriteString(`="`)
		w.WriteString(attrEscaper.Replace(attr.Value))
		w.WriteString(`"`)
	}
	w.WriteString(">")
	w.WriteString(textEscaper.Replace(n.text))
	if len(n.children) > 0 {
		w.WriteString("\n")
		for _, child := range n.children {
			d.writeNode(w, child, depth+1)
		}
		w.WriteString(indent)
	}
	w.WriteString("</")
	w.WriteString(n.tag)
	w.WriteString(">\n")
}

var (
	textEscaper = strings.NewReplacer("<", "&lt;")
	attrEscaper = strings.NewReplacer("<", "&lt;", `"`, "&quot;")
)

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) WriteString(s string) {
	if c.err != nil {
		return
	}
	n, err := c.w.WriteString(s)
	c.n += int64(n)
	c.err = err
}
