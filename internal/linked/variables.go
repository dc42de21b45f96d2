package linked

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hkxedit/hkxedit/internal/tree"
)

// VariableType is the declared type of a behavior variable or character property.
type VariableType string

const (
	TypeBool       VariableType = "VARIABLE_TYPE_BOOL"
	TypeInt8       VariableType = "VARIABLE_TYPE_INT8"
	TypeInt16      VariableType = "VARIABLE_TYPE_INT16"
	TypeInt32      VariableType = "VARIABLE_TYPE_INT32"
	TypeReal       VariableType = "VARIABLE_TYPE_REAL"
	TypePointer    VariableType = "VARIABLE_TYPE_POINTER"
	TypeVector3    VariableType = "VARIABLE_TYPE_VECTOR3"
	TypeVector4    VariableType = "VARIABLE_TYPE_VECTOR4"
	TypeQuaternion VariableType = "VARIABLE_TYPE_QUATERNION"
)

// VariableTypes lists every supported type.
var VariableTypes = []VariableType{
	TypeBool, TypeInt8, TypeInt16, TypeInt32, TypeReal,
	TypePointer, TypeVector3, TypeVector4, TypeQuaternion,
}

var (
	ErrUnknownType = errors.New("unknown variable type")
	ErrWrongType   = errors.New("variable has the wrong type")
)

func (t VariableType) Known() bool {
	for _, known := range VariableTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsQuad reports whether values of t live in the quad side table.
func (t VariableType) IsQuad() bool {
	return t == TypeVector3 || t == TypeVector4 || t == TypeQuaternion
}

// ParseVariableType accepts either the full constant or its suffix ("real").
func ParseVariableType(value string) (VariableType, error) {
	upper := strings.ToUpper(strings.TrimSpace(value))
	if !strings.HasPrefix(upper, "VARIABLE_TYPE_") {
		upper = "VARIABLE_TYPE_" + upper
	}
	typ := VariableType(upper)
	if !typ.Known() {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, value)
	}
	return typ, nil
}

const (
	defaultVariableName  = `<hkcstring></hkcstring>`
	defaultVariableValue = `<hkobject><hkparam name="value">0</hkparam></hkobject>`
	nullPointer          = "null"
)

// Quad is one packed float-4 value.
type Quad [4]float32

// quadSlot keeps the on-disk spelling of a quad next to its value so that
// rewriting the side table leaves untouched slots byte-identical.
type quadSlot struct {
	value Quad
	text  string
}

// VariableNodes locates the containers backing the variable table.
type VariableNodes struct {
	Names    tree.NodeID // variableNames in the string data object
	Infos    tree.NodeID // variableInfos in the graph data object
	Values   tree.NodeID // wordVariableValues in the value set
	Quads    tree.NodeID // quadVariableValues in the value set
	Pointers tree.NodeID // variantVariableValues in the value set
}

// VariableManager is the behavior variable table with its two side tables.
// Pointer and vector variables store a slot index in their word value.
type VariableManager struct {
	*Table
	quadNode    tree.NodeID
	pointerNode tree.NodeID
	quads       []quadSlot
	pointers    []string
}

// NewVariableManager builds the variable table and parses both side tables.
func NewVariableManager(doc *tree.Document, nodes VariableNodes, logger *slog.Logger) (*VariableManager, error) {
	table, err := NewTable(doc, "variables",
		[]tree.NodeID{nodes.Names, nodes.Infos, nodes.Values},
		[]string{defaultVariableName, propertyInfo(TypeBool), defaultVariableValue},
		logger)
	if err != nil {
		return nil, err
	}
	m := &VariableManager{Table: table, quadNode: nodes.Quads, pointerNode: nodes.Pointers}
	if m.quads, err = parseQuads(doc, nodes.Quads); err != nil {
		return nil, fmt.Errorf("variables: %w", err)
	}
	if m.pointers, err = parsePointers(doc, nodes.Pointers); err != nil {
		return nil, fmt.Errorf("variables: %w", err)
	}
	return m, nil
}

func parseQuads(doc *tree.Document, node tree.NodeID) ([]quadSlot, error) {
	declared, ok := doc.NumElements(node)
	if !doc.Valid(node) || !ok {
		return nil, fmt.Errorf("quadVariableValues has no numelements: %w", ErrInconsistent)
	}
	fields := strings.Fields(strings.NewReplacer("(", " ", ")", " ").Replace(doc.Text(node)))
	if len(fields) != declared*4 {
		return nil, fmt.Errorf("quadVariableValues declares %d quads but holds %d numbers: %w", declared, len(fields), ErrInconsistent)
	}
	quads := make([]quadSlot, declared)
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return nil, fmt.Errorf("quadVariableValues: bad number %q: %w", field, err)
		}
		quads[i/4].value[i%4] = float32(v)
	}
	for i := range quads {
		quads[i].text = "(" + strings.Join(fields[i*4:i*4+4], " ") + ")"
	}
	return quads, nil
}

func parsePointers(doc *tree.Document, node tree.NodeID) ([]string, error) {
	declared, ok := doc.NumElements(node)
	if !doc.Valid(node) || !ok {
		return nil, fmt.Errorf("variantVariableValues has no numelements: %w", ErrInconsistent)
	}
	pointers := doc.Fields(node)
	if len(pointers) != declared {
		return nil, fmt.Errorf("variantVariableValues declares %d values but holds %d: %w", declared, len(pointers), ErrInconsistent)
	}
	return pointers, nil
}

func formatQuad(q Quad) string {
	parts := make([]string, 4)
	for i, v := range q {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func newQuadSlot(q Quad) quadSlot {
	return quadSlot{value: q, text: formatQuad(q)}
}

func (m *VariableManager) writeQuads() {
	parts := make([]string, len(m.quads))
	for i, q := range m.quads {
		parts[i] = q.text
	}
	m.doc.SetText(m.quadNode, strings.Join(parts, " "))
	m.doc.SetNumElements(m.quadNode, len(m.quads))
}

func (m *VariableManager) writePointers() {
	m.doc.SetText(m.pointerNode, strings.Join(m.pointers, " "))
	m.doc.SetNumElements(m.pointerNode, len(m.pointers))
}

// AddVariable appends a variable of type typ and returns its index. Pointer
// and vector types get a fresh side-table slot.
func (m *VariableManager) AddVariable(name string, typ VariableType) (int, error) {
	if !typ.Known() {
		return -1, fmt.Errorf("variable %q: %w: %s", name, ErrUnknownType, typ)
	}
	entry, err := m.Add()
	if err != nil {
		return -1, err
	}
	m.doc.SetText(entry.Nodes[0], name)
	m.doc.SetText(m.doc.GetByName(entry.Nodes[1], "type"), string(typ))

	slot := 0
	switch {
	case typ == TypePointer:
		slot = len(m.pointers)
		m.pointers = append(m.pointers, nullPointer)
		m.writePointers()
	case typ.IsQuad():
		var q Quad
		if typ == TypeQuaternion {
			q[3] = 1
		}
		slot = len(m.quads)
		m.quads = append(m.quads, newQuadSlot(q))
		m.writeQuads()
	}
	m.doc.SetInt(m.valueNode(entry), slot)
	return entry.Index, nil
}

func (m *VariableManager) valueNode(entry *Entry) tree.NodeID {
	return m.doc.GetByName(entry.Nodes[2], "value")
}

func (m *VariableManager) entryType(entry *Entry) VariableType {
	return VariableType(m.doc.ParamText(entry.Nodes[1], "type"))
}

// Type returns the declared type of variable idx.
func (m *VariableManager) Type(idx int) (VariableType, error) {
	entry, ok := m.Entry(idx)
	if !ok {
		return "", fmt.Errorf("variables entry %d: %w", idx, ErrNoEntry)
	}
	return m.entryType(entry), nil
}

// Value returns the word value of variable idx. For pointer and vector
// variables this is the side-table slot.
func (m *VariableManager) Value(idx int) (int, error) {
	entry, ok := m.Entry(idx)
	if !ok {
		return 0, fmt.Errorf("variables entry %d: %w", idx, ErrNoEntry)
	}
	return m.doc.Int(m.valueNode(entry))
}

// SetValue sets the word value of a scalar variable.
func (m *VariableManager) SetValue(idx, value int) error {
	entry, ok := m.Entry(idx)
	if !ok {
		return fmt.Errorf("variables entry %d: %w", idx, ErrNoEntry)
	}
	if typ := m.entryType(entry); typ == TypePointer || typ.IsQuad() {
		return fmt.Errorf("variable %d is %s: %w", idx, typ, ErrWrongType)
	}
	m.doc.SetInt(m.valueNode(entry), value)
	return nil
}

func (m *VariableManager) slot(idx int, quad bool) (int, error) {
	entry, ok := m.Entry(idx)
	if !ok {
		return 0, fmt.Errorf("variables entry %d: %w", idx, ErrNoEntry)
	}
	typ := m.entryType(entry)
	if quad && !typ.IsQuad() || !quad && typ != TypePointer {
		return 0, fmt.Errorf("variable %d is %s: %w", idx, typ, ErrWrongType)
	}
	slot, err := m.doc.Int(m.valueNode(entry))
	if err != nil {
		return 0, fmt.Errorf("variable %d: bad slot: %w", idx, err)
	}
	size := len(m.pointers)
	if quad {
		size = len(m.quads)
	}
	if slot < 0 || slot >= size {
		return 0, fmt.Errorf("variable %d: slot %d out of range [0,%d): %w", idx, slot, size, ErrInconsistent)
	}
	return slot, nil
}

func (m *VariableManager) Quad(idx int) (Quad, error) {
	slot, err := m.slot(idx, true)
	if err != nil {
		return Quad{}, err
	}
	return m.quads[slot].value, nil
}

func (m *VariableManager) SetQuad(idx int, q Quad) error {
	slot, err := m.slot(idx, true)
	if err != nil {
		return err
	}
	if m.quads[slot].value == q {
		return nil
	}
	m.quads[slot] = newQuadSlot(q)
	m.writeQuads()
	return nil
}

// Pointer returns the object ID (or "null") held by pointer variable idx.
func (m *VariableManager) Pointer(idx int) (string, error) {
	slot, err := m.slot(idx, false)
	if err != nil {
		return "", err
	}
	return m.pointers[slot], nil
}

func (m *VariableManager) SetPointer(idx int, target string) error {
	target = strings.TrimSpace(target)
	if target == "" || strings.ContainsAny(target, " \t\r\n") {
		return fmt.Errorf("variable %d: invalid pointer %q", idx, target)
	}
	slot, err := m.slot(idx, false)
	if err != nil {
		return err
	}
	m.pointers[slot] = target
	m.writePointers()
	return nil
}

// Quads returns a copy of the quad side table.
func (m *VariableManager) Quads() []Quad {
	out := make([]Quad, len(m.quads))
	for i, q := range m.quads {
		out[i] = q.value
	}
	return out
}

// Pointers returns a copy of the pointer side table.
func (m *VariableManager) Pointers() []string {
	return append([]string(nil), m.pointers...)
}

// Reindex compacts the entry table and then both side tables. Only the entry
// remap is returned; slot indices are rewritten in place.
func (m *VariableManager) Reindex() map[int]int {
	remap := m.Table.Reindex()

	quadUsers := make(map[int][]*Entry)
	pointerUsers := make(map[int][]*Entry)
	for _, entry := range m.entries {
		typ := m.entryType(entry)
		if typ != TypePointer && !typ.IsQuad() {
			continue
		}
		slot, err := m.doc.Int(m.valueNode(entry))
		if err != nil {
			m.logger.Warn("variable has unreadable slot", "index", entry.Index, "error", err)
			continue
		}
		if typ == TypePointer {
			pointerUsers[slot] = append(pointerUsers[slot], entry)
		} else {
			quadUsers[slot] = append(quadUsers[slot], entry)
		}
	}

	if quads, changed := compact(m, m.quads, quadUsers); changed {
		m.quads = quads
		m.writeQuads()
	}
	if pointers, changed := compact(m, m.pointers, pointerUsers); changed {
		m.pointers = pointers
		m.writePointers()
	}
	return remap
}

// compact keeps the slots that have users, in their original order, and
// points every user at the slot's new position.
func compact[T any](m *VariableManager, slots []T, users map[int][]*Entry) ([]T, bool) {
	kept := make([]T, 0, len(slots))
	changed := false
	for slot, value := range slots {
		entries := users[slot]
		if len(entries) == 0 {
			changed = true
			continue
		}
		next := len(kept)
		if next != slot {
			changed = true
			for _, entry := range entries {
				m.doc.SetInt(m.valueNode(entry), next)
			}
		}
		kept = append(kept, value)
	}
	for slot := range users {
		if slot < 0 || slot >= len(slots) {
			m.logger.Warn("variable points past its side table", "slot", slot, "size", len(slots))
		}
	}
	return kept, changed
}

func (m *VariableManager) Clone(doc *tree.Document) *VariableManager {
	return &VariableManager{
		Table:       m.Table.Clone(doc),
		quadNode:    m.quadNode,
		pointerNode: m.pointerNode,
		quads:       append([]quadSlot(nil), m.quads...),
		pointers:    append([]string(nil), m.pointers...),
	}
}
