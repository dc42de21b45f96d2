package linked

import (
	"fmt"
	"log/slog"

	"github.com/hkxedit/hkxedit/internal/tree"
)

const defaultPropertyName = `<hkcstring></hkcstring>`

func propertyInfo(typ VariableType) string {
	return `<hkobject><hkparam name="role"><hkobject><hkparam name="role">ROLE_DEFAULT</hkparam>` +
		`<hkparam name="flags">0</hkparam></hkobject></hkparam>` +
		`<hkparam name="type">` + string(typ) + `</hkparam></hkobject>`
}

// PropertyManager is the character property table: characterPropertyNames in
// the string data object and characterPropertyInfos in the graph data object.
type PropertyManager struct {
	*Table
}

// NewPropertyManager builds the property table from its two containers.
func NewPropertyManager(doc *tree.Document, names, infos tree.NodeID, logger *slog.Logger) (*PropertyManager, error) {
	table, err := NewTable(doc, "properties",
		[]tree.NodeID{names, infos},
		[]string{defaultPropertyName, propertyInfo(TypeBool)},
		logger)
	if err != nil {
		return nil, err
	}
	return &PropertyManager{Table: table}, nil
}

// AddProperty appends a character property of the given type.
func (m *PropertyManager) AddProperty(name string, typ VariableType) (int, error) {
	if !typ.Known() {
		return -1, fmt.Errorf("property %q: %w: %s", name, ErrUnknownType, typ)
	}
	entry, err := m.Add()
	if err != nil {
		return -1, err
	}
	m.doc.SetText(entry.Nodes[0], name)
	m.doc.SetText(m.doc.GetByName(entry.Nodes[1], "type"), string(typ))
	return entry.Index, nil
}

// Type returns the declared type of property idx.
func (m *PropertyManager) Type(idx int) (VariableType, error) {
	info, err := m.facet(idx, 1)
	if err != nil {
		return "", err
	}
	return VariableType(m.doc.ParamText(info, "type")), nil
}

func (m *PropertyManager) Clone(doc *tree.Document) *PropertyManager {
	return &PropertyManager{Table: m.Table.Clone(doc)}
}
