package linked

import (
	"log/slog"

	"github.com/hkxedit/hkxedit/internal/tree"
)

const (
	defaultEventName = `<hkcstring></hkcstring>`
	defaultEventInfo = `<hkobject><hkparam name="flags">0</hkparam></hkobject>`
)

// EventManager is the animation event table: eventNames in the string data
// object and eventInfos in the graph data object.
type EventManager struct {
	*Table
}

// NewEventManager builds the event table from its two containers.
func NewEventManager(doc *tree.Document, names, infos tree.NodeID, logger *slog.Logger) (*EventManager, error) {
	table, err := NewTable(doc, "events",
		[]tree.NodeID{names, infos},
		[]string{defaultEventName, defaultEventInfo},
		logger)
	if err != nil {
		return nil, err
	}
	return &EventManager{Table: table}, nil
}

// AddEvent appends an event and returns its index.
func (m *EventManager) AddEvent(name string) (int, error) {
	entry, err := m.Add()
	if err != nil {
		return -1, err
	}
	m.doc.SetText(entry.Nodes[0], name)
	return entry.Index, nil
}

// Flags returns the raw flags text of event idx.
func (m *EventManager) Flags(idx int) (string, error) {
	info, err := m.facet(idx, 1)
	if err != nil {
		return "", err
	}
	return m.doc.ParamText(info, "flags"), nil
}

func (m *EventManager) Clone(doc *tree.Document) *EventManager {
	return &EventManager{Table: m.Table.Clone(doc)}
}
