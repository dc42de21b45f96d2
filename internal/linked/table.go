// Package linked manages index-addressed tables whose entries are spread over
// parallel container nodes of an hkx document.
//
// An entry is the tuple of children found at the same position in every
// container (for variables: name, info and word value). Entries are referenced
// elsewhere in the document only by their integer index, so deletion is a
// tombstone and the index space is compacted explicitly by Reindex.
package linked

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hkxedit/hkxedit/internal/logging"
	"github.com/hkxedit/hkxedit/internal/tree"
)

var (
	// ErrNoEntry is returned for unknown or already deleted indices.
	ErrNoEntry = errors.New("no such entry")
	// ErrEntryInUse is wrapped by InUseError.
	ErrEntryInUse = errors.New("entry is still referenced")
	// ErrInconsistent reports containers whose sizes disagree.
	ErrInconsistent = errors.New("inconsistent linked containers")
)

// InUseError refuses a delete and names one object still using the entry.
type InUseError struct {
	Table   string
	Index   int
	Blocker string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s entry %d is referenced by %s", e.Table, e.Index, e.Blocker)
}

func (e *InUseError) Unwrap() error {
	return ErrEntryInUse
}

// UsageCheck reports an object still referencing index idx, if any.
type UsageCheck func(idx int) (blocker string, inUse bool)

// Entry is one row of a table. Nodes holds one node per container, in
// container order.
type Entry struct {
	Index int
	Valid bool
	Nodes []tree.NodeID
}

// Table is a generic linked property table.
type Table struct {
	doc        *tree.Document
	name       string
	containers []tree.NodeID
	defaults   []string
	entries    []*Entry
	usage      UsageCheck
	logger     *slog.Logger
}

// NewTable builds the entry list from containers. defaults holds the fragment
// appended to each container when a new entry is added.
func NewTable(doc *tree.Document, name string, containers []tree.NodeID, defaults []string, logger *slog.Logger) (*Table, error) {
	if len(containers) == 0 || len(containers) != len(defaults) {
		return nil, fmt.Errorf("%s: need one default per container, got %d containers and %d defaults", name, len(containers), len(defaults))
	}
	t := &Table{
		doc:        doc,
		name:       name,
		containers: append([]tree.NodeID(nil), containers...),
		defaults:   append([]string(nil), defaults...),
		logger:     logging.OrDiscard(logger),
	}
	if err := t.build(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) build() error {
	count := -1
	for i, container := range t.containers {
		if !t.doc.Valid(container) {
			return fmt.Errorf("%s: container %d is missing: %w", t.name, i, ErrInconsistent)
		}
		declared, ok := t.doc.NumElements(container)
		if !ok {
			return fmt.Errorf("%s: container %q has no numelements: %w", t.name, t.doc.Attr(container, "name"), ErrInconsistent)
		}
		if actual := len(t.doc.Children(container)); actual != declared {
			return fmt.Errorf("%s: container %q declares %d elements but has %d: %w",
				t.name, t.doc.Attr(container, "name"), declared, actual, ErrInconsistent)
		}
		if count >= 0 && declared != count {
			return fmt.Errorf("%s: container %q has %d elements, want %d: %w",
				t.name, t.doc.Attr(container, "name"), declared, count, ErrInconsistent)
		}
		count = declared
	}

	t.entries = make([]*Entry, 0, count)
	for pos := 0; pos < count; pos++ {
		nodes := make([]tree.NodeID, len(t.containers))
		for i, container := range t.containers {
			nodes[i] = t.doc.NthChild(container, pos)
		}
		t.entries = append(t.entries, &Entry{Index: pos, Valid: true, Nodes: nodes})
	}
	t.logger.Debug("linked table built", "table", t.name, "entries", count)
	return nil
}

// TableName returns the name used in errors and logs.
func (t *Table) TableName() string {
	return t.name
}

// SetUsageCheck installs the check consulted by Delete.
func (t *Table) SetUsageCheck(check UsageCheck) {
	t.usage = check
}

// Add appends a default fragment to every container and returns the new entry.
func (t *Table) Add() (*Entry, error) {
	nodes := make([]tree.NodeID, 0, len(t.containers))
	for i, container := range t.containers {
		id, err := t.doc.AppendFragment(container, t.defaults[i])
		if err != nil {
			t.rollback(nodes)
			return nil, fmt.Errorf("failed to add %s entry: %w", t.name, err)
		}
		nodes = append(nodes, id)
	}
	entry := &Entry{Index: len(t.entries), Valid: true, Nodes: nodes}
	t.entries = append(t.entries, entry)
	return entry, nil
}

func (t *Table) rollback(nodes []tree.NodeID) {
	for i, id := range nodes {
		t.doc.Remove(id)
		if count, ok := t.doc.NumElements(t.containers[i]); ok {
			t.doc.SetNumElements(t.containers[i], count-1)
		}
	}
}

// Entry returns the live entry at idx.
func (t *Table) Entry(idx int) (*Entry, bool) {
	if idx < 0 || idx >= len(t.entries) {
		return nil, false
	}
	entry := t.entries[idx]
	if !entry.Valid {
		return nil, false
	}
	return entry, true
}

// EntryByName finds a live entry by case-insensitive name.
func (t *Table) EntryByName(name string) (*Entry, bool) {
	for _, entry := range t.entries {
		if entry.Valid && strings.EqualFold(t.nameOf(entry), name) {
			return entry, true
		}
	}
	return nil, false
}

// Delete tombstones the entry at idx. The tree is not touched until Reindex.
func (t *Table) Delete(idx int) error {
	entry, ok := t.Entry(idx)
	if !ok {
		return fmt.Errorf("%s entry %d: %w", t.name, idx, ErrNoEntry)
	}
	if t.usage != nil {
		if blocker, inUse := t.usage(idx); inUse {
			t.logger.Warn("refusing to delete referenced entry", "table", t.name, "index", idx, "id", blocker)
			return &InUseError{Table: t.name, Index: idx, Blocker: blocker}
		}
	}
	entry.Valid = false
	return nil
}

// Reindex drops tombstoned entries from the tree and renumbers the rest.
// The returned map holds old->new for every surviving entry.
func (t *Table) Reindex() map[int]int {
	remap := make(map[int]int, len(t.entries))
	kept := t.entries[:0]
	for _, entry := range t.entries {
		if !entry.Valid {
			for _, id := range entry.Nodes {
				t.doc.Remove(id)
			}
			continue
		}
		remap[entry.Index] = len(kept)
		entry.Index = len(kept)
		kept = append(kept, entry)
	}
	for i := len(kept); i < len(t.entries); i++ {
		t.entries[i] = nil
	}
	t.entries = kept
	for _, container := range t.containers {
		t.doc.SetNumElements(container, len(kept))
	}
	return remap
}

// Len is the number of entries including tombstones; it is the index the
// next Add will receive.
func (t *Table) Len() int {
	return len(t.entries)
}

// Live counts entries that are not tombstoned.
func (t *Table) Live() int {
	live := 0
	for _, entry := range t.entries {
		if entry.Valid {
			live++
		}
	}
	return live
}

// Entries returns every entry, tombstones included, in index order.
func (t *Table) Entries() []*Entry {
	return append([]*Entry(nil), t.entries...)
}

// Names returns the names of all live entries in index order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for _, entry := range t.entries {
		if entry.Valid {
			names = append(names, t.nameOf(entry))
		}
	}
	return names
}

// Name returns the name of the live entry at idx.
func (t *Table) Name(idx int) (string, bool) {
	entry, ok := t.Entry(idx)
	if !ok {
		return "", false
	}
	return t.nameOf(entry), true
}

func (t *Table) SetName(idx int, name string) error {
	entry, ok := t.Entry(idx)
	if !ok {
		return fmt.Errorf("%s entry %d: %w", t.name, idx, ErrNoEntry)
	}
	t.doc.SetText(entry.Nodes[0], name)
	return nil
}

// Document returns the document the table lives in.
func (t *Table) Document() *tree.Document {
	return t.doc
}

// Clone returns a copy of the table bound to doc, which must be a clone of
// the original document.
func (t *Table) Clone(doc *tree.Document) *Table {
	out := &Table{
		doc:        doc,
		name:       t.name,
		containers: append([]tree.NodeID(nil), t.containers...),
		defaults:   append([]string(nil), t.defaults...),
		logger:     t.logger,
		entries:    make([]*Entry, len(t.entries)),
	}
	for i, entry := range t.entries {
		out.entries[i] = &Entry{
			Index: entry.Index,
			Valid: entry.Valid,
			Nodes: append([]tree.NodeID(nil), entry.Nodes...),
		}
	}
	return out
}

// facet returns the node of facet i for the live entry at idx.
func (t *Table) facet(idx, i int) (tree.NodeID, error) {
	entry, ok := t.Entry(idx)
	if !ok {
		return tree.InvalidNode, fmt.Errorf("%s entry %d: %w", t.name, idx, ErrNoEntry)
	}
	return entry.Nodes[i], nil
}

func (t *Table) nameOf(entry *Entry) string {
	return strings.TrimSpace(t.doc.Text(entry.Nodes[0]))
}
