package hkx

import (
	"fmt"
	"slices"
)

// AddObject instantiates class from its default template under the next free
// ID and returns that ID.
func (f *File) AddObject(class string) (string, error) {
	tmpl, ok := f.opts.Templates.Lookup(class)
	if !ok {
		f.logger.Warn("cannot add object", "class", class, "error", ErrUnsupportedClass)
		return "", fmt.Errorf("%s: %w", class, ErrUnsupportedClass)
	}
	id, ok := f.nextID()
	if !ok {
		f.logger.Warn("cannot add object", "class", class, "error", ErrCapacity)
		return "", ErrCapacity
	}

	node, err := f.doc.AppendFragment(f.section, tmpl.DefaultValue(id))
	if err != nil {
		return "", fmt.Errorf("template for %s: %w", class, err)
	}
	f.register(id, class, node)
	if n, _ := ParseID(id); n > f.maxID {
		f.maxID = n
	}
	f.logger.Debug("added object", "id", id, "class", class)
	f.NotifyChanged()
	return id, nil
}

// nextID returns max+1, or the lowest free number once the top of the range
// has been used.
func (f *File) nextID() (string, bool) {
	if len(f.objects) >= MaxObjects {
		return "", false
	}
	if f.maxID+1 <= MaxObjects {
		return FormatID(f.maxID + 1), true
	}
	for n := 1; n <= MaxObjects; n++ {
		id := FormatID(n)
		if _, used := f.objects[id]; !used {
			return id, true
		}
	}
	return "", false
}

// DeleteObject removes an unreferenced, non-essential object and every edge
// touching it.
func (f *File) DeleteObject(id string) error {
	node, ok := f.objects[id]
	if !ok {
		f.logger.Warn("cannot delete object", "id", id, "error", ErrNoObject)
		return fmt.Errorf("%s: %w", id, ErrNoObject)
	}
	if f.IsEssential(id) {
		f.logger.Warn("cannot delete object", "id", id, "error", ErrEssential)
		return fmt.Errorf("%s: %w", id, ErrEssential)
	}
	if parents := f.ReferencedBy(id); len(parents) > 0 {
		f.logger.Warn("cannot delete referenced object", "id", id, "blocker", parents[0])
		return &IntegrityError{ID: id, Blocker: parents[0]}
	}

	class := f.doc.Attr(node, "class")
	f.doc.Remove(node)
	delete(f.objects, id)
	ids := slices.DeleteFunc(f.classes[class], func(other string) bool { return other == id })
	if len(ids) == 0 {
		delete(f.classes, class)
	} else {
		f.classes[class] = ids
	}
	f.dropEdges(id)
	delete(f.forward, id)
	delete(f.reverse, id)
	if n, _ := ParseID(id); n == f.maxID {
		f.recomputeMaxID()
	}
	f.logger.Debug("deleted object", "id", id, "class", class)
	f.NotifyChanged()
	return nil
}

func (f *File) recomputeMaxID() {
	f.maxID = -1
	for id := range f.objects {
		if n, ok := ParseID(id); ok && n > f.maxID {
			f.maxID = n
		}
	}
}

// SetParam replaces the text of a top-level param of id and refreshes the
// edges leaving id.
func (f *File) SetParam(id, name, value string) error {
	param := f.Param(id, name)
	if !f.doc.Valid(param) {
		if _, ok := f.objects[id]; !ok {
			return fmt.Errorf("%s: %w", id, ErrNoObject)
		}
		return fmt.Errorf("%s has no param %q", id, name)
	}
	if len(f.doc.Children(param)) > 0 {
		return fmt.Errorf("%s param %q is not a leaf", id, name)
	}
	f.doc.SetText(param, value)
	if err := f.RefreshOutgoing(id); err != nil {
		return err
	}
	f.NotifyChanged()
	return nil
}
