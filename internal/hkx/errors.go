package hkx

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed marks structural problems found while loading.
	ErrMalformed = errors.New("malformed hkx file")
	// ErrDuplicateID is returned when two objects share a name.
	ErrDuplicateID = errors.New("duplicate object id")
	// ErrNoObject is returned for IDs that are not in the file.
	ErrNoObject = errors.New("no such object")
	// ErrEssential refuses to delete a structural object.
	ErrEssential = errors.New("object is essential")
	// ErrReferenced is wrapped by IntegrityError.
	ErrReferenced = errors.New("object is still referenced")
	// ErrCapacity is returned once the ID space is exhausted.
	ErrCapacity = errors.New("object id space exhausted")
	// ErrUnsupportedClass is returned for classes without a default template.
	ErrUnsupportedClass = errors.New("unsupported class")
)

// IntegrityError refuses a delete and names one object referencing the target.
type IntegrityError struct {
	ID      string
	Blocker string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s is referenced by %s", e.ID, e.Blocker)
}

func (e *IntegrityError) Unwrap() error {
	return ErrReferenced
}
