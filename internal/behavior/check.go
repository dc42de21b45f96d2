package behavior

import (
	"fmt"
	"sort"

	"github.com/hkxedit/hkxedit/internal/tree"
)

// Problem is one finding of Check.
type Problem struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Check looks for inconsistencies a save would not repair: broken reference
// indexes, linked indices pointing at missing or deleted entries, and objects
// whose params drift from their class template.
func (f *File) Check() []Problem {
	var problems []Problem
	if err := f.VerifyRefs(); err != nil {
		problems = append(problems, Problem{Message: err.Error()})
	}

	for _, kind := range []Kind{KindVariable, KindEvent, KindProperty} {
		table, _ := f.Table(kind)
		f.visit(kind, func(object string, _ tree.NodeID, value int) bool {
			if value < 0 {
				return true
			}
			if _, ok := table.Entry(value); !ok {
				problems = append(problems, Problem{
					ID:      object,
					Message: fmt.Sprintf("%s index %d does not name a live entry", kind, value),
				})
			}
			return true
		})
	}

	for _, id := range f.Objects() {
		class, ok := f.Templates().Lookup(f.Class(id))
		if !ok {
			continue
		}
		node, _ := f.Object(id)
		for _, msg := range class.Validate(f.Document(), node) {
			problems = append(problems, Problem{ID: id, Message: msg})
		}
	}

	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].ID < problems[j].ID
	})
	return problems
}
