package search

import (
	"fmt"
	"html"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ObjectEnv is the environment a filter expression is evaluated against.
//
//	class == "hkbClipGenerator" && len(refby) > 1
//	name startsWith "Run"
//	len(refby) == 0 && !essential
//	params["animationName"] contains "Idle"
type ObjectEnv struct {
	ID        string            `expr:"id"`
	Class     string            `expr:"class"`
	Name      string            `expr:"name"`
	Refs      []string          `expr:"refs"`
	RefBy     []string          `expr:"refby"`
	Essential bool              `expr:"essential"`
	Params    map[string]string `expr:"params"`
}

// Filter is a compiled object predicate.
type Filter struct {
	source  string
	program *vm.Program
}

// Compile parses a boolean filter expression.
func Compile(source string) (*Filter, error) {
	program, err := expr.Compile(source, expr.Env(ObjectEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", source, err)
	}
	return &Filter{source: source, program: program}, nil
}

func (f *Filter) String() string {
	return f.source
}

// Match reports whether object id satisfies the filter.
func (f *Filter) Match(g Graph, id string) (bool, error) {
	out, err := expr.Run(f.program, Env(g, id))
	if err != nil {
		return false, fmt.Errorf("filter %q on %s: %w", f.source, id, err)
	}
	return out.(bool), nil
}

// Select returns the objects of g matching the filter, sorted.
func (f *Filter) Select(g Graph) ([]string, error) {
	var out []string
	for _, id := range g.Objects() {
		ok, err := f.Match(g, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Env builds the filter environment of object id.
func Env(g Graph, id string) ObjectEnv {
	env := ObjectEnv{
		ID:        id,
		Class:     g.Class(id),
		Name:      nameOf(g, id),
		Refs:      g.References(id),
		RefBy:     g.ReferencedBy(id),
		Essential: g.IsEssential(id),
		Params:    make(map[string]string),
	}
	node, ok := g.Object(id)
	if !ok {
		return env
	}
	doc := g.Document()
	for _, param := range doc.Children(node) {
		if len(doc.Children(param)) > 0 {
			continue
		}
		env.Params[doc.Attr(param, "name")] = html.UnescapeString(strings.TrimSpace(doc.Text(param)))
	}
	return env
}

// Select compiles source and applies it to g.
func Select(g Graph, source string) ([]string, error) {
	f, err := Compile(source)
	if err != nil {
		return nil, err
	}
	return f.Select(g)
}
