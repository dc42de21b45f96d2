// Package templates holds the default-value fragments used to materialize new
// objects, keyed by class name.
package templates

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hkxedit/hkxedit/internal/tree"
)

// Class is what the editor knows about one instantiable class.
type Class interface {
	// Name returns the class name, e.g. "hkbStateMachine".
	Name() string

	// Signature returns the class signature attribute, e.g. "0x816c1dcb".
	Signature() string

	// DefaultValue returns a complete hkobject fragment with the given ID.
	DefaultValue(id string) string

	// Validate lists params of object that disagree with the template.
	Validate(doc *tree.Document, object tree.NodeID) []string
}

// Registry holds all registered classes
type Registry struct {
	mu      sync.RWMutex
	classes map[string]Class
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]Class)}
}

// NewDefaultRegistry returns a registry with every built-in class.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range builtin {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a class
func (r *Registry) Register(c Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[c.Name()] = c
}

// Lookup returns the class registered under name.
func (r *Registry) Lookup(name string) (Class, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// Classes returns the registered class names, sorted.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type fileEntry struct {
	Class     string `yaml:"class"`
	Signature string `yaml:"signature"`
	Body      string `yaml:"body"`
}

type templateFile struct {
	Templates []fileEntry `yaml:"templates"`
}

// LoadFile registers the templates listed in a YAML file and returns how
// many were added. Entries override built-ins with the same class name.
func (r *Registry) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read templates %s: %w", path, err)
	}
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse templates %s: %w", path, err)
	}

	loaded := make([]Class, 0, len(file.Templates))
	for i, entry := range file.Templates {
		if strings.TrimSpace(entry.Class) == "" {
			return 0, fmt.Errorf("%s: template %d has no class", path, i)
		}
		c := NewFragmentClass(entry.Class, entry.Signature, entry.Body)
		if _, err := tree.ParseBytes([]byte(c.DefaultValue("#0000"))); err != nil {
			return 0, fmt.Errorf("%s: template %s is malformed: %w", path, entry.Class, err)
		}
		loaded = append(loaded, c)
	}
	for _, c := range loaded {
		r.Register(c)
	}
	return len(loaded), nil
}
