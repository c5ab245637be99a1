// Package processor implements the document transformations a pipeline
// applies to each log record.
package processor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/crimson-sun/timber/internal/doc"
)

// ErrDrop is returned by a processor to discard the current document.
var ErrDrop = errors.New("processor: document dropped")

// Processor transforms a document in place.
type Processor interface {
	Process(d *doc.Doc) error
}

// Func adapts a plain function to the Processor interface.
type Func func(d *doc.Doc) error

func (f Func) Process(d *doc.Doc) error { return f(d) }

// Factory builds a processor from its configuration.
type Factory func(cfg Config) (Processor, error)

var registry = map[string]Factory{}

// Register adds a processor factory under the given type name.
func Register(name string, f Factory) {
	registry[name] = f
}

// Get returns the factory for the given type name.
func Get(name string) (Factory, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor type: %s", name)
	}
	return f, nil
}

// Types returns the names of all registered processor types, sorted.
func Types() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
