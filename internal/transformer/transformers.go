// Package transformer serializes extracted records for a sink.
package transformer

import (
	"fmt"
	"sort"

	"github.com/chtzvt/rekorslurp/internal/extractor"
)

type Transformer interface {
	Transform(rec *extractor.Record) ([]byte, error)

	// Header returns any leading bytes (e.g., header row, opening bracket, etc).
	// Should return nil/empty if not needed.
	Header() ([]byte, error)

	// Footer returns any trailing bytes (e.g., closing bracket, sentinel value, etc).
	// Should return nil/empty if not needed.
	Footer() ([]byte, error)

	// Extension is the file extension used when naming sink objects.
	Extension() string
}

// Factory builds a transformer from its options.
type Factory func(opts map[string]interface{}) (Transformer, error)

var registry = make(map[string]Factory)

func Register(name string, f Factory) {
	registry[name] = f
}

func ForName(name string, opts map[string]interface{}) (Transformer, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("transformer not found: %s", name)
	}
	return f(opts)
}

// Registered lists the registered transformer names, sorted.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
