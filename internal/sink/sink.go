// Package sink provides the output destinations records are written to.
package sink

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// Sink is the interface for output sinks (stdout, disk, s3, etc).
type Sink interface {
	// Open starts a new output object. name is a hint; sinks that have a
	// single destination ignore it.
	Open(ctx context.Context, name string) (SinkWriter, error)
}

// SinkWriter receives the bytes of one output object. Close commits it.
type SinkWriter interface {
	io.WriteCloser
}

// Factory builds a sink from its options.
type Factory func(opts map[string]interface{}) (Sink, error)

var registry = make(map[string]Factory)

func Register(name string, f Factory) {
	registry[name] = f
}

func ForName(name string) (Factory, bool) {
	f, ok := registry[name]
	return f, ok
}

// New builds the named sink.
func New(name string, opts map[string]interface{}) (Sink, error) {
	f, ok := ForName(name)
	if !ok {
		return nil, fmt.Errorf("sink not found: %s", name)
	}
	if opts == nil {
		opts = map[string]interface{}{}
	}
	return f(opts)
}

// Registered lists the registered sink names, sorted.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Helper to support bool/int/bool-string conversion
func toBool(val interface{}) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v == "1" || v == "true" || v == "on"
	default:
		return false
	}
}

func stringOpt(opts map[string]interface{}, key string) string {
	s, _ := opts[key].(string)
	return s
}
