package stage

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownStage is returned when a name has no registered constructor.
var ErrUnknownStage = errors.New("unknown stage")

var registry = map[string]func() Stage{}

// Register makes a stage constructor available under name. Stages
// register from init; a duplicate name is a programming error and
// panics.
func Register(name string, fn func() Stage) {
	if _, dup := registry[name]; dup {
		panic("stage: duplicate registration for " + name)
	}
	registry[name] = fn
}

// New builds a fresh, unconfigured stage by registry name.
func New(name string) (Stage, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	return fn(), nil
}

// Names returns all registered stage names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
