package strategies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/simcore/engine"
)

// Params are the numeric knobs a strategy accepts from config or CLI.
type Params map[string]float64

// Factory builds a strategy from params.
type Factory func(p Params) (engine.Strategy, error)

var registry = make(map[string]Factory)

// Register adds a strategy factory under name.
func Register(name string, f Factory) {
	registry[strings.ToLower(name)] = f
}

// Names lists registered strategies, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName builds the named strategy.
func ByName(name string, p Params) (engine.Strategy, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (have: %s)", name, strings.Join(Names(), ", "))
	}
	return f(p)
}

func (p Params) get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}
