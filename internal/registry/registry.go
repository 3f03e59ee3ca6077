// Package registry provides a global registry for roadblock variant
// factories. Variants register themselves in init() functions, allowing
// callers to instantiate roadblocks by name without hardcoded
// dependencies.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vovakirdan/cordon/internal/roadblock"
)

// VariantInfo contains metadata about a registered variant.
type VariantInfo struct {
	Name        string
	Description string
}

// Factory is a function that builds a roadblock for a deployment.
type Factory func(deps roadblock.Deps, p roadblock.Params) (*roadblock.Roadblock, error)

var (
	factories    = make(map[string]Factory)
	descriptions = make(map[string]string)
	mu           sync.RWMutex
)

// Register adds a variant factory to the registry.
// Typically called from an init() function.
// Panics if a variant with the same name is already registered.
func Register(name, description string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("registry: variant %q already registered", name))
	}

	factories[name] = f
	descriptions[name] = description
}

// List returns information about all registered variants, sorted by name.
func List() []VariantInfo {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]VariantInfo, 0, len(factories))
	for name := range factories {
		result = append(result, VariantInfo{
			Name:        name,
			Description: descriptions[name],
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Create builds a roadblock using the named variant.
// Returns an error if the variant is not registered.
func Create(name string, deps roadblock.Deps, p roadblock.Params) (*roadblock.Roadblock, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("registry: unknown variant %q", name)
	}
	return f(deps, p)
}

// Exists checks if a variant with the given name is registered.
func Exists(name string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := factories[name]
	return ok
}

func init() {
	Register("standard", "blocks every lane of the road, no target tracking", roadblock.NewStandard)
	Register("pursuit", "blocks lanes ahead of a pursued vehicle, monitors crew and spike strips", roadblock.NewPursuit)
}
