package catalog

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type entry struct {
	desc   ToolDescriptor
	schema *gojsonschema.Schema
}

// Catalog is a read-only registry of tool descriptors. It is safe for
// concurrent use because nothing mutates it after New returns.
type Catalog struct {
	order   []string
	entries map[string]entry
}

// New builds a catalog from descriptors, preserving their order.
func New(tools ...ToolDescriptor) (*Catalog, error) {
	c := &Catalog{
		order:   make([]string, 0, len(tools)),
		entries: make(map[string]entry, len(tools)),
	}

	for _, t := range tools {
		name := CanonicalName(t.Name)
		if name == "" {
			return nil, fmt.Errorf("tool name is required")
		}
		if _, exists := c.entries[name]; exists {
			return nil, fmt.Errorf("tool %s already registered", name)
		}
		if t.Reliability != Reliable && t.Reliability != Unreliable {
			return nil, fmt.Errorf("tool %s: invalid reliability %q", name, t.Reliability)
		}
		if t.Op == 0 {
			return nil, fmt.Errorf("tool %s: op is required", name)
		}

		d := t.clone()
		d.Name = name
		schema, err := compileSchema(d)
		if err != nil {
			return nil, err
		}

		c.order = append(c.order, name)
		c.entries[name] = entry{desc: d, schema: schema}
	}

	return c, nil
}

// Default returns a catalog of the builtin arithmetic tools.
func Default() *Catalog {
	c, err := New(Builtins()...)
	if err != nil {
		panic(fmt.Sprintf("catalog: builtin tools invalid: %v", err))
	}
	return c
}

// ListNames returns tool names in registration order.
func (c *Catalog) ListNames() []string {
	return append([]string(nil), c.order...)
}

// Describe returns the descriptor for name.
func (c *Catalog) Describe(name string) (ToolDescriptor, error) {
	e, ok := c.entries[CanonicalName(name)]
	if !ok {
		return ToolDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return e.desc.clone(), nil
}

// Schema returns the compiled argument schema for name.
func (c *Catalog) Schema(name string) (*gojsonschema.Schema, error) {
	e, ok := c.entries[CanonicalName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return e.schema, nil
}

// Len returns the number of registered tools.
func (c *Catalog) Len() int {
	return len(c.order)
}
