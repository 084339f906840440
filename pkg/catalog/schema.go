package catalog

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ArgumentSchema returns the JSON schema document for the positional
// argument array of d: a fixed-length tuple of typed items.
func ArgumentSchema(d ToolDescriptor) map[string]interface{} {
	items := make([]interface{}, 0, len(d.Params))
	for _, p := range d.Params {
		item := map[string]interface{}{"type": string(p.Type)}
		if p.Description != "" {
			item["description"] = p.Description
		}
		items = append(items, item)
	}

	return map[string]interface{}{
		"type":            "array",
		"items":           items,
		"additionalItems": false,
		"minItems":        len(d.Params),
		"maxItems":        len(d.Params),
	}
}

func compileSchema(d ToolDescriptor) (*gojsonschema.Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(ArgumentSchema(d)))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", d.Name, err)
	}
	return schema, nil
}
