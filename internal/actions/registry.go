// File: internal/actions/registry.go

// Package actions holds the static action vocabulary the engine registers
// with the agent backend: the desktop actions forwarded to the automation
// server and the engine actions served locally from cached state.
package actions

import (
	"github.com/xkilldash9x/neurodesk/api/schemas"
)

// Kind separates actions by where they execute.
type Kind string

const (
	// KindDesktop actions are forwarded to the automation server and hold
	// the action gate while in flight.
	KindDesktop Kind = "desktop"

	// KindEngine actions are answered locally from the pagination cache or
	// the coordinator and never touch the gate.
	KindEngine Kind = "engine"
)

// Definition is one registered action: its wire schema plus routing kind.
type Definition struct {
	Name        string
	Description string
	Schema      map[string]interface{}
	Kind        Kind
}

// Wire converts the definition to its registration payload form.
func (d Definition) Wire() schemas.ActionDefinition {
	return schemas.ActionDefinition{
		Name:        d.Name,
		Description: d.Description,
		Schema:      d.Schema,
	}
}

// Registry is the fixed action vocabulary. Built once at startup; lookups
// are read-only afterwards.
type Registry struct {
	defs   []Definition
	byName map[string]Definition
}

// NewRegistry builds the vocabulary. Screen dimensions bound the coordinate
// parameters of click and move so the backend rejects off-screen targets
// before they ever reach the automation server.
func NewRegistry(screenWidth, screenHeight int) *Registry {
	defs := []Definition{
		{
			Name:        "click",
			Description: "Move the mouse to the provided coordinates, then click. Clicks at the current mouse position when no coordinates are given.",
			Kind:        KindDesktop,
			Schema: objectSchema(map[string]interface{}{
				"x":      boundedInt(0, screenWidth-1),
				"y":      boundedInt(0, screenHeight-1),
				"button": buttonEnum(),
			}, "button"),
		},
		{
			Name:        "move",
			Description: "Move the mouse to the given screen coordinates",
			Kind:        KindDesktop,
			Schema: objectSchema(map[string]interface{}{
				"x": boundedInt(0, screenWidth-1),
				"y": boundedInt(0, screenHeight-1),
			}, "x", "y"),
		},
		{
			Name:        "dragto",
			Description: "Drag from current mouse position to specified coordinates",
			Kind:        KindDesktop,
			Schema: objectSchema(map[string]interface{}{
				"x":        map[string]interface{}{"type": "integer"},
				"y":        map[string]interface{}{"type": "integer"},
				"duration": map[string]interface{}{"type": "number", "minimum": 0},
				"button":   buttonEnum(),
			}, "x", "y"),
		},
		{
			Name:        "dragrel",
			Description: "Drag by relative offset from current mouse position",
			Kind:        KindDesktop,
			Schema: objectSchema(map[string]interface{}{
				"dx":       map[string]interface{}{"type": "integer"},
				"dy":       map[string]interface{}{"type": "integer"},
				"duration": map[string]interface{}{"type": "number", "minimum": 0},
				"button":   buttonEnum(),
			}, "dx", "dy"),
		},
		{
			Name:        "press",
			Description: "Press a key",
			Kind:        KindDesktop,
			Schema: objectSchema(map[string]interface{}{
				"key": map[string]interface{}{"type": "string"},
			}, "key"),
		},
		{
			Name:        "keydown",
			Description: "Hold a key down",
			Kind:        KindDesktop,
			Schema: objectSchema(map[string]interface{}{
				"key": map[string]interface{}{"type": "string"},
			}, "key"),
		},
		{
			Name:        "keyup",
			Description: "Release a key that was previously pressed down",
			Kind:        KindDesktop,
			Schema: objectSchema(map[string]interface{}{
				"key": map[string]interface{}{"type": "string"},
			}, "key"),
		},
		{
			Name:        "hotkey",
			Description: "Press a combination of keys simultaneously (like keyboard shortcuts)",
			Kind:        KindDesktop,
			Schema: objectSchema(map[string]interface{}{
				"keys": map[string]interface{}{
					"type":     "array",
					"items":    map[string]interface{}{"type": "string"},
					"minItems": 1,
				},
			}, "keys"),
		},
		{
			Name:        "screenshot",
			Description: "Take a screenshot of the screen or a specific region",
			Kind:        KindDesktop,
			Schema: objectSchema(map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
				"region": map[string]interface{}{
					"type":     "array",
					"items":    map[string]interface{}{"type": "integer"},
					"minItems": 4,
					"maxItems": 4,
				},
			}),
		},
		{
			Name:        "get_more_text",
			Description: "Request more detected text items from the screen. Use this when the context shows '... and X more items'. Parameters: offset (int, skip N items), limit (int, max items 1-100, default 50), filter_type (string: all/buttons/links/text/inputs, default all).",
			Kind:        KindEngine,
			Schema: objectSchema(map[string]interface{}{
				"offset": map[string]interface{}{"type": "integer", "minimum": 0},
				"limit":  map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 100},
				"filter_type": map[string]interface{}{
					"type": "string",
					"enum": []string{"all", "buttons", "links", "text", "inputs"},
				},
			}),
		},
		{
			Name:        "get_more_windows",
			Description: "Request complete list of all visible windows. Use this when the context shows '... and X more windows'. Parameters: offset (int, skip N windows), limit (int, max 1-50, default 20), include_minimized (bool, default false).",
			Kind:        KindEngine,
			Schema: objectSchema(map[string]interface{}{
				"offset":            map[string]interface{}{"type": "integer", "minimum": 0},
				"limit":             map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 50},
				"include_minimized": map[string]interface{}{"type": "boolean"},
			}),
		},
		{
			Name:        "refresh_context",
			Description: "Request an immediate context refresh with custom detail level. Use this when you need updated information or want more/less detail. Parameters: detail_level (string: minimal/standard/detailed/full, default standard), include_ocr (bool, default true), include_vision (bool, default false), max_items_per_category (int 5-500, default 15).",
			Kind:        KindEngine,
			Schema: objectSchema(map[string]interface{}{
				"detail_level": map[string]interface{}{
					"type": "string",
					"enum": []string{"minimal", "standard", "detailed", "full"},
				},
				"include_ocr":            map[string]interface{}{"type": "boolean"},
				"include_vision":         map[string]interface{}{"type": "boolean"},
				"max_items_per_category": map[string]interface{}{"type": "integer", "minimum": 5, "maximum": 500},
			}),
		},
	}

	byName := make(map[string]Definition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	return &Registry{defs: defs, byName: byName}
}

// All returns the definitions in registration order.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns the action names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.Name
	}
	return out
}

// Wire returns the registration payload for the backend handshake.
func (r *Registry) Wire() []schemas.ActionDefinition {
	out := make([]schemas.ActionDefinition, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.Wire()
	}
	return out
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	} else {
		schema["required"] = []string{}
	}
	return schema
}

func boundedInt(min, max int) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "minimum": min, "maximum": max}
}

func buttonEnum() map[string]interface{} {
	return map[string]interface{}{
		"type": "string",
		"enum": []string{"left", "right", "middle"},
	}
}
