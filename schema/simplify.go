// Package schema turns the backend's run configuration schema into a flat
// set of renderable fields and derives default values from it.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidSchema is returned when the raw schema cannot be simplified.
var ErrInvalidSchema = errors.New("invalid config schema")

// maxRefDepth bounds $ref resolution so recursive definitions terminate.
const maxRefDepth = 16

// Field is a simplified, renderable schema property.
type Field struct {
	Type        string      `json:"type" yaml:"type"`
	Title       string      `json:"title,omitempty" yaml:"title,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string    `json:"enum,omitempty" yaml:"enum,omitempty"`
	Items       *Field      `json:"items,omitempty" yaml:"items,omitempty"`
	Default     interface{} `json:"default,omitempty" yaml:"default,omitempty"`
	// HasDefault separates an explicit "default": null from no default.
	HasDefault bool `json:"-" yaml:"-"`
}

// Schema is the simplified configuration schema: the fields under
// properties.configurable.properties.
type Schema struct {
	Fields map[string]Field `json:"fields"`
}

// Names returns the field names in sorted order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// node is the subset of JSON schema the simplifier understands.
type node struct {
	Type        interface{}      `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Enum        []interface{}    `json:"enum"`
	Items       *node            `json:"items"`
	AllOf       []*node          `json:"allOf"`
	AnyOf       []*node          `json:"anyOf"`
	Ref         string           `json:"$ref"`
	Default     json.RawMessage  `json:"default"`
	Properties  map[string]*node `json:"properties"`
	Definitions map[string]*node `json:"definitions"`
	Defs        map[string]*node `json:"$defs"`
}

type resolver struct {
	defs map[string]*node
}

// Simplify parses a raw JSON schema and flattens its configurable properties.
func Simplify(raw []byte) (*Schema, error) {
	var root node
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	r := &resolver{defs: make(map[string]*node)}
	for name, def := range root.Definitions {
		r.defs["#/definitions/"+name] = def
	}
	for name, def := range root.Defs {
		r.defs["#/$defs/"+name] = def
	}

	out := &Schema{Fields: make(map[string]Field)}
	configurable, ok := root.Properties["configurable"]
	if !ok || configurable == nil {
		return out, nil
	}
	configurable, err := r.resolve(configurable, 0)
	if err != nil {
		return nil, err
	}
	for name, prop := range configurable.Properties {
		field, err := r.field(prop, 0)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		out.Fields[name] = field
	}
	return out, nil
}

// resolve follows $ref and merges single-entry allOf wrappers, keeping the
// outer node's title, description and default where set.
func (r *resolver) resolve(n *node, depth int) (*node, error) {
	if n == nil {
		return &node{}, nil
	}
	if depth > maxRefDepth {
		return nil, fmt.Errorf("%w: reference depth exceeded", ErrInvalidSchema)
	}

	var target *node
	switch {
	case n.Ref != "":
		def, ok := r.defs[n.Ref]
		if !ok {
			return nil, fmt.Errorf("%w: unknown reference %s", ErrInvalidSchema, n.Ref)
		}
		target = def
	case len(n.AllOf) == 1:
		target = n.AllOf[0]
	default:
		return n, nil
	}

	inner, err := r.resolve(target, depth+1)
	if err != nil {
		return nil, err
	}
	merged := *inner
	if n.Title != "" {
		merged.Title = n.Title
	}
	if n.Description != "" {
		merged.Description = n.Description
	}
	if len(n.Default) > 0 {
		merged.Default = n.Default
	}
	return &merged, nil
}

func (r *resolver) field(n *node, depth int) (Field, error) {
	resolved, err := r.resolve(n, depth)
	if err != nil {
		return Field{}, err
	}

	f := Field{
		Type:        r.typeOf(resolved, depth),
		Title:       resolved.Title,
		Description: resolved.Description,
	}
	for _, v := range resolved.Enum {
		f.Enum = append(f.Enum, fmt.Sprint(v))
	}
	if f.Type == "" && len(f.Enum) > 0 {
		f.Type = "string"
	}
	if resolved.Items != nil {
		items, err := r.field(resolved.Items, depth+1)
		if err != nil {
			return Field{}, err
		}
		f.Items = &items
	}
	if len(resolved.Default) > 0 {
		var v interface{}
		if err := json.Unmarshal(resolved.Default, &v); err != nil {
			return Field{}, fmt.Errorf("%w: default: %v", ErrInvalidSchema, err)
		}
		f.Default = v
		f.HasDefault = true
	}
	return f, nil
}

// typeOf returns the JSON type of a node. Type lists and anyOf unions yield
// their first non-null member.
func (r *resolver) typeOf(n *node, depth int) string {
	switch t := n.Type.(type) {
	case string:
		return t
	case []interface{}:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return s
			}
		}
	}
	for _, alt := range n.AnyOf {
		resolved, err := r.resolve(alt, depth+1)
		if err != nil {
			continue
		}
		if typ := r.typeOf(resolved, depth+1); typ != "" && typ != "null" {
			return typ
		}
	}
	if len(n.Properties) > 0 {
		return "object"
	}
	return ""
}

// String renders the schema as "name: type" lines, mostly for logs.
func (s *Schema) String() string {
	var b strings.Builder
	for _, name := range s.Names() {
		fmt.Fprintf(&b, "%s: %s\n", name, s.Fields[name].Type)
	}
	return b.String()
}
