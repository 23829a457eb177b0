// ABOUTME: Reflects typed tool argument structs into MCP input schemas
// ABOUTME: Also checks decoded arguments against the schema's required list

package tools

import (
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
)

// InputSchema is the JSON schema advertised for a tool's arguments.
type InputSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]SchemaProperty `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// SchemaProperty describes one argument.
type SchemaProperty struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// reflectInputSchema builds the schema for argument type A. Only fields
// tagged jsonschema:"required" are required.
func reflectInputSchema[A any]() InputSchema {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(new(A))

	schema := InputSchema{Type: "object", Properties: map[string]SchemaProperty{}}
	if s == nil || s.Properties == nil {
		return schema
	}
	for el := s.Properties.Oldest(); el != nil; el = el.Next() {
		schema.Properties[el.Key] = toProperty(el.Value)
	}
	if len(s.Required) > 0 {
		schema.Required = append([]string(nil), s.Required...)
	}
	return schema
}

func toProperty(s *jsonschema.Schema) SchemaProperty {
	if s == nil {
		return SchemaProperty{}
	}
	p := SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
		Default:     s.Default,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	return p
}

// missingRequired returns the first required field of args that is absent
// or zero. A zero id is never a valid Pipedrive identifier.
func missingRequired(args any, required []string) string {
	if len(required) == 0 {
		return ""
	}

	v := reflect.ValueOf(args)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return required[0]
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return ""
	}

	fields := make(map[string]reflect.Value, v.NumField())
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			fields[name] = v.Field(i)
		}
	}

	for _, name := range required {
		f, ok := fields[name]
		if !ok {
			continue
		}
		for f.Kind() == reflect.Pointer {
			if f.IsNil() {
				return name
			}
			f = f.Elem()
		}
		if f.IsZero() {
			return name
		}
	}
	return ""
}
