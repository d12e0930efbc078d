package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RecordJSONSchema returns the JSON Schema of a complete, alias keyed record:
// every field required, no extra keys, strings non-empty, sets as unique
// string arrays.
func RecordJSONSchema() map[string]any {
	props := make(map[string]any, len(canonical))
	required := make([]string, 0, len(canonical))
	for _, d := range canonical {
		props[d.Alias] = propertyFor(d, false)
		required = append(required, d.Alias)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// ReducedJSONSchema returns a name keyed schema restricted to the given
// fields, with descriptions for the model. Nothing is required: the model
// omits what it cannot find. The second result lists the fields kept, in
// form order; it is empty when no name is a canonical field.
func ReducedJSONSchema(names []string) (map[string]any, []FieldDefinition) {
	defs := Select(names)
	props := make(map[string]any, len(defs))
	for _, d := range defs {
		props[d.Name] = propertyFor(d, true)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}, defs
}

func propertyFor(d FieldDefinition, describe bool) map[string]any {
	var p map[string]any
	if d.Kind == KindStringSet {
		p = map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string", "minLength": 1},
			"uniqueItems": true,
		}
	} else {
		p = map[string]any{"type": "string", "minLength": 1}
	}
	if describe {
		p["title"] = d.Alias
		if d.Hint != "" {
			p["description"] = d.Hint
		}
	}
	return p
}

// ValidateJSON validates data against schemaMap.
func ValidateJSON(schemaMap map[string]any, data []byte) error {
	sch, err := compile(schemaMap)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

func compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	sch, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

// ValidateRecord checks the alias keyed JSON form of a record against
// RecordJSONSchema.
func ValidateRecord(data []byte) error {
	recordSchemaOnce.Do(func() {
		recordSchema, recordSchemaErr = compile(RecordJSONSchema())
	})
	if recordSchemaErr != nil {
		return recordSchemaErr
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if err := recordSchema.Validate(v); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}
