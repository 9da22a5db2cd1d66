package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildSchema returns the JSON-Schema (draft 2020-12 subset) for the
// output record as a generic map. Every response is validated against
// it before leaving the service.
func BuildSchema() map[string]any {
	party := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":    map[string]any{"type": "string"},
			"address": map[string]any{"type": "string"},
			"city":    map[string]any{"type": "string"},
			"country": map[string]any{"type": "string"},
			"contact": map[string]any{"type": "string"},
		},
		"additionalProperties": false,
	}
	port := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":    map[string]any{"type": "string"},
			"code":    map[string]any{"type": "string"},
			"country": map[string]any{"type": "string"},
		},
		"additionalProperties": false,
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"bl_number":         map[string]any{"type": "string"},
			"booking_number":    map[string]any{"type": "string"},
			"shipper":           party,
			"consignee":         party,
			"notify_party":      party,
			"carrier":           party,
			"port_of_loading":   port,
			"port_of_discharge": port,
			"port_of_delivery":  port,
			"transport_details": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"vessel_name":    map[string]any{"type": "string"},
					"voyage_number":  map[string]any{"type": "string"},
					"booking_number": map[string]any{"type": "string"},
					"bl_number":      map[string]any{"type": "string"},
					"departure_date": map[string]any{"type": "string"},
					"arrival_date":   map[string]any{"type": "string"},
				},
				"additionalProperties": false,
			},
			"cargo": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"description":   map[string]any{"type": "string"},
						"quantity":      map[string]any{"type": "string"},
						"weight":        map[string]any{"type": "string"},
						"volume":        map[string]any{"type": "string"},
						"package_type":  map[string]any{"type": "string"},
						"marks_numbers": map[string]any{"type": "string"},
					},
					"additionalProperties": false,
				},
			},
			"containers": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"number":      map[string]any{"type": "string"},
						"size":        map[string]any{"type": "string"},
						"type":        map[string]any{"type": "string"},
						"seal_number": map[string]any{"type": "string"},
					},
					"additionalProperties": false,
				},
			},
			"freight_terms":  map[string]any{"type": "string"},
			"payment_terms":  map[string]any{"type": "string"},
			"delivery_terms": map[string]any{"type": "string"},
			"issue_date":     map[string]any{"type": "string"},
			"issue_place":    map[string]any{"type": "string"},
			"raw_text":       map[string]any{"type": "string"},
			"extraction_confidence": map[string]any{
				"type": "number", "minimum": 0.0, "maximum": 1.0,
			},
			"extraction_method": map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []string{"extraction_confidence", "extraction_method"},
		"additionalProperties": false,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// Validate marshals the record and checks it against the fixed schema.
func Validate(rec BillOfLading) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return ValidateJSONAgainstSchema(BuildSchema(), b)
}
