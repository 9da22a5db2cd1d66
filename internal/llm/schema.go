package llm

// BuildFieldsJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// the flat model output as a generic map. The model is told to use null
// for fields it cannot find, so every property is nullable.
func BuildFieldsJSONSchema() map[string]any {
	nullableString := map[string]any{"type": []string{"string", "null"}}
	props := map[string]any{
		"bl_number":            nullableString,
		"booking_number":       nullableString,
		"shipper_name":         nullableString,
		"shipper_address":      nullableString,
		"consignee_name":       nullableString,
		"consignee_address":    nullableString,
		"notify_party_name":    nullableString,
		"notify_party_address": nullableString,
		"port_of_loading":      nullableString,
		"port_of_discharge":    nullableString,
		"port_of_delivery":     nullableString,
		"vessel_name":          nullableString,
		"voyage_number":        nullableString,
		"departure_date":       nullableString,
		"arrival_date":         nullableString,
		"cargo_description":    nullableString,
		"quantity":             nullableString,
		"weight":               nullableString,
		"volume":               nullableString,
		"container_numbers": map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": []string{"string", "null"}},
		},
		"freight_terms": nullableString,
		"issue_date":    nullableString,
		"issue_place":   nullableString,
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}
