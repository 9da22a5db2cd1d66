package llm

import (
	"encoding/json"
	"strings"
)

var knownKeys = map[string]struct{}{
	"bl_number": {}, "booking_number": {},
	"shipper_name": {}, "shipper_address": {},
	"consignee_name": {}, "consignee_address": {},
	"notify_party_name": {}, "notify_party_address": {},
	"port_of_loading": {}, "port_of_discharge": {}, "port_of_delivery": {},
	"vessel_name": {}, "voyage_number": {},
	"departure_date": {}, "arrival_date": {},
	"cargo_description": {}, "quantity": {}, "weight": {}, "volume": {},
	"container_numbers": {},
	"freight_terms":     {}, "issue_date": {}, "issue_place": {},
}

// CleanModelResponse strips markdown fences and any chatter around the
// JSON object the model was asked for.
func CleanModelResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	// keep only the outermost object
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}

// SanitizeModelOutput drops keys outside the fixed schema and literal
// "null" strings, so small model slips don't fail validation. Returns
// the cleaned JSON and the dropped key names.
func SanitizeModelOutput(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	var dropped []string
	for k, v := range m {
		if _, ok := knownKeys[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k)
			continue
		}
		if s, ok := v.(string); ok && strings.EqualFold(strings.TrimSpace(s), "null") {
			delete(m, k)
			dropped = append(dropped, k)
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, err
	}
	return out, dropped, nil
}
