package llm

import (
	"encoding/json"
	"strings"
)

const maxPromptText = 6000

// BuildPrompt assembles the extraction prompt: document text, optional
// layout sections, and the exact JSON shape the model must return.
func BuildPrompt(req ExtractRequest) string {
	var b strings.Builder
	b.WriteString("Extract the data from this bill of lading and return ONLY valid JSON.\n\n")
	if req.FilenameHint != "" {
		b.WriteString("Filename: ")
		b.WriteString(req.FilenameHint)
		b.WriteString("\n\n")
	}
	b.WriteString("Bill of lading text:\n")
	if len(req.Text) > maxPromptText {
		b.WriteString(req.Text[:maxPromptText])
	} else {
		b.WriteString(req.Text)
	}

	if len(req.Sections) > 0 {
		secJSON, _ := json.MarshalIndent(req.Sections, "", "  ")
		b.WriteString("\n\nAdditional structured sections from layout analysis:\n")
		b.Write(secJSON)
		b.WriteString("\nUse these sections to locate the right values.")
	}

	b.WriteString(`

Return a JSON object with these fields (use null when not found):
{
  "bl_number": "bill of lading number",
  "booking_number": "booking number",
  "shipper_name": "shipper name",
  "shipper_address": "full shipper address",
  "consignee_name": "consignee name",
  "consignee_address": "full consignee address",
  "notify_party_name": "notify party name",
  "notify_party_address": "notify party address",
  "port_of_loading": "port of loading",
  "port_of_discharge": "port of discharge",
  "port_of_delivery": "port of delivery",
  "vessel_name": "vessel name",
  "voyage_number": "voyage number",
  "departure_date": "departure date",
  "arrival_date": "arrival date",
  "cargo_description": "description of goods",
  "quantity": "quantity",
  "weight": "weight",
  "volume": "volume",
  "container_numbers": ["list of container numbers"],
  "freight_terms": "freight terms (PREPAID/COLLECT)",
  "issue_date": "issue date",
  "issue_place": "place of issue"
}

Rules:
- Return ONLY the JSON, no text before or after.
- Use null for fields that are not found.
- Fix obvious OCR mistakes (0->O, 1->I, etc.).
- Keep date formats as written.`)
	return b.String()
}
