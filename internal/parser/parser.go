// Package parser is the regex fallback: it structures OCR text into a
// sparse record with no external dependency, so the cascade always has
// a final step that can run.
package parser

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/tbellec/ladingd/internal/record"
)

var (
	reSpecials   = regexp.MustCompile(`[^\w\s\-.:,/()#]`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// patterns maps field names to alternatives tried in order; the first
// capture group of the first match wins.
var patterns = map[string][]*regexp.Regexp{
	"bl_number": {
		regexp.MustCompile(`(?i)(?:B/L|BL|BILL OF LADING)[\s\w]*:?\s*([A-Z0-9]{8,20})`),
		regexp.MustCompile(`(?i)(?:BILL OF LADING|BL)\s*(?:NO|NUMBER|#):?\s*([A-Z0-9]{8,20})`),
		regexp.MustCompile(`(?i)(?:CONNAISSEMENT)[\s\w]*:?\s*([A-Z0-9]{8,20})`),
	},
	"booking_number": {
		regexp.MustCompile(`(?i)(?:BOOKING)[\s\w]*:?\s*([A-Z0-9]{8,20})`),
		regexp.MustCompile(`(?i)(?:BOOKING|BKG)\s*(?:NO|NUMBER|#):?\s*([A-Z0-9]{8,20})`),
	},
	"container_number": {
		regexp.MustCompile(`(?i)(?:CONTAINER|CONTENEUR)[\s\w]*:?\s*([A-Z]{4}[0-9]{7})`),
		regexp.MustCompile(`(?i)(?:CNTR|CTR)\s*(?:NO|NUMBER|#):?\s*([A-Z]{4}[0-9]{7})`),
	},
	"vessel_name": {
		regexp.MustCompile(`(?i)(?:VESSEL|NAVIRE|SHIP)[\s\w]*:?\s*([A-Z][A-Z\s]{2,29})`),
	},
	"voyage_number": {
		regexp.MustCompile(`(?i)(?:VOYAGE|VOY)\s*(?:NO|NUMBER|#)?:?\s*([A-Z0-9]{3,15})`),
	},
	"port_of_loading": {
		regexp.MustCompile(`(?i)(?:PORT OF LOADING|POL|PORT DE CHARGEMENT):?\s*([A-Z][A-Z\s,]{4,39})`),
		regexp.MustCompile(`(?i)(?:LOADED ON BOARD):?\s*([A-Z][A-Z\s,]{4,39})`),
	},
	"port_of_discharge": {
		regexp.MustCompile(`(?i)(?:PORT OF DISCHARGE|POD|PORT DE DECHARGEMENT):?\s*([A-Z][A-Z\s,]{4,39})`),
	},
	"shipper": {
		regexp.MustCompile(`(?i)(?:SHIPPER|EXPEDITEUR|CHARGEUR)\s*:?\s*([A-Za-z][A-Za-z\s\d,.\-]{9,99})`),
	},
	"consignee": {
		regexp.MustCompile(`(?i)(?:CONSIGNEE|DESTINATAIRE)\s*:?\s*([A-Za-z][A-Za-z\s\d,.\-]{9,99})`),
	},
	"notify_party": {
		regexp.MustCompile(`(?i)(?:NOTIFY PARTY|NOTIFY)\s*:?\s*([A-Za-z][A-Za-z\s\d,.\-]{9,99})`),
	},
	"freight_terms": {
		regexp.MustCompile(`(?i)(?:FREIGHT|FRET)[\s\w]*:?\s*(PREPAID|COLLECT|PAYABLE|PREPAYE)`),
	},
	"issue_date": {
		regexp.MustCompile(`(?i)(?:ISSUE|EMISSION|ISSUED|DATE)[\s\w]*:?\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`),
	},
	"weight": {
		regexp.MustCompile(`(?i)(?:GROSS\s*)?(?:WEIGHT|POIDS)[\s\w]*:?\s*(\d+(?:\.\d+)?\s*(?:KG|LB|MT|T))`),
	},
	"volume": {
		regexp.MustCompile(`(?i)(?:VOLUME|MEASUREMENT)[\s\w]*:?\s*(\d+(?:\.\d+)?\s*(?:CBM|M3))`),
	},
}

var cargoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:DESCRIPTION OF GOODS|DESCRIPTION|GOODS|MARCHANDISES)[\s\w]*:?\s*([A-Za-z][A-Za-z\s\d,.\-]{9,199})`),
	regexp.MustCompile(`(?i)(?:COMMODITY)[\s\w]*:?\s*([A-Za-z][A-Za-z\s\d,.\-]{9,199})`),
}

// Parser structures cleaned OCR text with fixed regex patterns.
type Parser struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse never fails: on empty or hopeless text it returns an empty
// partial with zero confidence.
func (p *Parser) Parse(text string) record.Partial {
	cleaned := cleanText(text)

	var rec record.BillOfLading
	rec.BLNumber = extractField(cleaned, "bl_number")
	rec.BookingNumber = extractField(cleaned, "booking_number")

	rec.Shipper = extractParty(cleaned, "shipper")
	rec.Consignee = extractParty(cleaned, "consignee")
	rec.NotifyParty = extractParty(cleaned, "notify_party")

	rec.PortOfLoading = extractPort(cleaned, "port_of_loading")
	rec.PortOfDischarge = extractPort(cleaned, "port_of_discharge")

	rec.Transport = extractTransport(cleaned)
	rec.Cargo = extractCargo(cleaned)
	rec.Containers = extractContainers(cleaned)

	rec.FreightTerms = extractField(cleaned, "freight_terms")
	rec.IssueDate = extractField(cleaned, "issue_date")

	conf := Confidence(rec)
	p.logger.Debug("parser.done", "confidence", conf, "bl_number", rec.BLNumber)

	return record.Partial{Fields: rec, Source: record.SourceRegex, Confidence: conf}
}

// cleanText strips special characters, collapses whitespace and
// uppercases for pattern matching.
func cleanText(text string) string {
	cleaned := reSpecials.ReplaceAllString(text, " ")
	cleaned = reWhitespace.ReplaceAllString(cleaned, " ")
	return strings.ToUpper(strings.TrimSpace(cleaned))
}

func extractField(text, name string) string {
	for _, re := range patterns[name] {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func extractParty(text, name string) *record.Party {
	info := extractField(text, name)
	if info == "" {
		return nil
	}
	lines := strings.SplitN(info, "\n", 2)
	party := &record.Party{Name: strings.TrimSpace(lines[0])}
	if len(lines) > 1 {
		party.Address = strings.TrimSpace(lines[1])
	}
	return party
}

func extractPort(text, name string) *record.Port {
	info := extractField(text, name)
	if info == "" {
		return nil
	}
	return &record.Port{Name: strings.TrimSpace(info)}
}

func extractTransport(text string) *record.TransportDetails {
	t := &record.TransportDetails{
		VesselName:    extractField(text, "vessel_name"),
		VoyageNumber:  extractField(text, "voyage_number"),
		BLNumber:      extractField(text, "bl_number"),
		BookingNumber: extractField(text, "booking_number"),
	}
	if t.VesselName == "" && t.VoyageNumber == "" && t.BLNumber == "" {
		return nil
	}
	return t
}

func extractCargo(text string) []record.Cargo {
	for _, re := range cargoPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return []record.Cargo{{
				Description: strings.TrimSpace(m[1]),
				Weight:      extractField(text, "weight"),
				Volume:      extractField(text, "volume"),
			}}
		}
	}
	return nil
}

func extractContainers(text string) []record.Container {
	seen := make(map[string]struct{})
	var out []record.Container
	for _, re := range patterns["container_number"] {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			num := strings.TrimSpace(m[1])
			if _, dup := seen[num]; dup || num == "" {
				continue
			}
			seen[num] = struct{}{}
			out = append(out, record.Container{Number: num})
		}
	}
	return out
}

// Confidence scores field coverage: critical fields weigh 1, bonus
// fields 0.5.
func Confidence(rec record.BillOfLading) float32 {
	var total, filled float32

	critical := []bool{
		rec.BLNumber != "",
		rec.Shipper != nil,
		rec.Consignee != nil,
		rec.PortOfLoading != nil,
		rec.PortOfDischarge != nil,
	}
	for _, ok := range critical {
		total++
		if ok {
			filled++
		}
	}

	bonus := []bool{
		rec.BookingNumber != "",
		rec.Transport != nil,
		len(rec.Cargo) > 0,
		len(rec.Containers) > 0,
	}
	for _, ok := range bonus {
		total += 0.5
		if ok {
			filled += 0.5
		}
	}

	if total == 0 {
		return 0
	}
	return record.Clip(filled / total)
}
