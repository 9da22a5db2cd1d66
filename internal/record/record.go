// Package record defines the normalized bill-of-lading record, the
// provenance-ranked merge policy, and the output schema validation.
package record

import "strings"

// Party is one of the parties named on the bill of lading.
type Party struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Port identifies a port of loading, discharge or delivery.
type Port struct {
	Name    string `json:"name,omitempty"`
	Code    string `json:"code,omitempty"`
	Country string `json:"country,omitempty"`
}

// Cargo is one line of goods on the document.
type Cargo struct {
	Description  string `json:"description,omitempty"`
	Quantity     string `json:"quantity,omitempty"`
	Weight       string `json:"weight,omitempty"`
	Volume       string `json:"volume,omitempty"`
	PackageType  string `json:"package_type,omitempty"`
	MarksNumbers string `json:"marks_numbers,omitempty"`
}

// Container is one container listed on the document.
type Container struct {
	Number     string `json:"number,omitempty"`
	Size       string `json:"size,omitempty"`
	Type       string `json:"type,omitempty"`
	SealNumber string `json:"seal_number,omitempty"`
}

// TransportDetails groups vessel and voyage information.
type TransportDetails struct {
	VesselName    string `json:"vessel_name,omitempty"`
	VoyageNumber  string `json:"voyage_number,omitempty"`
	BookingNumber string `json:"booking_number,omitempty"`
	BLNumber      string `json:"bl_number,omitempty"`
	DepartureDate string `json:"departure_date,omitempty"`
	ArrivalDate   string `json:"arrival_date,omitempty"`
}

// BillOfLading is the normalized output record. Created fresh per
// request, never mutated after the response is written.
type BillOfLading struct {
	BLNumber      string `json:"bl_number,omitempty"`
	BookingNumber string `json:"booking_number,omitempty"`

	Shipper     *Party `json:"shipper,omitempty"`
	Consignee   *Party `json:"consignee,omitempty"`
	NotifyParty *Party `json:"notify_party,omitempty"`
	Carrier     *Party `json:"carrier,omitempty"`

	PortOfLoading   *Port `json:"port_of_loading,omitempty"`
	PortOfDischarge *Port `json:"port_of_discharge,omitempty"`
	PortOfDelivery  *Port `json:"port_of_delivery,omitempty"`

	Transport *TransportDetails `json:"transport_details,omitempty"`

	Cargo      []Cargo     `json:"cargo,omitempty"`
	Containers []Container `json:"containers,omitempty"`

	FreightTerms  string `json:"freight_terms,omitempty"`
	PaymentTerms  string `json:"payment_terms,omitempty"`
	DeliveryTerms string `json:"delivery_terms,omitempty"`
	IssueDate     string `json:"issue_date,omitempty"`
	IssuePlace    string `json:"issue_place,omitempty"`

	RawText string `json:"raw_text,omitempty"`

	ExtractionConfidence float32 `json:"extraction_confidence"`
	ExtractionMethod     string  `json:"extraction_method"`
}

// Source is the provenance of a partial result.
type Source string

const (
	SourceRegex  Source = "regex"
	SourceOCR    Source = "ocr"
	SourceLayout Source = "layout"
	SourceLLM    Source = "llm"
)

// rank orders sources by authority: llm > layout > ocr > regex.
func rank(s Source) int {
	switch s {
	case SourceLLM:
		return 3
	case SourceLayout:
		return 2
	case SourceOCR:
		return 1
	default:
		return 0
	}
}

// Partial is a sparsely-populated record produced by one backend step.
type Partial struct {
	Fields     BillOfLading
	Source     Source
	Confidence float32
}

// Clip bounds a confidence score to [0,1].
func Clip(c float32) float32 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func clean(s string) string { return strings.TrimSpace(s) }
