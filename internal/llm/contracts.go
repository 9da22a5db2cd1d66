package llm

import (
	"context"

	"github.com/tbellec/ladingd/internal/record"
)

// Fields is the flat JSON shape we ask the model for. Nulls are
// allowed; empty strings mean "not found".
type Fields struct {
	BLNumber      string `json:"bl_number,omitempty"`
	BookingNumber string `json:"booking_number,omitempty"`

	ShipperName        string `json:"shipper_name,omitempty"`
	ShipperAddress     string `json:"shipper_address,omitempty"`
	ConsigneeName      string `json:"consignee_name,omitempty"`
	ConsigneeAddress   string `json:"consignee_address,omitempty"`
	NotifyPartyName    string `json:"notify_party_name,omitempty"`
	NotifyPartyAddress string `json:"notify_party_address,omitempty"`

	PortOfLoading   string `json:"port_of_loading,omitempty"`
	PortOfDischarge string `json:"port_of_discharge,omitempty"`
	PortOfDelivery  string `json:"port_of_delivery,omitempty"`

	VesselName    string `json:"vessel_name,omitempty"`
	VoyageNumber  string `json:"voyage_number,omitempty"`
	DepartureDate string `json:"departure_date,omitempty"`
	ArrivalDate   string `json:"arrival_date,omitempty"`

	CargoDescription string `json:"cargo_description,omitempty"`
	Quantity         string `json:"quantity,omitempty"`
	Weight           string `json:"weight,omitempty"`
	Volume           string `json:"volume,omitempty"`

	ContainerNumbers []string `json:"container_numbers,omitempty"`

	FreightTerms string `json:"freight_terms,omitempty"`
	IssueDate    string `json:"issue_date,omitempty"`
	IssuePlace   string `json:"issue_place,omitempty"`
}

// ExtractRequest carries the text (and optional layout context) the
// model refines into structured fields.
type ExtractRequest struct {
	Text         string
	Sections     map[string]string // layout-analysis sections, may be nil
	FilenameHint string
}

// FieldExtractor is the interface the cascade depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (record.Partial, []byte /*rawJSON*/, error)
}
