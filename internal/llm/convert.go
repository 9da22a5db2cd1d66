package llm

import (
	"strings"

	"github.com/tbellec/ladingd/internal/record"
)

// ToRecord maps the flat model output onto the nested output record.
func (f Fields) ToRecord() record.BillOfLading {
	var rec record.BillOfLading

	rec.BLNumber = f.BLNumber
	rec.BookingNumber = f.BookingNumber

	if f.ShipperName != "" {
		rec.Shipper = &record.Party{Name: f.ShipperName, Address: f.ShipperAddress}
	}
	if f.ConsigneeName != "" {
		rec.Consignee = &record.Party{Name: f.ConsigneeName, Address: f.ConsigneeAddress}
	}
	if f.NotifyPartyName != "" {
		rec.NotifyParty = &record.Party{Name: f.NotifyPartyName, Address: f.NotifyPartyAddress}
	}

	if f.PortOfLoading != "" {
		rec.PortOfLoading = &record.Port{Name: f.PortOfLoading}
	}
	if f.PortOfDischarge != "" {
		rec.PortOfDischarge = &record.Port{Name: f.PortOfDischarge}
	}
	if f.PortOfDelivery != "" {
		rec.PortOfDelivery = &record.Port{Name: f.PortOfDelivery}
	}

	if f.VesselName != "" || f.VoyageNumber != "" {
		rec.Transport = &record.TransportDetails{
			VesselName:    f.VesselName,
			VoyageNumber:  f.VoyageNumber,
			BLNumber:      f.BLNumber,
			BookingNumber: f.BookingNumber,
			DepartureDate: f.DepartureDate,
			ArrivalDate:   f.ArrivalDate,
		}
	}

	if f.CargoDescription != "" {
		rec.Cargo = []record.Cargo{{
			Description: f.CargoDescription,
			Quantity:    f.Quantity,
			Weight:      f.Weight,
			Volume:      f.Volume,
		}}
	}

	for _, num := range f.ContainerNumbers {
		num = strings.TrimSpace(num)
		if num != "" {
			rec.Containers = append(rec.Containers, record.Container{Number: num})
		}
	}

	rec.FreightTerms = f.FreightTerms
	rec.IssueDate = f.IssueDate
	rec.IssuePlace = f.IssuePlace
	return rec
}

// Confidence scores the converted record by field coverage, with a
// small bonus because the model corrects OCR noise.
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

	important := []bool{
		rec.BookingNumber != "",
		rec.Transport != nil,
		len(rec.Cargo) > 0,
		rec.FreightTerms != "",
	}
	for _, ok := range important {
		total += 0.5
		if ok {
			filled += 0.5
		}
	}

	if len(rec.Containers) > 0 {
		filled += 0.2
	}
	total += 0.2

	if total == 0 {
		return 0
	}
	return record.Clip(filled / total * 1.1)
}
