package record

// Accumulator reconciles partial results across cascade steps. A field
// already present is only overwritten by a strictly higher-authority
// source, and never with an empty value.
type Accumulator struct {
	rec   BillOfLading
	wrote map[string]Source  // field key -> provenance of last write
	conf  map[Source]float32 // last reported confidence per source
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		wrote: make(map[string]Source),
		conf:  make(map[Source]float32),
	}
}

// Merge folds a partial into the accumulator under the do-no-harm rule.
func (a *Accumulator) Merge(p Partial) {
	f := &p.Fields
	src := p.Source

	a.str("bl_number", &a.rec.BLNumber, f.BLNumber, src)
	a.str("booking_number", &a.rec.BookingNumber, f.BookingNumber, src)

	a.party("shipper", &a.rec.Shipper, f.Shipper, src)
	a.party("consignee", &a.rec.Consignee, f.Consignee, src)
	a.party("notify_party", &a.rec.NotifyParty, f.NotifyParty, src)
	a.party("carrier", &a.rec.Carrier, f.Carrier, src)

	a.port("port_of_loading", &a.rec.PortOfLoading, f.PortOfLoading, src)
	a.port("port_of_discharge", &a.rec.PortOfDischarge, f.PortOfDischarge, src)
	a.port("port_of_delivery", &a.rec.PortOfDelivery, f.PortOfDelivery, src)

	a.transport(f.Transport, src)

	if len(f.Cargo) > 0 && a.allow("cargo", src) {
		a.rec.Cargo = f.Cargo
		a.wrote["cargo"] = src
	}
	if len(f.Containers) > 0 && a.allow("containers", src) {
		a.rec.Containers = f.Containers
		a.wrote["containers"] = src
	}

	a.str("freight_terms", &a.rec.FreightTerms, f.FreightTerms, src)
	a.str("payment_terms", &a.rec.PaymentTerms, f.PaymentTerms, src)
	a.str("delivery_terms", &a.rec.DeliveryTerms, f.DeliveryTerms, src)
	a.str("issue_date", &a.rec.IssueDate, f.IssueDate, src)
	a.str("issue_place", &a.rec.IssuePlace, f.IssuePlace, src)

	if f.RawText != "" && a.rec.RawText == "" {
		a.rec.RawText = f.RawText
	}

	if p.Confidence > 0 {
		a.conf[src] = Clip(p.Confidence)
	}
}

// Record returns a copy of the merged record so far, without metadata.
func (a *Accumulator) Record() BillOfLading { return a.rec }

// Populated counts the non-empty scalar fields written so far.
func (a *Accumulator) Populated() int { return len(a.wrote) }

// Finalize stamps the method label and the dominant-source confidence.
func (a *Accumulator) Finalize(method string) BillOfLading {
	out := a.rec
	out.ExtractionMethod = method
	out.ExtractionConfidence = Clip(a.dominantConfidence())
	return out
}

// dominantConfidence is the confidence of whichever source wrote the
// majority of populated fields; ties go to the higher-authority source.
func (a *Accumulator) dominantConfidence() float32 {
	counts := make(map[Source]int)
	for _, s := range a.wrote {
		counts[s]++
	}
	var dominant Source
	best := -1
	for s, n := range counts {
		if n > best || (n == best && rank(s) > rank(dominant)) {
			dominant, best = s, n
		}
	}
	if best < 0 {
		return 0
	}
	if c, ok := a.conf[dominant]; ok {
		return c
	}
	// The dominant source never reported a confidence; fall back to the
	// best score any source reported.
	var max float32
	for _, c := range a.conf {
		if c > max {
			max = c
		}
	}
	return max
}

// allow reports whether src may overwrite the field under key.
func (a *Accumulator) allow(key string, src Source) bool {
	prev, ok := a.wrote[key]
	if !ok {
		return true
	}
	return rank(src) > rank(prev)
}

func (a *Accumulator) str(key string, dst *string, val string, src Source) {
	val = clean(val)
	if val == "" {
		return
	}
	if !a.allow(key, src) {
		return
	}
	*dst = val
	a.wrote[key] = src
}

func (a *Accumulator) party(key string, dst **Party, val *Party, src Source) {
	if val == nil {
		return
	}
	if *dst == nil {
		*dst = &Party{}
	}
	p := *dst
	a.str(key+".name", &p.Name, val.Name, src)
	a.str(key+".address", &p.Address, val.Address, src)
	a.str(key+".city", &p.City, val.City, src)
	a.str(key+".country", &p.Country, val.Country, src)
	a.str(key+".contact", &p.Contact, val.Contact, src)
	if *p == (Party{}) {
		*dst = nil
	}
}

func (a *Accumulator) port(key string, dst **Port, val *Port, src Source) {
	if val == nil {
		return
	}
	if *dst == nil {
		*dst = &Port{}
	}
	p := *dst
	a.str(key+".name", &p.Name, val.Name, src)
	a.str(key+".code", &p.Code, val.Code, src)
	a.str(key+".country", &p.Country, val.Country, src)
	if *p == (Port{}) {
		*dst = nil
	}
}

func (a *Accumulator) transport(val *TransportDetails, src Source) {
	if val == nil {
		return
	}
	if a.rec.Transport == nil {
		a.rec.Transport = &TransportDetails{}
	}
	t := a.rec.Transport
	a.str("transport.vessel_name", &t.VesselName, val.VesselName, src)
	a.str("transport.voyage_number", &t.VoyageNumber, val.VoyageNumber, src)
	a.str("transport.booking_number", &t.BookingNumber, val.BookingNumber, src)
	a.str("transport.bl_number", &t.BLNumber, val.BLNumber, src)
	a.str("transport.departure_date", &t.DepartureDate, val.DepartureDate, src)
	a.str("transport.arrival_date", &t.ArrivalDate, val.ArrivalDate, src)
	if *t == (TransportDetails{}) {
		a.rec.Transport = nil
	}
}
