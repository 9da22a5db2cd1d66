package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbellec/ladingd/internal/record"
)

const sampleBL = `
BILL OF LADING NO: MSCUAB123456
BOOKING NO: BK12345678
SHIPPER: ACME EXPORTS PTE LTD
CONSIGNEE: GLOBEX IMPORT GMBH
PORT OF LOADING: SINGAPORE
PORT OF DISCHARGE: ROTTERDAM
VESSEL: MSC OSCAR
VOYAGE NO: FA832A
CONTAINER NO: MSCU1234567
DESCRIPTION OF GOODS: INDUSTRIAL MACHINE PARTS
GROSS WEIGHT: 12500 KG
FREIGHT PREPAID
ISSUE DATE: 15/01/2024
`

func TestParseSample(t *testing.T) {
	p := New(nil)
	partial := p.Parse(sampleBL)

	assert.Equal(t, record.SourceRegex, partial.Source)

	rec := partial.Fields
	assert.Equal(t, "MSCUAB123456", rec.BLNumber)
	assert.Equal(t, "BK12345678", rec.BookingNumber)

	require.NotNil(t, rec.Shipper)
	assert.True(t, strings.HasPrefix(rec.Shipper.Name, "ACME EXPORTS"))
	require.NotNil(t, rec.Consignee)
	assert.True(t, strings.HasPrefix(rec.Consignee.Name, "GLOBEX IMPORT"))

	require.NotNil(t, rec.PortOfLoading)
	assert.Contains(t, rec.PortOfLoading.Name, "SINGAPORE")
	require.NotNil(t, rec.PortOfDischarge)
	assert.Contains(t, rec.PortOfDischarge.Name, "ROTTERDAM")

	require.NotNil(t, rec.Transport)
	assert.Contains(t, rec.Transport.VesselName, "MSC OSCAR")

	require.Len(t, rec.Containers, 1)
	assert.Equal(t, "MSCU1234567", rec.Containers[0].Number)

	require.Len(t, rec.Cargo, 1)
	assert.Contains(t, rec.Cargo[0].Description, "INDUSTRIAL MACHINE PARTS")
	assert.Contains(t, rec.Cargo[0].Weight, "12500")

	assert.Equal(t, "PREPAID", rec.FreightTerms)
	assert.Equal(t, "15/01/2024", rec.IssueDate)

	// every critical field was found
	assert.GreaterOrEqual(t, partial.Confidence, float32(0.8))
}

func TestParseEmptyText(t *testing.T) {
	p := New(nil)
	partial := p.Parse("")
	assert.Equal(t, record.SourceRegex, partial.Source)
	assert.Equal(t, float32(0), partial.Confidence)
	assert.Empty(t, partial.Fields.BLNumber)
	assert.Nil(t, partial.Fields.Shipper)
}

func TestParseIrrelevantText(t *testing.T) {
	p := New(nil)
	partial := p.Parse("lorem ipsum dolor sit amet, consectetur adipiscing elit")
	assert.Less(t, partial.Confidence, float32(0.3))
}

func TestCleanText(t *testing.T) {
	got := cleanText("b/l  no:\tABC  123\n\nport")
	assert.Equal(t, "B/L NO: ABC 123 PORT", got)
}

func TestConfidenceWeights(t *testing.T) {
	t.Run("empty record scores zero", func(t *testing.T) {
		assert.Equal(t, float32(0), Confidence(record.BillOfLading{}))
	})

	t.Run("critical fields dominate", func(t *testing.T) {
		critical := Confidence(record.BillOfLading{
			BLNumber:        "ABCD1234",
			Shipper:         &record.Party{Name: "A"},
			Consignee:       &record.Party{Name: "B"},
			PortOfLoading:   &record.Port{Name: "X"},
			PortOfDischarge: &record.Port{Name: "Y"},
		})
		bonusOnly := Confidence(record.BillOfLading{
			BookingNumber: "BK1",
			Containers:    []record.Container{{Number: "ABCD1234567"}},
		})
		assert.Greater(t, critical, bonusOnly)
		assert.InDelta(t, 5.0/7.0, critical, 1e-6)
	})
}

func TestContainerDeduplication(t *testing.T) {
	p := New(nil)
	partial := p.Parse("CONTAINER NO: MSCU1234567 CONTAINER NO: MSCU1234567")
	assert.Len(t, partial.Fields.Containers, 1)
}
