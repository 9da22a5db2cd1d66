package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("full record passes", func(t *testing.T) {
		rec := BillOfLading{
			BLNumber:  "MEDU12345678",
			Shipper:   &Party{Name: "ACME EXPORTS", Address: "1 HARBOUR RD"},
			Consignee: &Party{Name: "GLOBEX IMPORTS"},
			PortOfLoading:   &Port{Name: "SINGAPORE", Code: "SGSIN"},
			PortOfDischarge: &Port{Name: "ROTTERDAM", Code: "NLRTM"},
			Transport:       &TransportDetails{VesselName: "MSC OSCAR", VoyageNumber: "FA832"},
			Cargo:           []Cargo{{Description: "MACHINE PARTS", Weight: "1200 KG"}},
			Containers:      []Container{{Number: "MSCU1234567"}},
			FreightTerms:    "PREPAID",

			ExtractionConfidence: 0.83,
			ExtractionMethod:     "layout_paddleocr_llm",
		}
		require.NoError(t, Validate(rec))
	})

	t.Run("sparse record passes", func(t *testing.T) {
		rec := BillOfLading{
			ExtractionConfidence: 0,
			ExtractionMethod:     "regex",
		}
		assert.NoError(t, Validate(rec))
	})

	t.Run("missing method fails", func(t *testing.T) {
		rec := BillOfLading{ExtractionConfidence: 0.5}
		assert.Error(t, Validate(rec))
	})

	t.Run("out of range confidence fails", func(t *testing.T) {
		err := ValidateJSONAgainstSchema(BuildSchema(),
			[]byte(`{"extraction_confidence": 1.2, "extraction_method": "regex"}`))
		assert.Error(t, err)
	})

	t.Run("unknown keys fail", func(t *testing.T) {
		err := ValidateJSONAgainstSchema(BuildSchema(),
			[]byte(`{"extraction_confidence": 0.5, "extraction_method": "regex", "surprise": true}`))
		assert.Error(t, err)
	})
}
