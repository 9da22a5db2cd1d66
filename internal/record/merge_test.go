package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorDoNoHarm(t *testing.T) {
	t.Run("lower authority never overwrites", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Merge(Partial{
			Fields: BillOfLading{BLNumber: "MSCU12345678"},
			Source: SourceLLM,
		})
		acc.Merge(Partial{
			Fields: BillOfLading{BLNumber: "GARBAGE"},
			Source: SourceRegex,
		})
		assert.Equal(t, "MSCU12345678", acc.Record().BLNumber)
	})

	t.Run("equal authority never overwrites", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Merge(Partial{Fields: BillOfLading{BLNumber: "FIRST123"}, Source: SourceOCR})
		acc.Merge(Partial{Fields: BillOfLading{BLNumber: "SECOND456"}, Source: SourceOCR})
		assert.Equal(t, "FIRST123", acc.Record().BLNumber)
	})

	t.Run("higher authority overwrites", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Merge(Partial{Fields: BillOfLading{BLNumber: "REGEX111"}, Source: SourceRegex})
		acc.Merge(Partial{Fields: BillOfLading{BLNumber: "LLM222"}, Source: SourceLLM})
		assert.Equal(t, "LLM222", acc.Record().BLNumber)
	})

	t.Run("empty value never erases", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Merge(Partial{Fields: BillOfLading{FreightTerms: "PREPAID"}, Source: SourceRegex})
		acc.Merge(Partial{Fields: BillOfLading{FreightTerms: "  "}, Source: SourceLLM})
		assert.Equal(t, "PREPAID", acc.Record().FreightTerms)
	})
}

func TestAccumulatorNestedMerge(t *testing.T) {
	acc := NewAccumulator()
	acc.Merge(Partial{
		Fields: BillOfLading{
			Shipper: &Party{Name: "ACME EXPORTS"},
		},
		Source: SourceRegex,
	})
	// A higher-authority source fills in the address without losing the
	// name it did not report.
	acc.Merge(Partial{
		Fields: BillOfLading{
			Shipper: &Party{Address: "1 HARBOUR RD, SINGAPORE"},
		},
		Source: SourceLLM,
	})

	rec := acc.Record()
	require.NotNil(t, rec.Shipper)
	assert.Equal(t, "ACME EXPORTS", rec.Shipper.Name)
	assert.Equal(t, "1 HARBOUR RD, SINGAPORE", rec.Shipper.Address)
}

func TestAccumulatorLists(t *testing.T) {
	acc := NewAccumulator()
	acc.Merge(Partial{
		Fields: BillOfLading{Containers: []Container{{Number: "MSCU1234567"}}},
		Source: SourceRegex,
	})
	acc.Merge(Partial{
		Fields: BillOfLading{Containers: []Container{
			{Number: "MSCU1234567", Size: "40", Type: "HC"},
			{Number: "TCNU7654321"},
		}},
		Source: SourceLLM,
	})
	// lists are replaced wholesale, only upward
	assert.Len(t, acc.Record().Containers, 2)

	acc.Merge(Partial{
		Fields: BillOfLading{Containers: []Container{{Number: "XXXX0000000"}}},
		Source: SourceOCR,
	})
	assert.Len(t, acc.Record().Containers, 2)
}

func TestFinalizeConfidence(t *testing.T) {
	t.Run("dominant source wins", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Merge(Partial{
			Fields: BillOfLading{
				BLNumber:      "ABCD1234",
				BookingNumber: "BK99",
				FreightTerms:  "COLLECT",
			},
			Source:     SourceLLM,
			Confidence: 0.9,
		})
		acc.Merge(Partial{
			Fields:     BillOfLading{IssueDate: "01/02/2024"},
			Source:     SourceRegex,
			Confidence: 0.3,
		})

		rec := acc.Finalize("paddleocr_llm")
		assert.Equal(t, "paddleocr_llm", rec.ExtractionMethod)
		assert.InDelta(t, 0.9, rec.ExtractionConfidence, 1e-6)
	})

	t.Run("confidence is clipped", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Merge(Partial{
			Fields:     BillOfLading{BLNumber: "ABCD1234"},
			Source:     SourceLLM,
			Confidence: 1.7,
		})
		rec := acc.Finalize("layout_llm")
		assert.LessOrEqual(t, rec.ExtractionConfidence, float32(1.0))
	})

	t.Run("empty accumulator yields zero confidence", func(t *testing.T) {
		acc := NewAccumulator()
		rec := acc.Finalize("regex")
		assert.Equal(t, float32(0), rec.ExtractionConfidence)
		assert.Equal(t, "regex", rec.ExtractionMethod)
	})
}

func TestClip(t *testing.T) {
	assert.Equal(t, float32(0), Clip(-0.2))
	assert.Equal(t, float32(1), Clip(1.5))
	assert.Equal(t, float32(0.42), Clip(0.42))
}
