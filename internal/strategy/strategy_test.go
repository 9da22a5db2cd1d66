package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbellec/ladingd/constants"
	"github.com/tbellec/ladingd/internal/capability"
)

func capsWith(backends ...constants.Backend) capability.Set {
	m := make(map[constants.Backend]capability.Info)
	for _, b := range backends {
		m[b] = capability.Info{Available: true}
	}
	return capability.NewSet(m)
}

func methods(plan []Combination) []string {
	out := make([]string, len(plan))
	for i, c := range plan {
		out[i] = c.Method
	}
	return out
}

func TestSelectFullCapabilities(t *testing.T) {
	sel := NewSelector(capsWith(
		constants.BackendLayout,
		constants.BackendModernOCR,
		constants.BackendLegacyOCR,
		constants.BackendLLM,
	), nil)

	plan := sel.Select(constants.PDF, Options{})
	require.NotEmpty(t, plan)

	// best plan combines structure analysis, modern OCR and the LLM
	assert.Equal(t, constants.MethodLayoutOCRLLM, plan[0].Method)
	// the terminal step never needs an optional backend
	last := plan[len(plan)-1]
	assert.Equal(t, constants.MethodPDFTextRegex, last.Method)
	assert.Empty(t, last.Requires)
}

func TestSelectDegradedHost(t *testing.T) {
	t.Run("no layout service", func(t *testing.T) {
		sel := NewSelector(capsWith(
			constants.BackendModernOCR,
			constants.BackendLLM,
		), nil)
		plan := sel.Select(constants.PDF, Options{})
		assert.Equal(t, constants.MethodPaddleLLM, plan[0].Method)
		for _, c := range plan {
			assert.False(t, c.UseLayout)
		}
	})

	t.Run("only legacy OCR", func(t *testing.T) {
		sel := NewSelector(capsWith(constants.BackendLegacyOCR), nil)
		plan := sel.Select(constants.PDF, Options{})
		assert.Equal(t, []string{
			constants.MethodTesseractRegex,
			constants.MethodPDFTextRegex,
		}, methods(plan))
	})

	t.Run("nothing available", func(t *testing.T) {
		sel := NewSelector(capability.NewSet(nil), nil)

		pdf := sel.Select(constants.PDF, Options{})
		require.Len(t, pdf, 1)
		assert.Equal(t, constants.MethodPDFTextRegex, pdf[0].Method)

		img := sel.Select(constants.IMAGE, Options{})
		require.Len(t, img, 1)
		assert.Equal(t, constants.MethodRegexOnly, img[0].Method)
	})
}

func TestSelectToggles(t *testing.T) {
	full := capsWith(
		constants.BackendLayout,
		constants.BackendModernOCR,
		constants.BackendLegacyOCR,
		constants.BackendLLM,
	)

	t.Run("disable llm removes every llm step", func(t *testing.T) {
		sel := NewSelector(full, nil)
		plan := sel.Select(constants.PDF, Options{DisableLLM: true})
		require.NotEmpty(t, plan)
		for _, c := range plan {
			assert.False(t, c.UseLLM, "method %s uses llm", c.Method)
		}
		assert.Equal(t, constants.MethodLayoutPaddleRgx, plan[0].Method)
	})

	t.Run("disable layout", func(t *testing.T) {
		sel := NewSelector(full, nil)
		plan := sel.Select(constants.PDF, Options{DisableLayout: true})
		for _, c := range plan {
			assert.False(t, c.UseLayout)
		}
		assert.Equal(t, constants.MethodPaddleLLM, plan[0].Method)
	})

	t.Run("preferred ocr engine narrows", func(t *testing.T) {
		sel := NewSelector(full, nil)
		plan := sel.Select(constants.IMAGE, Options{PreferredOCR: "tesseract"})
		for _, c := range plan[:len(plan)-1] {
			assert.NotEqual(t, OCRPaddle, c.OCR)
		}
		assert.Equal(t, constants.MethodTesseractLLM, plan[0].Method)
	})

	t.Run("toggles cannot empty the plan", func(t *testing.T) {
		sel := NewSelector(capability.NewSet(nil), nil)
		plan := sel.Select(constants.IMAGE, Options{
			DisableLayout: true,
			DisableLLM:    true,
			PreferredOCR:  "paddleocr",
		})
		require.Len(t, plan, 1)
		assert.Equal(t, constants.MethodRegexOnly, plan[0].Method)
	})

	t.Run("toggle for an absent backend is a no-op", func(t *testing.T) {
		sel := NewSelector(capsWith(constants.BackendLegacyOCR), nil)
		with := sel.Select(constants.IMAGE, Options{})
		without := sel.Select(constants.IMAGE, Options{DisableLLM: true})
		assert.Equal(t, methods(with), methods(without))
	})
}

func TestSelectImageNeverUsesPDFSteps(t *testing.T) {
	sel := NewSelector(capsWith(
		constants.BackendLayout,
		constants.BackendModernOCR,
		constants.BackendLegacyOCR,
		constants.BackendLLM,
	), nil)
	plan := sel.Select(constants.IMAGE, Options{})
	for _, c := range plan {
		assert.False(t, c.UsePDFText)
		assert.False(t, c.UseLayout)
	}
}
