// Package strategy decides which backend combinations to attempt for a
// document, in order, given the probed capabilities and the caller's
// toggles.
package strategy

import (
	"log/slog"

	"github.com/tbellec/ladingd/constants"
	"github.com/tbellec/ladingd/internal/capability"
)

// OCREngine names the OCR component a combination uses, if any.
type OCREngine string

const (
	OCRNone      OCREngine = ""
	OCRPaddle    OCREngine = "paddleocr"
	OCRTesseract OCREngine = "tesseract"
)

// Combination is one cascade step: which text sources to run and which
// field extractor structures the result.
type Combination struct {
	Method     string
	Requires   []constants.Backend
	UseLayout  bool
	OCR        OCREngine
	UsePDFText bool
	UseLLM     bool
}

// Options narrow the candidate list. They can only remove combinations,
// never add backends the probe did not find.
type Options struct {
	DisableLayout bool
	DisableLLM    bool
	// PreferredOCR removes combinations using the other engine when set
	// to "paddleocr" or "tesseract".
	PreferredOCR string
}

// pdfTable is ordered best-first. The last entry has no capability
// requirements so a PDF can always be attempted.
var pdfTable = []Combination{
	{
		Method:    constants.MethodLayoutOCRLLM,
		Requires:  []constants.Backend{constants.BackendLayout, constants.BackendModernOCR, constants.BackendLLM},
		UseLayout: true, OCR: OCRPaddle, UseLLM: true,
	},
	{
		Method:    constants.MethodLayoutLLM,
		Requires:  []constants.Backend{constants.BackendLayout, constants.BackendLLM},
		UseLayout: true, UseLLM: true,
	},
	{
		Method:   constants.MethodPaddleLLM,
		Requires: []constants.Backend{constants.BackendModernOCR, constants.BackendLLM},
		OCR:      OCRPaddle, UseLLM: true,
	},
	{
		Method:   constants.MethodTesseractLLM,
		Requires: []constants.Backend{constants.BackendLegacyOCR, constants.BackendLLM},
		OCR:      OCRTesseract, UseLLM: true,
	},
	{
		Method:    constants.MethodLayoutPaddleRgx,
		Requires:  []constants.Backend{constants.BackendLayout, constants.BackendModernOCR},
		UseLayout: true, OCR: OCRPaddle,
	},
	{
		Method:   constants.MethodPaddleRegex,
		Requires: []constants.Backend{constants.BackendModernOCR},
		OCR:      OCRPaddle,
	},
	{
		Method:   constants.MethodTesseractRegex,
		Requires: []constants.Backend{constants.BackendLegacyOCR},
		OCR:      OCRTesseract,
	},
	{
		Method:     constants.MethodPDFTextRegex,
		UsePDFText: true,
	},
}

// imageTable mirrors pdfTable without the layout and native-text steps.
// Images have no embedded text layer, so the terminal step is regex
// over whatever text earlier adapters produced.
var imageTable = []Combination{
	{
		Method:   constants.MethodPaddleLLM,
		Requires: []constants.Backend{constants.BackendModernOCR, constants.BackendLLM},
		OCR:      OCRPaddle, UseLLM: true,
	},
	{
		Method:   constants.MethodTesseractLLM,
		Requires: []constants.Backend{constants.BackendLegacyOCR, constants.BackendLLM},
		OCR:      OCRTesseract, UseLLM: true,
	},
	{
		Method:   constants.MethodPaddleRegex,
		Requires: []constants.Backend{constants.BackendModernOCR},
		OCR:      OCRPaddle,
	},
	{
		Method:   constants.MethodTesseractRegex,
		Requires: []constants.Backend{constants.BackendLegacyOCR},
		OCR:      OCRTesseract,
	},
	{
		Method: constants.MethodRegexOnly,
	},
}

// Selector filters the static tables against a capability set.
type Selector struct {
	caps   capability.Set
	logger *slog.Logger
}

func NewSelector(caps capability.Set, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{caps: caps, logger: logger}
}

// Select returns the ordered plan for the given format. The result is
// never empty: the terminal combination of each table has no capability
// requirements and survives every filter. Toggles asking for backends
// the probe did not find are downgraded silently.
func (s *Selector) Select(format constants.Format, opts Options) []Combination {
	table := pdfTable
	if format == constants.IMAGE {
		table = imageTable
	}

	var plan []Combination
	for i, c := range table {
		terminal := i == len(table)-1
		if !terminal && (!s.supported(c) || excluded(c, opts)) {
			continue
		}
		plan = append(plan, c)
	}

	s.logger.Debug("strategy.selected",
		"format", string(format),
		"steps", len(plan),
		"first", plan[0].Method,
	)
	return plan
}

func (s *Selector) supported(c Combination) bool {
	for _, b := range c.Requires {
		if !s.caps.Has(b) {
			return false
		}
	}
	return true
}

func excluded(c Combination, opts Options) bool {
	if opts.DisableLayout && c.UseLayout {
		return true
	}
	if opts.DisableLLM && c.UseLLM {
		return true
	}
	switch opts.PreferredOCR {
	case string(OCRPaddle):
		if c.OCR == OCRTesseract {
			return true
		}
	case string(OCRTesseract):
		if c.OCR == OCRPaddle {
			return true
		}
	}
	return false
}
