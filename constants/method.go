package constants

// Backend names the optional extraction capabilities probed at startup.
type Backend string

const (
	BackendLayout    Backend = "layout-analysis"
	BackendModernOCR Backend = "modern-ocr"
	BackendLegacyOCR Backend = "legacy-ocr"
	BackendLLM       Backend = "llm-enhancement"
	BackendGPU       Backend = "gpu-acceleration"
)

// Method labels the exact backend combination that produced a record.
// Stable values (reported in responses and stored in the job history).
const (
	MethodLayoutOCRLLM    = "layout_paddleocr_llm"
	MethodLayoutLLM       = "layout_llm"
	MethodPaddleLLM       = "paddleocr_llm"
	MethodTesseractLLM    = "tesseract_llm"
	MethodLayoutPaddleRgx = "layout_paddleocr_regex"
	MethodPaddleRegex     = "paddleocr_regex"
	MethodTesseractRegex  = "tesseract_regex"
	MethodPDFTextRegex    = "pdftext_regex"
	MethodRegexOnly       = "regex"
)
