package ocr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/tbellec/ladingd/constants"
)

const (
	maxTextBytes = 512 * 1024 // cap for extracted native text
	// chars per page below which a PDF is considered scanned
	scannedThreshold = 50

	pdfTextConfidence = 0.75
)

// ExtractPDFText reads the native text layer of a PDF in-process. It
// needs no optional capability and never panics; scanned PDFs yield a
// result with Text == "" so callers move on to OCR.
func ExtractPDFText(data []byte) (res Result) {
	res = Result{
		SourceType: constants.PDF,
		Method:     "pdf-text",
		Pages:      1,
	}

	defer func() {
		if r := recover(); r != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("panic during PDF text extraction: %v", r))
			res.Text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("open PDF reader: %v", err))
		return res
	}

	res.Pages = reader.NumPage()
	if res.Pages < 1 {
		res.Pages = 1
	}

	plainText, err := reader.GetPlainText()
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("extract plain text: %v", err))
		return res
	}
	raw, err := io.ReadAll(io.LimitReader(plainText, int64(maxTextBytes)))
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("read plain text: %v", err))
		return res
	}

	txt := Normalize(string(raw))
	if len(txt)/res.Pages < scannedThreshold {
		// likely a scanned document, the text layer is useless
		res.Warnings = append(res.Warnings, "native text layer too sparse, PDF looks scanned")
		return res
	}

	res.Text = txt
	res.Confidence = pdfTextConfidence * heuristicWeight(txt)
	return res
}

// heuristicWeight scales a fixed base confidence by how document-like
// the text layer looks.
func heuristicWeight(txt string) float32 {
	h := heuristicConfidence(txt)
	// native text is trustworthy even when artifacts are missing
	if h < 0.5 {
		return 0.8
	}
	return 1.0
}
