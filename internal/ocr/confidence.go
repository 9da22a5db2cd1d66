package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate      = regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`)
	reContainer = regexp.MustCompile(`\b[a-z]{4}\d{7}\b`)
	reBLRef     = regexp.MustCompile(`\b(b/l|bill of lading|booking|connaissement)\b`)
	rePort      = regexp.MustCompile(`\b(port of (loading|discharge|delivery)|pol|pod|vessel|voyage)\b`)
	reWeight    = regexp.MustCompile(`\b\d+(\.\d+)?\s*(kg|lb|mt|cbm|m3)\b`)
)

// naive heuristic confidence based on decoded text characteristics
func heuristicConfidence(txt string) float32 {
	// boost if we see common bill-of-lading artifacts
	// (reference headings, container codes, ports, dates, weights)
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if reBLRef.MatchString(txtL) {
		score += 0.2
	}
	if rePort.MatchString(txtL) {
		score += 0.15
	}
	if reContainer.MatchString(txtL) {
		score += 0.15
	}
	if reDate.MatchString(txtL) {
		score += 0.1
	}
	if reWeight.MatchString(txtL) {
		score += 0.1
	}
	if len(txt) > 200 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
